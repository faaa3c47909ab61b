package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"vlm-search-agent/internal/config"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/agent"
	"vlm-search-agent/pkg/embedding"
	embeddingFactory "vlm-search-agent/pkg/embedding/factory"
	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/passage"
	"vlm-search-agent/pkg/ranker"
	"vlm-search-agent/pkg/retriever"
	"vlm-search-agent/pkg/search"
	"vlm-search-agent/pkg/verifier"
	"vlm-search-agent/pkg/vlm"
	vlmFactory "vlm-search-agent/pkg/vlm/factory"

	"github.com/redis/go-redis/v9"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// AgentFactory holds the backends every agent shares (model, embedder,
// search engines) and builds agents around a per-agent passage store.
type AgentFactory struct {
	cfg    *config.Config
	logger logger.ILogger

	model    vlm.VLMProvider
	embedder embedding.EmbeddingProvider
	engines  []search.Engine
	fetcher  retriever.PageFetcher
	loader   imaging.Loader
	prompts  agent.PromptSet
	redis    *redis.Client
}

type FactoryOption func(*AgentFactory)

// WithRedis makes sessions keep passages in redis when PASSAGE_STORE=redis.
func WithRedis(rdb *redis.Client) FactoryOption {
	return func(f *AgentFactory) {
		f.redis = rdb
	}
}

func NewAgentFactory(cfg *config.Config, log logger.ILogger, opts ...FactoryOption) (*AgentFactory, error) {
	model, err := vlmFactory.NewVLMProvider(cfg.VLM.Provider, cfg.VLM.Model, cfg.VLM.BaseURL, cfg.VLM.APIKey, cfg.VLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("init vlm provider: %w", err)
	}
	if cfg.VLM.MaxTokens > 0 {
		model = vlm.WithDefaults(model, vlm.WithMaxTokens(cfg.VLM.MaxTokens))
	}
	log.Info("bootstrap", "vlm provider ready", map[string]interface{}{
		"provider": cfg.VLM.Provider,
		"model":    cfg.VLM.Model,
	})

	embedder, err := embeddingFactory.NewEmbeddingProvider(cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.APIKey)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	log.Info("bootstrap", "embedding provider ready", map[string]interface{}{
		"provider": cfg.Embedding.Provider,
		"model":    cfg.Embedding.Model,
	})

	prompts, err := agent.LoadPromptSet(cfg.Agent.PromptFile)
	if err != nil {
		return nil, err
	}

	client := search.ClientOptions{
		Timeout:        cfg.Search.FetchTimeout,
		RetryAttempts:  cfg.Search.RetryAttempts,
		RetryDelay:     cfg.Search.RetryDelay,
		RequestsPerSec: cfg.Search.RequestsPerSec,
	}
	engines := []search.Engine{
		search.NewVisualSearch(search.VisualOptions{
			BaseURL:     cfg.Search.BaseURL,
			MaxResults:  cfg.Search.MaxResults,
			MaxAttempts: cfg.Search.MaxAttempts,
			PageDelay:   cfg.Search.PageDelay,
			Client:      client,
		}, log),
		search.NewExactMatchSearch(search.ExactMatchOptions{
			BaseURL:    cfg.Search.BaseURL,
			MaxResults: search.DefaultExactMatchOptions().MaxResults,
			Client:     client,
		}, log),
	}

	f := &AgentFactory{
		cfg:      cfg,
		logger:   log,
		model:    model,
		embedder: embedder,
		engines:  engines,
		fetcher:  retriever.NewHTTPPageFetcher(cfg.Search.FetchTimeout),
		loader:   imaging.NewHTTPLoader(cfg.Agent.ImageTimeout),
		prompts:  prompts,
	}
	for _, opt := range opts {
		opt(f)
	}
	if cfg.Agent.StoreKind == "redis" && f.redis == nil {
		return nil, fmt.Errorf("passage store %q needs a redis client", cfg.Agent.StoreKind)
	}
	return f, nil
}

// New builds an agent over store, writing its output to sink.
func (f *AgentFactory) New(store passage.Store, sink agent.Sink) (*agent.Agent, error) {
	opts := retriever.DefaultOptions()
	opts.Trusted = search.TrustedSource{TitleMarker: f.cfg.Search.TitleMarker, HostMarker: f.cfg.Search.HostMarker}
	opts.MinParagraphLength = f.cfg.Agent.MinParagraphLength
	opts.ChunkSentences = f.cfg.Agent.ChunkSentences
	opts.FetchWorkers = f.cfg.Search.FetchWorkers
	opts.LogCandidates = f.cfg.Agent.PrintSearchResults

	return agent.NewAgent(
		f.model,
		f.loader,
		retriever.NewRetriever(f.engines, f.fetcher, store, opts, f.logger),
		ranker.NewRanker(f.embedder, store, f.logger),
		verifier.NewVerifier(f.model, f.prompts.VerifierPrompts(), f.logger),
		f.logger,
		agent.WithPrompts(f.prompts),
		agent.WithTopK(f.cfg.Agent.TopK),
		agent.WithAggregation(f.cfg.Agent.Aggregate),
		agent.WithSink(sink),
	)
}

// Build gives a web session its own buffered agent and passage store.
func (f *AgentFactory) Build(sessionID string) (*agent.Agent, error) {
	store, err := f.SessionStore(sessionID)
	if err != nil {
		return nil, err
	}
	return f.New(store, agent.NewBufferSink())
}

// Release drops the passages stored for sessionID.
func (f *AgentFactory) Release(sessionID string) {
	if f.cfg.Agent.StoreKind == "redis" || !sessionIDPattern.MatchString(sessionID) {
		// redis entries expire on their own
		return
	}
	path := filepath.Join(f.cfg.Agent.StoreDir, sessionID+".json")
	for _, p := range []string{path, path + ".lock"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			f.logger.Warn("bootstrap", "remove session store", map[string]interface{}{"path": p, "error": err.Error()})
		}
	}
}

func (f *AgentFactory) SessionStore(sessionID string) (passage.Store, error) {
	if !sessionIDPattern.MatchString(sessionID) {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}
	if f.cfg.Agent.StoreKind == "redis" {
		return passage.NewRedisStore(f.redis, sessionID, 2*time.Hour), nil
	}
	if err := os.MkdirAll(f.cfg.Agent.StoreDir, 0o755); err != nil {
		return nil, fmt.Errorf("create passage store dir: %w", err)
	}
	return passage.NewFileStore(filepath.Join(f.cfg.Agent.StoreDir, sessionID+".json")), nil
}

// TerminalStore is the single well-known store used by the chat binary.
func (f *AgentFactory) TerminalStore() passage.Store {
	if f.cfg.Agent.StoreKind == "redis" {
		return passage.NewRedisStore(f.redis, "terminal", 0)
	}
	return passage.NewFileStore(f.cfg.Agent.StorePath)
}
