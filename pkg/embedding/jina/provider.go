package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vlm-search-agent/pkg/embedding"
)

const (
	defaultBaseURL   = "https://api.jina.ai/v1/embeddings"
	defaultModel     = "jina-embeddings-v2-base-en"
	defaultBatchSize = 128
)

// JinaProvider embeds sentences through the Jina embeddings API. Large inputs
// are sent in batches and reassembled in input order.
type JinaProvider struct {
	apiKey    string
	baseURL   string
	model     string
	batchSize int
	client    *http.Client
}

var _ embedding.EmbeddingProvider = &JinaProvider{}

type Option func(*JinaProvider)

func WithBaseURL(baseURL string) Option {
	return func(p *JinaProvider) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

func WithModel(model string) Option {
	return func(p *JinaProvider) {
		if model != "" {
			p.model = model
		}
	}
}

func WithBatchSize(n int) Option {
	return func(p *JinaProvider) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewJinaProvider(apiKey string, opts ...Option) *JinaProvider {
	p := &JinaProvider{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		model:     defaultModel,
		batchSize: defaultBatchSize,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *JinaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		vecs, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("jina batch %d-%d: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (p *JinaProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jina api error (status %d): %s", resp.StatusCode, string(raw))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("jina api returned error: %s", parsed.Error.Message)
	}
	if err := embedding.CheckCount("jina", len(texts), len(parsed.Data)); err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("jina api returned out of range index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
