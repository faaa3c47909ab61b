package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"vlm-search-agent/internal/constant"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/metrics"
	"vlm-search-agent/pkg/passage"
	"vlm-search-agent/pkg/ranker"
	"vlm-search-agent/pkg/sentinel"
	"vlm-search-agent/pkg/verifier"
	"vlm-search-agent/pkg/vlm"
)

// DefaultTopK is how many ranked passages go through verification.
const DefaultTopK = 10

// ErrBusy is returned by TryAnswer while another question is running.
var ErrBusy = errors.New("agent is answering another question")

type Retriever interface {
	Retrieve(ctx context.Context, imageURL string) ([]passage.Passage, error)
}

type Ranker interface {
	Rank(ctx context.Context, query string, k int) ([]ranker.RankedPassage, error)
}

type Verifier interface {
	Verify(ctx context.Context, image *imaging.Image, p passage.Passage, question string) (verifier.Verdict, error)
}

type Mode string

const (
	ModeDirect Mode = "direct"
	ModeSearch Mode = "search"
)

// Finding is one answer the self-check accepted.
type Finding struct {
	Context int             `json:"context"` // 1-based rank position
	Answer  string          `json:"answer"`
	Passage passage.Passage `json:"passage"`
	Score   float64         `json:"score"`
}

// Result is the structured outcome of one question.
type Result struct {
	Mode         Mode      `json:"mode"`
	ImageURL     string    `json:"image_url"`
	Question     string    `json:"question"`
	DirectReply  string    `json:"direct_reply,omitempty"`
	InitialReply string    `json:"initial_reply,omitempty"`
	Keywords     string    `json:"keywords,omitempty"`
	Retrieved    bool      `json:"retrieved"`
	Findings     []Finding `json:"findings"`
	Skipped      int       `json:"skipped"`
	Unparseable  int       `json:"unparseable"`
	FinalAnswer  string    `json:"final_answer,omitempty"`
	Output       string    `json:"-"`
}

// Verdicts is how many passages reached a verdict.
func (r *Result) Verdicts() int {
	return len(r.Findings) + r.Skipped + r.Unparseable
}

type Option func(*Agent)

func WithTopK(k int) Option {
	return func(a *Agent) {
		a.topK = k
	}
}

func WithAggregation(enabled bool) Option {
	return func(a *Agent) {
		a.aggregate = enabled
	}
}

func WithSink(s Sink) Option {
	return func(a *Agent) {
		a.sink = s
	}
}

func WithPrompts(p PromptSet) Option {
	return func(a *Agent) {
		a.prompts = p
	}
}

// Agent answers questions about one active image at a time. Search results
// are fetched once per image and reused until the image changes.
type Agent struct {
	model     vlm.VLMProvider
	loader    imaging.Loader
	retriever Retriever
	ranker    Ranker
	verifier  Verifier
	logger    logger.ILogger

	prompts   PromptSet
	sink      Sink
	topK      int
	aggregate bool

	mu      sync.Mutex
	session Session
}

func NewAgent(model vlm.VLMProvider, loader imaging.Loader, retriever Retriever, rk Ranker, vf Verifier, log logger.ILogger, opts ...Option) (*Agent, error) {
	a := &Agent{
		model:     model,
		loader:    loader,
		retriever: retriever,
		ranker:    rk,
		verifier:  vf,
		logger:    log,
		prompts:   DefaultPromptSet(),
		sink:      NewBufferSink(),
		topK:      DefaultTopK,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.prompts.Validate(); err != nil {
		return nil, err
	}
	if a.topK <= 0 {
		return nil, fmt.Errorf("top k must be positive, got %d", a.topK)
	}
	return a, nil
}

// Session returns a copy of the current session state.
func (a *Agent) Session() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Answer runs one question and returns what the sink collected: the full
// text for a buffered sink, empty for a streaming one.
func (a *Agent) Answer(ctx context.Context, imageIdentity, question string) (string, error) {
	res, err := a.AnswerDetailed(ctx, imageIdentity, question, nil)
	if res == nil {
		return "", err
	}
	return res.Output, err
}

// TryAnswer is AnswerDetailed that fails with ErrBusy instead of waiting.
func (a *Agent) TryAnswer(ctx context.Context, imageIdentity, question string, listen Listener) (*Result, error) {
	if !a.mu.TryLock() {
		return nil, ErrBusy
	}
	defer a.mu.Unlock()
	return a.answer(ctx, imageIdentity, question, listen)
}

// AnswerDetailed runs one question, streaming lines to listen when set. The
// returned Result is non-nil even on error and carries the output so far.
func (a *Agent) AnswerDetailed(ctx context.Context, imageIdentity, question string, listen Listener) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.answer(ctx, imageIdentity, question, listen)
}

func (a *Agent) answer(ctx context.Context, imageIdentity, question string, listen Listener) (res *Result, err error) {
	defer metrics.ObserveStage("answer", time.Now())

	res = &Result{ImageURL: imageIdentity, Question: question, Findings: []Finding{}}
	emit := func(line string) {
		a.sink.Emit(line)
		if listen != nil {
			listen(line)
		}
	}
	defer func() {
		res.Output = a.sink.Flush()
		if err != nil {
			a.logger.Error("agent", "question failed", map[string]interface{}{
				"image_url": imageIdentity,
				"error":     err.Error(),
			})
		}
	}()

	if err = imaging.ValidateURL(imageIdentity); err != nil {
		return res, err
	}

	if err = a.ensureImage(ctx, imageIdentity, emit); err != nil {
		return res, err
	}
	img := a.session.LoadedImage

	reply, err := a.model.Generate(ctx, img, a.prompts.Format(PromptToolUse, question))
	if err != nil {
		return res, fmt.Errorf("direct answer: %w", err)
	}

	if sentinel.ClassifyGate(reply) == sentinel.GateDirect {
		metrics.IncQuestion(string(ModeDirect))
		res.Mode = ModeDirect
		res.DirectReply = reply
		emit("*Direct Answer* : " + reply)
		return res, nil
	}

	metrics.IncQuestion(string(ModeSearch))
	res.Mode = ModeSearch
	res.InitialReply = reply
	emit("Initial Response: " + reply)

	if !a.session.EvidenceCacheValid {
		emit(constant.NoticeReverseSearch)
		if _, err = a.retriever.Retrieve(ctx, imageIdentity); err != nil {
			return res, fmt.Errorf("retrieve evidence: %w", err)
		}
		a.session.EvidenceCacheValid = true
		res.Retrieved = true
	}

	keywords, err := a.model.Generate(ctx, nil, a.prompts.Format(PromptSearchKeywords, question))
	if err != nil {
		return res, fmt.Errorf("search keywords: %w", err)
	}
	res.Keywords = keywords
	emit("Searching with the keywords : " + keywords)

	ranked, err := a.ranker.Rank(ctx, fmt.Sprintf(constant.RankQueryFormat, question, keywords), a.topK)
	if err != nil {
		return res, fmt.Errorf("rank passages: %w", err)
	}

	// one passage at a time, in rank order
	for i, rp := range ranked {
		n := i + 1
		verdict, verr := a.verifier.Verify(ctx, img, rp.Passage, question)
		if verr != nil {
			return res, fmt.Errorf("verify context %d: %w", n, verr)
		}

		switch {
		case verdict.IsAccepted():
			res.Findings = append(res.Findings, Finding{Context: n, Answer: verdict.Answer, Passage: rp.Passage, Score: rp.Score})
			emit("*Answer* : " + verdict.Answer)
			emit(fmt.Sprintf("Supported by Context %d : %s", n, rp.Passage.Content))
			emit("Reference - " + rp.Passage.URL)
		case verdict.Reason == verifier.Unparseable:
			res.Unparseable++
			emit(constant.NoticeUndesired)
		default:
			res.Skipped++
			emit(fmt.Sprintf("[SKIP] Context %d - %s .... !", n, preview(rp.Passage.Content)))
		}
	}

	a.logger.Info("agent", "search-assisted answer", map[string]interface{}{
		"image_url":   imageIdentity,
		"ranked":      len(ranked),
		"accepted":    len(res.Findings),
		"skipped":     res.Skipped,
		"unparseable": res.Unparseable,
	})

	if a.aggregate && len(res.Findings) > 0 {
		final, aerr := a.model.Generate(ctx, nil, a.prompts.Format(PromptConsistencyCheck, question, numbered(res.Findings)))
		if aerr != nil {
			return res, fmt.Errorf("aggregate answers: %w", aerr)
		}
		res.FinalAnswer = final
		emit(strings.Repeat("=", 100))
		emit("Final Answer : " + final)
	}
	return res, nil
}

// ensureImage loads identity when it is not the active image. A failed load
// leaves the session empty.
func (a *Agent) ensureImage(ctx context.Context, identity string, emit func(string)) error {
	if !a.session.NeedsImage(identity) {
		return nil
	}

	emit(constant.NoticeLoadingImage)
	a.session.Reset()

	start := time.Now()
	img, err := a.loader.Load(ctx, identity)
	metrics.ObserveStage("load_image", start)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	a.session.Activate(identity, img)
	a.logger.Info("agent", "image loaded", map[string]interface{}{"image_url": identity})
	return nil
}

func preview(content string) string {
	r := []rune(content)
	if len(r) > constant.SkipPreviewLength {
		r = r[:constant.SkipPreviewLength]
	}
	return string(r)
}

func numbered(findings []Finding) string {
	var b strings.Builder
	for i, f := range findings {
		fmt.Fprintf(&b, "\n[Response-%d] %s. ", i+1, f.Answer)
	}
	return b.String()
}
