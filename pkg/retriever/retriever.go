package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/metrics"
	"vlm-search-agent/pkg/passage"
	"vlm-search-agent/pkg/search"
	"vlm-search-agent/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// ErrNoEvidence means no trusted page for the image yielded any passage.
var ErrNoEvidence = errors.New("cannot find any trusted passages matching this image")

type Options struct {
	Trusted            search.TrustedSource
	MinParagraphLength int
	ChunkSentences     int // 0 keeps whole paragraphs
	FetchWorkers       int
	LogCandidates      bool
}

func DefaultOptions() Options {
	return Options{
		Trusted:            search.EnglishWikipedia,
		MinParagraphLength: 100,
		FetchWorkers:       4,
	}
}

// Retriever runs reverse image search, extracts paragraphs from the trusted
// pages it finds and replaces the passage store with them.
type Retriever struct {
	engines []search.Engine
	fetcher PageFetcher
	store   passage.Store
	opts    Options
	logger  logger.ILogger
}

func NewRetriever(engines []search.Engine, fetcher PageFetcher, store passage.Store, opts Options, log logger.ILogger) *Retriever {
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = 1
	}
	return &Retriever{
		engines: engines,
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		logger:  log,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, imageURL string) ([]passage.Passage, error) {
	defer metrics.ObserveStage("retrieve", time.Now())

	if err := imaging.ValidateURL(imageURL); err != nil {
		metrics.IncRetrieval("invalid_url")
		return nil, err
	}

	candidates, err := r.Candidates(ctx, imageURL)
	if err != nil {
		metrics.IncRetrieval("error")
		return nil, err
	}
	if len(candidates) == 0 {
		metrics.IncRetrieval("no_evidence")
		return nil, ErrNoEvidence
	}

	passages, err := r.extract(ctx, candidates)
	if err != nil {
		metrics.IncRetrieval("error")
		return nil, err
	}
	if len(passages) == 0 {
		metrics.IncRetrieval("no_evidence")
		r.logger.Warn("retriever", "trusted pages yielded no passages", map[string]interface{}{
			"image_url": imageURL,
			"pages":     len(candidates),
		})
		return nil, ErrNoEvidence
	}

	if err := r.store.Replace(ctx, passages); err != nil {
		metrics.IncRetrieval("error")
		return nil, fmt.Errorf("replace passage store: %w", err)
	}

	metrics.IncRetrieval("ok")
	metrics.ObservePassages(len(passages))
	r.logger.Info("retriever", "passage store replaced", map[string]interface{}{
		"image_url": imageURL,
		"pages":     len(candidates),
		"passages":  len(passages),
	})
	return passages, nil
}

// Candidates queries every engine, keeps trusted pages and merges the lists
// in engine order. A failing engine counts as zero results.
func (r *Retriever) Candidates(ctx context.Context, imageURL string) ([]search.Candidate, error) {
	lists := make([][]search.Candidate, 0, len(r.engines))
	for _, engine := range r.engines {
		found, err := engine.Search(ctx, imageURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, imaging.ErrInvalidURL) {
				return nil, err
			}
			r.logger.Error("retriever", "search engine failed", map[string]interface{}{
				"engine": engine.Name(),
				"error":  err.Error(),
			})
			continue
		}
		trusted := r.opts.Trusted.Filter(found)
		r.logger.Debug("retriever", "engine results", map[string]interface{}{
			"engine":  engine.Name(),
			"found":   len(found),
			"trusted": len(trusted),
		})
		lists = append(lists, trusted)
	}

	merged := search.Merge(lists...)
	if r.opts.LogCandidates {
		for i, c := range merged {
			r.logger.Info("retriever", "search result", map[string]interface{}{
				"page":  fmt.Sprintf("page_%d", i),
				"title": c.Title,
				"url":   c.URL,
			})
		}
	}
	return merged, nil
}

// extract fetches pages concurrently; output order is candidate order then
// paragraph order regardless of which fetch finishes first.
func (r *Retriever) extract(ctx context.Context, candidates []search.Candidate) ([]passage.Passage, error) {
	perPage := make([][]passage.Passage, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.FetchWorkers)

	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			doc, err := r.fetcher.Fetch(gCtx, c.URL)
			if err != nil {
				return err
			}
			for _, para := range ExtractParagraphs(doc, r.opts.MinParagraphLength) {
				for _, chunk := range utils.ChunkSentences(para, r.opts.ChunkSentences) {
					perPage[i] = append(perPage[i], passage.Passage{Title: c.Title, URL: c.URL, Content: chunk})
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extract page contents: %w", err)
	}

	passages := []passage.Passage{}
	for _, ps := range perPage {
		passages = append(passages, ps...)
	}
	return passages, nil
}
