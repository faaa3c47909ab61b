package ranker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/embedding"
	"vlm-search-agent/pkg/metrics"
	"vlm-search-agent/pkg/passage"
	"vlm-search-agent/pkg/utils"
)

// Source is the read side of a passage store.
type Source interface {
	Load(ctx context.Context) ([]passage.Passage, error)
}

type RankedPassage struct {
	Passage passage.Passage
	Score   float64
}

// Ranker scores every stored passage against a query. A passage's score is
// the sum of dot products between the query vector and each of its sentence
// vectors, so passages with many relevant sentences rank higher.
type Ranker struct {
	embedder embedding.EmbeddingProvider
	source   Source
	logger   logger.ILogger
}

func NewRanker(embedder embedding.EmbeddingProvider, source Source, log logger.ILogger) *Ranker {
	return &Ranker{
		embedder: embedder,
		source:   source,
		logger:   log,
	}
}

// Rank returns at most k passages in non-increasing score order. Equal scores
// keep their store order.
func (r *Ranker) Rank(ctx context.Context, query string, k int) ([]RankedPassage, error) {
	defer metrics.ObserveStage("rank", time.Now())

	if k <= 0 {
		return []RankedPassage{}, nil
	}

	passages, err := r.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	if len(passages) == 0 {
		return []RankedPassage{}, nil
	}

	queryVecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(queryVecs))
	}
	queryVec := queryVecs[0]

	ranked := make([]RankedPassage, 0, len(passages))
	for i, p := range passages {
		sentences := utils.SplitSentences(p.Content)

		var score float64
		if len(sentences) > 0 {
			sentenceVecs, err := r.embedder.Embed(ctx, sentences)
			if err != nil {
				return nil, fmt.Errorf("embed passage %d: %w", i, err)
			}
			score, err = Score(queryVec, sentenceVecs)
			if err != nil {
				return nil, fmt.Errorf("score passage %d: %w", i, err)
			}
		}
		ranked = append(ranked, RankedPassage{Passage: p, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}

	r.logger.Debug("ranker", "passages ranked", map[string]interface{}{
		"candidates": len(passages),
		"returned":   len(ranked),
		"top_score":  ranked[0].Score,
	})

	return ranked, nil
}

// Score sums the query's dot product with every sentence vector.
func Score(query []float32, sentences [][]float32) (float64, error) {
	var total float64
	for i, s := range sentences {
		d, err := Dot(query, s)
		if err != nil {
			return 0, fmt.Errorf("sentence %d: %w", i, err)
		}
		total += d
	}
	return total, nil
}

func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}
