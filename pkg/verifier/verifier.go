package verifier

import (
	"context"
	"fmt"
	"time"

	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/metrics"
	"vlm-search-agent/pkg/passage"
	"vlm-search-agent/pkg/sentinel"
	"vlm-search-agent/pkg/vlm"
)

// Prompts are format strings with two %s slots each:
// AnswerWithContext(content, question) and SelfCheck(content, answer).
type Prompts struct {
	AnswerWithContext string
	SelfCheck         string
}

// Verifier asks the model to answer from a passage, then asks it again
// whether that answer is supported by the same passage.
type Verifier struct {
	model   vlm.VLMProvider
	prompts Prompts
	logger  logger.ILogger
}

func NewVerifier(model vlm.VLMProvider, prompts Prompts, log logger.ILogger) *Verifier {
	return &Verifier{
		model:   model,
		prompts: prompts,
		logger:  log,
	}
}

// Verify makes at most two model calls. Transport errors are returned as-is;
// a reply without markers is an Unparseable rejection, not an error.
func (v *Verifier) Verify(ctx context.Context, image *imaging.Image, p passage.Passage, question string) (Verdict, error) {
	defer metrics.ObserveStage("verify", time.Now())

	reply, err := v.model.Generate(ctx, image, fmt.Sprintf(v.prompts.AnswerWithContext, p.Content, question))
	if err != nil {
		return Verdict{}, fmt.Errorf("answer with context: %w", err)
	}

	if sentinel.ClassifyAnswer(reply) == sentinel.AnswerSkip {
		return v.record(Reject(NoEvidence, "", p, reply)), nil
	}

	candidate := reply
	check, err := v.model.Generate(ctx, image, fmt.Sprintf(v.prompts.SelfCheck, p.Content, candidate))
	if err != nil {
		return Verdict{}, fmt.Errorf("self check: %w", err)
	}

	switch sentinel.ClassifyCheck(check) {
	case sentinel.CheckSupported:
		return v.record(Accept(candidate, p, check)), nil
	case sentinel.CheckNotSupported:
		return v.record(Reject(NotSupported, candidate, p, check)), nil
	default:
		v.logger.Warn("verifier", "undesired self-check response", map[string]interface{}{
			"url":       p.URL,
			"candidate": candidate,
			"reply":     check,
		})
		return v.record(Reject(Unparseable, candidate, p, check)), nil
	}
}

func (v *Verifier) record(verdict Verdict) Verdict {
	metrics.IncVerdict(verdict.Label())
	v.logger.Debug("verifier", "verdict", map[string]interface{}{
		"verdict": verdict.Label(),
		"url":     verdict.Passage.URL,
	})
	return verdict
}
