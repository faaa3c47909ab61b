package verifier

import "vlm-search-agent/pkg/passage"

type Status int

const (
	Accepted Status = iota
	Rejected
)

func (s Status) String() string {
	if s == Accepted {
		return "accepted"
	}
	return "rejected"
}

// Reason explains a rejection. Accepted verdicts carry ReasonNone.
type Reason int

const (
	ReasonNone Reason = iota
	NoEvidence        // the passage does not cover the question
	NotSupported      // the self-check denied the candidate answer
	Unparseable       // the self-check reply carried no recognizable marker
)

func (r Reason) String() string {
	switch r {
	case NoEvidence:
		return "no_evidence"
	case NotSupported:
		return "not_supported"
	case Unparseable:
		return "unparseable"
	default:
		return "none"
	}
}

// Verdict is the outcome of verifying one passage. Build it with Accept or
// Reject; the zero value is not meaningful.
type Verdict struct {
	Status  Status
	Reason  Reason
	Answer  string // candidate answer; empty for NoEvidence
	Passage passage.Passage
	Raw     string // last model reply, kept for logging
}

func Accept(answer string, p passage.Passage, raw string) Verdict {
	return Verdict{Status: Accepted, Reason: ReasonNone, Answer: answer, Passage: p, Raw: raw}
}

func Reject(reason Reason, answer string, p passage.Passage, raw string) Verdict {
	return Verdict{Status: Rejected, Reason: reason, Answer: answer, Passage: p, Raw: raw}
}

func (v Verdict) IsAccepted() bool {
	return v.Status == Accepted
}

// Label is the metric/log label: "accepted" or the rejection reason.
func (v Verdict) Label() string {
	if v.Status == Accepted {
		return "accepted"
	}
	return v.Reason.String()
}
