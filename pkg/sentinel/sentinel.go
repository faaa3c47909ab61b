// Package sentinel turns free-form model replies into typed control signals.
//
// The models are asked to answer with bracketed markers such as [SEARCH] or
// [OK]. They do not always comply exactly, so matching is by substring and
// every reply maps to exactly one variant, including an explicit
// "unparseable" one for replies that carry no marker at all.
package sentinel

import "strings"

const (
	MarkerSearch       = "SEARCH"
	MarkerSkipPassage  = "SKIP PASSAGE"
	MarkerOK           = "OK"
	MarkerNotSupported = "NOT SUPPORTED"
)

type Gate int

const (
	GateDirect Gate = iota // model answered on its own
	GateSearch             // model asked for external evidence
)

func (g Gate) String() string {
	if g == GateSearch {
		return "search"
	}
	return "direct"
}

// ClassifyGate reads the reply to the direct-answer prompt.
func ClassifyGate(reply string) Gate {
	if strings.Contains(reply, MarkerSearch) {
		return GateSearch
	}
	return GateDirect
}

type Answer int

const (
	AnswerCandidate Answer = iota // reply is a candidate answer to verify
	AnswerSkip                    // passage does not cover the question
)

func (a Answer) String() string {
	if a == AnswerSkip {
		return "skip"
	}
	return "candidate"
}

// ClassifyAnswer reads the reply to the answer-with-context prompt.
func ClassifyAnswer(reply string) Answer {
	if strings.Contains(reply, MarkerSkipPassage) {
		return AnswerSkip
	}
	return AnswerCandidate
}

type Check int

const (
	CheckUnparseable Check = iota
	CheckSupported
	CheckNotSupported
)

func (c Check) String() string {
	switch c {
	case CheckSupported:
		return "supported"
	case CheckNotSupported:
		return "not_supported"
	default:
		return "unparseable"
	}
}

// ClassifyCheck reads the reply to the self-check prompt. The negative marker
// wins when both appear ("OK, but NOT SUPPORTED" is a rejection).
func ClassifyCheck(reply string) Check {
	switch {
	case strings.Contains(reply, MarkerNotSupported):
		return CheckNotSupported
	case strings.Contains(reply, MarkerOK):
		return CheckSupported
	default:
		return CheckUnparseable
	}
}
