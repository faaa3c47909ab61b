// Package vlmtest provides an in-memory VLMProvider for tests.
package vlmtest

import (
	"context"
	"fmt"
	"sync"

	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/vlm"
)

type Call struct {
	Prompt   string
	HasImage bool
}

// Responder decides the reply for one call.
type Responder func(prompt string, image *imaging.Image) (string, error)

// Scripted answers calls with Respond when set, otherwise pops Replies in
// order. Running out of replies is an error.
type Scripted struct {
	Respond Responder
	Replies []string

	mu    sync.Mutex
	calls []Call
}

var _ vlm.VLMProvider = &Scripted{}

func NewScripted(replies ...string) *Scripted {
	return &Scripted{Replies: replies}
}

func NewResponder(fn Responder) *Scripted {
	return &Scripted{Respond: fn}
}

func (s *Scripted) Generate(_ context.Context, image *imaging.Image, prompt string, _ ...vlm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Prompt: prompt, HasImage: image != nil})

	if s.Respond != nil {
		return s.Respond(prompt, image)
	}
	if len(s.Replies) == 0 {
		return "", fmt.Errorf("vlmtest: no reply scripted for call %d", len(s.calls))
	}
	reply := s.Replies[0]
	s.Replies = s.Replies[1:]
	return reply, nil
}

func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}
