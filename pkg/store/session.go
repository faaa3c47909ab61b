package store

import (
	"sync"
	"time"

	"vlm-search-agent/pkg/agent"
)

// Session is one web client's conversation with its own agent. Each session
// owns a separate passage store, so concurrent sessions never share evidence.
type Session struct {
	ID        string       `json:"id"`
	Agent     *agent.Agent `json:"-"`
	CreatedAt time.Time    `json:"created_at"`

	mu           sync.Mutex
	lastQuestion string
	questions    int
}

func NewSession(id string, a *agent.Agent) *Session {
	return &Session{ID: id, Agent: a, CreatedAt: time.Now()}
}

// Touch records a question asked in this session.
func (s *Session) Touch(question string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuestion = question
	s.questions++
}

func (s *Session) Stats() (lastQuestion string, questions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuestion, s.questions
}
