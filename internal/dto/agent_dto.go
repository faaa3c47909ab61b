package dto

import (
	"time"

	"vlm-search-agent/pkg/agent"
)

type AskRequest struct {
	SessionId string `json:"session_id" validate:"omitempty,uuid"`
	ImageURL  string `json:"image_url" validate:"required,url"`
	Question  string `json:"question" validate:"required,max=2000"`
}

type AskResponse struct {
	SessionId string        `json:"session_id"`
	Response  string        `json:"response"` // every emitted line, newline separated
	Result    *agent.Result `json:"result"`
}

type SessionResponse struct {
	Id                  string    `json:"id"`
	ActiveImageIdentity string    `json:"active_image_identity"`
	EvidenceCacheValid  bool      `json:"evidence_cache_valid"`
	LastQuestion        string    `json:"last_question"`
	Questions           int       `json:"questions"`
	CreatedAt           time.Time `json:"created_at"`
}

// Websocket frames sent to the client.
const (
	StreamTypeSession = "session"
	StreamTypeLine    = "line"
	StreamTypeDone    = "done"
	StreamTypeError   = "error"
)

type StreamMessage struct {
	Type      string       `json:"type"`
	SessionId string       `json:"session_id,omitempty"`
	Text      string       `json:"text,omitempty"`
	Code      int          `json:"code,omitempty"`
	Result    *AskResponse `json:"result,omitempty"`
}
