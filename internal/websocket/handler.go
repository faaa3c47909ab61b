package websocket

import (
	"context"
	"encoding/json"

	"vlm-search-agent/internal/dto"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/internal/pkg/serverutils"
	"vlm-search-agent/pkg/agent"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Asker answers one question, reporting output lines as they are produced.
type Asker interface {
	Stream(ctx context.Context, request *dto.AskRequest, listen agent.Listener) (*dto.AskResponse, error)
}

// ServeStream handles one websocket connection. Every text frame is an ask
// request; questions on a connection run one after another and share a
// session unless the frame names another one.
func ServeStream(c *websocket.Conn, asker Asker, log logger.ILogger) {
	client := NewClient(c, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.writePump()

	requests := make(chan []byte, 8)
	go client.readPump(requests, cancel)

	sessionId := ""
	for raw := range requests {
		sessionId = handleFrame(ctx, client, asker, raw, sessionId)
	}

	close(client.Send)
	<-client.done
}

func handleFrame(ctx context.Context, client *Client, asker Asker, raw []byte, sessionId string) string {
	var req dto.AskRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		client.SendJSON(dto.StreamMessage{Type: dto.StreamTypeError, Code: 400, Text: "invalid JSON: " + err.Error()})
		return sessionId
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		client.SendJSON(dto.StreamMessage{Type: dto.StreamTypeError, Code: serverutils.StatusFor(err), Text: err.Error()})
		return sessionId
	}

	if req.SessionId == "" {
		req.SessionId = sessionId
	}
	if req.SessionId == "" {
		req.SessionId = uuid.New().String()
	}
	client.SendJSON(dto.StreamMessage{Type: dto.StreamTypeSession, SessionId: req.SessionId})

	res, err := asker.Stream(ctx, &req, func(line string) {
		client.SendJSON(dto.StreamMessage{Type: dto.StreamTypeLine, SessionId: req.SessionId, Text: line})
	})
	if err != nil {
		client.logger.Warn("websocket", "question failed", map[string]interface{}{
			"session_id": req.SessionId,
			"error":      err.Error(),
		})
		client.SendJSON(dto.StreamMessage{Type: dto.StreamTypeError, SessionId: req.SessionId, Code: serverutils.StatusFor(err), Text: err.Error()})
		return req.SessionId
	}

	client.SendJSON(dto.StreamMessage{Type: dto.StreamTypeDone, SessionId: res.SessionId, Result: res})
	return res.SessionId
}
