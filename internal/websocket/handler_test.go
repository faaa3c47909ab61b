package websocket

import (
	"context"
	"net"
	"testing"
	"time"

	"vlm-search-agent/internal/dto"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/pkg/agent"
	"vlm-search-agent/pkg/retriever"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct{}

func (fakeAsker) Stream(_ context.Context, req *dto.AskRequest, listen agent.Listener) (*dto.AskResponse, error) {
	if req.Question == "fail" {
		return nil, retriever.ErrNoEvidence
	}
	listen("Loading new image!")
	listen("*Direct Answer* : a lighthouse")
	return &dto.AskResponse{
		SessionId: req.SessionId,
		Response:  "\nLoading new image!\n*Direct Answer* : a lighthouse",
		Result:    &agent.Result{Mode: agent.ModeDirect},
	}, nil
}

func startServer(t *testing.T) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		ServeStream(c, fakeAsker{}, logger.NewNopLogger())
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go app.Listener(ln)
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws"
}

func readFrame(t *testing.T, conn *fastws.Conn) dto.StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg dto.StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServeStream(t *testing.T) {
	conn, _, err := fastws.DefaultDialer.Dial(startServer(t), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(dto.AskRequest{ImageURL: "https://example.com/a.jpg", Question: "What is it?"}))

	session := readFrame(t, conn)
	assert.Equal(t, dto.StreamTypeSession, session.Type)
	require.NotEmpty(t, session.SessionId)

	first := readFrame(t, conn)
	second := readFrame(t, conn)
	assert.Equal(t, dto.StreamTypeLine, first.Type)
	assert.Equal(t, "Loading new image!", first.Text)
	assert.Equal(t, "*Direct Answer* : a lighthouse", second.Text)

	done := readFrame(t, conn)
	assert.Equal(t, dto.StreamTypeDone, done.Type)
	require.NotNil(t, done.Result)
	assert.Equal(t, session.SessionId, done.Result.SessionId)

	// a later question on the same connection keeps the session
	require.NoError(t, conn.WriteJSON(dto.AskRequest{ImageURL: "https://example.com/a.jpg", Question: "fail"}))
	again := readFrame(t, conn)
	assert.Equal(t, session.SessionId, again.SessionId)
	failed := readFrame(t, conn)
	assert.Equal(t, dto.StreamTypeError, failed.Type)
	assert.Equal(t, 422, failed.Code)
}

func TestServeStreamRejectsBadFrames(t *testing.T) {
	conn, _, err := fastws.DefaultDialer.Dial(startServer(t), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(fastws.TextMessage, []byte("{not json")))
	msg := readFrame(t, conn)
	assert.Equal(t, dto.StreamTypeError, msg.Type)
	assert.Equal(t, 400, msg.Code)

	require.NoError(t, conn.WriteJSON(dto.AskRequest{Question: "no image"}))
	msg = readFrame(t, conn)
	assert.Equal(t, dto.StreamTypeError, msg.Type)
	assert.Equal(t, 400, msg.Code)
	assert.Contains(t, msg.Text, "ImageURL is required")
}
