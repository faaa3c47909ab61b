package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vlm-search-agent/internal/dto"
	"vlm-search-agent/internal/pkg/logger"
	"vlm-search-agent/internal/pkg/serverutils"
	"vlm-search-agent/internal/service"
	"vlm-search-agent/pkg/agent"
	"vlm-search-agent/pkg/retriever"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgentService struct {
	askErr   error
	asked    []*dto.AskRequest
	sessions map[string]*dto.SessionResponse
}

var _ service.IAgentService = &fakeAgentService{}

func (f *fakeAgentService) Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error) {
	return f.Stream(ctx, request, nil)
}

func (f *fakeAgentService) Stream(_ context.Context, request *dto.AskRequest, listen agent.Listener) (*dto.AskResponse, error) {
	f.asked = append(f.asked, request)
	if f.askErr != nil {
		return nil, f.askErr
	}
	if listen != nil {
		listen("*Direct Answer* : a bridge")
	}
	id := request.SessionId
	if id == "" {
		id = "generated"
	}
	return &dto.AskResponse{
		SessionId: id,
		Response:  "\n*Direct Answer* : a bridge",
		Result:    &agent.Result{Mode: agent.ModeDirect, DirectReply: "a bridge"},
	}, nil
}

func (f *fakeAgentService) GetSession(_ context.Context, sessionId string) (*dto.SessionResponse, error) {
	s, ok := f.sessions[sessionId]
	if !ok {
		return nil, service.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeAgentService) DeleteSession(_ context.Context, sessionId string) error {
	if _, ok := f.sessions[sessionId]; !ok {
		return service.ErrSessionNotFound
	}
	delete(f.sessions, sessionId)
	return nil
}

func newApp(svc service.IAgentService, secret string) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewAgentController(svc, secret).RegisterRoutes(api)
	NewStreamController(svc, secret, logger.NewNopLogger()).RegisterRoutes(api)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestAsk(t *testing.T) {
	svc := &fakeAgentService{}
	app := newApp(svc, "")

	resp := postJSON(t, app, "/api/agent/v1/ask", dto.AskRequest{
		ImageURL: "https://example.com/bridge.jpg",
		Question: "What is this?",
	})
	require.Equal(t, 200, resp.StatusCode)

	var body serverutils.BaseResponse[dto.AskResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "Success answer question", body.Message)
	assert.Equal(t, "generated", body.Data.SessionId)
	assert.Equal(t, agent.ModeDirect, body.Data.Result.Mode)
	require.Len(t, svc.asked, 1)
	assert.Equal(t, "What is this?", svc.asked[0].Question)
}

func TestAskErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		askErr error
		want   int
	}{
		{name: "missing question", body: dto.AskRequest{ImageURL: "https://example.com/a.jpg"}, want: 400},
		{name: "bad session id", body: dto.AskRequest{SessionId: "x", ImageURL: "https://example.com/a.jpg", Question: "q"}, want: 400},
		{name: "malformed body", body: "not an object", want: 400},
		{name: "no evidence", body: dto.AskRequest{ImageURL: "https://example.com/a.jpg", Question: "q"}, askErr: retriever.ErrNoEvidence, want: 422},
		{name: "busy", body: dto.AskRequest{ImageURL: "https://example.com/a.jpg", Question: "q"}, askErr: agent.ErrBusy, want: 409},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(&fakeAgentService{askErr: tt.askErr}, "")
			resp := postJSON(t, app, "/api/agent/v1/ask", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)

			var body serverutils.BaseResponse[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.want, body.Code)
		})
	}
}

func TestSessionRoutes(t *testing.T) {
	svc := &fakeAgentService{sessions: map[string]*dto.SessionResponse{
		"abc": {Id: "abc", ActiveImageIdentity: "https://example.com/a.jpg", Questions: 2},
	}}
	app := newApp(svc, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/agent/v1/sessions/abc", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var body serverutils.BaseResponse[dto.SessionResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Data.Questions)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/agent/v1/sessions/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	for _, method := range []string{"GET", "DELETE"} {
		resp, err = app.Test(httptest.NewRequest(method, "/api/agent/v1/sessions/abc", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode, method)
	}
}

func TestAgentRoutesRequireToken(t *testing.T) {
	app := newApp(&fakeAgentService{}, "s3cret")

	resp := postJSON(t, app, "/api/agent/v1/ask", dto.AskRequest{ImageURL: "https://example.com/a.jpg", Question: "q"})
	assert.Equal(t, 401, resp.StatusCode)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/agent/v1/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestStreamRequiresUpgrade(t *testing.T) {
	app := newApp(&fakeAgentService{}, "")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/agent/v1/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

func TestHealthAndMetrics(t *testing.T) {
	app := fiber.New()
	NewHealthController(fixedCounter(3)).RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var body serverutils.BaseResponse[map[string]int]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 3, body.Data["sessions"])

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(raw), "# HELP") || strings.Contains(string(raw), "go_"), "prometheus exposition expected")
}
