package openai

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vlm-search-agent/pkg/imaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSendsImagePart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		parts := req.Messages[0].Content
		require.Len(t, parts, 2)
		assert.Equal(t, "text", parts[0].Type)
		assert.Equal(t, "image_url", parts[1].Type)
		assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"The Eiffel Tower"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("secret", srv.URL, "gpt-4o-mini", time.Second)
	img := &imaging.Image{Pixels: image.NewRGBA(image.Rect(0, 0, 4, 4))}

	out, err := p.Generate(context.Background(), img, "what landmark?")
	require.NoError(t, err)
	assert.Equal(t, "The Eiffel Tower", out)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "status", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`},
		{name: "api error", status: http.StatusOK, body: `{"error":{"message":"bad model"}}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenAIProvider("", srv.URL, "m", time.Second).Generate(context.Background(), nil, "q")
			assert.Error(t, err)
		})
	}
}
