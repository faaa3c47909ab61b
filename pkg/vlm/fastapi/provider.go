package fastapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"vlm-search-agent/pkg/imaging"
	"vlm-search-agent/pkg/vlm"
)

// NoImage is what the model servers expect in place of an encoded image.
const NoImage = "No Image Provided"

// Backends maps the served model names to their default server.
var Backends = map[string]string{
	"mini_cpm_llama3v": "http://localhost:8000",
	"phi3_vision":      "http://localhost:8001",
}

// FastAPIProvider talks to a single-model /predict server.
type FastAPIProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ vlm.VLMProvider = &FastAPIProvider{}

// NewFastAPIProvider resolves modelName against Backends unless baseURL is given.
func NewFastAPIProvider(modelName, baseURL string, timeout time.Duration) (*FastAPIProvider, error) {
	if baseURL == "" {
		url, ok := Backends[modelName]
		if !ok {
			return nil, fmt.Errorf("vlm api %q unavailable, currently available apis are %s", modelName, strings.Join(AvailableBackends(), ", "))
		}
		baseURL = url
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &FastAPIProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client:    &http.Client{Timeout: timeout},
	}, nil
}

func AvailableBackends() []string {
	names := make([]string, 0, len(Backends))
	for name := range Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type predictRequest struct {
	StrImage  string `json:"str_image"`
	UserQuery string `json:"user_query"`
}

type predictResponse struct {
	VLMResponse string `json:"vlm_response"`
}

// Generate ignores options: generation settings live in the model server.
func (p *FastAPIProvider) Generate(ctx context.Context, image *imaging.Image, prompt string, _ ...vlm.Option) (string, error) {
	strImage := NoImage
	if image != nil {
		encoded, err := image.Base64JPEG()
		if err != nil {
			return "", err
		}
		strImage = encoded
	}

	payloadBytes, err := json.Marshal(predictRequest{StrImage: strImage, UserQuery: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/predict", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.ModelName, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s error: status %d, body: %s", p.ModelName, resp.StatusCode, string(bodyBytes))
	}

	var out predictResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return out.VLMResponse, nil
}
