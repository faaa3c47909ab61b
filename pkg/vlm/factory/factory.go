package factory

import (
	"fmt"
	"time"

	"vlm-search-agent/pkg/vlm"
	"vlm-search-agent/pkg/vlm/fastapi"
	"vlm-search-agent/pkg/vlm/ollama"
	"vlm-search-agent/pkg/vlm/openai"
)

func NewVLMProvider(providerType, modelName, baseURL, apiKey string, timeout time.Duration) (vlm.VLMProvider, error) {
	switch providerType {
	case "fastapi":
		p, err := fastapi.NewFastAPIProvider(modelName, baseURL, timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		return ollama.NewOllamaProvider(baseURL, modelName, timeout), nil
	case "openai":
		return openai.NewOpenAIProvider(apiKey, baseURL, modelName, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported VLM provider: %s", providerType)
	}
}
