package factory

import (
	"fmt"

	"vlm-search-agent/pkg/embedding"
	"vlm-search-agent/pkg/embedding/jina"
)

func NewEmbeddingProvider(providerType, modelName, baseURL, apiKey string) (embedding.EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return embedding.NewOllamaProvider(baseURL, modelName), nil
	case "openai":
		return embedding.NewOpenAIProvider(apiKey, baseURL, modelName), nil
	case "jina":
		if apiKey == "" {
			return nil, fmt.Errorf("jina embedding provider requires an api key")
		}
		return jina.NewJinaProvider(apiKey, jina.WithBaseURL(baseURL), jina.WithModel(modelName)), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
