package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Tracing   TracingConfig
	VLM       VLMConfig
	Embedding EmbeddingConfig
	Search    SearchConfig
	Agent     AgentConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LogLevel           string
	CorsAllowedOrigins string
	RedisURL           string
	JwtSecret          string // empty disables auth on the agent routes
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string // OTLP HTTP host:port
	ServiceName string
	SampleRatio float64
}

type VLMConfig struct {
	Provider  string // "fastapi", "ollama", "openai"
	Model     string // fastapi: "phi3_vision" | "mini_cpm_llama3v"; otherwise the model tag
	BaseURL   string // optional, provider default when empty
	APIKey    string
	Timeout   time.Duration
	MaxTokens int
}

type EmbeddingConfig struct {
	Provider string // "ollama", "openai", "jina"
	Model    string
	BaseURL  string
	APIKey   string
}

type SearchConfig struct {
	BaseURL        string
	MaxResults     int
	MaxAttempts    int
	PageDelay      time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestsPerSec float64
	FetchTimeout   time.Duration
	FetchWorkers   int
	TitleMarker    string
	HostMarker     string
}

type AgentConfig struct {
	TopK               int
	Aggregate          bool
	Stream             bool
	ChunkSentences     int
	MinParagraphLength int
	PrintSearchResults bool
	PromptFile         string
	StoreKind          string // "file" or "redis"
	StorePath          string // terminal store file
	StoreDir           string // per-session store files for the web demo
	ImageTimeout       time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "agent.log"),
			LogLevel:           getEnv("LOG_LEVEL", "debug"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "vlm-search-agent"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
		VLM: VLMConfig{
			Provider:  getEnv("VLM_PROVIDER", "fastapi"),
			Model:     getEnv("VLM_MODEL", "phi3_vision"),
			BaseURL:   getEnv("VLM_BASE_URL", ""),
			APIKey:    getEnv("VLM_API_KEY", ""),
			Timeout:   getEnvAsDuration("VLM_TIMEOUT", 120*time.Second),
			MaxTokens: getEnvAsInt("VLM_MAX_TOKENS", 500),
		},
		Embedding: EmbeddingConfig{
			Provider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			Model:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			BaseURL:  getEnv("EMBEDDING_BASE_URL", ""),
			APIKey:   getEnv("EMBEDDING_API_KEY", ""),
		},
		Search: SearchConfig{
			BaseURL:        getEnv("SEARCH_BASE_URL", "https://www.google.com"),
			MaxResults:     getEnvAsInt("SEARCH_MAX_RESULTS", 10),
			MaxAttempts:    getEnvAsInt("SEARCH_MAX_ATTEMPTS", 3),
			PageDelay:      getEnvAsDuration("SEARCH_PAGE_DELAY", 2*time.Second),
			RetryAttempts:  getEnvAsInt("SEARCH_RETRY_ATTEMPTS", 3),
			RetryDelay:     getEnvAsDuration("SEARCH_RETRY_DELAY", 2*time.Second),
			RequestsPerSec: getEnvAsFloat("SEARCH_QPS", 1),
			FetchTimeout:   getEnvAsDuration("FETCH_TIMEOUT", 5*time.Second),
			FetchWorkers:   getEnvAsInt("FETCH_WORKERS", 4),
			TitleMarker:    getEnv("TRUSTED_TITLE_MARKER", "Wikipedia"),
			HostMarker:     getEnv("TRUSTED_HOST_MARKER", "en.wikipedia.org"),
		},
		Agent: AgentConfig{
			TopK:               getEnvAsInt("AGENT_TOP_K", 10),
			Aggregate:          getEnvAsBool("AGENT_AGGREGATE", false),
			Stream:             getEnvAsBool("AGENT_STREAM", true),
			ChunkSentences:     getEnvAsInt("CHUNK_SENTENCES", 0),
			MinParagraphLength: getEnvAsInt("MIN_PARAGRAPH_LENGTH", 100),
			PrintSearchResults: getEnvAsBool("AGENT_PRINT_SEARCH_RESULTS", false),
			PromptFile:         getEnv("AGENT_PROMPT_FILE", ""),
			StoreKind:          getEnv("PASSAGE_STORE", "file"),
			StorePath:          getEnv("PASSAGE_STORE_PATH", "parsed_search_results.json"),
			StoreDir:           getEnv("PASSAGE_STORE_DIR", "passages"),
			ImageTimeout:       getEnvAsDuration("IMAGE_TIMEOUT", 5*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("2s", "150ms").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
