package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Admin   AdminConfig
	Ai      AIConfig
	Rag     RagConfig
	Session SessionConfig
	Ingest  IngestConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
}

type AdminConfig struct {
	// Bcrypt hash of the single shared admin credential. Empty disables the
	// admin endpoints entirely.
	CredentialHash string
	JwtSecret      string
	TokenTTL       time.Duration
}

type AIConfig struct {
	EmbeddingProvider string // "ollama" or "jina"
	OllamaBaseURL     string
	EmbeddingModel    string
	DefaultChatModel  string
	JinaAPIKey        string
	RerankBaseURL     string // empty = Jina cloud endpoint
}

type RagConfig struct {
	BaseK            int
	DynamicKFactor   int // 0 = disabled
	RerankTopK       int
	ContextCharLimit int
	LoadRetries      int
	LoadRetryDelay   time.Duration
}

type SessionConfig struct {
	TTL         time.Duration
	SweepPeriod time.Duration
	Root        string // per-session collection directories live here
}

type IngestConfig struct {
	PersistDir   string // permanent collection directory
	DocsDir      string // source documents consumed at boot
	ChunkSize    int
	ChunkOverlap int
	IndexTopic   string
}

// Load reads configuration from the environment (and .env when present).
// Malformed tuning values fail here rather than silently defaulting.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	dynamicK, err := ParseDynamicKFactor(os.Getenv("RAG_DYNAMIC_K_FACTOR"))
	if err != nil {
		return nil, err
	}

	chunkSize := clampedInt("CHUNK_SIZE", 800, 100, 2000)
	chunkOverlap := clampedInt("CHUNK_OVERLAP", 100, 0, chunkSize-1)

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost,http://localhost:5173,https://localhost"),
			NatsURL:            getEnv("NATS_URL", ""),
		},
		Admin: AdminConfig{
			CredentialHash: getEnv("ADMIN_CREDENTIAL_HASH", ""),
			JwtSecret:      getEnv("JWT_SECRET", ""),
			TokenTTL:       getEnvAsDuration("ADMIN_TOKEN_TTL", 12*time.Hour),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			DefaultChatModel:  getEnv("OLLAMA_DEFAULT_MODEL", "llama3:8b-instruct-q4_K_M"),
			JinaAPIKey:        getEnv("JINA_API_KEY", ""),
			RerankBaseURL:     getEnv("RERANK_BASE_URL", ""),
		},
		Rag: RagConfig{
			BaseK:            getEnvAsInt("RAG_BASE_K", 10),
			DynamicKFactor:   dynamicK,
			RerankTopK:       getEnvAsInt("RERANK_TOP_K", 3),
			ContextCharLimit: getEnvAsInt("RAG_TOK_LIMIT", 2000),
			LoadRetries:      getEnvAsInt("MODEL_LOAD_RETRIES", 10),
			LoadRetryDelay:   getEnvAsDuration("MODEL_LOAD_RETRY_DELAY", 2*time.Second),
		},
		Session: SessionConfig{
			TTL:         getEnvAsDuration("SESSION_TTL", 60*time.Minute),
			SweepPeriod: getEnvAsDuration("SESSION_SWEEP_PERIOD", 60*time.Second),
			Root:        getEnv("SESSION_STORE_DIR", "data/sessions"),
		},
		Ingest: IngestConfig{
			PersistDir:   getEnv("PERSIST_STORE_DIR", "data/persist"),
			DocsDir:      getEnv("PERSIST_DOCS_DIR", "data/docs"),
			ChunkSize:    chunkSize,
			ChunkOverlap: chunkOverlap,
			IndexTopic:   getEnv("INDEX_DOCUMENT_TOPIC_NAME", "INDEX_DOCUMENT"),
		},
	}, nil
}

// ParseDynamicKFactor parses the dynamic-K tuning value: empty means
// disabled, negative values are clamped to disabled, and anything
// non-numeric is a configuration error.
func ParseDynamicKFactor(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid RAG_DYNAMIC_K_FACTOR %q: %w", raw, err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	// Bare integers are treated as seconds for compatibility with older
	// deployments that exported plain numbers.
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func clampedInt(key string, fallback, lo, hi int) int {
	v := getEnvAsInt(key, fallback)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
