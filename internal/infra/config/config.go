package config

import (
	"os"
	"strconv"
	"strings"
)

type ServerConfig struct {
	Env  string
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type OracleConfig struct {
	URL               string
	APIKey            string
	ChunkModel        string
	RewriteModel      string
	RankModel         string
	Timeout           int
	RequestsPerSecond float64
}

type EmbedderConfig struct {
	URL     string
	Model   string
	Timeout int
}

type IngestConfig struct {
	AverageChunkSize int
	Workers          int
	KnowledgeBaseDir string
}

type RetrievalConfig struct {
	Collection    string
	RetrievalK    int
	FinalK        int
	RerankTimeout int
}

type CacheConfig struct {
	Size int
	TTL  int
}

type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Oracle    OracleConfig
	Embedder  EmbedderConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Env:  getEnv("ENV", "development"),
			Port: getEnv("PORT", "9020"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "kb-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "kb_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "kb_password"),
			Name:     getEnv("DB_NAME", "kb_db"),
		},
		Oracle: OracleConfig{
			URL:               getEnv("ORACLE_URL", "http://oracle:8000/v1"),
			APIKey:            getSecret("ORACLE_API_KEY", "ORACLE_API_KEY_FILE", ""),
			ChunkModel:        getEnv("ORACLE_CHUNK_MODEL", "gpt-oss20b-cpu"),
			RewriteModel:      getEnv("ORACLE_REWRITE_MODEL", "gpt-oss20b-cpu"),
			RankModel:         getEnv("ORACLE_RANK_MODEL", "gpt-oss20b-cpu"),
			Timeout:           getEnvInt("ORACLE_TIMEOUT", 120),
			RequestsPerSecond: getEnvFloat("ORACLE_REQUESTS_PER_SECOND", 0),
		},
		Embedder: EmbedderConfig{
			URL:     getEnv("EMBEDDER_URL", "http://embedder:11434"),
			Model:   getEnv("EMBEDDING_MODEL", "embeddinggemma"),
			Timeout: getEnvInt("EMBEDDER_TIMEOUT", 60),
		},
		Ingest: IngestConfig{
			AverageChunkSize: getEnvInt("INGEST_AVERAGE_CHUNK_SIZE", 600),
			Workers:          getEnvInt("INGEST_WORKERS", 4),
			KnowledgeBaseDir: getEnv("KNOWLEDGE_BASE_DIR", "./kb"),
		},
		Retrieval: RetrievalConfig{
			Collection:    getEnv("RETRIEVAL_COLLECTION", "knowledge_base"),
			RetrievalK:    getEnvInt("RETRIEVAL_K", 20),
			FinalK:        getEnvInt("RETRIEVAL_FINAL_K", 10),
			RerankTimeout: getEnvInt("RERANK_TIMEOUT", 60),
		},
		Cache: CacheConfig{
			Size: getEnvInt("CONTEXT_CACHE_SIZE", 0),
			TTL:  getEnvInt("CONTEXT_CACHE_TTL_MINUTES", 15),
		},
		Telemetry: TelemetryConfig{
			Enabled:     getEnvBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://otel-collector:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "knowledge-orchestrator"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
