package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_RetrievalParameters_Defaults(t *testing.T) {
	envVars := []string{
		"RETRIEVAL_K",
		"RETRIEVAL_FINAL_K",
		"RERANK_TIMEOUT",
		"RETRIEVAL_COLLECTION",
	}
	for _, key := range envVars {
		_ = os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, 20, cfg.Retrieval.RetrievalK, "retrieval width should default to 20")
	assert.Equal(t, 10, cfg.Retrieval.FinalK, "final width should default to 10")
	assert.Equal(t, 60, cfg.Retrieval.RerankTimeout)
	assert.Equal(t, "knowledge_base", cfg.Retrieval.Collection)
}

func TestLoad_RetrievalParameters_FromEnv(t *testing.T) {
	t.Setenv("RETRIEVAL_K", "40")
	t.Setenv("RETRIEVAL_FINAL_K", "8")
	t.Setenv("RETRIEVAL_COLLECTION", "support_kb")

	cfg := Load()

	assert.Equal(t, 40, cfg.Retrieval.RetrievalK)
	assert.Equal(t, 8, cfg.Retrieval.FinalK)
	assert.Equal(t, "support_kb", cfg.Retrieval.Collection)
}

func TestLoad_IngestParameters_Defaults(t *testing.T) {
	envVars := []string{
		"INGEST_AVERAGE_CHUNK_SIZE",
		"INGEST_WORKERS",
	}
	for _, key := range envVars {
		_ = os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, 600, cfg.Ingest.AverageChunkSize)
	assert.Equal(t, 4, cfg.Ingest.Workers)
}

func TestLoad_IngestParameters_FromEnv(t *testing.T) {
	t.Setenv("INGEST_AVERAGE_CHUNK_SIZE", "900")
	t.Setenv("INGEST_WORKERS", "8")

	cfg := Load()

	assert.Equal(t, 900, cfg.Ingest.AverageChunkSize)
	assert.Equal(t, 8, cfg.Ingest.Workers)
}

func TestLoad_ServerConfig_Defaults(t *testing.T) {
	_ = os.Unsetenv("PORT")
	_ = os.Unsetenv("ENV")

	cfg := Load()

	assert.Equal(t, "9020", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
}

func TestLoad_OracleConfig_FromEnv(t *testing.T) {
	t.Setenv("ORACLE_URL", "http://localhost:8000/v1")
	t.Setenv("ORACLE_RANK_MODEL", "mini-ranker")
	t.Setenv("ORACLE_REQUESTS_PER_SECOND", "2.5")

	cfg := Load()

	assert.Equal(t, "http://localhost:8000/v1", cfg.Oracle.URL)
	assert.Equal(t, "mini-ranker", cfg.Oracle.RankModel)
	assert.Equal(t, 2.5, cfg.Oracle.RequestsPerSecond)
}

func TestLoad_CacheDisabledByDefault(t *testing.T) {
	_ = os.Unsetenv("CONTEXT_CACHE_SIZE")

	cfg := Load()

	assert.Equal(t, 0, cfg.Cache.Size, "context cache should be opt-in")
	assert.Equal(t, 15, cfg.Cache.TTL)
}

func TestGetSecret_PrefersDirectEnv(t *testing.T) {
	t.Setenv("TEST_SECRET", "direct")

	assert.Equal(t, "direct", getSecret("TEST_SECRET", "TEST_SECRET_FILE", "fallback"))
}

func TestGetSecret_ReadsFile(t *testing.T) {
	_ = os.Unsetenv("TEST_SECRET")
	path := t.TempDir() + "/secret"
	assert.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	t.Setenv("TEST_SECRET_FILE", path)

	assert.Equal(t, "from-file", getSecret("TEST_SECRET", "TEST_SECRET_FILE", "fallback"))
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		fallback float64
		expected float64
	}{
		{
			name:     "valid value",
			envValue: "1.5",
			fallback: 0,
			expected: 1.5,
		},
		{
			name:     "invalid value uses fallback",
			envValue: "not-a-number",
			fallback: 0.5,
			expected: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_FLOAT", tt.envValue)

			result := getEnvFloat("TEST_FLOAT", tt.fallback)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	assert.True(t, getEnvBool("TEST_BOOL", false))

	t.Setenv("TEST_BOOL", "junk")
	assert.False(t, getEnvBool("TEST_BOOL", false))
}
