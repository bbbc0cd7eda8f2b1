package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 9000
  mode: debug
  request_timeout: 45s
data:
  file: /srv/data/patents_cleaned_20240101.json
  watch: true
embedding:
  backend: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
  batch_size: 32
  requests_per_second: 20
search:
  candidate_window: 100
index:
  store: minio
  lock: true
minio:
  endpoint: localhost:9000
  access_key: minio
  secret_key: minio123
  bucket: patent-index
redis:
  addr: localhost:6379
  lock_ttl: 5m
log:
  level: debug
  format: console
metrics:
  enabled: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "/srv/data/patents_cleaned_20240101.json", cfg.Data.File)
	assert.True(t, cfg.Data.Watch)
	assert.Equal(t, BackendOllama, cfg.Embedding.Backend)
	assert.Equal(t, 32, cfg.Embedding.BatchSize)
	assert.Equal(t, 20.0, cfg.Embedding.RequestsPerSecond)
	assert.Equal(t, IndexStoreMinIO, cfg.Index.Store)
	assert.Equal(t, "patent-index", cfg.MinIO.Bucket)
	assert.Equal(t, 5*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, "console", cfg.Log.Format)

	// Defaults fill what the file leaves out.
	assert.Equal(t, DefaultEmbeddingWorkers, cfg.Embedding.Workers)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, validConfigYAML)
	t.Setenv("PATENTSEARCH_SERVER_PORT", "9100")
	t.Setenv("PATENTSEARCH_EMBEDDING_MODEL", "mxbai-embed-large")
	t.Setenv("PATENTSEARCH_SEARCH_ANNOTATION_WORKERS", "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "mxbai-embed-large", cfg.Embedding.Model)
	assert.Equal(t, 2, cfg.Search.AnnotationWorkers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "embedding:\n  backend: word2vec\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PATENTSEARCH_DATA_DIR", "/var/lib/patents")
	t.Setenv("PATENTSEARCH_EMBEDDING_DIMENSION", "128")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/patents", cfg.Data.Dir)
	assert.Equal(t, 128, cfg.Embedding.Dimension)
	assert.Equal(t, BackendHashing, cfg.Embedding.Backend)
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional("")
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	cfg, err = LoadOptional(writeConfig(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}
