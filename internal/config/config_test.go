package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, 300, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.ChunkOverlap)
	assert.InDelta(t, 0.3, cfg.Retrieval.ScoreThreshold, 1e-9)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 300, cfg.Pipeline.JobTimeoutSecs)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: 9090
vector_store:
  type: qdrant
  qdrant:
    url: http://qdrant:6333
retrieval:
  score_threshold: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "http://qdrant:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "documents", cfg.VectorStore.Qdrant.Collection)
	assert.InDelta(t, 0.5, cfg.Retrieval.ScoreThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Retrieval.DefaultMaxChunks)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesDatabaseDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "host=db user=app dbname=app")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "host=db user=app dbname=app", cfg.Database.DSN)
}

func TestEnvSwitchesToQdrant(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant.internal:6333")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "qdrant", cfg.VectorStore.Type)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "http://qdrant.internal:6333", cfg.VectorStore.Qdrant.URL)
}
