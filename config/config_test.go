package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint32(32), cfg.Search.Threshold)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Indexer.Workers)
	assert.False(t, cfg.Indexer.Normalize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fsse.yaml")
	content := `
search:
  threshold: 24
indexer:
  normalize: true
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(24), cfg.Search.Threshold)
	assert.True(t, cfg.Indexer.Normalize)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Unset values keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Indexer.Workers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FSSE_THRESHOLD", "40")
	t.Setenv("FSSE_WORKERS", "3")
	t.Setenv("FSSE_NORMALIZE", "true")
	t.Setenv("FSSE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint32(40), cfg.Search.Threshold)
	assert.Equal(t, 3, cfg.Indexer.Workers)
	assert.True(t, cfg.Indexer.Normalize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [oops"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	t.Setenv("FSSE_WORKERS", "many")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Search.Threshold = 129
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Indexer.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Logging.Level = "loud"
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}
