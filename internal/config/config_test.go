package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-sourcing/procure-cli/internal/model"
)

func chtmp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chtmp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "procure.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Queue.Limit)

	assert.InDelta(t, 0.9, cfg.Rules.CompressionThreshold, 0.001)
	assert.Equal(t, 280, cfg.Rules.ExcerptLimit)
	assert.Equal(t, model.SeverityMedium, cfg.Rules.CompressionSeverity)
	assert.Equal(t, model.SeverityHigh, cfg.Rules.AbsenceSeverity)
	assert.Equal(t, model.SeverityMedium, cfg.Rules.MisalignmentSeverity)
	assert.Equal(t, model.SeverityHigh, cfg.Rules.ContradictionSeverity)
	assert.Len(t, cfg.Rules.OperationalDetailKeywords, 7)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chtmp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/procure
log:
  level: debug
  format: console
rules:
  compression_threshold: 0.85
  compression_severity: high
queue:
  limit: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/procure", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.InDelta(t, 0.85, cfg.Rules.CompressionThreshold, 0.001)
	assert.Equal(t, model.SeverityHigh, cfg.Rules.CompressionSeverity)
	assert.Equal(t, 5, cfg.Queue.Limit)

	// Untouched keys keep their defaults.
	assert.Equal(t, 280, cfg.Rules.ExcerptLimit)
	assert.Equal(t, model.SeverityHigh, cfg.Rules.AbsenceSeverity)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level", Format: "json"}))
}
