package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "env: local\n")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.Address)
	assert.Equal(t, 3, cfg.Ledger.CreateAttempts)
	assert.Equal(t, time.Second, cfg.Ledger.RetryBaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Ledger.CreateLockTTL)
	assert.Equal(t, 0, cfg.Bulk.MaxConcurrency)
	assert.Empty(t, cfg.Archive.Bucket)
}

func TestLoad_Values(t *testing.T) {
	p := writeConfig(t, `
env: prod
storage_path: "postgres://localhost/attendance"
ledger:
  create_attempts: 5
  retry_base_delay: 250ms
bulk:
  max_concurrency: 8
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/attendance", cfg.StoragePath)
	assert.Equal(t, 5, cfg.Ledger.CreateAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Ledger.RetryBaseDelay)
	assert.Equal(t, 8, cfg.Bulk.MaxConcurrency)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "env: prod\n"))
	assert.ErrorContains(t, err, "storage_path")
}
