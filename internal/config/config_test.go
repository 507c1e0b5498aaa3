package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8, cfg.Checker.MaxConcurrent)
	assert.Equal(t, "300s", cfg.Checker.Timeout)
	assert.Equal(t, 10, cfg.Checker.MemoryLimitGB)
	assert.Equal(t, "proof_verifier", cfg.Checker.Name)
	assert.Equal(t, "/dev/shm/mathlib4", cfg.Checker.LeanWorkspace)
	assert.Empty(t, cfg.Output.ArchiveDB)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
checker:
  max_concurrent: 32
  timeout: 2m
  lean_workspace: /scratch/mathlib4
output:
  archive_db: runs.db
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Checker.MaxConcurrent)
	assert.Equal(t, 2*time.Minute, cfg.Checker.TimeoutDuration())
	assert.Equal(t, "/scratch/mathlib4", cfg.Checker.LeanWorkspace)
	assert.Equal(t, "runs.db", cfg.Output.ArchiveDB)
	// Untouched keys keep their defaults.
	assert.Equal(t, 10, cfg.Checker.MemoryLimitGB)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Checker.MaxConcurrent)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LEANVERIFY_WORKSPACE", "/mnt/mathlib4")
	t.Setenv("LEANVERIFY_MAX_CONCURRENT", "16")
	t.Setenv("LEANVERIFY_TIMEOUT", "90s")
	t.Setenv("LEANVERIFY_ARCHIVE_DB", "archive.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/mnt/mathlib4", cfg.Checker.LeanWorkspace)
	assert.Equal(t, 16, cfg.Checker.MaxConcurrent)
	assert.Equal(t, 90*time.Second, cfg.Checker.TimeoutDuration())
	assert.Equal(t, "archive.db", cfg.Output.ArchiveDB)
}

func TestEnvOverridesIgnoreInvalidValues(t *testing.T) {
	t.Setenv("LEANVERIFY_MAX_CONCURRENT", "not-a-number")
	t.Setenv("LEANVERIFY_TIMEOUT", "soon")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Checker.MaxConcurrent)
	assert.Equal(t, 300*time.Second, cfg.Checker.TimeoutDuration())
}

func TestTimeoutDurationFallback(t *testing.T) {
	c := CheckerConfig{Timeout: "garbage"}
	assert.Equal(t, 300*time.Second, c.TimeoutDuration())

	c.Timeout = "-5s"
	assert.Equal(t, 300*time.Second, c.TimeoutDuration())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Checker.MaxConcurrent = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Checker.LeanWorkspace = ""
	assert.Error(t, cfg.Validate())
}
