package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/aisp-verify/internal/density"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 64<<10, cfg.Limits.MaxBytes)
	assert.Equal(t, 30*time.Second, cfg.SMT.Timeout)
	assert.Equal(t, "none", cfg.Store.Driver)

	g := cfg.GateConfig()
	assert.Equal(t, density.Bronze, g.MinTier)
	assert.Equal(t, density.AmbiguityLimit, g.MaxAmbiguity)
}

func TestLoadFileOverDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "aisp.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 131072, cfg.Limits.MaxBytes)
	assert.Equal(t, 5*time.Second, cfg.SMT.Timeout)
	assert.Equal(t, int64(2), cfg.SMT.Concurrency)
	assert.Equal(t, 2000, cfg.Prover.MaxSteps)
	assert.Equal(t, Default().Prover.MaxDepth, cfg.Prover.MaxDepth, "unset keys keep defaults")
	assert.Equal(t, 0.85, cfg.Invariants.AssumeAt)
	assert.Equal(t, density.Silver, cfg.GateConfig().MinTier)
	assert.Equal(t, 8, cfg.Batch.Parallel)

	eng := cfg.EngineConfig()
	assert.Equal(t, 5*time.Second, eng.Timeout)
	assert.Equal(t, 2000, cfg.ProverLimits().MaxSteps)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AISP_Z3", "/usr/local/bin/z3")
	t.Setenv("AISP_SMT_TIMEOUT", "750ms")
	t.Setenv("AISP_MAX_BYTES", "1024")
	t.Setenv("AISP_SMT_ENABLED", "false")
	t.Setenv("AISP_STORE", "badger")
	t.Setenv("AISP_STORE_PATH", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/z3", cfg.SMT.Binary)
	assert.Equal(t, 750*time.Millisecond, cfg.SMT.Timeout)
	assert.Equal(t, 1024, cfg.Limits.MaxBytes)
	assert.False(t, cfg.SMT.Enabled)
	assert.Equal(t, "badger", cfg.Store.Driver)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("AISP_MAX_BYTES", "lots")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"above hard ceiling", func(c *Config) { c.Limits.MaxBytes = HardMaxBytes + 1 }},
		{"zero timeout", func(c *Config) { c.SMT.Timeout = 0 }},
		{"unknown tier", func(c *Config) { c.Gate.MinTier = "Diamond" }},
		{"unknown store", func(c *Config) { c.Store.Driver = "redis" }},
		{"store without path", func(c *Config) { c.Store.Driver = "sqlite" }},
		{"extension without dot", func(c *Config) { c.Limits.Extensions = []string{"aisp"} }},
		{"assume below threshold", func(c *Config) { c.Invariants.AssumeAt = 0.1 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"ambiguity limit relaxed", func(c *Config) { c.Gate.MaxAmbiguity = 0.5 }},
		{"ambiguity limit disabled", func(c *Config) { c.Gate.MaxAmbiguity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAllowsTighterAmbiguityLimit(t *testing.T) {
	cfg := Default()
	cfg.Gate.MaxAmbiguity = 0.01
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("smt: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
