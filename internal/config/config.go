// Package config loads validator settings from YAML with AISP_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/aisp-verify/internal/deduction"
	"github.com/danielpatrickdp/aisp-verify/internal/density"
	"github.com/danielpatrickdp/aisp-verify/internal/gate"
	"github.com/danielpatrickdp/aisp-verify/internal/invariant"
	"github.com/danielpatrickdp/aisp-verify/internal/smt"
	"github.com/danielpatrickdp/aisp-verify/internal/trivector"
)

// HardMaxBytes caps Limits.MaxBytes regardless of configuration.
const HardMaxBytes = 1 << 20

// #region types
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Limits     LimitsConfig     `yaml:"limits"`
	SMT        SMTConfig        `yaml:"smt"`
	Prover     ProverConfig     `yaml:"prover"`
	Invariants invariant.Config `yaml:"invariants"`
	Gate       GateConfig       `yaml:"gate"`
	Trivector  TrivectorConfig  `yaml:"trivector"`
	Store      StoreConfig      `yaml:"store"`
	Batch      BatchConfig      `yaml:"batch"`
	Server     ServerConfig     `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

type LimitsConfig struct {
	MaxBytes   int      `yaml:"max_bytes" validate:"gte=1"`
	Extensions []string `yaml:"extensions" validate:"min=1,dive,startswith=."`
}

type SMTConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Binary          string        `yaml:"binary"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	Concurrency     int64         `yaml:"concurrency" validate:"gte=1,lte=256"`
	MemoryMB        int           `yaml:"memory_mb" validate:"gte=0"`
	RetrySimplified bool          `yaml:"retry_simplified"`
	RelevanceRounds int           `yaml:"relevance_rounds" validate:"gte=0,lte=16"`
}

type ProverConfig struct {
	Enabled  bool `yaml:"enabled"`
	MaxSteps int  `yaml:"max_steps" validate:"gte=1"`
	MaxDepth int  `yaml:"max_depth" validate:"gte=1"`
}

type GateConfig struct {
	// MaxAmbiguity may tighten the 0.02 rejection limit, never relax it.
	MaxAmbiguity float64 `yaml:"max_ambiguity" validate:"gt=0,lte=0.02"`
	MinTier      string  `yaml:"min_tier" validate:"oneof=Reject Bronze Silver Gold Platinum"`
}

type TrivectorConfig struct {
	UseSMT        bool `yaml:"use_smt"`
	MaxSMTSupport int  `yaml:"max_smt_support" validate:"gte=0"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=none sqlite badger"`
	Path   string `yaml:"path" validate:"required_unless=Driver none"`
}

type BatchConfig struct {
	Parallel int `yaml:"parallel" validate:"gte=1,lte=1024"`
}

type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr" validate:"required"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// #endregion types

// #region defaults
func Default() Config {
	eng := smt.DefaultEngineConfig()
	g := gate.DefaultGateConfig()
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Limits: LimitsConfig{
			MaxBytes:   64 << 10,
			Extensions: []string{".aisp", ".aisp5", ".md", ".txt", ".spec"},
		},
		SMT: SMTConfig{
			Enabled:         true,
			Binary:          "z3",
			Timeout:         eng.Timeout,
			Concurrency:     eng.Concurrency,
			RetrySimplified: eng.RetrySimplified,
			RelevanceRounds: eng.RelevanceRounds,
		},
		Prover: ProverConfig{
			Enabled:  true,
			MaxSteps: deduction.DefaultMaxSteps,
			MaxDepth: deduction.DefaultMaxDepth,
		},
		Invariants: invariant.DefaultConfig(),
		Gate:       GateConfig{MaxAmbiguity: g.MaxAmbiguity, MinTier: g.MinTier.String()},
		Trivector:  TrivectorConfig{UseSMT: true, MaxSMTSupport: trivector.DefaultMaxSMTSupport},
		Store:      StoreConfig{Driver: "none"},
		Batch:      BatchConfig{Parallel: 4},
		Server:     ServerConfig{GRPCAddr: "localhost:50061", MetricsAddr: ":9464"},
	}
}

// #endregion defaults

// #region load
// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Log.Level = envOr("AISP_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("AISP_LOG_FORMAT", c.Log.Format)
	c.SMT.Binary = envOr("AISP_Z3", c.SMT.Binary)
	c.Store.Driver = envOr("AISP_STORE", c.Store.Driver)
	c.Store.Path = envOr("AISP_STORE_PATH", c.Store.Path)
	c.Server.GRPCAddr = envOr("AISP_GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MetricsAddr = envOr("AISP_METRICS_ADDR", c.Server.MetricsAddr)

	var err error
	if c.Limits.MaxBytes, err = envInt("AISP_MAX_BYTES", c.Limits.MaxBytes); err != nil {
		return err
	}
	if c.Batch.Parallel, err = envInt("AISP_PARALLEL", c.Batch.Parallel); err != nil {
		return err
	}
	conc, err := envInt("AISP_SMT_CONCURRENCY", int(c.SMT.Concurrency))
	if err != nil {
		return err
	}
	c.SMT.Concurrency = int64(conc)
	if v := os.Getenv("AISP_SMT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AISP_SMT_TIMEOUT: %w", err)
		}
		c.SMT.Timeout = d
	}
	if v := os.Getenv("AISP_SMT_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AISP_SMT_ENABLED: %w", err)
		}
		c.SMT.Enabled = b
	}
	return nil
}

// Validate checks struct constraints and the cross-field limits.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Limits.MaxBytes > HardMaxBytes {
		return fmt.Errorf("invalid config: limits.max_bytes %d exceeds hard ceiling %d", c.Limits.MaxBytes, HardMaxBytes)
	}
	if c.Invariants.AssumeAt < c.Invariants.Threshold {
		return errors.New("invalid config: invariants.assume_at below invariants.threshold")
	}
	return nil
}

// #endregion load

// #region conversions
func (c Config) EngineConfig() smt.EngineConfig {
	return smt.EngineConfig{
		Timeout:         c.SMT.Timeout,
		Concurrency:     c.SMT.Concurrency,
		RetrySimplified: c.SMT.RetrySimplified,
		RelevanceRounds: c.SMT.RelevanceRounds,
	}
}

func (c Config) ProverLimits() deduction.Prover {
	return deduction.Prover{MaxSteps: c.Prover.MaxSteps, MaxDepth: c.Prover.MaxDepth}
}

func (c Config) GateConfig() gate.GateConfig {
	tier, err := density.ParseTier(c.Gate.MinTier)
	if err != nil {
		tier = gate.DefaultGateConfig().MinTier
	}
	return gate.GateConfig{MaxAmbiguity: c.Gate.MaxAmbiguity, MinTier: tier}
}

// #endregion conversions

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// #endregion helpers
