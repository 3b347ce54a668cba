package config

import (
	"errors"
	"fmt"

	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/common"
	"github.com/Ursinus-CS476-F2020/LoopDitty/logging"
)

// Config is the root configuration of the projection service
type Config struct {
	Normalization NormalizationConfig `mapstructure:"normalization" json:"normalization" yaml:"normalization"`
	PCA           PCAConfig           `mapstructure:"pca" json:"pca" yaml:"pca"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline" json:"pipeline" yaml:"pipeline"`
	Logging       LoggingConfig       `mapstructure:"logging" json:"logging" yaml:"logging"`
	Server        ServerConfig        `mapstructure:"server" json:"server" yaml:"server"`
}

// NormalizationConfig holds the fallback used at each call site when a
// request names no normalization or one that does not exist
type NormalizationConfig struct {
	FeatureFallback string `mapstructure:"feature_fallback" json:"feature_fallback" yaml:"feature_fallback"`
	JointFallback   string `mapstructure:"joint_fallback" json:"joint_fallback" yaml:"joint_fallback"`
}

// FeatureFallbackMethod resolves FeatureFallback, defaulting to Identity.
func (n NormalizationConfig) FeatureFallbackMethod() common.Method {
	m, _ := common.ParseMethod(n.FeatureFallback)
	return m
}

// JointFallbackMethod resolves JointFallback, defaulting to Identity.
func (n NormalizationConfig) JointFallbackMethod() common.Method {
	m, _ := common.ParseMethod(n.JointFallback)
	return m
}

// PCAConfig configures the dimensionality reduction stage
type PCAConfig struct {
	TargetDim  int    `mapstructure:"target_dim" json:"target_dim" yaml:"target_dim"`
	Iterations int    `mapstructure:"iterations" json:"iterations" yaml:"iterations"`
	Seed       uint64 `mapstructure:"seed" json:"seed" yaml:"seed"` // 0 draws a fresh seed per task
}

// PipelineConfig configures task scheduling
type PipelineConfig struct {
	// Supersede cancels the running task when a new one is started.
	Supersede bool `mapstructure:"supersede" json:"supersede" yaml:"supersede"`
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level string `mapstructure:"level" json:"level" yaml:"level"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr            string `mapstructure:"addr" json:"addr" yaml:"addr"`
	MaxRequestBytes int64  `mapstructure:"max_request_bytes" json:"max_request_bytes" yaml:"max_request_bytes"`
}

// DefaultConfig returns the default configuration. Both call sites fall
// back to no normalization.
func DefaultConfig() *Config {
	return &Config{
		Normalization: NormalizationConfig{
			FeatureFallback: common.Identity.String(),
			JointFallback:   common.Identity.String(),
		},
		PCA: PCAConfig{
			TargetDim:  3,
			Iterations: 100,
			Seed:       0,
		},
		Pipeline: PipelineConfig{
			Supersede: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			MaxRequestBytes: 64 << 20,
		},
	}
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	var errs []error
	if _, err := common.ParseMethod(c.Normalization.FeatureFallback); err != nil {
		errs = append(errs, fmt.Errorf("normalization.feature_fallback: %w", err))
	}
	if _, err := common.ParseMethod(c.Normalization.JointFallback); err != nil {
		errs = append(errs, fmt.Errorf("normalization.joint_fallback: %w", err))
	}
	if c.PCA.TargetDim < 1 {
		errs = append(errs, fmt.Errorf("pca.target_dim must be at least 1, got %d", c.PCA.TargetDim))
	}
	if c.PCA.Iterations < 0 {
		errs = append(errs, fmt.Errorf("pca.iterations must not be negative, got %d", c.PCA.Iterations))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Server.MaxRequestBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_request_bytes must be positive, got %d", c.Server.MaxRequestBytes))
	}
	return errors.Join(errs...)
}
