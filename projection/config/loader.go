package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix of every setting, e.g.
// LOOPDITTY_PCA_SEED or LOOPDITTY_NORMALIZATION_JOINT_FALLBACK.
const envPrefix = "LOOPDITTY"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults registers every key so environment overrides apply to keys
// that the config file leaves out.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("normalization.feature_fallback", d.Normalization.FeatureFallback)
	v.SetDefault("normalization.joint_fallback", d.Normalization.JointFallback)
	v.SetDefault("pca.target_dim", d.PCA.TargetDim)
	v.SetDefault("pca.iterations", d.PCA.Iterations)
	v.SetDefault("pca.seed", d.PCA.Seed)
	v.SetDefault("pipeline.supersede", d.Pipeline.Supersede)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_request_bytes", d.Server.MaxRequestBytes)
}

// Load reads the YAML file at path, applies LOOPDITTY_* environment
// overrides and defaults, and validates the result. An empty path loads
// from defaults and the environment only.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", path, err)
		}
	}
	return unmarshalAndValidate(v)
}

func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}
