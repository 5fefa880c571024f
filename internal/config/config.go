// Package config loads scheduler settings from descend.{toml,yaml,json}
// and DESCEND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/agentic-research/descend/pkg/collect"
	"github.com/agentic-research/descend/pkg/resolve"
)

const (
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "descend"
	// EnvPrefix prefixes environment overrides: collector.max_ticks is
	// DESCEND_COLLECTOR_MAX_TICKS.
	EnvPrefix = "DESCEND"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type (
	Config struct {
		Collector CollectorConfig `mapstructure:"collector"`
		Log       LogConfig       `mapstructure:"log"`
		// Records overrides the root strategy per record kind.
		Records []RecordConfig `mapstructure:"records"`
	}

	CollectorConfig struct {
		// FailurePolicy is "abort" or "isolate".
		FailurePolicy string `mapstructure:"failure_policy"`
		// Tick is the delay between scheduler ticks.
		Tick time.Duration `mapstructure:"tick"`
		// MaxTicks bounds a run; 0 means no bound.
		MaxTicks int `mapstructure:"max_ticks"`
	}

	LogConfig struct {
		Level string `mapstructure:"level"`
	}

	RecordConfig struct {
		Kind      string `mapstructure:"kind"`
		Strategy  string `mapstructure:"strategy"`
		FixedRoot string `mapstructure:"fixed_root"`
	}

	// LoadOptions controls where Load looks for a config file.
	LoadOptions struct {
		// ConfigFilePath, when set, is the only file read and must exist.
		ConfigFilePath string
		// SearchPaths are searched for descend.* when ConfigFilePath is
		// empty. Defaults to the working directory.
		SearchPaths []string
	}
)

// DefaultConfig returns the configuration used when no file sets a key.
func DefaultConfig() *Config {
	return &Config{
		Collector: CollectorConfig{
			FailurePolicy: collect.AbortPass.String(),
			Tick:          10 * time.Millisecond,
			MaxTicks:      100,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the configuration. A missing file in the search paths is not
// an error; defaults and environment overrides still apply. The returned
// string is the file that was read, if any.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("collector.failure_policy", defaults.Collector.FailurePolicy)
	v.SetDefault("collector.tick", defaults.Collector.Tick)
	v.SetDefault("collector.max_ticks", defaults.Collector.MaxTicks)
	v.SetDefault("log.level", defaults.Log.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		paths := opts.SearchPaths
		if len(paths) == 0 {
			paths = []string{"."}
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, v.ConfigFileUsed(), nil
}

// Validate checks every value that would otherwise fail later.
func (c *Config) Validate() error {
	if _, err := c.FailurePolicy(); err != nil {
		return fmt.Errorf("%w: collector.failure_policy: %w", ErrInvalidConfig, err)
	}
	if c.Collector.Tick < 0 {
		return fmt.Errorf("%w: collector.tick must not be negative", ErrInvalidConfig)
	}
	if c.Collector.MaxTicks < 0 {
		return fmt.Errorf("%w: collector.max_ticks must not be negative", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	seen := make(map[string]bool, len(c.Records))
	for i, r := range c.Records {
		if r.Kind == "" {
			return fmt.Errorf("%w: records[%d]: empty kind", ErrInvalidConfig, i)
		}
		if seen[r.Kind] {
			return fmt.Errorf("%w: records[%d]: kind %s listed twice", ErrInvalidConfig, i, r.Kind)
		}
		seen[r.Kind] = true
		if _, err := resolve.ParseStrategy(r.Strategy, r.FixedRoot); err != nil {
			return fmt.Errorf("%w: records[%d] (%s): %w", ErrInvalidConfig, i, r.Kind, err)
		}
	}
	return nil
}

// FailurePolicy returns the parsed collector.failure_policy.
func (c *Config) FailurePolicy() (collect.FailurePolicy, error) {
	return collect.ParseFailurePolicy(c.Collector.FailurePolicy)
}

// PassOptions returns per-kind registration options for every configured
// record.
func (c *Config) PassOptions() (map[string][]collect.PassOption, error) {
	out := make(map[string][]collect.PassOption, len(c.Records))
	for _, r := range c.Records {
		st, err := resolve.ParseStrategy(r.Strategy, r.FixedRoot)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Kind, err)
		}
		out[r.Kind] = []collect.PassOption{collect.WithStrategy(st)}
	}
	return out, nil
}

// SchedulerOptions returns the options NewScheduler needs for this
// configuration, logging to logger.
func (c *Config) SchedulerOptions(logger *log.Logger) ([]collect.Option, error) {
	p, err := c.FailurePolicy()
	if err != nil {
		return nil, err
	}
	return []collect.Option{collect.WithFailurePolicy(p), collect.WithLogger(logger)}, nil
}

// NewLogger returns a logger writing to w at log.level.
func (c *Config) NewLogger(w io.Writer, prefix string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: prefix,
		Level:  lvl,
	}), nil
}
