// Package config loads host settings from an optional YAML file and
// ONECLICK_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"oneclick_bridge/emulator"
)

const (
	EnvPrefix   = "ONECLICK"
	defaultName = "oneclick-bridge"
)

type Config struct {
	ListenAddr   string         `mapstructure:"listen_addr"`
	ProbeWorkers int            `mapstructure:"probe_workers"`
	Log          LogConfig      `mapstructure:"log"`
	Resources    ResourceConfig `mapstructure:"resources"`
	Metrics      MetricsConfig  `mapstructure:"metrics"`
	Emulator     EmulatorConfig `mapstructure:"emulator"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ResourceConfig struct {
	// Path is a res/ directory or a YAML manifest. Empty disables setLogo.
	Path      string   `mapstructure:"path"`
	Buckets   []string `mapstructure:"buckets"`
	CacheSize int      `mapstructure:"cache_size"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type EmulatorConfig struct {
	Supported    bool          `mapstructure:"supported"`
	ProbeLatency time.Duration `mapstructure:"probe_latency"`
	LoginLatency time.Duration `mapstructure:"login_latency"`
	Outcome      string        `mapstructure:"outcome"`
	FailureCode  string        `mapstructure:"failure_code"`
	Phone        string        `mapstructure:"phone"`
	Operator     string        `mapstructure:"operator"`
}

func SetDefaults(v *viper.Viper) {
	def := emulator.DefaultConfig()
	v.SetDefault("listen_addr", "127.0.0.1:17400")
	v.SetDefault("probe_workers", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("resources.path", "")
	v.SetDefault("resources.buckets", []string{"drawable", "mipmap"})
	v.SetDefault("resources.cache_size", 128)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("emulator.supported", def.Supported)
	v.SetDefault("emulator.probe_latency", def.ProbeLatency)
	v.SetDefault("emulator.login_latency", def.LoginLatency)
	v.SetDefault("emulator.outcome", string(def.Outcome))
	v.SetDefault("emulator.failure_code", string(def.FailureCode))
	v.SetDefault("emulator.phone", def.Phone)
	v.SetDefault("emulator.operator", def.Operator)
}

// Load reads path when given, otherwise an optional oneclick-bridge.yaml in
// the working directory. Environment variables override file values.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(defaultName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen_addr is required")
	}
	if c.ProbeWorkers < 1 {
		return fmt.Errorf("probe_workers must be positive, got %d", c.ProbeWorkers)
	}
	if len(c.Resources.Buckets) == 0 {
		return errors.New("resources.buckets must name at least one bucket")
	}
	switch emulator.Outcome(c.Emulator.Outcome) {
	case emulator.OutcomeSuccess, emulator.OutcomeFailure:
	default:
		return fmt.Errorf("emulator.outcome must be %q or %q, got %q",
			emulator.OutcomeSuccess, emulator.OutcomeFailure, c.Emulator.Outcome)
	}
	return nil
}

func (e EmulatorConfig) SDKConfig() emulator.Config {
	return emulator.Config{
		Supported:    e.Supported,
		ProbeLatency: e.ProbeLatency,
		LoginLatency: e.LoginLatency,
		Outcome:      emulator.Outcome(e.Outcome),
		FailureCode:  emulator.FailureCode(strings.ToUpper(e.FailureCode)),
		Phone:        e.Phone,
		Operator:     e.Operator,
	}
}
