// Package config loads promptvault configuration from defaults, an optional
// YAML file and PROMPTVAULT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/nainya/promptvault/pkg/version"
)

// Config is the full promptvault configuration
type Config struct {
	GRPCPort    int             `mapstructure:"grpc_port" yaml:"grpc_port"`
	MetricsPort int             `mapstructure:"metrics_port" yaml:"metrics_port"`
	Log         LogConfig       `mapstructure:"log" yaml:"log"`
	Revisions   RevisionsConfig `mapstructure:"revisions" yaml:"revisions"`
}

// LogConfig controls logging output
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// RevisionsConfig controls revision capture
type RevisionsConfig struct {
	DefaultAuthor  string `mapstructure:"default_author" yaml:"default_author"`
	RetentionLimit int    `mapstructure:"retention_limit" yaml:"retention_limit"`
}

const unknownAuthor = "unknown"

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		GRPCPort:    50051,
		MetricsPort: 9090,
		Log: LogConfig{
			Level: "info",
		},
		Revisions: RevisionsConfig{
			DefaultAuthor:  unknownAuthor,
			RetentionLimit: version.DefaultRetentionLimit,
		},
	}
}

// Validate checks value ranges
func (c Config) Validate() error {
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc_port: %d", c.GRPCPort)
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics_port: %d", c.MetricsPort)
	}
	return nil
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads the initial config.
// An empty cfgFile searches ./promptvault.yaml and ~/.promptvault/.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New()}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("grpc_port", defaults.GRPCPort)
	v.SetDefault("metrics_port", defaults.MetricsPort)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.pretty", defaults.Log.Pretty)
	v.SetDefault("revisions.default_author", defaults.Revisions.DefaultAuthor)
	v.SetDefault("revisions.retention_limit", defaults.Revisions.RetentionLimit)

	// PROMPTVAULT_LOG_LEVEL maps to log.level
	v.SetEnvPrefix("PROMPTVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("promptvault")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.promptvault")
	}

	// The config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file in use, or "" when running on defaults
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// DefaultAuthor implements version.AuthorProvider using the live config,
// so a reloaded default_author applies to the next capture. An empty value
// falls back to "unknown".
func (cm *Manager) DefaultAuthor() string {
	if author := strings.TrimSpace(cm.Get().Revisions.DefaultAuthor); author != "" {
		return author
	}
	return unknownAuthor
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. Invalid reloads are
// ignored and the previous config stays active.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cm.reload()
	})
	cm.v.WatchConfig()
}

func (cm *Manager) reload() {
	cfg, err := cm.load()
	if err != nil {
		return
	}

	cm.mu.Lock()
	cm.config = cfg
	callbacks := make([]func(*Config), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}
