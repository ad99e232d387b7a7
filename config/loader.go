package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Loader reads configuration from a YAML file with environment
// variable overrides layered on top.
type Loader struct {
	path      string
	envPrefix string
	v         *viper.Viper
}

// NewLoader creates a loader for the given file path. envPrefix scopes
// the environment overrides; REDLIMIT_LOG_LEVEL overrides log_level
// when the prefix is "REDLIMIT". An empty path loads from environment
// variables only.
func NewLoader(path, envPrefix string) *Loader {
	return &Loader{path: path, envPrefix: envPrefix, v: viper.New()}
}

// Load reads, merges, defaults and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if l.envPrefix != "" {
		l.v.SetEnvPrefix(l.envPrefix)
	}
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.path != "" {
		l.v.SetConfigFile(l.path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, ErrLoadFailed.WithMsgf("read %s: %v", l.path, err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, ErrLoadFailed.WithMsgf("unmarshal: %v", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Viper exposes the underlying viper instance for keys outside the
// typed configuration.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load is shorthand for NewLoader(path, envPrefix).Load().
func Load(path, envPrefix string) (*Config, error) {
	return NewLoader(path, envPrefix).Load()
}
