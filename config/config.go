// Package config loads the redlimit application configuration from
// YAML files with environment variable overrides, validates it, and
// builds the runtime registries and defaults from it.
package config

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/up2jj/redlimit/logger"
	"github.com/up2jj/redlimit/redis"
)

// Config is the root application configuration.
type Config struct {
	// Enabled is the process-wide kill switch. Accepts a bool or its
	// string literal form.
	Enabled interface{} `mapstructure:"enabled"`

	// Limiter is the default limiter id (default "fixed_window")
	Limiter string `mapstructure:"limiter"`

	// LogLevel is the default fail-open record severity
	LogLevel string `mapstructure:"log_level"`

	// Opts are the default scalar script arguments
	Opts []string `mapstructure:"opts"`

	// Key names the default key strategy, KeyArg its static argument
	Key    string `mapstructure:"key"`
	KeyArg string `mapstructure:"key_arg"`

	// RedisInstance names the entry in Redis used for evaluation
	// (default "default")
	RedisInstance string `mapstructure:"redis_instance"`

	Logger logger.Config           `mapstructure:"logger"`
	Redis  map[string]redis.Config `mapstructure:"redis"`

	// Limiters are named limiter registry entries
	Limiters map[string]LimiterConfig `mapstructure:"limiters"`

	// Scripts are named script registry entries
	Scripts map[string]ScriptConfig `mapstructure:"scripts"`

	// SkipPaths bypass rate limiting entirely
	SkipPaths []string `mapstructure:"skip_paths"`
}

// LimiterConfig is one named limiter entry.
type LimiterConfig struct {
	// Script names the script registry entry this limiter evaluates
	Script string `mapstructure:"script"`

	Opts     []string `mapstructure:"opts"`
	LogLevel string   `mapstructure:"log_level"`

	// Key names a key strategy; empty falls through to the default
	Key    string `mapstructure:"key"`
	KeyArg string `mapstructure:"key_arg"`
}

// ScriptConfig is one named script entry. Exactly one of Source and
// File must be set.
type ScriptConfig struct {
	// Source is the inline Lua source
	Source string `mapstructure:"source"`

	// File is a path to the Lua source, read on first use
	File string `mapstructure:"file"`

	// Headers are the positional response header names
	Headers []string `mapstructure:"headers"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.RedisInstance == "" {
		c.RedisInstance = "default"
	}
	if c.Redis == nil {
		c.Redis = map[string]redis.Config{"default": {}}
	}
	for name, rc := range c.Redis {
		rc.ApplyDefaults()
		c.Redis[name] = rc
	}
	c.Logger.ApplyDefaults()
}

// Validate checks structural consistency. Cross-references between
// limiters, scripts and key strategies are checked later when the
// registries are built.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.RedisInstance, validation.Required),
		validation.Field(&c.Redis, validation.Required),
	); err != nil {
		return err
	}

	for name, rc := range c.Redis {
		if err := rc.Validate(); err != nil {
			return ErrInvalidConfig.WithMsgf("redis instance %q: %v", name, err)
		}
	}

	for name, sc := range c.Scripts {
		if (sc.Source == "") == (sc.File == "") {
			return ErrInvalidConfig.WithMsgf("script %q: exactly one of source and file must be set", name)
		}
	}

	if _, ok := c.Redis[c.RedisInstance]; !ok {
		return ErrInvalidConfig.WithMsgf("redis_instance %q not present in redis section", c.RedisInstance)
	}

	return nil
}

// Validator is implemented by configurations that can check themselves.
type Validator interface {
	Validate() error
}

// ValidateAll validates several configurations, stopping at the first
// failure.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
