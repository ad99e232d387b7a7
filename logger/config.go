package logger

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap/zapcore"
)

// Config logger configuration.
type Config struct {
	// Level: debug, info, warning, error or disabled
	Level string `mapstructure:"level"`

	// AppName is injected into every record (may be empty)
	AppName string `mapstructure:"app_name"`

	// Encoding: json or console
	Encoding string `mapstructure:"encoding"`

	EnableConsole bool `mapstructure:"enable_console"`
	EnableFile    bool `mapstructure:"enable_file"`

	// File output (used when EnableFile is true)
	Dir      string `mapstructure:"dir"`
	Filename string `mapstructure:"filename"`

	// Rotation (lumberjack)
	MaxSize    int  `mapstructure:"max_size"` // MB
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"` // days
	Compress   bool `mapstructure:"compress"`

	EnableCaller bool `mapstructure:"enable_caller"`

	// TraceID extraction from context
	EnableTraceID    bool   `mapstructure:"enable_trace_id"`
	TraceIDKey       string `mapstructure:"trace_id_key"`
	TraceIDFieldName string `mapstructure:"trace_id_field_name"`
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:            "info",
		Encoding:         "json",
		EnableConsole:    true,
		EnableFile:       false,
		Dir:              "logs",
		Filename:         "redlimit.log",
		MaxSize:          100,
		MaxBackups:       3,
		MaxAge:           28,
		Compress:         true,
		EnableCaller:     true,
		EnableTraceID:    true,
		TraceIDKey:       "trace_id",
		TraceIDFieldName: "trace_id",
	}
}

// ApplyDefaults fills zero-valued fields in place.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.Level == "" {
		c.Level = defaults.Level
	}
	if c.Encoding == "" {
		c.Encoding = defaults.Encoding
	}
	if c.Dir == "" {
		c.Dir = defaults.Dir
	}
	if c.Filename == "" {
		c.Filename = defaults.Filename
	}
	if c.MaxSize <= 0 {
		c.MaxSize = defaults.MaxSize
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = defaults.MaxBackups
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaults.MaxAge
	}
	if c.TraceIDKey == "" {
		c.TraceIDKey = defaults.TraceIDKey
	}
	if c.TraceIDFieldName == "" {
		c.TraceIDFieldName = defaults.TraceIDFieldName
	}
}

// filePath returns the full log file path.
func (c *Config) filePath() string {
	return filepath.Join(c.Dir, c.Filename)
}

// ParseLevel converts a level name to a zapcore level.
// "warning" is accepted as an alias for "warn".
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}
