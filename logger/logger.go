// Package logger provides a context-aware zap logger used across redlimit.
// The module name is bound at creation time; call sites only pass a context,
// from which the trace id is extracted automatically.
package logger

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// LevelDisabled suppresses all output when used as Config.Level
// or as a per-limiter log level.
const LevelDisabled = "disabled"

// Logger wraps *zap.Logger with context-based field enrichment.
type Logger struct {
	base   *zap.Logger
	module string
	cfg    Config
}

// New builds a Logger for the given module from cfg.
func New(module string, cfg Config) (*Logger, error) {
	cfg.ApplyDefaults()

	if cfg.Level == LevelDisabled {
		return Nop(module), nil
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	cores := make([]zapcore.Core, 0, 2)
	if cfg.EnableConsole {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}
	if cfg.EnableFile {
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.filePath(),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
		cores = append(cores, zapcore.NewCore(encoder, sink, level))
	}
	if len(cores) == 0 {
		return Nop(module), nil
	}

	opts := []zap.Option{}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	base := zap.New(zapcore.NewTee(cores...), opts...).
		With(zap.String("module", module))

	return &Logger{base: base, module: module, cfg: cfg}, nil
}

// Must builds a Logger and panics on invalid configuration.
func Must(module string, cfg Config) *Logger {
	l, err := New(module, cfg)
	if err != nil {
		panic(err)
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop(module string) *Logger {
	return &Logger{base: zap.NewNop(), module: module}
}

// FromZap wraps an existing zap logger, keeping cfg for field enrichment.
// Useful for hosts that already own a zap tree, and for tests observing
// output.
func FromZap(module string, base *zap.Logger, cfg Config) *Logger {
	cfg.ApplyDefaults()
	return &Logger{
		base:   base.With(zap.String("module", module)),
		module: module,
		cfg:    cfg,
	}
}

// DebugCtx logs at debug level with fields enriched from ctx.
func (l *Logger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Debug(msg, l.enrichFields(ctx, fields)...)
}

// InfoCtx logs at info level with fields enriched from ctx.
func (l *Logger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Info(msg, l.enrichFields(ctx, fields)...)
}

// WarnCtx logs at warn level with fields enriched from ctx.
func (l *Logger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Warn(msg, l.enrichFields(ctx, fields)...)
}

// ErrorCtx logs at error level with fields enriched from ctx.
func (l *Logger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Error(msg, l.enrichFields(ctx, fields)...)
}

// Debug logs at debug level without a context.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.DebugCtx(context.Background(), msg, fields...)
}

// Info logs at info level without a context.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.InfoCtx(context.Background(), msg, fields...)
}

// Warn logs at warn level without a context.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.WarnCtx(context.Background(), msg, fields...)
}

// Error logs at error level without a context.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.ErrorCtx(context.Background(), msg, fields...)
}

// LogCtx logs at the level named by level ("debug", "info", "warning",
// "error"); LevelDisabled drops the record. Used where the severity is
// itself configuration.
func (l *Logger) LogCtx(ctx context.Context, level, msg string, fields ...zap.Field) {
	if level == LevelDisabled {
		return
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = zapcore.ErrorLevel
	}
	if ce := l.base.Check(lvl, msg); ce != nil {
		ce.Write(l.enrichFields(ctx, fields)...)
	}
}

// With returns a logger with preset fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		base:   l.base.With(fields...),
		module: l.module,
		cfg:    l.cfg,
	}
}

// Zap exposes the underlying *zap.Logger for third-party integration.
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// enrichFields prepends app_name and trace_id to the caller's fields.
func (l *Logger) enrichFields(ctx context.Context, fields []zap.Field) []zap.Field {
	enriched := make([]zap.Field, 0, len(fields)+2)

	if l.cfg.AppName != "" {
		enriched = append(enriched, zap.String("app_name", l.cfg.AppName))
	}

	if l.cfg.EnableTraceID {
		if traceID := l.traceIDFromContext(ctx); traceID != "" {
			name := l.cfg.TraceIDFieldName
			if name == "" {
				name = "trace_id"
			}
			enriched = append(enriched, zap.String(name, traceID))
		}
	}

	return append(enriched, fields...)
}

type ctxKey string

// ContextWithTraceID stores a trace id under the configured context key.
func ContextWithTraceID(ctx context.Context, key, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey(key), traceID)
}

// traceIDFromContext extracts a trace id, preferring an active
// OpenTelemetry span over the configured context key.
func (l *Logger) traceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	if l.cfg.TraceIDKey != "" {
		if val, ok := ctx.Value(ctxKey(l.cfg.TraceIDKey)).(string); ok {
			return val
		}
	}
	return ""
}
