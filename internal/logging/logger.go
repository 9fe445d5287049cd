// Package logging wraps a zap SugaredLogger with the key/value call style used
// across the pipeline. A Logger is built once per process and passed to every
// component that logs; there is no package-level logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap SugaredLogger whose key/value pairs pass through secret
// redaction. Values under keys containing password, secret, token or dsn are
// replaced with [REDACTED].
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a Logger. mode is "prod"/"production" for JSON output, anything
// else for the console encoder. level is a zap level name; empty means info.
func New(mode, level string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("logging: level %q: %w", level, err)
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return FromZap(zl), nil
}

// FromZap wraps an existing zap logger (tests use this with zaptest/observer).
func FromZap(zl *zap.Logger) *Logger {
	return &Logger{SugaredLogger: zl.Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

// Debug logs msg with alternating keys and values.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.SugaredLogger.Debugw(msg, redact(keysAndValues)...)
}

// Info logs msg with alternating keys and values.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.SugaredLogger.Infow(msg, redact(keysAndValues)...)
}

// Warn logs msg with alternating keys and values.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.SugaredLogger.Warnw(msg, redact(keysAndValues)...)
}

// Error logs msg with alternating keys and values.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.SugaredLogger.Errorw(msg, redact(keysAndValues)...)
}

// With returns a child Logger that adds keysAndValues to every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(redact(keysAndValues)...)}
}

// Or returns l, or a no-op logger when l is nil.
func Or(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

var secretKeys = []string{"password", "secret", "token", "dsn"}

func redact(kv []any) []any {
	if len(kv) < 2 {
		return kv
	}
	var out []any
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok || !isSecretKey(key) {
			continue
		}
		if out == nil {
			out = append([]any(nil), kv...)
		}
		out[i+1] = "[REDACTED]"
	}
	if out == nil {
		return kv
	}
	return out
}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
