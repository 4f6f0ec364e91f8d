// Package logging provides the leveled structured logger used throughout
// the simulator engine.
package logging

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging severity, ordered DEBUG < INFO < WARN < ERROR.
type Level int8

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (level Level) String() string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int8(level))
	}
}

// LevelFromString parses a Level, accepting "warning" as an alias for WARN.
func LevelFromString(raw string) (Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", raw)
	}
}

func (level Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(level.String())
}

func (level *Level) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := LevelFromString(raw)
	if err != nil {
		return err
	}
	*level = parsed
	return nil
}

func (level Level) zapLevel() zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the structured logger the engine and its subsystems depend on.
// It is satisfied by *zap.SugaredLogger via NewZap below, and by a no-op
// implementation for tests that don't care about log output.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	With(args ...interface{}) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap builds a Logger backed by zap, writing console-encoded lines at or
// above the given Level.
func NewZap(name string, level Level) Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.DisableStacktrace = true
	base := zap.Must(cfg.Build())
	return &zapLogger{sugar: base.Sugar().Named(name)}
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }
func (l *zapLogger) With(args ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(args...)}
}

// NewTest returns a Logger that discards everything; handy for unit tests
// that construct a sim.Engine but don't assert on log output.
func NewTest() Logger { return noop{} }

type noop struct{}

func (noop) Debugw(string, ...interface{}) {}
func (noop) Infow(string, ...interface{})  {}
func (noop) Warnw(string, ...interface{})  {}
func (noop) Errorw(string, ...interface{}) {}
func (n noop) With(...interface{}) Logger  { return n }
