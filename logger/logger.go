// Package logger builds the zap loggers used by the binaries.
package logger

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger at level. "NOOP" (or "") discards everything.
func New(level string) (*zap.Logger, error) {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" || level == "NOOP" {
		return zap.NewNop(), nil
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, errors.Wrapf(err, "logger: bad level %q", level)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = lvl > zapcore.DebugLevel
	log, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "logger: build")
	}
	return log, nil
}

// LevelFromEnv returns the level named by the environment variable key, or
// fallback when it is unset.
func LevelFromEnv(key, fallback string) string {
	if level := os.Getenv(key); level != "" {
		return level
	}
	return fallback
}
