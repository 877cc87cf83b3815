// Package logging builds the zap logger used by the apothecary command.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the level and destination of log output.
type Options struct {
	// Level is a zap level name: debug, info, warn, error. Empty means info.
	Level string
	// File receives JSON log lines. Empty means standard error.
	File string
	// Development switches to human-readable console output.
	Development bool
}

// New returns a logger for the options. Logs never go to standard output, which carries command
// results such as CSV dumps.
func New(opts Options) (*zap.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	sink := "stderr"
	if opts.File != "" {
		sink = opts.File
	}
	cfg.OutputPaths = []string{sink}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("error building logger: %w", err)
	}
	return logger, nil
}

// ParseLevel parses a level name, case-insensitively. An empty name means info.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(name))
	if err != nil {
		return level, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
