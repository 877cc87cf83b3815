package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"chatty", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unknown log level")
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, tt.want, level)
			}
		})
	}
}

func TestNew(t *testing.T) {
	expect := assert.New(t)
	path := filepath.Join(t.TempDir(), "apothecary.log")
	logger, err := New(Options{Level: "warn", File: path})
	if !expect.NoError(err) {
		return
	}
	logger.Info("table created", zap.String("table", "RSVP"))
	logger.Warn("table check failed", zap.String("table", "Guest"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if expect.NoError(err) {
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if expect.Len(lines, 1) {
			expect.Contains(lines[0], `"msg":"table check failed"`)
			expect.Contains(lines[0], `"table":"Guest"`)
			expect.Contains(lines[0], `"time":`)
		}
	}

	_, err = New(Options{Level: "loud"})
	expect.Error(err)
}
