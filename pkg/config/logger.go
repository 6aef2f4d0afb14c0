package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger contains node logger configuration.
type Logger struct {
	LogEncoding  string `yaml:"LogEncoding"`
	LogLevel     string `yaml:"LogLevel"`
	LogPath      string `yaml:"LogPath"`
	LogTimestamp *bool  `yaml:"LogTimestamp,omitempty"`
}

// Validate returns an error if Logger configuration is not valid.
func (l Logger) Validate() error {
	if len(l.LogEncoding) > 0 && l.LogEncoding != "console" && l.LogEncoding != "json" {
		return fmt.Errorf("invalid LogEncoding: %s", l.LogEncoding)
	}
	return nil
}

// Build constructs a *zap.Logger from this configuration. debug forces
// debug-level output regardless of LogLevel.
func (l Logger) Build(debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if len(l.LogLevel) > 0 {
		var err error
		level, err = zapcore.ParseLevel(l.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	encoding := "console"
	if len(l.LogEncoding) > 0 {
		encoding = l.LogEncoding
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.Encoding = encoding
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if l.LogPath != "" {
		if err := os.MkdirAll(parentDir(l.LogPath), 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		cc.OutputPaths = []string{l.LogPath}
	}

	return cc.Build()
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
