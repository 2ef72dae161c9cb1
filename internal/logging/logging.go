// Package logging builds the zap logger shared by the CLI and the TUI.
package logging

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/profsim/profsim/internal/config"
	"github.com/profsim/profsim/internal/store"
)

// DefaultFileName is the log file created under the data directory when no
// output path is configured. The interactive screen owns the terminal, so
// nothing is written to stderr by default.
const DefaultFileName = "profsim.log"

// New builds a logger from cfg. An unparsable level falls back to info.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoding := cfg.Encoding
	if encoding != "json" {
		encoding = "console"
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		outputs = []string{path}
	}

	encodeLevel := zapcore.CapitalLevelEncoder
	if encoding == "console" && toTerminal(outputs) {
		encodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		OutputPaths:      outputs,
		ErrorOutputPaths: outputs,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeLevel,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}

	log, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// DefaultPath returns the log file under the data directory, creating the
// directory if needed.
func DefaultPath() (string, error) {
	dir, err := store.DataDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, DefaultFileName)
	if err := store.EnsureDir(path); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	return path, nil
}

func toTerminal(outputs []string) bool {
	for _, o := range outputs {
		if o == "stderr" || o == "stdout" {
			return true
		}
	}
	return false
}
