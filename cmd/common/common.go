// Package common provides shared utilities for the fhesession commands.
//
// This package contains helper functions used across the binaries
// (coordinator, participant, demo) to reduce code duplication:
//
//   - YAML configuration loading with defaults
//   - Logger construction from the log section
//   - Lattice backend construction from the backend section
package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/flashbots/fhesession/crypto"
)

// NewLogger creates a slog logger writing to stderr.
func NewLogger(cfg LogConfig) (*slog.Logger, error) {
	return newLogger(os.Stderr, cfg)
}

func newLogger(w io.Writer, cfg LogConfig) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}

// NewBackend creates the lattice backend for the configured parameters.
func NewBackend(cfg *Config) (*crypto.LatticeBackend, error) {
	literal, err := cfg.BackendLiteral()
	if err != nil {
		return nil, fmt.Errorf("backend parameters: %w", err)
	}
	return crypto.NewLatticeBackend(literal)
}
