package geoarrow

import (
	"errors"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Config holds allocator and logging settings. No package of this
// module takes a Config; callers resolve it themselves with
// ResolveAllocator and ResolveLogger. A zero Config resolves to
// memory.DefaultAllocator and slog.Default().
type Config struct {
	// Allocator for Arrow memory management.
	// OPTIONAL: uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger returned by ResolveLogger.
	// OPTIONAL: uses slog.Default() if nil.
	Logger *slog.Logger

	// LogLevel sets the logging level when Logger is nil and a new
	// default logger is created.
	// OPTIONAL: if nil, uses slog.LevelInfo.
	LogLevel *slog.Level
}

// ResolveAllocator returns c.Allocator, or memory.DefaultAllocator if unset.
func (c Config) ResolveAllocator() memory.Allocator {
	if c.Allocator != nil {
		return c.Allocator
	}
	return memory.DefaultAllocator
}

// ResolveLogger returns c.Logger if set; otherwise slog.Default() when
// c.LogLevel is nil, or a new stderr text logger at c.LogLevel.
func (c Config) ResolveLogger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.LogLevel == nil {
		return slog.Default()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *c.LogLevel}))
}

// Standard errors returned by this module's top-level helpers.
// Package-specific error conditions (parse failures, type mismatches,
// option validation) are reported as *geoerr.Error instead.
var (
	// ErrInvalidConfig indicates a Config value failed validation.
	ErrInvalidConfig = errors.New("geoarrow: invalid config")
)
