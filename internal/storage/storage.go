// Package storage persists the tick history so a restarted process keeps its
// window statistics and baseline.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rewired-gh/oisentry/internal/logger"
	"github.com/rewired-gh/oisentry/internal/models"
)

// ErrCorruptState reports persisted state that exists but cannot be decoded.
// Callers fall back to an empty history.
var ErrCorruptState = errors.New("corrupt persisted state")

// Backend loads and fully replaces the persisted history. Every backend is a
// bounded ring: Save replaces the whole sequence atomically.
type Backend interface {
	Load(ctx context.Context) ([]models.Tick, error)
	Save(ctx context.Context, ticks []models.Tick) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string
	StateFile     string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// Open constructs the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Backend {
	case "", "file":
		return NewFile(opts.StateFile), nil
	case "sqlite":
		return NewSQLite(opts.SQLitePath)
	case "redis":
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisKey)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// OpenOrFallback opens the configured backend. When that fails it warns and
// returns the file backend at opts.StateFile, so polling can still start.
func OpenOrFallback(ctx context.Context, opts Options) Backend {
	b, err := Open(ctx, opts)
	if err == nil {
		return b
	}
	f := NewFile(opts.StateFile)
	logger.Warn("Failed to open %q storage backend, falling back to state file %s: %v", opts.Backend, f.Path(), err)
	return f
}
