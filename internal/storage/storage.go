// Package storage provides the durable record layer used by the dose and
// settings stores.
//
// A Backend is a small keyed JSON document store:
//   - "file": one JSON document per key, replaced atomically on save
//   - "sqlite": a single database file with a key/value table
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pillbot/pkg/logx"
)

// ErrStorage marks durable read/write failures. Callers treat it as
// non-fatal: the triggering operation aborts without partial mutation.
var ErrStorage = errors.New("storage failure")

// Config configures the record backend.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Backend is the minimal persistence API used by the stores.
//
// Load reports ok=false when the key has never been saved (absent or empty
// record); the caller falls back to its defaults.
type Backend interface {
	Load(ctx context.Context, key string, v any) (ok bool, err error)
	Save(ctx context.Context, key string, v any) error
	Close() error
}

// Open initializes the configured backend.
func Open(cfg Config, log logx.Logger) (Backend, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}

func storageErr(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %v", ErrStorage, op, key, err)
}
