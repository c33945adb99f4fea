// Package storage provides durable single-key slots used to persist small
// pieces of client state such as the favorites list.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"culinary/internal/config"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown storage driver")

// Slot stores opaque values under fixed keys. Put overwrites the whole value.
type Slot interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open creates the slot backend selected by cfg.
func Open(cfg config.StorageConfig) (Slot, error) {
	switch cfg.Driver {
	case "file":
		return NewFileSlot(cfg.Dir)
	case "sqlite":
		return NewSQLSlot("sqlite", cfg.DSN)
	case "postgres":
		return NewSQLSlot("postgres", cfg.DSN)
	case "memory":
		return NewMemorySlot(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// MemorySlot keeps values in process memory. Nothing survives a restart.
type MemorySlot struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemorySlot creates an empty MemorySlot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string][]byte)}
}

func (m *MemorySlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemorySlot) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemorySlot) Close() error { return nil }
