package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"culinary/internal/config"
)

// exerciseSlot runs the behavior every backend must share.
func exerciseSlot(t *testing.T, slot Slot) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get-Absent", func(t *testing.T) {
		v, ok, err := slot.Get(ctx, "culinary_favorites")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("Put-Get", func(t *testing.T) {
		require.NoError(t, slot.Put(ctx, "culinary_favorites", []byte(`[{"idMeal":"1"}]`)))
		v, ok, err := slot.Get(ctx, "culinary_favorites")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[{"idMeal":"1"}]`, string(v))
	})

	t.Run("Put-Overwrites", func(t *testing.T) {
		require.NoError(t, slot.Put(ctx, "culinary_favorites", []byte(`[]`)))
		v, ok, err := slot.Get(ctx, "culinary_favorites")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[]`, string(v))
	})

	t.Run("Keys-Independent", func(t *testing.T) {
		require.NoError(t, slot.Put(ctx, "other", []byte(`x`)))
		v, _, err := slot.Get(ctx, "culinary_favorites")
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(v))
	})
}

func TestMemorySlot(t *testing.T) {
	exerciseSlot(t, NewMemorySlot())
}

func TestFileSlot(t *testing.T) {
	dir := t.TempDir()
	slot, err := NewFileSlot(filepath.Join(dir, "nested"))
	require.NoError(t, err)

	exerciseSlot(t, slot)

	// Only the final files remain; temp files are cleaned up.
	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"culinary_favorites.json", "other.json"}, names)
}

func TestFileSlotRejectsPathKeys(t *testing.T) {
	slot, err := NewFileSlot(t.TempDir())
	require.NoError(t, err)

	err = slot.Put(context.Background(), "../escape", []byte("x"))
	assert.Error(t, err)
	_, _, err = slot.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestSQLSlotSQLite(t *testing.T) {
	slot, err := NewSQLSlot("sqlite", filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	defer slot.Close()

	exerciseSlot(t, slot)
}

func TestSQLSlotSQLiteReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "slots.db")
	ctx := context.Background()

	first, err := NewSQLSlot("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "culinary_favorites", []byte(`[{"idMeal":"52772"}]`)))
	require.NoError(t, first.Close())

	second, err := NewSQLSlot("sqlite", dsn)
	require.NoError(t, err)
	defer second.Close()

	v, ok, err := second.Get(ctx, "culinary_favorites")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"idMeal":"52772"}]`, string(v))
}

func TestOpen(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		slot, err := Open(config.StorageConfig{Driver: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &MemorySlot{}, slot)
	})

	t.Run("File", func(t *testing.T) {
		slot, err := Open(config.StorageConfig{Driver: "file", Dir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &FileSlot{}, slot)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Open(config.StorageConfig{Driver: "redis"})
		assert.True(t, errors.Is(err, ErrUnknownDriver))
	})
}
