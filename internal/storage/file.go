package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSlot stores each key as <dir>/<key>.json.
type FileSlot struct {
	basePath string
}

// NewFileSlot creates a FileSlot and ensures the base directory exists.
func NewFileSlot(basePath string) (*FileSlot, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FileSlot{basePath: basePath}, nil
}

func (s *FileSlot) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid slot key %q", key)
	}
	return filepath.Join(s.basePath, key+".json"), nil
}

// Get reads the file for key. A missing file is reported as absent, not as an error.
func (s *FileSlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read slot file: %w", err)
	}
	return data, true, nil
}

// Put replaces the file for key. The value is written to a temp file in the same
// directory and renamed over the old one so readers never see a partial write.
func (s *FileSlot) Put(_ context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write slot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write slot file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to replace slot file: %w", err)
	}
	return nil
}

func (s *FileSlot) Close() error { return nil }
