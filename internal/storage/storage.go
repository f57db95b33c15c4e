// Package storage holds uploaded attachment blobs. The hosted object
// store of production deployments is modeled as a small interface with a
// local-disk implementation behind it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore accepts raw bytes and hands back stable retrievable URLs.
type BlobStore interface {
	Save(ctx context.Context, relPath string, data []byte) error
	Remove(ctx context.Context, relPath string) error
	URL(relPath string) string
}

type LocalStore struct {
	baseDir string
	baseURL string
}

// NewLocalStore roots a store at baseDir; files are served under
// baseURL/uploads/.
func NewLocalStore(baseDir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

func (s *LocalStore) resolve(relPath string) (string, error) {
	clean := filepath.Clean("/" + relPath)
	if clean == "/" {
		return "", errors.New("empty storage path")
	}
	return filepath.Join(s.baseDir, clean), nil
}

func (s *LocalStore) Save(_ context.Context, relPath string, data []byte) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create attachment directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	return nil
}

func (s *LocalStore) Remove(_ context.Context, relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove attachment: %w", err)
	}
	return nil
}

func (s *LocalStore) URL(relPath string) string {
	return s.baseURL + "/uploads/" + strings.TrimLeft(relPath, "/")
}
