package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps artifacts under a public directory served statically.
// References have the form "/<key>".
type LocalStore struct {
	root string
}

// NewLocalStore creates the root and the well-known subdirectories.
func NewLocalStore(root string) (*LocalStore, error) {
	for _, dir := range []string{UploadsPrefix, TicketsPrefix} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &LocalStore{root: root}, nil
}

// Root returns the directory artifacts are written under.
func (s *LocalStore) Root() string { return s.root }

// Put writes body atomically: it goes to a temp file in the target directory
// first and is renamed into place once fully flushed.
func (s *LocalStore) Put(ctx context.Context, key string, body []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}()
	if _, err := f.Write(body); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", err
	}
	return "/" + k, nil
}

// Delete removes the artifact behind ref. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := cleanKey(strings.TrimPrefix(ref, "/"))
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(k)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
