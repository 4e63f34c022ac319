// local.go keeps objects under a filesystem root. Locations are absolute
// paths, which is what engines running next to the service (DuckDB, a dev
// Hive) can read directly.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Local struct {
	root string
}

// NewLocal creates root if needed and returns a store over it.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: abs}, nil
}

func (l *Local) Put(ctx context.Context, key string, r io.Reader) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	// Write to a sibling temp file and rename, so a crashed write never
	// leaves a half object at the final path.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	_, copyErr := io.Copy(tmp, &contextReader{ctx: ctx, r: r})
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		if copyErr != nil {
			return fmt.Errorf("write object %s: %w", key, copyErr)
		}
		return fmt.Errorf("write object %s: %w", key, closeErr)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("finalize object %s: %w", key, err)
	}
	return nil
}

func (l *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return f, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (l *Local) Location(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *Local) Key(location string) (string, bool) {
	rel, err := filepath.Rel(l.root, location)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// path resolves a key inside the root, rejecting traversal.
func (l *Local) path(key string) (string, error) {
	path := filepath.Join(l.root, filepath.FromSlash(key))
	if _, ok := l.Key(path); !ok {
		return "", fmt.Errorf("object key %q escapes the storage root", key)
	}
	return path, nil
}

// contextReader aborts a long copy when its context ends.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
