// Package storage holds staged upload data in an object store and encodes
// row streams into the formats engines read (CSV, Parquet).
//
// A Location is the engine-facing address of an object (a filesystem path,
// a gs:// URL); a key is the store-internal name. Location and Key convert
// between the two, and Key refuses addresses outside the store, which keeps
// staging writes inside the configured root or bucket.
package storage

import (
	"context"
	"fmt"
	"io"
)

// ObjectStore is a flat keyed blob store.
type ObjectStore interface {
	// Put writes the object at key, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the object for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Location renders the engine-facing address of key.
	Location(key string) string

	// Key inverts Location. The second result is false when the address
	// does not belong to this store.
	Key(location string) (string, bool)
}

// Kinds of object store a deployment can configure.
const (
	KindLocal = "local"
	KindGCS   = "gcs"
)

// Config selects and parameterizes an object store.
type Config struct {
	Kind string

	// local
	Root string

	// gcs
	Bucket          string
	Prefix          string
	CredentialsFile string
}

// New builds the configured object store.
func New(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Kind {
	case KindLocal:
		return NewLocal(cfg.Root)
	case KindGCS:
		return NewGCS(ctx, cfg.Bucket, cfg.Prefix, cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}
