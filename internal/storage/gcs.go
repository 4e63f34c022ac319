package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores objects in a Google Cloud Storage bucket. Locations use the
// gs:// form that BigQuery, Hive and Trino accept as an external location.
type GCS struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCS connects to GCS. credentialsFile is optional; when empty the
// client falls back to application default credentials.
func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCS{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (g *GCS) Put(ctx context.Context, key string, r io.Reader) error {
	w := g.object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", g.bucket, g.objectName(key), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, g.objectName(key), err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", g.bucket, g.objectName(key), err)
	}
	return r, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete gs://%s/%s: %w", g.bucket, g.objectName(key), err)
	}
	return nil
}

func (g *GCS) Location(key string) string {
	return "gs://" + g.bucket + "/" + g.objectName(key)
}

func (g *GCS) Key(location string) (string, bool) {
	rest, ok := strings.CutPrefix(location, "gs://"+g.bucket+"/")
	if !ok {
		return "", false
	}
	if g.prefix != "" {
		rest, ok = strings.CutPrefix(rest, g.prefix+"/")
		if !ok {
			return "", false
		}
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

func (g *GCS) object(key string) *gcs.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(g.objectName(key))
}

func (g *GCS) objectName(key string) string {
	if g.prefix == "" {
		return key
	}
	return path.Join(g.prefix, key)
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
