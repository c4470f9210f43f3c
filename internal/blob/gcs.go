// Package blob stores node image assets in a Google Cloud Storage bucket.
// Services depend on the Store interface; the GCS implementation is the only
// production backend, with an in-memory implementation living in the test
// files of the packages that need one.
//
// Object naming is owned by the caller (see services.ImageService): this
// package deals in opaque object names and prefixes.
package blob

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Object describes one stored blob.
type Object struct {
	Name        string
	URL         string
	Size        int64
	ContentType string
}

// Store is the asset-storage surface used by the services layer.
type Store interface {
	// Upload writes data under name, overwriting any existing object.
	Upload(ctx context.Context, name string, data []byte, contentType string) error

	// List returns the objects under prefix, in lexical name order.
	List(ctx context.Context, prefix string) ([]Object, error)

	// URL returns the public URL of an object name.
	URL(name string) string
}

// GCS implements Store on a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS opens a storage client for the given bucket. credentialsFile is
// optional; when empty, ambient application-default credentials are used.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("open storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error { return g.client.Close() }

// Upload implements Store.
func (g *GCS) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", name, err)
	}
	return nil
}

// List implements Store.
func (g *GCS) List(ctx context.Context, prefix string) ([]Object, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		out = append(out, Object{
			Name:        attrs.Name,
			URL:         g.URL(attrs.Name),
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
		})
	}
}

// URL implements Store using the canonical public object URL.
func (g *GCS) URL(name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, name)
}
