// Package storage keeps generated dish photos around for the lifetime of a
// scan session so the browser can fetch them by URL instead of carrying
// inline payloads. Backends: local filesystem (default) or S3-compatible.
package storage

import (
	"context"
	"io"
)

// Backend stores generated image bytes and serves them back.
type Backend interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	// URL returns a client-reachable URL for the stored object.
	URL(ctx context.Context, key string) (string, error)
}
