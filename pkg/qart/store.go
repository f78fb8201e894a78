// Package qart stores generated images, in an S3-compatible bucket or a local
// directory.
package qart

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Artifact describes one stored object.
type Artifact struct {
	Key          string            `json:"key"` // e.g. "generations/{runID}/0.png"
	Size         int64             `json:"size"`
	ContentType  string            `json:"contentType"`
	LastModified time.Time         `json:"lastModified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	URL          string            `json:"url,omitempty"`
}

// Store is the artifact sink used by the batch orchestrator.
type Store interface {
	// Upload writes size bytes read from r under key. size may be -1 when
	// unknown.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) (*Artifact, error)

	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// URL returns a link a client can fetch the artifact from. For S3 it is
	// presigned for expiry.
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// List returns artifacts under prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]*Artifact, error)

	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error

	// EnsureBucket prepares the backing bucket or directory.
	EnsureBucket(ctx context.Context) error
}

// GenerationPrefix is the prefix holding every image of one generation run.
func GenerationPrefix(runID string) string {
	return "generations/" + runID + "/"
}

// GenerationKey is the key of the index-th image of a run.
func GenerationKey(runID string, index int, ext string) string {
	return fmt.Sprintf("%s%d.%s", GenerationPrefix(runID), index, ext)
}
