// Package blobstore abstracts where database snapshots live.
//
// A Store holds named immutable blobs written and read as sequential streams.
// The package ships an in-memory store for tests, a local-filesystem store,
// and, in subpackages, stores backed by Amazon S3 and MinIO.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a named blob does not exist.
// Implementations return errors satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blob not found")

// Store is a named-blob container. Blobs are immutable once written;
// rewriting a name replaces the blob as a whole.
type Store interface {
	// Create starts a streaming write of a new blob. The blob becomes
	// visible under its name only after Close returns nil; Close surfaces
	// any upload or commit error.
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// Open starts a streaming read of an existing blob.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
