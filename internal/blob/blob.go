// Package blob stores uploaded file content as opaque objects addressed by
// storage key. The access-control layer never hands keys to this package
// before a request was authorized.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Store is an opaque byte store keyed by server generated storage keys.
type Store interface {
	// Put writes size bytes from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Open returns the content stored under key or common.ErrNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the content stored under key or returns common.ErrNotFound.
	Delete(ctx context.Context, key string) error
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
