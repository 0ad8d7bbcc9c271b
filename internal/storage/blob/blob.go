// Package blob abstracts the object store that holds one JSON document per
// activity identifier.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("blob: object not found")

// Store is the narrow object-store surface the pipeline consumes. Put
// overwrites an existing object under the same key; Get returns the stored
// bytes verbatim.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
