// Package blob abstracts the hosted object store behind the small surface the
// persistence gateway needs: put, prefix-list, get, delete. The store is
// treated as unreliable and eventually consistent; several objects may coexist
// under one resource prefix and callers pick the newest by upload time.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that the requested object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Object describes one stored blob as reported by List.
type Object struct {
	Pathname   string
	URL        string
	UploadedAt time.Time
}

// PutOptions control how an object is written.
type PutOptions struct {
	ContentType string
	// AddRandomSuffix appends a random suffix before the extension so that
	// concurrent writers never overwrite each other's object.
	AddRandomSuffix bool
}

// Store is the capability consumed by the gateway and the uploads service.
type Store interface {
	Put(ctx context.Context, pathname string, body []byte, opts PutOptions) (Object, error)
	List(ctx context.Context, prefix string, limit int) ([]Object, error)
	Get(ctx context.Context, pathname string) ([]byte, error)
	Delete(ctx context.Context, pathname string) error
	// BaseURL is the public URL prefix of objects in this store, used to
	// classify asset URLs on deletion.
	BaseURL() string
}
