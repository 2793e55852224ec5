package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an object key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ObjectInfo represents metadata for a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// EventStore captures the minimal hierarchical-store operations the batch
// pipeline needs: list a partition, read and write whole objects, move an
// object atomically, and delete.
//
// MoveObject must be atomic-or-fail for a single object. Moving a key whose
// source is already gone but whose destination exists is a no-op, which makes
// partition archival retryable without extra bookkeeping.
type EventStore interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte) error
	MoveObject(ctx context.Context, srcKey, dstKey string) error
	RemoveObject(ctx context.Context, key string) error
}
