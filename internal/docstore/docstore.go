package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Store is the narrow document-store contract the sync engine consumes.
// Set replaces the whole document, Update replaces whole fields; there is
// no partial-array-element primitive. Subscribe delivers the full current
// document on every change, including the subscriber's own writes.
type Store interface {
	Get(ctx context.Context, collection, id string, out any) error
	Set(ctx context.Context, collection, id string, value any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Subscribe(ctx context.Context, collection, id string) (Subscription, error)
}

// Subscription is a live listener on a single document. The snapshot
// channel is closed when the subscription ends, either via Close or when
// the subscribing context is cancelled.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Close()
}

// Snapshot is a full, authoritative copy of a document at one point in
// time.
type Snapshot interface {
	Exists() bool
	Decode(out any) error
}
