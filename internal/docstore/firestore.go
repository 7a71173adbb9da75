package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore backs the Store contract with Cloud Firestore, the system of
// record for conversations, user profiles and per-user chat indexes.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore-backed store. credentialsFile may be
// empty, in which case application default credentials are used.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client.
func (s *Firestore) Close() error {
	return s.client.Close()
}

// Get decodes the document into out, or returns ErrNotFound.
func (s *Firestore) Get(ctx context.Context, collection, id string, out any) error {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("getting document %s/%s: %w", collection, id, err)
	}
	if err := snap.DataTo(out); err != nil {
		return fmt.Errorf("decoding document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Set replaces the whole document.
func (s *Firestore) Set(ctx context.Context, collection, id string, value any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, value); err != nil {
		return fmt.Errorf("setting document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update replaces whole fields of an existing document.
func (s *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}

	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("updating document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Subscribe opens a snapshot listener on one document. Firestore delivers
// the current state immediately, then a full snapshot on every change,
// the subscriber's own writes included.
func (s *Firestore) Subscribe(ctx context.Context, collection, id string) (Subscription, error) {
	iter := s.client.Collection(collection).Doc(id).Snapshots(ctx)

	sub := &firestoreSub{
		stop: iter.Stop,
		ch:   make(chan Snapshot, 8),
	}

	go func() {
		defer close(sub.ch)
		for {
			snap, err := iter.Next()
			if err != nil {
				return
			}
			select {
			case sub.ch <- firestoreSnapshot{snap: snap}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

type firestoreSub struct {
	stop func()
	ch   chan Snapshot
}

func (s *firestoreSub) Snapshots() <-chan Snapshot {
	return s.ch
}

func (s *firestoreSub) Close() {
	s.stop()
}

type firestoreSnapshot struct {
	snap *firestore.DocumentSnapshot
}

func (s firestoreSnapshot) Exists() bool {
	return s.snap.Exists()
}

func (s firestoreSnapshot) Decode(out any) error {
	if !s.snap.Exists() {
		return ErrNotFound
	}
	return s.snap.DataTo(out)
}
