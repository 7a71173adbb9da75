package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store used by tests and local runs. Documents
// are held as JSON so reads and snapshot decodes never alias writer
// memory. Snapshot fan-out mirrors the external store: every subscriber
// of a document, the writer included, receives the full new document on
// each change.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
	subs map[string]map[*memorySub]struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]map[string][]byte),
		subs: make(map[string]map[*memorySub]struct{}),
	}
}

func docKey(collection, id string) string {
	return collection + "/" + id
}

// Get decodes the document into out, or returns ErrNotFound.
func (m *Memory) Get(ctx context.Context, collection, id string, out any) error {
	m.mu.RLock()
	raw, ok := m.docs[collection][id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Set replaces the whole document.
func (m *Memory) Set(ctx context.Context, collection, id string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding document %s/%s: %w", collection, id, err)
	}

	m.mu.Lock()
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string][]byte)
	}
	m.docs[collection][id] = raw
	subs := m.snapshotSubs(collection, id)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(memorySnapshot{exists: true, raw: raw})
	}
	return nil
}

// Update replaces whole fields of an existing document. The document must
// exist; there is no upsert at field granularity.
func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	raw, ok := m.docs[collection][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("decoding document %s/%s: %w", collection, id, err)
	}
	for k, v := range fields {
		enc, err := json.Marshal(v)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("encoding field %q: %w", k, err)
		}
		doc[k] = enc
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("encoding document %s/%s: %w", collection, id, err)
	}
	m.docs[collection][id] = merged
	subs := m.snapshotSubs(collection, id)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(memorySnapshot{exists: true, raw: merged})
	}
	return nil
}

// snapshotSubs copies the subscriber set for a document. Caller must hold mu.
func (m *Memory) snapshotSubs(collection, id string) []*memorySub {
	set := m.subs[docKey(collection, id)]
	if len(set) == 0 {
		return nil
	}
	out := make([]*memorySub, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Subscribe registers a listener on one document. The current state is
// delivered immediately as the first snapshot, whether or not the
// document exists.
func (m *Memory) Subscribe(ctx context.Context, collection, id string) (Subscription, error) {
	sub := &memorySub{
		store: m,
		key:   docKey(collection, id),
		ch:    make(chan Snapshot, 8),
	}

	m.mu.Lock()
	if m.subs[sub.key] == nil {
		m.subs[sub.key] = make(map[*memorySub]struct{})
	}
	m.subs[sub.key][sub] = struct{}{}
	raw, exists := m.docs[collection][id]
	m.mu.Unlock()

	sub.deliver(memorySnapshot{exists: exists, raw: raw})

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

type memorySub struct {
	store *Memory
	key   string
	ch    chan Snapshot

	mu     sync.Mutex
	closed bool
}

func (s *memorySub) Snapshots() <-chan Snapshot {
	return s.ch
}

// deliver pushes a snapshot, discarding the oldest queued one when the
// subscriber lags. Every snapshot is total, so dropping stale ones is
// safe.
func (s *memorySub) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *memorySub) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.store.mu.Lock()
	delete(s.store.subs[s.key], s)
	s.store.mu.Unlock()

	close(s.ch)
}

type memorySnapshot struct {
	exists bool
	raw    []byte
}

func (s memorySnapshot) Exists() bool {
	return s.exists
}

func (s memorySnapshot) Decode(out any) error {
	if !s.exists {
		return ErrNotFound
	}
	return json.Unmarshal(s.raw, out)
}
