package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testDoc struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var missing testDoc
	if err := m.Get(ctx, "docs", "d1", &missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	in := testDoc{Name: "one", Count: 3, Tags: []string{"a"}}
	if err := m.Set(ctx, "docs", "d1", in); err != nil {
		t.Fatalf("setting: %v", err)
	}

	var out testDoc
	if err := m.Get(ctx, "docs", "d1", &out); err != nil {
		t.Fatalf("getting: %v", err)
	}
	if out.Name != "one" || out.Count != 3 || len(out.Tags) != 1 {
		t.Fatalf("roundtrip = %+v, want %+v", out, in)
	}
}

func TestMemoryGetDoesNotAliasWriterMemory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	in := testDoc{Name: "one", Tags: []string{"a"}}
	if err := m.Set(ctx, "docs", "d1", in); err != nil {
		t.Fatalf("setting: %v", err)
	}
	in.Tags[0] = "mutated"

	var out testDoc
	if err := m.Get(ctx, "docs", "d1", &out); err != nil {
		t.Fatalf("getting: %v", err)
	}
	if out.Tags[0] != "a" {
		t.Fatal("stored document must not alias the writer's slice")
	}
}

func TestMemoryUpdateReplacesWholeFields(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Update(ctx, "docs", "d1", map[string]any{"count": 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update on missing doc: expected ErrNotFound, got %v", err)
	}

	if err := m.Set(ctx, "docs", "d1", testDoc{Name: "one", Count: 1, Tags: []string{"a", "b"}}); err != nil {
		t.Fatalf("setting: %v", err)
	}
	if err := m.Update(ctx, "docs", "d1", map[string]any{"tags": []string{"c"}}); err != nil {
		t.Fatalf("updating: %v", err)
	}

	var out testDoc
	if err := m.Get(ctx, "docs", "d1", &out); err != nil {
		t.Fatalf("getting: %v", err)
	}
	if out.Name != "one" || out.Count != 1 {
		t.Fatalf("untouched fields changed: %+v", out)
	}
	if len(out.Tags) != 1 || out.Tags[0] != "c" {
		t.Fatalf("tags = %v, want wholesale replacement", out.Tags)
	}
}

func readSnapshot(t *testing.T, sub Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestMemorySubscribeDeliversCurrentStateFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "docs", "d1", testDoc{Name: "initial"}); err != nil {
		t.Fatalf("setting: %v", err)
	}

	sub, err := m.Subscribe(ctx, "docs", "d1")
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Close()

	snap := readSnapshot(t, sub)
	if !snap.Exists() {
		t.Fatal("first snapshot should carry the existing document")
	}
	var doc testDoc
	if err := snap.Decode(&doc); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if doc.Name != "initial" {
		t.Fatalf("name = %q, want the pre-subscribe state", doc.Name)
	}
}

func TestMemorySubscribeMissingDocument(t *testing.T) {
	m := NewMemory()
	sub, err := m.Subscribe(context.Background(), "docs", "ghost")
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Close()

	if snap := readSnapshot(t, sub); snap.Exists() {
		t.Fatal("missing document must yield a non-existent first snapshot")
	}
}

func TestMemorySubscribeSeesWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, "docs", "d1")
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Close()
	readSnapshot(t, sub) // initial

	if err := m.Set(ctx, "docs", "d1", testDoc{Name: "v1"}); err != nil {
		t.Fatalf("setting: %v", err)
	}
	snap := readSnapshot(t, sub)
	var doc testDoc
	if err := snap.Decode(&doc); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if doc.Name != "v1" {
		t.Fatalf("name = %q, want the written value", doc.Name)
	}

	if err := m.Update(ctx, "docs", "d1", map[string]any{"count": 7}); err != nil {
		t.Fatalf("updating: %v", err)
	}
	snap = readSnapshot(t, sub)
	if err := snap.Decode(&doc); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if doc.Count != 7 {
		t.Fatalf("count = %d, want the updated value", doc.Count)
	}
}

func TestMemorySubscriptionClosesWithContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := m.Subscribe(ctx, "docs", "d1")
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	readSnapshot(t, sub)

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.Snapshots():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("snapshot channel did not close after context cancellation")
		}
	}
}

func TestMemoryWriterReceivesOwnEcho(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, "docs", "d1")
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Close()
	readSnapshot(t, sub)

	// The subscriber that issued the write still gets the fan-out.
	if err := m.Set(ctx, "docs", "d1", testDoc{Name: "echo"}); err != nil {
		t.Fatalf("setting: %v", err)
	}
	var doc testDoc
	if err := readSnapshot(t, sub).Decode(&doc); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if doc.Name != "echo" {
		t.Fatalf("name = %q, want own write echoed back", doc.Name)
	}
}
