package dao

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vadim/neo-chat/internal/docstore"
	"github.com/vadim/neo-chat/internal/domain/chat/entity"
)

func seedConversation(t *testing.T, msgs ...entity.Message) *ConversationStore {
	t.Helper()

	s := NewConversationStore(docstore.NewMemory())
	err := s.Create(context.Background(), &entity.Conversation{
		ID:           "c1",
		Participants: []string{"a", "b"},
		Messages:     msgs,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("creating conversation: %v", err)
	}
	return s
}

func msg(id, sender, text string, seen bool) entity.Message {
	return entity.Message{
		ID:        id,
		SenderID:  sender,
		Text:      text,
		CreatedAt: time.Now(),
		IsSeen:    seen,
		Status:    entity.StatusSent,
	}
}

func TestConversationStoreGetMissing(t *testing.T) {
	s := NewConversationStore(docstore.NewMemory())
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, entity.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestSetMessageStatusIsMonotonic(t *testing.T) {
	s := seedConversation(t, msg("m1", "a", "hi", false))
	ctx := context.Background()

	ok, err := s.SetMessageStatus(ctx, "c1", "m1", entity.StatusDelivered)
	if err != nil || !ok {
		t.Fatalf("marking delivered: ok=%v err=%v", ok, err)
	}

	// A later attempt to go back to sent is swallowed.
	ok, err = s.SetMessageStatus(ctx, "c1", "m1", entity.StatusSent)
	if err != nil || !ok {
		t.Fatalf("reverting attempt: ok=%v err=%v", ok, err)
	}

	conv, err := s.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("getting: %v", err)
	}
	if conv.Messages[0].Status != entity.StatusDelivered {
		t.Fatalf("status = %q, delivered must never revert", conv.Messages[0].Status)
	}
}

func TestSetMessageStatusMissingMessage(t *testing.T) {
	s := seedConversation(t)
	ok, err := s.SetMessageStatus(context.Background(), "c1", "ghost", entity.StatusDelivered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("missing message should report not found")
	}
}

func TestMarkMessagesSeenCountsOnlyCounterpartUnseen(t *testing.T) {
	s := seedConversation(t,
		msg("m1", "a", "one", false),
		msg("m2", "b", "two", false),
		msg("m3", "b", "three", true),
		msg("m4", "b", "four", false),
	)
	ctx := context.Background()

	// Viewer "a" flips only b's unseen messages.
	flipped, err := s.MarkMessagesSeen(ctx, "c1", "a")
	if err != nil {
		t.Fatalf("marking seen: %v", err)
	}
	if flipped != 2 {
		t.Fatalf("flipped = %d, want 2", flipped)
	}

	conv, err := s.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("getting: %v", err)
	}
	if conv.Messages[0].IsSeen {
		t.Fatal("the viewer's own message must stay unseen")
	}
	for _, m := range conv.Messages[1:] {
		if !m.IsSeen {
			t.Fatalf("message %s should be seen", m.ID)
		}
	}

	// Nothing left to flip: no write, zero count.
	flipped, err = s.MarkMessagesSeen(ctx, "c1", "a")
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if flipped != 0 {
		t.Fatalf("flipped = %d on a fully seen conversation", flipped)
	}
}

func TestRemoveMessageKeepsOrder(t *testing.T) {
	s := seedConversation(t,
		msg("m1", "a", "one", false),
		msg("m2", "a", "two", false),
		msg("m3", "a", "three", false),
	)
	ctx := context.Background()

	ok, err := s.RemoveMessage(ctx, "c1", "m2")
	if err != nil || !ok {
		t.Fatalf("removing: ok=%v err=%v", ok, err)
	}

	conv, err := s.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("getting: %v", err)
	}
	if len(conv.Messages) != 2 || conv.Messages[0].ID != "m1" || conv.Messages[1].ID != "m3" {
		t.Fatalf("messages = %+v, want m1 then m3", conv.Messages)
	}
}

func TestSetTypingPreservesOtherUsers(t *testing.T) {
	s := seedConversation(t)
	ctx := context.Background()

	if err := s.SetTyping(ctx, "c1", "a", entity.TypingState{IsTyping: true, Username: "alice"}); err != nil {
		t.Fatalf("setting typing: %v", err)
	}
	if err := s.SetTyping(ctx, "c1", "b", entity.TypingState{IsTyping: true, Username: "bob"}); err != nil {
		t.Fatalf("setting typing: %v", err)
	}
	if err := s.SetTyping(ctx, "c1", "a", entity.TypingState{IsTyping: false, Username: "alice"}); err != nil {
		t.Fatalf("clearing typing: %v", err)
	}

	conv, err := s.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("getting: %v", err)
	}
	if conv.Typing["a"].IsTyping {
		t.Fatal("alice's flag should be cleared")
	}
	if !conv.Typing["b"].IsTyping || conv.Typing["b"].Username != "bob" {
		t.Fatalf("bob's state = %+v, must survive alice's write", conv.Typing["b"])
	}
}
