package dao

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vadim/neo-chat/internal/docstore"
	"github.com/vadim/neo-chat/internal/domain/chat/entity"
)

const userChatsCollection = "userchats"

// UserChatsStore persists each user's conversation index document. Every
// participant owns their own copy of each entry; updates here never touch
// the counterpart's document.
type UserChatsStore struct {
	store docstore.Store
}

// NewUserChatsStore creates a user-chats store over a document store.
func NewUserChatsStore(store docstore.Store) *UserChatsStore {
	return &UserChatsStore{store: store}
}

// Get returns the owner's index entries, newest first.
func (s *UserChatsStore) Get(ctx context.Context, ownerID string) ([]entity.ChatSummary, error) {
	var doc entity.UserChats
	err := s.store.Get(ctx, userChatsCollection, ownerID, &doc)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, entity.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user chats: %w", err)
	}

	sort.SliceStable(doc.Chats, func(i, j int) bool {
		return doc.Chats[i].UpdatedAt.After(doc.Chats[j].UpdatedAt)
	})
	return doc.Chats, nil
}

// CreateEmpty initializes an empty index document for a new user.
func (s *UserChatsStore) CreateEmpty(ctx context.Context, ownerID string) error {
	if err := s.store.Set(ctx, userChatsCollection, ownerID, entity.UserChats{Chats: []entity.ChatSummary{}}); err != nil {
		return fmt.Errorf("creating user chats: %w", err)
	}
	return nil
}

// AddChat appends a new index entry unless one for the chat already
// exists.
func (s *UserChatsStore) AddChat(ctx context.Context, ownerID string, summary entity.ChatSummary) error {
	var doc entity.UserChats
	err := s.store.Get(ctx, userChatsCollection, ownerID, &doc)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("getting user chats: %w", err)
	}

	for _, c := range doc.Chats {
		if c.ChatID == summary.ChatID {
			return nil
		}
	}

	doc.Chats = append(doc.Chats, summary)
	if err := s.store.Set(ctx, userChatsCollection, ownerID, doc); err != nil {
		return fmt.Errorf("writing user chats: %w", err)
	}
	return nil
}

// UpdateEntry rewrites the summary fields of one entry: last message,
// seen flag and ordering key. The whole list is written back. A missing
// document or entry is an error for the caller to treat as best-effort.
func (s *UserChatsStore) UpdateEntry(ctx context.Context, ownerID, chatID, lastMessage string, seen bool, at time.Time) error {
	var doc entity.UserChats
	err := s.store.Get(ctx, userChatsCollection, ownerID, &doc)
	if errors.Is(err, docstore.ErrNotFound) {
		return entity.ErrChatNotFound
	}
	if err != nil {
		return fmt.Errorf("getting user chats: %w", err)
	}

	i := findChat(doc.Chats, chatID)
	if i < 0 {
		return entity.ErrChatNotFound
	}

	doc.Chats[i].LastMessage = lastMessage
	doc.Chats[i].IsSeen = seen
	doc.Chats[i].UpdatedAt = at

	if err := s.store.Update(ctx, userChatsCollection, ownerID, map[string]any{"chats": doc.Chats}); err != nil {
		return fmt.Errorf("writing user chats: %w", err)
	}
	return nil
}

// MarkEntrySeen flips the owner's seen flag on one entry, leaving the
// summary fields alone.
func (s *UserChatsStore) MarkEntrySeen(ctx context.Context, ownerID, chatID string) error {
	var doc entity.UserChats
	err := s.store.Get(ctx, userChatsCollection, ownerID, &doc)
	if errors.Is(err, docstore.ErrNotFound) {
		return entity.ErrChatNotFound
	}
	if err != nil {
		return fmt.Errorf("getting user chats: %w", err)
	}

	i := findChat(doc.Chats, chatID)
	if i < 0 {
		return entity.ErrChatNotFound
	}
	if doc.Chats[i].IsSeen {
		return nil
	}

	doc.Chats[i].IsSeen = true
	if err := s.store.Update(ctx, userChatsCollection, ownerID, map[string]any{"chats": doc.Chats}); err != nil {
		return fmt.Errorf("writing user chats: %w", err)
	}
	return nil
}

func findChat(chats []entity.ChatSummary, chatID string) int {
	for i := range chats {
		if chats[i].ChatID == chatID {
			return i
		}
	}
	return -1
}
