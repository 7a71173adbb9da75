package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadim/neo-chat/internal/docstore"
	"github.com/vadim/neo-chat/internal/domain/chat/entity"
)

const chatsCollection = "chats"

// ConversationStore persists conversation documents. The store offers no
// per-element array primitive, so every message mutation is a read of the
// full document followed by a whole-field write of the messages array.
// Concurrent writers resolve by last write wins.
type ConversationStore struct {
	store docstore.Store
}

// NewConversationStore creates a conversation store over a document store.
func NewConversationStore(store docstore.Store) *ConversationStore {
	return &ConversationStore{store: store}
}

// Get retrieves a conversation by id.
func (s *ConversationStore) Get(ctx context.Context, chatID string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := s.store.Get(ctx, chatsCollection, chatID, &conv)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, entity.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return &conv, nil
}

// Create writes a new conversation document.
func (s *ConversationStore) Create(ctx context.Context, conv *entity.Conversation) error {
	if err := s.store.Set(ctx, chatsCollection, conv.ID, conv); err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}
	return nil
}

// AppendMessage appends one message to the conversation's message array.
func (s *ConversationStore) AppendMessage(ctx context.Context, chatID string, msg entity.Message) error {
	conv, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}

	messages := append(conv.Messages, msg)
	return s.writeMessages(ctx, chatID, messages)
}

// ReplaceMessageText rewrites the text of the message with the given id,
// leaving every other field untouched. Returns false when no message with
// that id exists in the latest stored array.
func (s *ConversationStore) ReplaceMessageText(ctx context.Context, chatID, messageID, text string) (bool, error) {
	conv, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}

	i := conv.FindMessage(messageID)
	if i < 0 {
		return false, nil
	}

	conv.Messages[i].Text = text
	if err := s.writeMessages(ctx, chatID, conv.Messages); err != nil {
		return false, err
	}
	return true, nil
}

// SetMessageStatus rewrites the delivery status of one message. The
// transition is monotonic: a delivered message never reverts to sent.
func (s *ConversationStore) SetMessageStatus(ctx context.Context, chatID, messageID string, status entity.DeliveryStatus) (bool, error) {
	conv, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}

	i := conv.FindMessage(messageID)
	if i < 0 {
		return false, nil
	}
	if conv.Messages[i].Status == entity.StatusDelivered {
		return true, nil
	}

	conv.Messages[i].Status = status
	if err := s.writeMessages(ctx, chatID, conv.Messages); err != nil {
		return false, err
	}
	return true, nil
}

// MarkMessagesSeen flips the seen flag on every message not authored by
// viewerID. Returns how many messages were flipped; zero means no write
// was issued.
func (s *ConversationStore) MarkMessagesSeen(ctx context.Context, chatID, viewerID string) (int, error) {
	conv, err := s.Get(ctx, chatID)
	if err != nil {
		return 0, err
	}

	flipped := 0
	for i := range conv.Messages {
		if conv.Messages[i].SenderID != viewerID && !conv.Messages[i].IsSeen {
			conv.Messages[i].IsSeen = true
			flipped++
		}
	}
	if flipped == 0 {
		return 0, nil
	}

	if err := s.writeMessages(ctx, chatID, conv.Messages); err != nil {
		return 0, err
	}
	return flipped, nil
}

// RemoveMessage removes the message with the given id. Removal of a
// message that no longer exists is a no-op, not an error.
func (s *ConversationStore) RemoveMessage(ctx context.Context, chatID, messageID string) (bool, error) {
	conv, err := s.Get(ctx, chatID)
	if err != nil {
		return false, err
	}

	i := conv.FindMessage(messageID)
	if i < 0 {
		return false, nil
	}

	messages := append(conv.Messages[:i:i], conv.Messages[i+1:]...)
	if err := s.writeMessages(ctx, chatID, messages); err != nil {
		return false, err
	}
	return true, nil
}

// SetTyping records one user's typing flag. The whole typing map is
// rewritten; per-user last write wins.
func (s *ConversationStore) SetTyping(ctx context.Context, chatID, userID string, state entity.TypingState) error {
	conv, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}

	typing := conv.Typing
	if typing == nil {
		typing = make(map[string]entity.TypingState, 2)
	}
	typing[userID] = state

	if err := s.store.Update(ctx, chatsCollection, chatID, map[string]any{"typing": typing}); err != nil {
		return fmt.Errorf("writing typing state: %w", err)
	}
	return nil
}

// Subscribe opens a snapshot listener on the conversation document.
func (s *ConversationStore) Subscribe(ctx context.Context, chatID string) (docstore.Subscription, error) {
	sub, err := s.store.Subscribe(ctx, chatsCollection, chatID)
	if err != nil {
		return nil, fmt.Errorf("subscribing to conversation: %w", err)
	}
	return sub, nil
}

func (s *ConversationStore) writeMessages(ctx context.Context, chatID string, messages []entity.Message) error {
	if messages == nil {
		messages = []entity.Message{}
	}
	if err := s.store.Update(ctx, chatsCollection, chatID, map[string]any{"messages": messages}); err != nil {
		return fmt.Errorf("writing message array: %w", err)
	}
	return nil
}
