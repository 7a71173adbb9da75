package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/neo-chat/internal/docstore"
	"github.com/vadim/neo-chat/internal/domain/chat/entity"
)

// EventType discriminates session events.
type EventType string

const (
	// EventSnapshot carries the full reconciled message list. Every
	// snapshot is authoritative and total; there is no incremental diff.
	EventSnapshot EventType = "snapshot"
	// EventTyping reports the remote typist's display name, empty when
	// nobody is typing.
	EventTyping EventType = "typing"
)

// Event is delivered to the session's consumer on every reconciliation.
type Event struct {
	Type     EventType        `json:"type"`
	Messages []entity.Message `json:"messages,omitempty"`
	Typist   string           `json:"typist,omitempty"`
}

// Session is one live subscription to one conversation. It is the single
// source of truth for the client's local message state. All timers the
// session starts are bound to its context; Close cancels them.
type Session struct {
	engine       *Engine
	userID       string
	username     string
	chatID       string
	participants []string

	ctx    context.Context
	cancel context.CancelFunc
	sub    docstore.Subscription
	events chan Event
	done   chan struct{}

	mu          sync.Mutex
	messages    []entity.Message
	lastTypist  string
	seenPending bool
	closed      bool

	typingMu  sync.Mutex
	typingSet bool
	typingTmr *time.Timer
}

// ChatID returns the conversation this session is attached to.
func (s *Session) ChatID() string {
	return s.chatID
}

// Events is the session's event stream. The channel is closed when the
// session ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Close cancels the subscription and every timer the session owns, then
// waits for the snapshot loop to drain.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.sub.Close()

	s.typingMu.Lock()
	if s.typingTmr != nil {
		s.typingTmr.Stop()
	}
	s.typingMu.Unlock()

	<-s.done
}

func (s *Session) loop() {
	defer close(s.done)
	defer close(s.events)

	for {
		select {
		case snap, ok := <-s.sub.Snapshots():
			if !ok {
				return
			}
			s.reconcile(snap)
		case <-s.ctx.Done():
			return
		}
	}
}

// reconcile replaces local state wholesale with a remote snapshot and
// dispatches the derived side effects: seen-flag evaluation, typing
// extraction and archive mirroring.
func (s *Session) reconcile(snap docstore.Snapshot) {
	if !snap.Exists() {
		s.engine.logger.Warn("conversation document vanished", "chat_id", s.chatID)
		return
	}

	var conv entity.Conversation
	if err := snap.Decode(&conv); err != nil {
		s.engine.logger.Error("decoding conversation snapshot", "chat_id", s.chatID, "error", err)
		return
	}

	s.mu.Lock()
	s.messages = conv.Messages
	typist := remoteTypist(conv.Typing, s.userID)
	typistChanged := typist != s.lastTypist
	s.lastTypist = typist
	s.mu.Unlock()

	if hasUnseenFrom(conv.Messages, s.userID) {
		s.scheduleSeenFlip()
	}

	if s.engine.archive != nil && len(conv.Messages) > 0 {
		msgs := append([]entity.Message(nil), conv.Messages...)
		go func() {
			if err := s.engine.archive.UpsertBatch(s.ctx, s.chatID, msgs); err != nil {
				s.engine.logger.Warn("archiving messages", "chat_id", s.chatID, "error", err)
			}
		}()
	}

	s.emit(Event{Type: EventSnapshot, Messages: conv.Messages})
	if typistChanged {
		s.emit(Event{Type: EventTyping, Typist: typist})
	}
}

// emit pushes an event, discarding the oldest queued one when the
// consumer lags. Snapshots are total, so stale ones are safe to drop.
func (s *Session) emit(ev Event) {
	for {
		select {
		case s.events <- ev:
			return
		default:
			select {
			case <-s.events:
			default:
			}
		}
	}
}

// Send appends a message authored by the session's user. An empty text
// is a no-op, even with an image attached; no write is issued. The
// message starts unseen with status sent; a session-scoped timer marks
// it delivered after the configured delay. Both participants' index
// entries are then updated best-effort: the sender's marked seen, the
// receiver's unseen.
func (s *Session) Send(ctx context.Context, text, imageURL string) error {
	if text == "" {
		return nil
	}
	if err := entity.ValidateText(text); err != nil {
		return err
	}

	msg := entity.Message{
		ID:        uuid.NewString(),
		SenderID:  s.userID,
		Text:      text,
		ImageURL:  imageURL,
		CreatedAt: time.Now(),
		IsSeen:    false,
		Status:    entity.StatusSent,
	}

	if err := s.engine.repo.AppendMessage(ctx, s.chatID, msg); err != nil {
		return fmt.Errorf("appending message: %w", err)
	}

	s.scheduleDelivered(msg.ID)
	s.updateIndexes(ctx, text)
	return nil
}

// Edit rewrites the text of one of the session user's messages, leaving
// sender, timestamps and status fields untouched. A target that no
// longer exists in the latest array is a silent no-op.
func (s *Session) Edit(ctx context.Context, messageID, text string) error {
	if text == "" {
		return nil
	}
	if err := entity.ValidateText(text); err != nil {
		return err
	}

	ok, err := s.engine.repo.ReplaceMessageText(ctx, s.chatID, messageID, text)
	if err != nil {
		return fmt.Errorf("editing message: %w", err)
	}
	if !ok {
		s.engine.logger.Warn("edit target no longer exists", "chat_id", s.chatID, "message_id", messageID)
		return nil
	}

	s.updateIndexes(ctx, text)
	return nil
}

// Delete removes one message. A target that no longer exists is a silent
// no-op, not an error.
func (s *Session) Delete(ctx context.Context, messageID string) error {
	ok, err := s.engine.repo.RemoveMessage(ctx, s.chatID, messageID)
	if err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	if !ok {
		s.engine.logger.Warn("delete target no longer exists", "chat_id", s.chatID, "message_id", messageID)
	}
	return nil
}

// updateIndexes issues one independent index write per participant.
// There is no atomicity between the two writes or with the preceding
// message write; failures are absorbed by the updater.
func (s *Session) updateIndexes(ctx context.Context, lastMessage string) {
	now := time.Now()
	for _, ownerID := range s.participants {
		s.engine.index.Update(ctx, ownerID, s.chatID, lastMessage, ownerID == s.userID, now)
	}
}

// scheduleDelivered marks the message delivered after the configured
// delay. The timer dies with the session.
func (s *Session) scheduleDelivered(messageID string) {
	go func() {
		timer := time.NewTimer(s.engine.cfg.DeliveredDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-s.ctx.Done():
			return
		}

		ok, err := s.engine.repo.SetMessageStatus(s.ctx, s.chatID, messageID, entity.StatusDelivered)
		if err != nil {
			s.engine.logger.Warn("marking message delivered", "chat_id", s.chatID, "message_id", messageID, "error", err)
			return
		}
		if !ok {
			s.engine.logger.Warn("delivered target no longer exists", "chat_id", s.chatID, "message_id", messageID)
		}
	}()
}

// scheduleSeenFlip flips unseen counterpart messages to seen after the
// read-receipt delay. At most one flip is in flight per session; the
// write echoes back as a snapshot, which re-evaluates anything that
// arrived in the meantime.
func (s *Session) scheduleSeenFlip() {
	s.mu.Lock()
	if s.seenPending {
		s.mu.Unlock()
		return
	}
	s.seenPending = true
	s.mu.Unlock()

	go func() {
		timer := time.NewTimer(s.engine.cfg.SeenDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-s.ctx.Done():
			return
		}

		_, err := s.engine.repo.MarkMessagesSeen(s.ctx, s.chatID, s.userID)

		s.mu.Lock()
		s.seenPending = false
		s.mu.Unlock()

		if err != nil {
			s.engine.logger.Warn("marking messages seen", "chat_id", s.chatID, "error", err)
		}
	}()
}

// remoteTypist returns the display name of a typing user other than
// self. With several (not expected in 1:1), the lowest user id wins so
// the pick is deterministic.
func remoteTypist(typing map[string]entity.TypingState, selfID string) string {
	ids := make([]string, 0, len(typing))
	for id, state := range typing {
		if id != selfID && state.IsTyping {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)
	return typing[ids[0]].Username
}

func hasUnseenFrom(msgs []entity.Message, selfID string) bool {
	for i := range msgs {
		if msgs[i].SenderID != selfID && !msgs[i].IsSeen {
			return true
		}
	}
	return false
}
