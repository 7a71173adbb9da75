package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/neo-chat/internal/domain/chat/entity"
	"github.com/vadim/neo-chat/internal/domain/chat/service"
	userentity "github.com/vadim/neo-chat/internal/domain/user/entity"
)

// ChatRepository is the conversation-document surface the policy needs.
type ChatRepository interface {
	Get(ctx context.Context, chatID string) (*entity.Conversation, error)
	Create(ctx context.Context, conv *entity.Conversation) error
}

// IndexRepository is the per-user index surface the policy needs.
type IndexRepository interface {
	Get(ctx context.Context, ownerID string) ([]entity.ChatSummary, error)
	AddChat(ctx context.Context, ownerID string, summary entity.ChatSummary) error
}

// UserDirectory resolves user profiles, including block lists.
type UserDirectory interface {
	Get(ctx context.Context, userID string) (*userentity.Profile, error)
	GetByUsername(ctx context.Context, username string) (*userentity.Profile, error)
}

// StatisticsRepository reads the archived message statistics.
type StatisticsRepository interface {
	GetStatistics(ctx context.Context, chatID, userID string) (*entity.ChatStatistics, error)
}

// Policy authorizes conversation operations: participation checks, block
// state resolution and conversation creation. Live message traffic goes
// through the sync engine sessions it hands out.
type Policy struct {
	engine *service.Engine
	chats  ChatRepository
	index  IndexRepository
	users  UserDirectory
	stats  StatisticsRepository // optional
}

// New creates a chat policy. stats may be nil when no archive is wired.
func New(engine *service.Engine, chats ChatRepository, index IndexRepository, users UserDirectory, stats StatisticsRepository) *Policy {
	return &Policy{
		engine: engine,
		chats:  chats,
		index:  index,
		users:  users,
		stats:  stats,
	}
}

// Client creates a per-connection client instance for a user.
func (p *Policy) Client(userID, username string) *service.Client {
	return p.engine.Client(userID, username)
}

// CreateChatInput represents input for creating a conversation
type CreateChatInput struct {
	UserID        string
	OtherUsername string
}

// CreateChatOutput represents output from creating a conversation
type CreateChatOutput struct {
	ChatID string
}

// CreateChat creates a 1:1 conversation with the named user and seeds
// both participants' index entries. The two index writes are independent
// and non-atomic, like every other dual write in this system.
func (p *Policy) CreateChat(ctx context.Context, in CreateChatInput) (*CreateChatOutput, error) {
	other, err := p.users.GetByUsername(ctx, in.OtherUsername)
	if err != nil {
		return nil, err
	}
	if other.ID == in.UserID {
		return nil, entity.ErrInvalidRecipient
	}

	now := time.Now()
	conv := &entity.Conversation{
		ID:           uuid.NewString(),
		Participants: []string{in.UserID, other.ID},
		Messages:     []entity.Message{},
		CreatedAt:    now,
	}
	if err := p.chats.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	if err := p.index.AddChat(ctx, in.UserID, entity.ChatSummary{
		ChatID:     conv.ID,
		ReceiverID: other.ID,
		IsSeen:     true,
		UpdatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("adding chat to own index: %w", err)
	}

	if err := p.index.AddChat(ctx, other.ID, entity.ChatSummary{
		ChatID:     conv.ID,
		ReceiverID: in.UserID,
		IsSeen:     true,
		UpdatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("adding chat to counterpart index: %w", err)
	}

	return &CreateChatOutput{ChatID: conv.ID}, nil
}

// ListChats returns the caller's conversation index, newest first.
func (p *Policy) ListChats(ctx context.Context, userID string) ([]entity.ChatSummary, error) {
	chats, err := p.index.Get(ctx, userID)
	if errors.Is(err, entity.ErrChatNotFound) {
		return []entity.ChatSummary{}, nil
	}
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// HistoryInput represents input for a one-shot history read
type HistoryInput struct {
	UserID string
	ChatID string
}

// History returns the conversation's current message array. This is a
// point-in-time read; live clients use OpenSession instead.
func (p *Policy) History(ctx context.Context, in HistoryInput) ([]entity.Message, error) {
	conv, err := p.chats.Get(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(in.UserID) {
		return nil, entity.ErrUnauthorized
	}
	return conv.Messages, nil
}

// StatisticsInput represents input for reading chat statistics
type StatisticsInput struct {
	UserID string
	ChatID string
}

// Statistics returns archived activity statistics for a conversation.
func (p *Policy) Statistics(ctx context.Context, in StatisticsInput) (*entity.ChatStatistics, error) {
	if p.stats == nil {
		return nil, fmt.Errorf("statistics requires the message archive")
	}

	conv, err := p.chats.Get(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(in.UserID) {
		return nil, entity.ErrUnauthorized
	}

	return p.stats.GetStatistics(ctx, in.ChatID, in.UserID)
}

// OpenSessionInput represents input for opening a live session
type OpenSessionInput struct {
	UserID string
	ChatID string
}

// OpenSessionOutput carries the live session and the block state
// captured at open time, the way the original client resolves it once
// per conversation switch.
type OpenSessionOutput struct {
	Session *service.Session
	// CallerBlocked is true when the counterpart has blocked the caller.
	CallerBlocked bool
	// ReceiverBlocked is true when the caller has blocked the counterpart.
	ReceiverBlocked bool
}

// OpenSession opens the live session for a conversation on the given
// client. Blocked pairs may still read; sending is refused by the
// transport while either flag is set.
func (p *Policy) OpenSession(ctx context.Context, client *service.Client, in OpenSessionInput) (*OpenSessionOutput, error) {
	conv, err := p.chats.Get(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(in.UserID) {
		return nil, entity.ErrUnauthorized
	}

	self, err := p.users.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	counterpart, err := p.users.Get(ctx, conv.Counterpart(in.UserID))
	if err != nil {
		return nil, err
	}

	session, err := client.Open(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}

	return &OpenSessionOutput{
		Session:         session,
		CallerBlocked:   counterpart.HasBlocked(in.UserID),
		ReceiverBlocked: self.HasBlocked(counterpart.ID),
	}, nil
}
