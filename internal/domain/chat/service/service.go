package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vadim/neo-chat/internal/docstore"
	"github.com/vadim/neo-chat/internal/domain/chat/entity"
)

// ConversationRepository is the document-store surface the engine
// mutates. Every message mutation is a whole-array rewrite on the store
// side; concurrent writers resolve by last write wins.
type ConversationRepository interface {
	Get(ctx context.Context, chatID string) (*entity.Conversation, error)
	AppendMessage(ctx context.Context, chatID string, msg entity.Message) error
	ReplaceMessageText(ctx context.Context, chatID, messageID, text string) (bool, error)
	SetMessageStatus(ctx context.Context, chatID, messageID string, status entity.DeliveryStatus) (bool, error)
	MarkMessagesSeen(ctx context.Context, chatID, viewerID string) (int, error)
	RemoveMessage(ctx context.Context, chatID, messageID string) (bool, error)
	SetTyping(ctx context.Context, chatID, userID string, state entity.TypingState) error
	Subscribe(ctx context.Context, chatID string) (docstore.Subscription, error)
}

// IndexUpdater maintains per-user conversation summaries as a side
// effect of message operations. Updates are best-effort: they never fail
// the operation that triggered them.
type IndexUpdater interface {
	Update(ctx context.Context, ownerID, chatID, lastMessage string, seen bool, at time.Time)
	MarkSeen(ctx context.Context, ownerID, chatID string)
}

// Archiver mirrors reconciled messages into a queryable read model.
type Archiver interface {
	UpsertBatch(ctx context.Context, chatID string, msgs []entity.Message) error
}

// Config holds the engine's timing knobs. The defaults reproduce the
// production behavior; tests shrink them.
type Config struct {
	// DeliveredDelay is how long after a send the sender's client marks
	// the message delivered.
	DeliveredDelay time.Duration
	// SeenDelay is the read-receipt delay before a receiving client flips
	// unseen messages to seen.
	SeenDelay time.Duration
	// TypingExpiry is how long a typing flag survives without further
	// input before it is auto-cleared.
	TypingExpiry time.Duration
}

func (c Config) withDefaults() Config {
	if c.DeliveredDelay == 0 {
		c.DeliveredDelay = 8 * time.Second
	}
	if c.SeenDelay == 0 {
		c.SeenDelay = 5 * time.Second
	}
	if c.TypingExpiry == 0 {
		c.TypingExpiry = 3 * time.Second
	}
	return c
}

// Engine owns the shared dependencies of the conversation sync engine.
// Live state lives in per-connection Clients and their Sessions.
type Engine struct {
	repo    ConversationRepository
	index   IndexUpdater
	archive Archiver // optional
	cfg     Config
	logger  *slog.Logger
}

// NewEngine creates a sync engine. archive may be nil.
func NewEngine(repo ConversationRepository, index IndexUpdater, archive Archiver, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		repo:    repo,
		index:   index,
		archive: archive,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// Client is one connected client instance of one user. A client holds at
// most one live session; opening a conversation closes the previous
// session before the new subscription attaches, so snapshots from two
// conversations never interleave.
type Client struct {
	engine   *Engine
	userID   string
	username string

	mu      sync.Mutex
	current *Session
}

// Client creates a client instance for a connected user.
func (e *Engine) Client(userID, username string) *Client {
	return &Client{engine: e, userID: userID, username: username}
}

// Open establishes the live session for one conversation. It fails with
// entity.ErrChatNotFound when the conversation does not exist and
// entity.ErrUnauthorized when the caller is not a participant. The
// caller's own index entry is marked seen, mirroring the act of opening
// the conversation in a list.
func (c *Client) Open(ctx context.Context, chatID string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Close()
		c.current = nil
	}

	conv, err := c.engine.repo.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(c.userID) {
		return nil, entity.ErrUnauthorized
	}

	sctx, cancel := context.WithCancel(ctx)
	sub, err := c.engine.repo.Subscribe(sctx, chatID)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Session{
		engine:       c.engine,
		userID:       c.userID,
		username:     c.username,
		chatID:       chatID,
		participants: append([]string(nil), conv.Participants...),
		ctx:          sctx,
		cancel:       cancel,
		sub:          sub,
		events:       make(chan Event, 16),
		done:         make(chan struct{}),
	}
	go s.loop()

	c.engine.index.MarkSeen(ctx, c.userID, chatID)

	c.current = s
	return s, nil
}

// Close closes the active session, if any.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Close()
		c.current = nil
	}
}
