package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vadim/neo-chat/internal/auth"
	"github.com/vadim/neo-chat/internal/domain/chat/entity"
	"github.com/vadim/neo-chat/internal/domain/chat/policy"
	"github.com/vadim/neo-chat/internal/domain/chat/service"
	"github.com/vadim/neo-chat/internal/httpx/response"
)

// CommandType discriminates inbound websocket commands.
type CommandType string

const (
	CommandSend   CommandType = "send"
	CommandEdit   CommandType = "edit"
	CommandDelete CommandType = "delete"
	CommandTyping CommandType = "typing"
)

// Command is the inbound websocket frame. Text doubles as the input box
// contents for typing commands.
type Command struct {
	Type      CommandType `json:"type"`
	Text      string      `json:"text,omitempty"`
	ImageURL  string      `json:"image_url,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
}

// Frame is the outbound websocket frame: either a session event or an
// error report for a refused command.
type Frame struct {
	Type     string           `json:"type"`
	Messages []entity.Message `json:"messages,omitempty"`
	Typist   string           `json:"typist,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// WSHandler upgrades conversation connections and bridges the session
// event stream onto the socket.
type WSHandler struct {
	chats  *policy.Policy
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(chats *policy.Policy, tokens *auth.TokenManager, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		chats:  chats,
		tokens: tokens,
		logger: logger,
	}
}

// RegisterRoutes registers the websocket route. Authentication comes
// from a query parameter because browser websocket clients cannot set
// headers.
func (h *WSHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chats/{chatId}", h.Serve())
}

// Serve handles GET /ws/chats/{chatId}?token=
func (h *WSHandler) Serve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, username, err := h.tokens.Verify(r.URL.Query().Get("token"))
		if err != nil {
			response.Unauthorized(w, "invalid token")
			return
		}
		chatID := chi.URLParam(r, "chatId")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			h.logger.Error("websocket accept failed", slog.Any("error", err))
			return
		}
		defer conn.Close(websocket.StatusInternalError, "connection closed")

		ctx := r.Context()
		client := h.chats.Client(userID, username)
		defer client.Close()

		out, err := h.chats.OpenSession(ctx, client, policy.OpenSessionInput{
			UserID: userID,
			ChatID: chatID,
		})
		if err != nil {
			status := websocket.StatusInternalError
			switch {
			case errors.Is(err, entity.ErrChatNotFound):
				status = websocket.StatusPolicyViolation
			case errors.Is(err, entity.ErrUnauthorized):
				status = websocket.StatusPolicyViolation
			}
			conn.Close(status, err.Error())
			return
		}

		h.logger.Info("session opened",
			slog.String("user_id", userID),
			slog.String("chat_id", chatID),
		)

		blocked := out.CallerBlocked || out.ReceiverBlocked
		go h.writeEvents(ctx, conn, out.Session)
		h.readCommands(ctx, conn, out.Session, blocked)

		conn.Close(websocket.StatusNormalClosure, "")
	}
}

// writeEvents forwards session events to the socket until the session
// closes or a write fails.
func (h *WSHandler) writeEvents(ctx context.Context, conn *websocket.Conn, session *service.Session) {
	for ev := range session.Events() {
		frame := Frame{
			Type:     string(ev.Type),
			Messages: ev.Messages,
			Typist:   ev.Typist,
		}
		if err := wsjson.Write(ctx, conn, frame); err != nil {
			return
		}
	}
}

// readCommands dispatches inbound frames until the socket closes. While
// either side of the pair has the other blocked, mutating commands are
// refused with an error frame; the message stream stays readable.
func (h *WSHandler) readCommands(ctx context.Context, conn *websocket.Conn, session *service.Session, blocked bool) {
	for {
		var cmd Command
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			return
		}

		if blocked && cmd.Type != CommandDelete {
			h.writeError(ctx, conn, entity.ErrBlocked.Error())
			continue
		}

		switch cmd.Type {
		case CommandSend:
			if err := session.Send(ctx, cmd.Text, cmd.ImageURL); err != nil {
				h.writeError(ctx, conn, err.Error())
			}
		case CommandEdit:
			if err := session.Edit(ctx, cmd.MessageID, cmd.Text); err != nil {
				h.writeError(ctx, conn, err.Error())
			}
		case CommandDelete:
			if err := session.Delete(ctx, cmd.MessageID); err != nil {
				h.writeError(ctx, conn, err.Error())
			}
		case CommandTyping:
			session.SetInput(ctx, cmd.Text)
		default:
			h.writeError(ctx, conn, "unknown command type")
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, msg string) {
	_ = wsjson.Write(ctx, conn, Frame{Type: "error", Error: msg})
}
