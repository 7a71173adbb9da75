package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-chat/internal/auth"
	"github.com/vadim/neo-chat/internal/domain/chat/entity"
	"github.com/vadim/neo-chat/internal/domain/chat/policy"
	userentity "github.com/vadim/neo-chat/internal/domain/user/entity"
	"github.com/vadim/neo-chat/internal/httpx/response"
)

// ChatHandler handles conversation HTTP requests
type ChatHandler struct {
	chats *policy.Policy
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chats *policy.Policy) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// RegisterRoutes registers conversation routes
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Post("/", h.Create())
		r.Get("/", h.List())
		r.Get("/{chatId}/messages", h.History())
		r.Get("/{chatId}/statistics", h.Statistics())
	})
}

// CreateChatRequest represents the request for creating a conversation
type CreateChatRequest struct {
	Username string `json:"username"`
}

// CreateChatResponse represents the response after creating a conversation
type CreateChatResponse struct {
	ChatID string `json:"chat_id"`
}

// Create handles POST /chats
func (h *ChatHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		if req.Username == "" {
			response.BadRequest(w, "username is required")
			return
		}

		out, err := h.chats.CreateChat(r.Context(), policy.CreateChatInput{
			UserID:        auth.UserID(r.Context()),
			OtherUsername: req.Username,
		})
		if err != nil {
			handleChatError(w, err)
			return
		}
		response.Created(w, CreateChatResponse{ChatID: out.ChatID})
	}
}

// List handles GET /chats
func (h *ChatHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chats, err := h.chats.ListChats(r.Context(), auth.UserID(r.Context()))
		if err != nil {
			handleChatError(w, err)
			return
		}
		response.OK(w, chats)
	}
}

// History handles GET /chats/{chatId}/messages
func (h *ChatHandler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := h.chats.History(r.Context(), policy.HistoryInput{
			UserID: auth.UserID(r.Context()),
			ChatID: chi.URLParam(r, "chatId"),
		})
		if err != nil {
			handleChatError(w, err)
			return
		}
		response.OK(w, messages)
	}
}

// Statistics handles GET /chats/{chatId}/statistics
func (h *ChatHandler) Statistics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.chats.Statistics(r.Context(), policy.StatisticsInput{
			UserID: auth.UserID(r.Context()),
			ChatID: chi.URLParam(r, "chatId"),
		})
		if err != nil {
			handleChatError(w, err)
			return
		}
		response.OK(w, stats)
	}
}

func handleChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrChatNotFound):
		response.NotFound(w, "chat not found")
	case errors.Is(err, userentity.ErrUserNotFound):
		response.NotFound(w, "user not found")
	case errors.Is(err, entity.ErrUnauthorized):
		response.Forbidden(w, "not a participant of this chat")
	case errors.Is(err, entity.ErrInvalidRecipient):
		response.BadRequest(w, "cannot start a chat with yourself")
	default:
		response.InternalError(w, "operation failed")
	}
}
