package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-chat/internal/auth"
	"github.com/vadim/neo-chat/internal/domain/user/entity"
	"github.com/vadim/neo-chat/internal/httpx/response"
)

// UserService defines the interface for profile operations
type UserService interface {
	Get(ctx context.Context, userID string) (*entity.Profile, error)
	Search(ctx context.Context, username string) (*entity.Profile, error)
	SetAvatar(ctx context.Context, userID, url string) error
	Block(ctx context.Context, userID, targetID string) error
	Unblock(ctx context.Context, userID, targetID string) error
}

// UserHandler handles profile HTTP requests
type UserHandler struct {
	users UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes registers user routes
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/me", h.Me())
		r.Put("/me/avatar", h.SetAvatar())
		r.Get("/search", h.Search())
		r.Post("/{userId}/block", h.Block())
		r.Delete("/{userId}/block", h.Unblock())
	})
}

// Me handles GET /users/me
func (h *UserHandler) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := h.users.Get(r.Context(), auth.UserID(r.Context()))
		if err != nil {
			handleUserError(w, err)
			return
		}
		response.OK(w, profile)
	}
}

// SetAvatarRequest represents the request for updating the avatar
type SetAvatarRequest struct {
	URL string `json:"url"`
}

// SetAvatar handles PUT /users/me/avatar
func (h *UserHandler) SetAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetAvatarRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		if req.URL == "" {
			response.BadRequest(w, "url is required")
			return
		}

		if err := h.users.SetAvatar(r.Context(), auth.UserID(r.Context()), req.URL); err != nil {
			handleUserError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// Search handles GET /users/search?username=
func (h *UserHandler) Search() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			response.BadRequest(w, "username is required")
			return
		}

		profile, err := h.users.Search(r.Context(), username)
		if err != nil {
			handleUserError(w, err)
			return
		}
		response.OK(w, profile)
	}
}

// Block handles POST /users/{userId}/block
func (h *UserHandler) Block() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "userId")
		if err := h.users.Block(r.Context(), auth.UserID(r.Context()), targetID); err != nil {
			handleUserError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// Unblock handles DELETE /users/{userId}/block
func (h *UserHandler) Unblock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "userId")
		if err := h.users.Unblock(r.Context(), auth.UserID(r.Context()), targetID); err != nil {
			handleUserError(w, err)
			return
		}
		response.NoContent(w)
	}
}

func handleUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrUserNotFound):
		response.NotFound(w, "user not found")
	default:
		response.InternalError(w, "operation failed")
	}
}
