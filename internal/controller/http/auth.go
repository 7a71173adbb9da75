package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-chat/internal/auth"
	"github.com/vadim/neo-chat/internal/domain/user/entity"
	"github.com/vadim/neo-chat/internal/domain/user/service"
	"github.com/vadim/neo-chat/internal/httpx/response"
)

// AccountService defines the interface for account operations
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*entity.Profile, error)
	Login(ctx context.Context, in service.LoginInput) (*entity.Profile, error)
}

// AuthHandler handles registration and login HTTP requests
type AuthHandler struct {
	accounts AccountService
	tokens   *auth.TokenManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts AccountService, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.Register())
	r.Post("/auth/login", h.Login())
}

// RegisterRequest represents the request for registration
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AuthResponse represents the response for register/login
type AuthResponse struct {
	AccessToken string          `json:"access_token"`
	User        *entity.Profile `json:"user"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}

		profile, err := h.accounts.Register(r.Context(), service.RegisterInput{
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
			AvatarURL: req.AvatarURL,
		})
		if err != nil {
			handleAuthError(w, err)
			return
		}

		token, err := h.tokens.Issue(profile.ID, profile.Username)
		if err != nil {
			response.InternalError(w, "failed to issue token")
			return
		}

		response.Created(w, AuthResponse{AccessToken: token, User: profile})
	}
}

// LoginRequest represents the request for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}

		profile, err := h.accounts.Login(r.Context(), service.LoginInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			handleAuthError(w, err)
			return
		}

		token, err := h.tokens.Issue(profile.ID, profile.Username)
		if err != nil {
			response.InternalError(w, "failed to issue token")
			return
		}

		response.OK(w, AuthResponse{AccessToken: token, User: profile})
	}
}

func handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Unauthorized(w, "invalid credentials")
	case errors.Is(err, entity.ErrUsernameTaken):
		response.Conflict(w, "username is already taken")
	case errors.Is(err, entity.ErrEmptyUsername):
		response.BadRequest(w, "username is required")
	default:
		response.InternalError(w, "registration failed")
	}
}
