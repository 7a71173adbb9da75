package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vadim/neo-chat/internal/domain/user/entity"
)

// AuthProvider is the external authentication collaborator. Its errors
// are opaque: callers see one generic credential-failure category.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
}

// UserRepository is the profile-document surface.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*entity.Profile, error)
	GetByUsername(ctx context.Context, username string) (*entity.Profile, error)
	Create(ctx context.Context, p *entity.Profile) error
	SetAvatar(ctx context.Context, userID, url string) error
	Block(ctx context.Context, ownerID, targetID string) error
	Unblock(ctx context.Context, ownerID, targetID string) error
}

// IndexInitializer seeds the per-user conversation index at signup.
type IndexInitializer interface {
	CreateEmpty(ctx context.Context, ownerID string) error
}

// Service handles account business logic.
type Service struct {
	auth   AuthProvider
	users  UserRepository
	index  IndexInitializer
	logger *slog.Logger
}

// New creates a user service.
func New(auth AuthProvider, users UserRepository, index IndexInitializer, logger *slog.Logger) *Service {
	return &Service{
		auth:   auth,
		users:  users,
		index:  index,
		logger: logger,
	}
}

// RegisterInput represents input for registering an account
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	AvatarURL string
}

// Register creates the account with the auth provider, then the profile
// document, the username claim and the empty conversation index.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.Profile, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, entity.ErrEmptyUsername
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, entity.ErrUsernameTaken
	}

	userID, err := s.auth.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	p := &entity.Profile{
		ID:        userID,
		Username:  username,
		Email:     in.Email,
		AvatarURL: in.AvatarURL,
		Blocked:   []string{},
	}
	if err := s.users.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	if err := s.index.CreateEmpty(ctx, userID); err != nil {
		return nil, fmt.Errorf("creating conversation index: %w", err)
	}

	s.logger.Info("user registered", "user_id", userID, "username", username)
	return p, nil
}

// LoginInput represents input for logging in
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the profile.
func (s *Service) Login(ctx context.Context, in LoginInput) (*entity.Profile, error) {
	userID, err := s.auth.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return s.users.Get(ctx, userID)
}

// Get returns a profile by id.
func (s *Service) Get(ctx context.Context, userID string) (*entity.Profile, error) {
	return s.users.Get(ctx, userID)
}

// Search resolves a profile by exact username.
func (s *Service) Search(ctx context.Context, username string) (*entity.Profile, error) {
	return s.users.GetByUsername(ctx, username)
}

// SetAvatar replaces the caller's avatar URL.
func (s *Service) SetAvatar(ctx context.Context, userID, url string) error {
	return s.users.SetAvatar(ctx, userID, url)
}

// Block adds targetID to the caller's block set; idempotent.
func (s *Service) Block(ctx context.Context, userID, targetID string) error {
	if _, err := s.users.Get(ctx, targetID); err != nil {
		return err
	}
	return s.users.Block(ctx, userID, targetID)
}

// Unblock removes targetID from the caller's block set; idempotent.
func (s *Service) Unblock(ctx context.Context, userID, targetID string) error {
	return s.users.Unblock(ctx, userID, targetID)
}
