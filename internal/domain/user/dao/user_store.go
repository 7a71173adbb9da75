package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadim/neo-chat/internal/docstore"
	"github.com/vadim/neo-chat/internal/domain/user/entity"
)

const (
	usersCollection     = "users"
	usernamesCollection = "usernames"
)

// usernameRef maps a username to its owner, as a lookup document. The
// store has no query primitive, so username resolution is its own
// collection keyed by name.
type usernameRef struct {
	UserID string `json:"user_id" firestore:"userId"`
}

// UserStore persists user profile documents and the username lookup.
type UserStore struct {
	store docstore.Store
}

// NewUserStore creates a user store over a document store.
func NewUserStore(store docstore.Store) *UserStore {
	return &UserStore{store: store}
}

// Get retrieves a profile by user id.
func (s *UserStore) Get(ctx context.Context, userID string) (*entity.Profile, error) {
	var p entity.Profile
	err := s.store.Get(ctx, usersCollection, userID, &p)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &p, nil
}

// GetByUsername resolves a username and retrieves the profile.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*entity.Profile, error) {
	var ref usernameRef
	err := s.store.Get(ctx, usernamesCollection, username, &ref)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving username: %w", err)
	}
	return s.Get(ctx, ref.UserID)
}

// Create writes a new profile and claims its username. Returns
// ErrUsernameTaken when the name is already claimed by another user.
func (s *UserStore) Create(ctx context.Context, p *entity.Profile) error {
	var existing usernameRef
	err := s.store.Get(ctx, usernamesCollection, p.Username, &existing)
	if err == nil && existing.UserID != p.ID {
		return entity.ErrUsernameTaken
	}
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("checking username: %w", err)
	}

	if p.Blocked == nil {
		p.Blocked = []string{}
	}
	if err := s.store.Set(ctx, usersCollection, p.ID, p); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	if err := s.store.Set(ctx, usernamesCollection, p.Username, usernameRef{UserID: p.ID}); err != nil {
		return fmt.Errorf("claiming username: %w", err)
	}
	return nil
}

// SetAvatar replaces the profile's avatar URL.
func (s *UserStore) SetAvatar(ctx context.Context, userID, url string) error {
	err := s.store.Update(ctx, usersCollection, userID, map[string]any{"avatar": url})
	if errors.Is(err, docstore.ErrNotFound) {
		return entity.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("setting avatar: %w", err)
	}
	return nil
}

// Block adds targetID to the owner's block set. Blocking an
// already-blocked user leaves the set unchanged.
func (s *UserStore) Block(ctx context.Context, ownerID, targetID string) error {
	p, err := s.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	if p.HasBlocked(targetID) {
		return nil
	}

	blocked := append(p.Blocked, targetID)
	return s.writeBlocked(ctx, ownerID, blocked)
}

// Unblock removes targetID from the owner's block set. Unblocking a
// non-blocked user leaves the set unchanged.
func (s *UserStore) Unblock(ctx context.Context, ownerID, targetID string) error {
	p, err := s.Get(ctx, ownerID)
	if err != nil {
		return err
	}

	blocked := make([]string, 0, len(p.Blocked))
	for _, id := range p.Blocked {
		if id != targetID {
			blocked = append(blocked, id)
		}
	}
	if len(blocked) == len(p.Blocked) {
		return nil
	}
	return s.writeBlocked(ctx, ownerID, blocked)
}

func (s *UserStore) writeBlocked(ctx context.Context, ownerID string, blocked []string) error {
	if err := s.store.Update(ctx, usersCollection, ownerID, map[string]any{"blocked": blocked}); err != nil {
		return fmt.Errorf("writing block list: %w", err)
	}
	return nil
}
