package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vadim/neo-chat/internal/docstore"
)

// ErrInvalidCredentials is the single generic failure category surfaced
// for any credential rejection: unknown email, wrong password, or an
// email that is already registered. Provider internals stay opaque to
// callers.
var ErrInvalidCredentials = errors.New("invalid credentials")

const credentialsCollection = "credentials"

type credentials struct {
	UserID       string `json:"user_id" firestore:"userId"`
	PasswordHash string `json:"password_hash" firestore:"passwordHash"`
}

// Local is an auth provider backed by bcrypt-hashed credentials in the
// document store, keyed by email.
type Local struct {
	store docstore.Store
}

// NewLocal creates a local auth provider.
func NewLocal(store docstore.Store) *Local {
	return &Local{store: store}
}

// SignUp registers an email/password pair and returns the new user id.
func (l *Local) SignUp(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}

	var existing credentials
	err := l.store.Get(ctx, credentialsCollection, email, &existing)
	if err == nil {
		return "", ErrInvalidCredentials
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return "", fmt.Errorf("checking credentials: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	userID := uuid.NewString()
	creds := credentials{UserID: userID, PasswordHash: string(hash)}
	if err := l.store.Set(ctx, credentialsCollection, email, creds); err != nil {
		return "", fmt.Errorf("storing credentials: %w", err)
	}

	return userID, nil
}

// SignIn verifies an email/password pair and returns the user id.
func (l *Local) SignIn(ctx context.Context, email, password string) (string, error) {
	var creds credentials
	err := l.store.Get(ctx, credentialsCollection, email, &creds)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("getting credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return creds.UserID, nil
}
