package entity

import "errors"

// Profile is a user's account identity document. Blocking is stored
// asymmetrically: each user maintains only their own block set.
type Profile struct {
	ID        string   `json:"id" firestore:"id"`
	Username  string   `json:"username" firestore:"username"`
	Email     string   `json:"email" firestore:"email"`
	AvatarURL string   `json:"avatar_url,omitempty" firestore:"avatar,omitempty"`
	Blocked   []string `json:"blocked" firestore:"blocked"`
}

// HasBlocked reports whether the profile's owner has blocked userID.
func (p *Profile) HasBlocked(userID string) bool {
	for _, id := range p.Blocked {
		if id == userID {
			return true
		}
	}
	return false
}

// Domain errors for user accounts
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username is already taken")
	ErrEmptyUsername = errors.New("username cannot be empty")
)
