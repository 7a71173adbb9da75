package entity

import "time"

// TypingState is one user's ephemeral typing flag inside a conversation
// document. Last write wins per user; the flag auto-expires client-side.
type TypingState struct {
	IsTyping bool   `json:"is_typing" firestore:"isTyping"`
	Username string `json:"username" firestore:"username"`
}

// Conversation is a 1:1 conversation document. Messages are embedded in
// insertion order; the array order as written by the last client is the
// display order (the store gives no ordering guarantee of its own).
type Conversation struct {
	ID           string                 `json:"id" firestore:"id"`
	Participants []string               `json:"participants" firestore:"participants"`
	Messages     []Message              `json:"messages" firestore:"messages"`
	Typing       map[string]TypingState `json:"typing,omitempty" firestore:"typing,omitempty"`
	CreatedAt    time.Time              `json:"created_at" firestore:"createdAt"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Counterpart returns the other participant of a 1:1 conversation.
func (c *Conversation) Counterpart(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// FindMessage returns the index of the message with the given id, or -1.
func (c *Conversation) FindMessage(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// ChatSummary is one entry in a user's conversation index. Each
// participant owns and writes their own copy; the two copies are not
// required to agree.
type ChatSummary struct {
	ChatID      string    `json:"chat_id" firestore:"chatId"`
	ReceiverID  string    `json:"receiver_id" firestore:"receiverId"`
	LastMessage string    `json:"last_message" firestore:"lastMessage"`
	IsSeen      bool      `json:"is_seen" firestore:"isSeen"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

// UserChats is a user's conversation index document.
type UserChats struct {
	Chats []ChatSummary `json:"chats" firestore:"chats"`
}
