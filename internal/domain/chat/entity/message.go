package entity

import "time"

// DeliveryStatus represents the sender-observed lifecycle stage of a message.
// It is distinct from the receiver-observed IsSeen flag.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
)

// Message is a single message embedded in a conversation document.
type Message struct {
	ID        string         `json:"id" firestore:"id"`
	SenderID  string         `json:"sender_id" firestore:"senderId"`
	Text      string         `json:"text,omitempty" firestore:"text"`
	ImageURL  string         `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	CreatedAt time.Time      `json:"created_at" firestore:"createdAt"`
	IsSeen    bool           `json:"is_seen" firestore:"isSeen"`
	Status    DeliveryStatus `json:"status" firestore:"status"`
}

// MaxMessageLength is the maximum length of a text message
const MaxMessageLength = 1000

// ValidateText validates the text of an outgoing message
func ValidateText(text string) error {
	if text == "" {
		return ErrEmptyMessage
	}
	if len(text) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}
