package entity

import "errors"

// Domain errors for conversations
var (
	ErrChatNotFound     = errors.New("chat not found")
	ErrEmptyMessage     = errors.New("message text cannot be empty")
	ErrMessageTooLong   = errors.New("message exceeds maximum length")
	ErrUnauthorized     = errors.New("unauthorized to perform this action")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrBlocked          = errors.New("messaging is blocked between these users")
)
