package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/roomline/chatgate/internal/sanitize"
)

// MessageType distinguishes a listing offer from a request, matching the
// original's MessageType enum.
type MessageType string

const (
	Offered   MessageType = "offered"
	Requested MessageType = "requested"
)

// ChatMessage is the persisted and broadcast shape of a chat post.
type ChatMessage struct {
	ID          string      `json:"id"`
	BrowserID   string      `json:"browser_id"`
	Message     string      `json:"message"`
	MessageType MessageType `json:"message_type"`
	Timestamp   int64       `json:"timestamp"`
	Phone       string      `json:"phone,omitempty"`
	Location    string      `json:"location,omitempty"`
}

// NewMessage constructs a message with a fresh ID, server timestamp, and
// sanitized body.
func NewMessage(sanitizer *sanitize.HTML, browserID, message string, msgType MessageType, phone, location string) ChatMessage {
	return ChatMessage{
		ID:          uuid.NewString(),
		BrowserID:   browserID,
		Message:     sanitizer.Clean(message),
		MessageType: msgType,
		Timestamp:   time.Now().Unix(),
		Phone:       phone,
		Location:    location,
	}
}

// WithoutPhone returns a copy with the phone field cleared, for the public
// message feed and broadcast (phone is only available via the dedicated
// contact-reveal endpoint).
func (m ChatMessage) WithoutPhone() ChatMessage {
	m.Phone = ""
	return m
}
