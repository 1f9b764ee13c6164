// Package domain contains core concepts of the chat system.
// This file defines Message values.
// Messages are immutable and created once per send.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable text send.
type Message struct {
	ID     uuid.UUID // unique identifier
	Sender UserID
	Target Target
	Body   string
	SentAt time.Time
}

func NewMessage(sender UserID, target Target, body string, at time.Time) Message {
	return Message{
		ID:     uuid.New(),
		Sender: sender,
		Target: target,
		Body:   body,
		SentAt: at,
	}
}
