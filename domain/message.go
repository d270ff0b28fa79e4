// Package domain contains core concepts of the relay.
// This file defines Message and related rules.
// Messages are immutable once created.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable chat entry. Author is a snapshot of the sender's
// username at send time; renaming a user never rewrites past messages.
type Message struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  string    `json:"userId"`
	Author    string    `json:"user"`
	Text      string    `json:"text"`
	Lang      string    `json:"lang,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}
