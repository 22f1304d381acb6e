// Package domain contains core concepts of the chat relay.
// This file defines Message and related rules.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scope tells whether a message targets everyone or a single recipient.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopePrivate Scope = "private"
)

// ScopeOf derives the scope from the optional recipient: absent recipient
// means global.
func ScopeOf(recipient *string) Scope {
	if recipient == nil {
		return ScopeGlobal
	}
	return ScopePrivate
}

// Message represents an immutable chat event.
type Message struct {
	ID        uuid.UUID
	Content   string
	Sender    string // sender username
	Recipient *string
	Scope     Scope
	Lang      string // ISO 639-1 code detected at ingestion, may be empty
	CreatedAt time.Time
}
