package domain

import "time"

// Envelope kinds as seen on the wire.
const (
	KindChat           = "chat"
	KindChatSent       = "chat_sent"
	KindTyping         = "typing"
	KindPresenceUpdate = "presence_update"
	KindError          = "error"
)

// Envelope is a structured outbound unit written to a live connection.
// Envelopes are transient and never persisted.
type Envelope interface {
	EnvelopeKind() string
}

// ChatEnvelope carries a delivered chat message.
type ChatEnvelope struct {
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	At        time.Time `json:"at"`
	Scope     Scope     `json:"scope"`
	Recipient *string   `json:"recipient,omitempty"`
}

func (e ChatEnvelope) EnvelopeKind() string { return e.Kind }

// NewChatEnvelope builds the envelope a recipient sees for a message.
func NewChatEnvelope(msg Message) ChatEnvelope {
	return ChatEnvelope{
		Kind:      KindChat,
		Content:   msg.Content,
		Sender:    msg.Sender,
		At:        msg.CreatedAt,
		Scope:     msg.Scope,
		Recipient: msg.Recipient,
	}
}

// ChatSentEnvelope confirms a private message back to its sender,
// carrying the best-effort delivery flag.
type ChatSentEnvelope struct {
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Recipient string    `json:"recipient"`
	Delivered bool      `json:"delivered"`
	At        time.Time `json:"at"`
	Scope     Scope     `json:"scope"`
}

func (e ChatSentEnvelope) EnvelopeKind() string { return e.Kind }

func NewChatSentEnvelope(msg Message, delivered bool) ChatSentEnvelope {
	recipient := ""
	if msg.Recipient != nil {
		recipient = *msg.Recipient
	}
	return ChatSentEnvelope{
		Kind:      KindChatSent,
		Content:   msg.Content,
		Recipient: recipient,
		Delivered: delivered,
		At:        msg.CreatedAt,
		Scope:     msg.Scope,
	}
}

// TypingEnvelope is ephemeral and never persisted.
type TypingEnvelope struct {
	Kind      string  `json:"kind"`
	Sender    string  `json:"sender"`
	IsTyping  bool    `json:"is_typing"`
	Recipient *string `json:"recipient,omitempty"`
}

func (e TypingEnvelope) EnvelopeKind() string { return e.Kind }

func NewTypingEnvelope(sender string, isTyping bool, recipient *string) TypingEnvelope {
	return TypingEnvelope{
		Kind:      KindTyping,
		Sender:    sender,
		IsTyping:  isTyping,
		Recipient: recipient,
	}
}

// PresenceUpdateEnvelope carries the full online snapshot so every client
// converges on the same view. The reason is advisory text, not used for
// correctness.
type PresenceUpdateEnvelope struct {
	Kind   string    `json:"kind"`
	Online []string  `json:"online"`
	Reason *string   `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

func (e PresenceUpdateEnvelope) EnvelopeKind() string { return e.Kind }

func NewPresenceUpdateEnvelope(online []string, reason string, at time.Time) PresenceUpdateEnvelope {
	env := PresenceUpdateEnvelope{
		Kind:   KindPresenceUpdate,
		Online: online,
		At:     at,
	}
	if reason != "" {
		env.Reason = &reason
	}
	return env
}

// ErrorEnvelope reports a per-operation failure to the sender only.
type ErrorEnvelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e ErrorEnvelope) EnvelopeKind() string { return e.Kind }

func NewErrorEnvelope(message string) ErrorEnvelope {
	return ErrorEnvelope{Kind: KindError, Message: message}
}
