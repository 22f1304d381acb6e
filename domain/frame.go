package domain

import (
	"encoding/json"
	"fmt"
)

// FrameType discriminates inbound frames by their declared kind.
type FrameType string

const (
	FrameChat            FrameType = "chat"
	FrameTyping          FrameType = "typing"
	FrameRequestUserList FrameType = "request_user_list"
)

// Frame is the closed set of structured records a connected client may send.
// It is parsed and validated at the transport boundary; untyped payloads
// never reach the router.
type Frame struct {
	Type      FrameType `json:"type"`
	Content   string    `json:"content,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	IsTyping  bool      `json:"is_typing,omitempty"`
}

// ParseFrame decodes a raw inbound payload into a Frame.
// A missing type defaults to chat. An unknown type is a validation error,
// reported to the sender without tearing the connection down.
func ParseFrame(raw []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, fmt.Errorf("invalid frame encoding: %w", err)
	}
	if frame.Type == "" {
		frame.Type = FrameChat
	}
	switch frame.Type {
	case FrameChat, FrameTyping, FrameRequestUserList:
		return frame, nil
	default:
		return Frame{}, fmt.Errorf("unknown frame type %q", frame.Type)
	}
}
