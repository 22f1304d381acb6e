// Package domain contains core concepts of the chat relay.
// This file defines the user identity.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// User is a registered identity, uniquely named.
// The relay treats it as a value type and never mutates it.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}
