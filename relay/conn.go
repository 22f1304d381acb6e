// Package relay is the connection registry and message-routing engine:
// it binds an authenticated identity to exactly one live connection, fans
// out broadcast and private messages with partial-failure cleanup, keeps the
// presence view consistent under concurrent join/leave/reconnect, and drives
// the per-connection protocol state machine.
package relay

import "chat-relay/domain"

// Close codes used when tearing a connection down. Invalid or expired
// tokens get a distinguishing code before admission; every other teardown
// path closes normally.
const (
	CloseNormal         = 1000
	CloseGoingAway      = 1001
	CloseInvalidSession = 4001
)

// Conn is the live transport endpoint for exactly one admitted session.
// Implementations must serialize Send calls onto a single outbound stream
// (per-connection FIFO), bound each Send by a delivery deadline, make Close
// idempotent, and unblock a pending Receive when the connection closes.
type Conn interface {
	// Receive blocks until the next inbound payload or a transport error.
	Receive() ([]byte, error)
	// Send enqueues one envelope for delivery. A full queue or closed
	// connection is a transport failure.
	Send(envelope domain.Envelope) error
	// Close tears the transport down with the given close code. Closing an
	// already-closed or dead connection never fails the surrounding
	// operation; errors are advisory.
	Close(code int, reason string) error
	// RemoteAddr identifies the peer for logging.
	RemoteAddr() string
}
