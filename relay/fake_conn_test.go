package relay

import (
	"errors"
	"io"
	"sync"

	"chat-relay/domain"
)

// fakeConn is an in-memory Conn for exercising the registry, broadcaster and
// router without a real transport. Send records envelopes, Receive reads from
// a scripted queue, and Close is idempotent like the contract requires.
type fakeConn struct {
	mu        sync.Mutex
	addr      string
	sent      []domain.Envelope
	closed    bool
	closeCode int
	failSend  bool
	inbound   chan []byte
}

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{addr: addr, inbound: make(chan []byte, 16)}
}

func (c *fakeConn) Receive() ([]byte, error) {
	raw, ok := <-c.inbound
	if !ok {
		return nil, io.EOF
	}
	return raw, nil
}

func (c *fakeConn) Send(envelope domain.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend || c.closed {
		return errors.New("transport failure")
	}
	c.sent = append(c.sent, envelope)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.closeCode = code
	return nil
}

func (c *fakeConn) RemoteAddr() string { return c.addr }

// push scripts one inbound payload for Receive.
func (c *fakeConn) push(raw []byte) { c.inbound <- raw }

// finish makes the next Receive return an error, like a client disconnect.
func (c *fakeConn) finish() { close(c.inbound) }

func (c *fakeConn) breakSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSend = true
}

func (c *fakeConn) sentEnvelopes() []domain.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Envelope, len(c.sent))
	copy(out, c.sent)
	return out
}

// envelopesOfKind filters the recorded envelopes by wire kind.
func (c *fakeConn) envelopesOfKind(kind string) []domain.Envelope {
	var out []domain.Envelope
	for _, envelope := range c.sentEnvelopes() {
		if envelope.EnvelopeKind() == kind {
			out = append(out, envelope)
		}
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) closedWith() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode
}
