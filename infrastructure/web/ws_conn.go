package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chat-relay/domain"
	"chat-relay/relay"

	"github.com/gorilla/websocket"
)

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("outbound queue full")
)

// wsConn adapts a gorilla websocket connection to relay.Conn. All outbound
// envelopes funnel through one buffered channel drained by a single write
// pump, so writes to the socket are strictly ordered and a broadcast can
// never interleave with a direct send. Send is bounded by the delivery
// timeout; a recipient that cannot drain its queue in time is treated as
// failed rather than allowed to stall the caller.
type wsConn struct {
	conn            *websocket.Conn
	send            chan []byte
	done            chan struct{}
	closeOnce       sync.Once
	deliveryTimeout time.Duration
	readTimeout     time.Duration
	log             *slog.Logger
}

func newWSConn(conn *websocket.Conn, bufferSize int, deliveryTimeout, readTimeout time.Duration, log *slog.Logger) *wsConn {
	// Handlers are plain struct fields on the gorilla connection; install the
	// pong handler here, before either pump runs.
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	return &wsConn{
		conn:            conn,
		send:            make(chan []byte, bufferSize),
		done:            make(chan struct{}),
		deliveryTimeout: deliveryTimeout,
		readTimeout:     readTimeout,
		log:             log,
	}
}

// Receive blocks for the next text frame. The read deadline is refreshed on
// every read and on every pong, so a silent peer times out and the router
// runs its normal teardown.
func (c *wsConn) Receive() ([]byte, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *wsConn) Send(envelope domain.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errConnClosed
	case <-time.After(c.deliveryTimeout):
		return errSlowConsumer
	}
}

// Close tears the transport down exactly once. A close control frame with
// the given code is attempted first, best-effort; closing a dead socket
// must never fail the surrounding operation.
func (c *wsConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline)
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// writePump is the only goroutine writing data frames to the socket. It
// drains the outbound queue and keeps the connection alive with pings; a
// write failure closes the connection, which unblocks the reader.
func (c *wsConn) writePump() {
	pingPeriod := c.readTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close(relay.CloseGoingAway, "")
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.deliveryTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("write failed", "addr", c.RemoteAddr(), "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.deliveryTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
