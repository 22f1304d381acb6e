package web

import (
	"net/http"

	"chat-relay/relay"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Tokens are the admission gate; the relay accepts browser clients from
	// any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the transport and hands the connection to the
// router's state machine. The raw token travels with the request
// (ws://host/ws?token=...); verification happens inside Serve so a failed
// authentication closes with its distinguishing code, never an HTTP error.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	wc := newWSConn(conn, s.connectionBufferSize, s.deliveryTimeout, s.readTimeout, s.log)
	go wc.writePump()

	s.router.Serve(r.Context(), wc, token)
	_ = wc.Close(relay.CloseNormal, "")
}
