package web

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/auth"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/relay"
	"chat-relay/repositories"
	"chat-relay/services"
)

// testStack wires a full in-process relay on temporary storage.
type testStack struct {
	server   *httptest.Server
	registry *relay.Registry
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	log := slog.New(slog.DiscardHandler)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = blugeWriter.Close() })

	userRepository := repositories.NewUserRepository(db)
	sessionRepository := repositories.NewSessionRepository(db)
	messageRepository := repositories.NewMessageRepository(db, blugeWriter, log, nil)

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	authService := services.NewAuthService(userRepository, sessionRepository, tokens, log)

	stats := observability.NewStats()
	registry := relay.NewRegistry(log)
	broadcaster := relay.NewBroadcaster(registry, stats, log)

	moderator, err := moderation.NewModerator([]string{"badword"}, '*')
	require.NoError(t, err)

	chatService := services.NewChatService(messageRepository, userRepository, registry, log)
	router := relay.NewRouter(registry, broadcaster, authService, chatService, chatService,
		&moderator, stats, 2000, log)

	server := NewServer(Options{
		Host:                 "127.0.0.1",
		Port:                 0,
		ConnectionBufferSize: 16,
		DeliveryTimeout:      time.Second,
		ReadTimeout:          5 * time.Second,
	}, authService, chatService, router, registry, stats, log)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testStack{server: ts, registry: registry}
}

func (s *testStack) post(t *testing.T, path string, body any, header http.Header) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	for key, values := range header {
		req.Header[key] = values
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (s *testStack) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// registerAndLogin provisions an account and returns its session token.
func (s *testStack) registerAndLogin(t *testing.T, username, password string) string {
	t.Helper()
	resp := s.post(t, "/register", map[string]string{"username": username, "password": password}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = s.post(t, "/login", map[string]string{"username": username, "password": password}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	token, _ := body["session_token"].(string)
	require.NotEmpty(t, token)
	return token
}
