package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/samber/lo"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userPayload struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.authService.Register(req.Username, req.Password)
	if err != nil {
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user": userPayload{
			ID:        user.ID,
			Username:  user.Username,
			CreatedAt: user.CreatedAt,
		},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Login successful",
		"session_token": result.Token,
		"user": userPayload{
			ID:        result.User.ID,
			Username:  result.User.Username,
			CreatedAt: result.User.CreatedAt,
		},
		"expires_at": result.ExpiresAt,
	})
}

// handleLogout always reports success: a token that no longer resolves is
// already logged out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "No session token provided")
		return
	}

	if err := s.authService.Logout(token); err != nil {
		s.log.Warn("logout failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out successfully"})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.chatService.ListUsers()
	if err != nil {
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGlobalMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.chatService.GlobalHistory()
	if err != nil {
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	type messagePayload struct {
		ID      string    `json:"id"`
		Content string    `json:"content"`
		Sender  string    `json:"sender"`
		Lang    string    `json:"lang,omitempty"`
		At      time.Time `json:"at"`
	}
	writeJSON(w, http.StatusOK, lo.Map(messages, func(m domain.Message, _ int) messagePayload {
		return messagePayload{
			ID:      m.ID.String(),
			Content: m.Content,
			Sender:  m.Sender,
			Lang:    m.Lang,
			At:      m.CreatedAt,
		}
	}))
}

func (s *Server) handleSearchMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing query parameter q")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	if user, ok := userFromContext(r.Context()); ok {
		s.log.Debug("message search", "username", user.Username, "query", query)
	}

	hits, err := s.chatService.SearchMessages(r.Context(), query, limit)
	if err != nil {
		writeError(w, errors.MapToHTTPStatus(err), err.Error())
		return
	}

	type hitPayload struct {
		ID      string    `json:"id"`
		Content string    `json:"content"`
		Sender  string    `json:"sender"`
		At      time.Time `json:"at"`
	}
	payload := make([]hitPayload, 0, len(hits))
	for _, hit := range hits {
		payload = append(payload, hitPayload{ID: hit.ID, Content: hit.Content, Sender: hit.Sender, At: hit.At})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot(s.registry.Count()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}
