package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultOTPCode is the one-time code the fake provider accepts.
const DefaultOTPCode = "123456"

const tokenTTLSeconds = 3600

// identity is a tiny GoTrue: accounts by email, opaque access tokens, and
// a single accepted one-time code.
type identity struct {
	code string

	mu       sync.Mutex
	accounts map[string]string // email -> user id
	tokens   map[string]string // access token -> user id
	pending  map[string]bool   // emails with a requested code
}

func newIdentity(code string) *identity {
	return &identity{
		code:     code,
		accounts: make(map[string]string),
		tokens:   make(map[string]string),
		pending:  make(map[string]bool),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (id *identity) issue(email string) (token, userID string) {
	email = normalizeEmail(email)
	id.mu.Lock()
	defer id.mu.Unlock()

	userID, ok := id.accounts[email]
	if !ok {
		userID = uuid.NewString()
		id.accounts[email] = userID
	}
	token = uuid.NewString()
	id.tokens[token] = userID
	return token, userID
}

func (id *identity) user(token string) (string, bool) {
	id.mu.Lock()
	defer id.mu.Unlock()
	userID, ok := id.tokens[token]
	return userID, ok
}

func (id *identity) request(email string) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.pending[normalizeEmail(email)] = true
}

func (id *identity) redeem(email, code string) bool {
	email = normalizeEmail(email)
	id.mu.Lock()
	defer id.mu.Unlock()
	if !id.pending[email] || code != id.code {
		return false
	}
	delete(id.pending, email)
	return true
}

func (id *identity) revoke(token string) {
	id.mu.Lock()
	defer id.mu.Unlock()
	delete(id.tokens, token)
}

type userCtxKey struct{}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userCtxKey{}, userID)
}

func userFrom(ctx context.Context) string {
	userID, _ := ctx.Value(userCtxKey{}).(string)
	return userID
}

func writeProviderError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"code": status, "msg": msg})
}

func (s *Server) handleOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !strings.Contains(body.Email, "@") {
		writeProviderError(w, http.StatusBadRequest, "Unable to validate email address: invalid format")
		return
	}
	s.auth.request(body.Email)
	s.logger.Info("sign-in code requested",
		"email", normalizeEmail(body.Email),
		"code", s.auth.code,
		"redirect_to", r.URL.Query().Get("redirect_to"))
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type  string `json:"type"`
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProviderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !s.auth.redeem(body.Email, strings.TrimSpace(body.Token)) {
		writeProviderError(w, http.StatusForbidden, "Token has expired or is invalid")
		return
	}

	token, userID := s.auth.issue(body.Email)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  token,
		"refresh_token": uuid.NewString(),
		"token_type":    "bearer",
		"expires_in":    tokenTTLSeconds,
		"user":          map[string]string{"id": userID, "email": normalizeEmail(body.Email)},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		s.auth.revoke(token)
	}
	w.WriteHeader(http.StatusNoContent)
}
