package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// adminAuth checks the admin password and tracks bearer tokens.
type adminAuth struct {
	hash    []byte
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	tokens map[string]time.Time
}

// newAdminAuth accepts either a plain password, which is hashed once here, or
// an existing bcrypt hash.
func newAdminAuth(password string, timeout time.Duration, now func() time.Time) (*adminAuth, error) {
	hash := []byte(password)
	if _, err := bcrypt.Cost(hash); err != nil {
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
	}
	return &adminAuth{hash: hash, timeout: timeout, now: now, tokens: make(map[string]time.Time)}, nil
}

// login issues a token when password matches.
func (a *adminAuth) login(password string) (string, time.Time, bool) {
	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return "", time.Time{}, false
	}
	token := uuid.New().String()
	expires := a.now().Add(a.timeout)
	a.mu.Lock()
	a.tokens[token] = expires
	a.mu.Unlock()
	return token, expires, true
}

func (a *adminAuth) valid(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	expires, ok := a.tokens[token]
	if !ok {
		return false
	}
	if a.now().After(expires) {
		delete(a.tokens, token)
		return false
	}
	return true
}

func (a *adminAuth) sweep() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	n := 0
	for t, expires := range a.tokens {
		if now.After(expires) {
			delete(a.tokens, t)
			n++
		}
	}
	return n
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !s.auth.valid(strings.TrimSpace(token)) {
			s.respondError(w, http.StatusUnauthorized, "admin authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
