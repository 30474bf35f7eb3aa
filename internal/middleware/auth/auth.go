// Package auth gates the API behind a static bearer token.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

// Gate checks the Authorization header against a configured token.
type Gate struct {
	digest   [32]byte
	enabled  bool
	denied   int64
	onDenied func(http.ResponseWriter, *http.Request)
}

// NewGate creates a gate for token. An empty token disables the check.
// onDenied writes the 401 body; nil writes a plain one.
func NewGate(token string, onDenied func(http.ResponseWriter, *http.Request)) *Gate {
	token = strings.TrimSpace(token)
	return &Gate{
		digest:   sha256.Sum256([]byte(token)),
		enabled:  token != "",
		onDenied: onDenied,
	}
}

func (g *Gate) Enabled() bool {
	return g.enabled
}

// Authorized reports whether r carries the configured bearer token.
func (g *Gate) Authorized(r *http.Request) bool {
	if !g.enabled {
		return true
	}
	scheme, presented, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	// Equal-length digests make the compare constant time.
	d := sha256.Sum256([]byte(strings.TrimSpace(presented)))
	return subtle.ConstantTimeCompare(d[:], g.digest[:]) == 1
}

// Denied returns how many requests were rejected.
func (g *Gate) Denied() int64 {
	return atomic.LoadInt64(&g.denied)
}

// Middleware rejects unauthorized requests with 401 before they reach next.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Authorized(r) {
			next.ServeHTTP(w, r)
			return
		}

		atomic.AddInt64(&g.denied, 1)
		slog.WarnContext(r.Context(), "Unauthorized request",
			"component", "auth",
			"method", r.Method,
			"path", r.URL.Path)

		w.Header().Set("WWW-Authenticate", `Bearer realm="financas"`)
		if g.onDenied != nil {
			g.onDenied(w, r)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}
