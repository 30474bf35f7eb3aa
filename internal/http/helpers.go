package http

import (
	"net/http"
	"strings"

	"financas/internal/middleware/trace"
)

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func requestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}
