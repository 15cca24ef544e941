package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/manualshelf/manualshelf-server/internal/http/response"
)

// sessionPath is where clients exchange the sync passphrase for a token.
const sessionPath = "/api/v1/session"

// isPublicPath reports whether path is served without a session.
func isPublicPath(path string) bool {
	switch {
	case path == "/health", path == sessionPath:
		return true
	case path == "/docs", strings.HasPrefix(path, "/openapi"), strings.HasPrefix(path, "/schemas/"):
		return true
	default:
		return false
	}
}

// requireSession validates the bearer token when a sync account is
// configured. Without an account the shelf is open. The event stream may
// pass the token as ?token= because EventSource cannot set headers.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := s.services.Account.Account()
		if account == nil || !account.Exists() || r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			response.Unauthorized(w, "Missing authorization header", s.logger)
			return
		}
		if err := account.Authorize(token); err != nil {
			response.Unauthorized(w, "Invalid or expired token", s.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || scheme != "Bearer" || token == "" {
			return "", false
		}
		return token, true
	}
	if r.URL.Path == "/api/v1/events" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// rejectWritesWhenReadOnly refuses mutations on a read-only deployment.
// Creating a session and the sync actions are still allowed.
func (s *Server) rejectWritesWhenReadOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := s.services.Account.Account()
		if account == nil || !account.ReadOnly() || r.URL.Path == sessionPath || strings.HasPrefix(r.URL.Path, "/api/v1/sync/") {
			next.ServeHTTP(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			response.Forbidden(w, "The shelf is read-only", s.logger)
		}
	})
}

// rateLimit limits requests per client IP. Returns 429 when exceeded.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := clientIP(r.RemoteAddr)
		if !s.limiter.Allow(key) {
			s.logger.Warn("Rate limit exceeded",
				"ip", key,
				"path", r.URL.Path,
			)
			response.TooManyRequests(w, "Too many requests. Please try again later.", s.logger)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from a remote address. RealIP has already
// applied X-Forwarded-For and X-Real-IP.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
