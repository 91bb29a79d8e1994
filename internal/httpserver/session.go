package httpserver

import (
	"net/http"
	"strings"
	"time"
)

// sessionCookieName is the cookie carrying the bearer token for browser
// clients; API clients send the same token in the Authorization header.
const sessionCookieName = "session"

// loggedOutSentinel replaces the token on logout. Stateless tokens cannot be
// revoked server-side, so logout just overwrites the cookie with a value the
// extractor ignores.
const loggedOutSentinel = "loggedout"

// tokenFromRequest extracts the session token from the bearer header or,
// failing that, the session cookie.
func tokenFromRequest(r *http.Request) string {
	if token := extractBearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if cookie.Value != "" && cookie.Value != loggedOutSentinel {
			return cookie.Value
		}
	}
	return ""
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.tokenLifetime),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    loggedOutSentinel,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
