package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	authdomain "trailhead/backend/internal/domain/auth"
	authusecase "trailhead/backend/internal/usecase/auth"
)

type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Infow("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"size", recorder.size,
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		)
	})
}

func withCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isOriginAllowed(origin, allowedOrigins) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		if candidate == "*" {
			return true
		}
		if strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}

type ctxKeyIdentity struct{}

// protect halts the chain with 401 unless the request carries a verifiable
// session for a live identity; the resolved identity lands in the request
// context for downstream handlers.
func (s *Server) protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "you are not logged in, please log in to get access")
			return
		}

		identity, err := s.authService.VerifySession(r.Context(), token)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyIdentity{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalIdentify resolves the session when possible and proceeds
// regardless. It exists for personalization only and never rejects a request.
func (s *Server) optionalIdentify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := tokenFromRequest(r); token != "" {
			if identity := s.authService.OptionalIdentify(r.Context(), token); identity != nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxKeyIdentity{}, identity))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole halts the chain with 403 unless the context identity holds one
// of the allowed roles. It must run inside protect or optionalIdentify.
func (s *Server) requireRole(roles ...authdomain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.authorize(w, r, roles...) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize is the in-handler form of requireRole for routes where only some
// methods are restricted.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, roles ...authdomain.Role) bool {
	identity, ok := currentIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "you are not logged in, please log in to get access")
		return false
	}
	if err := authusecase.Authorize(identity, roles...); err != nil {
		writeError(w, http.StatusForbidden, "you are not authorized to perform this action")
		return false
	}
	return true
}

func currentIdentityFromContext(ctx context.Context) (*authdomain.Identity, bool) {
	identity, ok := ctx.Value(ctxKeyIdentity{}).(*authdomain.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
