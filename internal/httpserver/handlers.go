package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	authdomain "trailhead/backend/internal/domain/auth"
	tourdomain "trailhead/backend/internal/domain/tour"
	tourusecase "trailhead/backend/internal/usecase/tour"
	userusecase "trailhead/backend/internal/usecase/user"
)

func (s *Server) registerRoutes() {
	s.router.Handle("/health", http.HandlerFunc(s.handleHealth))

	s.router.Handle("/auth/signup", http.HandlerFunc(s.handleSignup))
	s.router.Handle("/auth/login", http.HandlerFunc(s.handleLogin))
	s.router.Handle("/auth/logout", http.HandlerFunc(s.handleLogout))
	s.router.Handle("/auth/forgot-password", http.HandlerFunc(s.handleForgotPassword))
	s.router.Handle("/auth/reset-password/", http.HandlerFunc(s.handleResetPassword))

	s.router.Handle("/auth/update-password", s.protect(http.HandlerFunc(s.handleUpdatePassword)))
	s.router.Handle("/users/me", s.protect(http.HandlerFunc(s.handleMe)))

	admin := func(h http.Handler) http.Handler {
		return s.protect(s.requireRole(authdomain.RoleAdmin)(h))
	}
	s.router.Handle("/admin/users", admin(http.HandlerFunc(s.handleAdminUsers)))
	s.router.Handle("/admin/users/", admin(http.HandlerFunc(s.handleAdminUserByID)))

	s.router.Handle("/tours", s.optionalIdentify(http.HandlerFunc(s.handleTours)))
	s.router.Handle("/tours/", s.optionalIdentify(http.HandlerFunc(s.handleTourByID)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	token, identity, err := s.authService.Signup(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrEmailExists):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, authdomain.ErrStoreUnavailable):
			writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  newIdentityView(identity),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	token, identity, err := s.authService.Login(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "incorrect email or password")
		case errors.Is(err, authdomain.ErrStoreUnavailable):
			writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  newIdentityView(identity),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(payload.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	err := s.authService.InitiatePasswordReset(r.Context(), payload.Email, s.publicBaseURL)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrNoSuchAccount):
			writeError(w, http.StatusNotFound, "there is no account with that email address")
		case errors.Is(err, authdomain.ErrNotificationFailed):
			writeError(w, http.StatusInternalServerError, "there was an error sending the email, please try again later")
		default:
			writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "please check your email for further steps",
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w, http.MethodPatch)
		return
	}

	secret := strings.Trim(strings.TrimPrefix(r.URL.Path, "/auth/reset-password/"), "/")
	if secret == "" {
		writeError(w, http.StatusBadRequest, "reset token required")
		return
	}

	var payload struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "password required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
		}
		return
	}

	token, identity, err := s.authService.CompletePasswordReset(r.Context(), secret, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrResetTokenInvalid):
			writeError(w, http.StatusBadRequest, "reset token is invalid or has expired")
		case errors.Is(err, authdomain.ErrStoreUnavailable):
			writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  newIdentityView(identity),
	})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch && r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPatch, http.MethodPost)
		return
	}

	identity, ok := currentIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "currentPassword and newPassword required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
		}
		return
	}

	token, err := s.authService.ChangePassword(r.Context(), identity.ID, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, authdomain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "current password is incorrect")
		case errors.Is(err, authdomain.ErrUnauthenticated):
			s.writeAuthError(w, err)
		case errors.Is(err, authdomain.ErrStoreUnavailable):
			writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"user": newIdentityView(identity)})
	case http.MethodPatch:
		var payload struct {
			Email    *string `json:"email"`
			Name     *string `json:"name"`
			Photo    *string `json:"photo"`
			Password *string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			if errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "update payload required")
			} else {
				writeError(w, http.StatusBadRequest, "invalid JSON payload")
			}
			return
		}
		if payload.Password != nil {
			writeError(w, http.StatusBadRequest, "passwords cannot be updated here, use /auth/update-password")
			return
		}

		updated, err := s.userService.UpdateProfile(r.Context(), identity.ID, userusecase.ProfileInput{
			Email: payload.Email,
			Name:  payload.Name,
			Photo: payload.Photo,
		})
		if err != nil {
			switch {
			case errors.Is(err, authdomain.ErrEmailExists):
				writeError(w, http.StatusConflict, err.Error())
			case errors.Is(err, authdomain.ErrIdentityNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			default:
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": newIdentityView(updated)})
	case http.MethodDelete:
		if err := s.userService.Deactivate(r.Context(), identity.ID); err != nil {
			if errors.Is(err, authdomain.ErrIdentityNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
			}
			return
		}
		s.clearSessionCookie(w)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := s.userService.List(r.Context(), userusecase.Filter{
			Role: r.URL.Query().Get("role"),
		})
		if err != nil {
			if errors.Is(err, authdomain.ErrInvalidRole) {
				writeError(w, http.StatusBadRequest, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": identityViews(users)})
	case http.MethodPost:
		var payload struct {
			Email    string `json:"email"`
			Name     string `json:"name"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			if errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "email and password are required")
			} else {
				writeError(w, http.StatusBadRequest, "invalid JSON payload")
			}
			return
		}

		user, err := s.userService.Create(r.Context(), userusecase.CreateInput{
			Email:    payload.Email,
			Name:     payload.Name,
			Password: payload.Password,
			Role:     payload.Role,
		})
		if err != nil {
			switch {
			case errors.Is(err, authdomain.ErrEmailExists):
				writeError(w, http.StatusConflict, err.Error())
			case errors.Is(err, authdomain.ErrInvalidRole):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": newIdentityView(user)})
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleAdminUserByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/users/"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "user id required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.userService.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, authdomain.ErrIdentityNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": newIdentityView(user)})
	case http.MethodPut, http.MethodPatch:
		var payload struct {
			Email *string `json:"email"`
			Name  *string `json:"name"`
			Photo *string `json:"photo"`
			Role  *string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			if errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "update payload required")
			} else {
				writeError(w, http.StatusBadRequest, "invalid JSON payload")
			}
			return
		}

		user, err := s.userService.Update(r.Context(), id, userusecase.UpdateInput{
			Email: payload.Email,
			Name:  payload.Name,
			Photo: payload.Photo,
			Role:  payload.Role,
		})
		if err != nil {
			switch {
			case errors.Is(err, authdomain.ErrIdentityNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, authdomain.ErrInvalidRole):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, authdomain.ErrEmailExists):
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": newIdentityView(user)})
	case http.MethodDelete:
		if err := s.userService.Deactivate(r.Context(), id); err != nil {
			if errors.Is(err, authdomain.ErrIdentityNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (s *Server) handleTours(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		items, err := s.tourService.List(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
			return
		}
		response := map[string]any{"items": items}
		if viewer, ok := currentIdentityFromContext(ctx); ok {
			response["viewer"] = newIdentityView(viewer)
		}
		writeJSON(w, http.StatusOK, response)
	case http.MethodPost:
		if !s.authorize(w, r, authdomain.RoleAdmin, authdomain.RoleLeadGuide) {
			return
		}
		var payload tourusecase.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		item, err := s.tourService.Create(ctx, payload)
		if err != nil {
			if errors.Is(err, tourdomain.ErrDuplicateSlug) {
				writeError(w, http.StatusConflict, err.Error())
			} else {
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusCreated, item)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleTourByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tours/"), "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "tour id required")
		return
	}

	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		item, err := s.tourService.Get(ctx, id)
		if err != nil {
			if errors.Is(err, tourdomain.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
			}
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPut, http.MethodPatch:
		if !s.authorize(w, r, authdomain.RoleAdmin, authdomain.RoleLeadGuide) {
			return
		}
		var payload tourusecase.UpdateInput
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		item, err := s.tourService.Update(ctx, id, payload)
		if err != nil {
			switch {
			case errors.Is(err, tourdomain.ErrNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, tourdomain.ErrDuplicateSlug):
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusBadRequest, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if !s.authorize(w, r, authdomain.RoleAdmin, authdomain.RoleLeadGuide) {
			return
		}
		if err := s.tourService.Delete(ctx, id); err != nil {
			if errors.Is(err, tourdomain.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

// writeAuthError maps identity gate failures to transport responses without
// leaking internals.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authdomain.ErrStoreUnavailable):
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again later")
	default:
		writeError(w, http.StatusUnauthorized, "invalid or expired session, please log in again")
	}
}

// identityView is the public projection of an identity.
type identityView struct {
	ID    string          `json:"id"`
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Photo string          `json:"photo"`
	Role  authdomain.Role `json:"role"`
}

func newIdentityView(identity *authdomain.Identity) identityView {
	return identityView{
		ID:    identity.ID,
		Email: identity.Email,
		Name:  identity.Name,
		Photo: identity.Photo,
		Role:  identity.Role,
	}
}

func identityViews(identities []*authdomain.Identity) []identityView {
	out := make([]identityView, 0, len(identities))
	for _, identity := range identities {
		out = append(out, newIdentityView(identity))
	}
	return out
}
