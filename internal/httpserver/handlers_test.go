package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trailhead/backend/internal/config"
	authdomain "trailhead/backend/internal/domain/auth"
	"trailhead/backend/internal/infrastructure/memory"
	"trailhead/backend/internal/infrastructure/password"
	"trailhead/backend/internal/infrastructure/token"
	authusecase "trailhead/backend/internal/usecase/auth"
	tourusecase "trailhead/backend/internal/usecase/tour"
	userusecase "trailhead/backend/internal/usecase/user"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type captureNotifier struct {
	lastURL string
}

func (n *captureNotifier) SendPasswordResetLink(_ context.Context, _ *authdomain.Identity, url string) error {
	n.lastURL = url
	return nil
}

type testServer struct {
	*Server
	identities *memory.IdentityRepository
	notifier   *captureNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop().Sugar()
	identities := memory.NewIdentityRepository()
	hasher := password.NewBcryptHasher(bcrypt.MinCost)
	tokens := token.NewJWTManager("test-secret", time.Hour, "trailhead")
	notifier := &captureNotifier{}

	authService := authusecase.NewService(identities, tokens, hasher, notifier, 10*time.Minute, logger)
	userService := userusecase.NewService(identities, hasher)
	tourService := tourusecase.NewService(memory.NewTourRepository())

	cfg := config.Config{
		HTTPPort:        "0",
		PublicBaseURL:   "https://trailhead.example",
		JWTExpiry:       time.Hour,
		AllowedOrigins:  []string{"*"},
		ReadTimeoutSec:  5,
		WriteTimeoutSec: 10,
		IdleTimeoutSec:  60,
	}

	return &testServer{
		Server:     NewServer(cfg, authService, userService, tourService, logger),
		identities: identities,
		notifier:   notifier,
	}
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// signup registers an account and returns its session token and id.
func (ts *testServer) signup(t *testing.T, email, pass string) (tokenString, id string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": pass, "name": "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

// promote flips the stored role directly; role assignment over HTTP needs an
// admin, and the first admin has to come from somewhere.
func (ts *testServer) promote(t *testing.T, id string, role authdomain.Role) {
	t.Helper()
	identity, err := ts.identities.GetByID(context.Background(), id)
	require.NoError(t, err)
	identity.Role = role
	require.NoError(t, ts.identities.Update(context.Background(), identity))
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestSignupSetsSessionCookie(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "a@b.com", "password": "Secret123", "name": "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	require.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	require.Equal(t, "a@b.com", user["email"])
	require.Equal(t, "member", user["role"])
	require.NotContains(t, rec.Body.String(), "passwordHash")

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	require.Equal(t, body["token"], cookie.Value)
	require.True(t, cookie.HttpOnly)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "a@b.com", "Secret123")

	wrongPass := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@b.com", "password": "WrongPass",
	})
	unknown := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@b.com", "password": "Secret123",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, wrongPass.Body.String(), unknown.Body.String())
	require.Contains(t, wrongPass.Body.String(), "incorrect email or password")
}

func TestProtectRejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "not logged in")
}

func TestProtectRejectsGarbageToken(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/users/me", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectAcceptsBearerToken(t *testing.T) {
	ts := newTestServer(t)
	tokenString, _ := ts.signup(t, "a@b.com", "Secret123")

	rec := ts.do(t, http.MethodGet, "/users/me", tokenString, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decodeBody(t, rec)["user"].(map[string]any)
	require.Equal(t, "a@b.com", user["email"])
}

func TestProtectAcceptsSessionCookie(t *testing.T) {
	ts := newTestServer(t)
	tokenString, _ := ts.signup(t, "a@b.com", "Secret123")

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tokenString})
	rec := httptest.NewRecorder()
	ts.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLogoutOverwritesCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	require.Equal(t, loggedOutSentinel, cookie.Value)
	require.WithinDuration(t, time.Now(), cookie.Expires, time.Minute)

	// The sentinel must not pass for a token.
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	ts.httpServer.Handler.ServeHTTP(out, req)
	require.Equal(t, http.StatusUnauthorized, out.Code)
}

func TestMeRejectsPasswordUpdate(t *testing.T) {
	ts := newTestServer(t)
	tokenString, _ := ts.signup(t, "a@b.com", "Secret123")

	rec := ts.do(t, http.MethodPatch, "/users/me", tokenString, map[string]string{
		"password": "Sneaky456",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "/auth/update-password")
}

func TestMeProfileUpdate(t *testing.T) {
	ts := newTestServer(t)
	tokenString, _ := ts.signup(t, "a@b.com", "Secret123")

	rec := ts.do(t, http.MethodPatch, "/users/me", tokenString, map[string]string{
		"name": "Renamed User",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decodeBody(t, rec)["user"].(map[string]any)
	require.Equal(t, "Renamed User", user["name"])
}

func TestDeleteMeDeactivatesAccount(t *testing.T) {
	ts := newTestServer(t)
	tokenString, _ := ts.signup(t, "a@b.com", "Secret123")

	rec := ts.do(t, http.MethodDelete, "/users/me", tokenString, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	require.Equal(t, loggedOutSentinel, cookie.Value)

	// Deactivated accounts cannot log in again.
	login := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@b.com", "password": "Secret123",
	})
	require.Equal(t, http.StatusUnauthorized, login.Code)
}

func TestUpdatePassword(t *testing.T) {
	ts := newTestServer(t)
	tokenString, _ := ts.signup(t, "a@b.com", "Secret123")

	wrong := ts.do(t, http.MethodPatch, "/auth/update-password", tokenString, map[string]string{
		"currentPassword": "WrongPass", "newPassword": "NewPass456",
	})
	require.Equal(t, http.StatusUnauthorized, wrong.Code)

	rec := ts.do(t, http.MethodPatch, "/auth/update-password", tokenString, map[string]string{
		"currentPassword": "Secret123", "newPassword": "NewPass456",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, decodeBody(t, rec)["token"])

	login := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@b.com", "password": "NewPass456",
	})
	require.Equal(t, http.StatusOK, login.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": "nobody@b.com",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "no account with that email")
}

func TestResetPasswordFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "a@b.com", "Secret123")

	rec := ts.do(t, http.MethodPost, "/auth/forgot-password", "", map[string]string{
		"email": "a@b.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, strings.HasPrefix(ts.notifier.lastURL, "https://trailhead.example/auth/reset-password/"))

	secret := ts.notifier.lastURL[strings.LastIndexByte(ts.notifier.lastURL, '/')+1:]
	reset := ts.do(t, http.MethodPatch, "/auth/reset-password/"+secret, "", map[string]string{
		"password": "Fresh789",
	})
	require.Equal(t, http.StatusOK, reset.Code, reset.Body.String())
	require.NotEmpty(t, decodeBody(t, reset)["token"])

	login := ts.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@b.com", "password": "Fresh789",
	})
	require.Equal(t, http.StatusOK, login.Code)

	// The secret is one-time.
	reuse := ts.do(t, http.MethodPatch, "/auth/reset-password/"+secret, "", map[string]string{
		"password": "Again000",
	})
	require.Equal(t, http.StatusBadRequest, reuse.Code)
	require.Contains(t, reuse.Body.String(), "invalid or has expired")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	ts := newTestServer(t)
	memberToken, _ := ts.signup(t, "member@b.com", "Secret123")
	adminToken, adminID := ts.signup(t, "admin@b.com", "Secret123")
	ts.promote(t, adminID, authdomain.RoleAdmin)

	anon := ts.do(t, http.MethodGet, "/admin/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, anon.Code)

	member := ts.do(t, http.MethodGet, "/admin/users", memberToken, nil)
	require.Equal(t, http.StatusForbidden, member.Code)
	require.Contains(t, member.Body.String(), "not authorized")

	admin := ts.do(t, http.MethodGet, "/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, admin.Code, admin.Body.String())
	users := decodeBody(t, admin)["users"].([]any)
	require.Len(t, users, 2)
}

func TestAdminUserManagement(t *testing.T) {
	ts := newTestServer(t)
	adminToken, adminID := ts.signup(t, "admin@b.com", "Secret123")
	ts.promote(t, adminID, authdomain.RoleAdmin)

	created := ts.do(t, http.MethodPost, "/admin/users", adminToken, map[string]string{
		"email": "guide@b.com", "name": "New Guide", "password": "Secret123", "role": "guide",
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	guide := decodeBody(t, created)["user"].(map[string]any)
	require.Equal(t, "guide", guide["role"])
	guideID := guide["id"].(string)

	badRole := ts.do(t, http.MethodPost, "/admin/users", adminToken, map[string]string{
		"email": "x@b.com", "password": "Secret123", "role": "superuser",
	})
	require.Equal(t, http.StatusBadRequest, badRole.Code)

	promoted := ts.do(t, http.MethodPatch, "/admin/users/"+guideID, adminToken, map[string]string{
		"role": "leadGuide",
	})
	require.Equal(t, http.StatusOK, promoted.Code, promoted.Body.String())
	require.Equal(t, "leadGuide", decodeBody(t, promoted)["user"].(map[string]any)["role"])

	deleted := ts.do(t, http.MethodDelete, "/admin/users/"+guideID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, deleted.Code)

	missing := ts.do(t, http.MethodGet, "/admin/users/"+guideID, adminToken, nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestToursPublicReadGuardedWrite(t *testing.T) {
	ts := newTestServer(t)
	memberToken, _ := ts.signup(t, "member@b.com", "Secret123")
	leadToken, leadID := ts.signup(t, "lead@b.com", "Secret123")
	ts.promote(t, leadID, authdomain.RoleLeadGuide)

	// Anonymous read works and carries no viewer.
	anon := ts.do(t, http.MethodGet, "/tours", "", nil)
	require.Equal(t, http.StatusOK, anon.Code)
	require.NotContains(t, decodeBody(t, anon), "viewer")

	// Identified read is personalized.
	identified := ts.do(t, http.MethodGet, "/tours", memberToken, nil)
	require.Equal(t, http.StatusOK, identified.Code)
	viewer := decodeBody(t, identified)["viewer"].(map[string]any)
	require.Equal(t, "member@b.com", viewer["email"])

	payload := map[string]any{"name": "The Forest Hiker", "price": 397, "difficulty": "easy"}

	denied := ts.do(t, http.MethodPost, "/tours", memberToken, payload)
	require.Equal(t, http.StatusForbidden, denied.Code)

	anonWrite := ts.do(t, http.MethodPost, "/tours", "", payload)
	require.Equal(t, http.StatusUnauthorized, anonWrite.Code)

	created := ts.do(t, http.MethodPost, "/tours", leadToken, payload)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	tourID := decodeBody(t, created)["id"].(string)

	fetched := ts.do(t, http.MethodGet, fmt.Sprintf("/tours/%s", tourID), "", nil)
	require.Equal(t, http.StatusOK, fetched.Code)

	removed := ts.do(t, http.MethodDelete, fmt.Sprintf("/tours/%s", tourID), leadToken, nil)
	require.Equal(t, http.StatusNoContent, removed.Code)
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestExtractBearerToken(t *testing.T) {
	require.Equal(t, "abc", extractBearerToken("Bearer abc"))
	require.Equal(t, "abc", extractBearerToken("bearer abc"))
	require.Equal(t, "", extractBearerToken(""))
	require.Equal(t, "", extractBearerToken("Basic abc"))
	require.Equal(t, "", extractBearerToken("Bearerabc"))
}
