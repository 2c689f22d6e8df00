package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gatehouse-io/gatehouse/internal/api"
	"github.com/gatehouse-io/gatehouse/internal/api/handlers"
	"github.com/gatehouse-io/gatehouse/internal/auth"
	"github.com/gatehouse-io/gatehouse/internal/database"
	"github.com/gatehouse-io/gatehouse/internal/services"
)

// recordingMailer captures outgoing mail instead of delivering it.
type recordingMailer struct {
	bodies []string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	if len(m.bodies) == 0 {
		t.Fatalf("expected at least one mail")
	}
	body := m.bodies[len(m.bodies)-1]
	idx := strings.LastIndex(body, "/")
	if idx < 0 {
		t.Fatalf("no link in mail body: %q", body)
	}
	return body[idx+1:]
}

type testServer struct {
	router http.Handler
	db     *sql.DB
	mail   *recordingMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mail := &recordingMailer{}
	tokens := auth.NewTokenService("test-secret")
	store := services.NewUserStore(db)
	svc := services.NewAuthService(store, tokens, mail, "http://localhost:5000")

	handler := handlers.NewAuthHandler(svc, false)
	return &testServer{
		router: api.NewRouter(handler, tokens, "http://localhost:3000"),
		db:     db,
		mail:   mail,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body["message"]
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	// Signup creates an unverified account and mails a verification link.
	rec := ts.do(t, http.MethodPost, "/api/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"pw1"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: got %d, body %s", rec.Code, rec.Body.String())
	}

	// Login before verification is rejected.
	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"email":"ann@x.com","password":"pw1"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unverified login: got %d", rec.Code)
	}
	if got := message(t, rec); got != "Please verify your email" {
		t.Fatalf("unexpected message: %q", got)
	}

	// Consume the verification link.
	verifyToken := ts.mail.lastToken(t)
	rec = ts.do(t, http.MethodGet, "/api/auth/verify/"+verifyToken, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: got %d, body %s", rec.Code, rec.Body.String())
	}

	// Login now succeeds and returns the token in body and cookie.
	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"email":"ann@x.com","password":"pw1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", rec.Code, rec.Body.String())
	}
	var loginBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &loginBody); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	token := loginBody["token"]
	if token == "" {
		t.Fatalf("no token in login body")
	}
	cookies := rec.Result().Cookies()
	var tokenCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == "token" {
			tokenCookie = c
		}
	}
	if tokenCookie == nil {
		t.Fatalf("no token cookie set")
	}
	if !tokenCookie.HttpOnly {
		t.Fatalf("token cookie must be HTTP-only")
	}
	if tokenCookie.Value != token {
		t.Fatalf("cookie and body token differ")
	}

	// Profile requires the bearer token.
	rec = ts.do(t, http.MethodGet, "/api/auth/profile", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("profile without token: got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/auth/profile", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: got %d, body %s", rec.Code, rec.Body.String())
	}

	// A plain user is kept out of the admin route.
	rec = ts.do(t, http.MethodGet, "/api/auth/admin", "", token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin as user: got %d", rec.Code)
	}

	// Promote and log in again for a token carrying the admin role.
	if _, err := ts.db.Exec("UPDATE users SET role = 'admin' WHERE email = ?", "ann@x.com"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"email":"ann@x.com","password":"pw1"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login: got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &loginBody); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	rec = ts.do(t, http.MethodGet, "/api/auth/admin", "", loginBody["token"])
	if rec.Code != http.StatusOK {
		t.Fatalf("admin as admin: got %d, body %s", rec.Code, rec.Body.String())
	}
	if got := message(t, rec); got != "Welcome Admin" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"pw1"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"pw1"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: got %d", rec.Code)
	}
}

func TestInvalidRequestBody(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/auth/signup", "/api/auth/login", "/api/auth/forgot-password", "/api/auth/reset-password"} {
		rec := ts.do(t, http.MethodPost, path, `{not json`, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s with bad body: got %d", path, rec.Code)
		}
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"nobody@x.com"}`, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("forgot-password: got %d", rec.Code)
	}
	if got := message(t, rec); got != "User not found" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"pw1"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: got %d", rec.Code)
	}
	verifyToken := ts.mail.lastToken(t)
	if rec = ts.do(t, http.MethodGet, "/api/auth/verify/"+verifyToken, "", ""); rec.Code != http.StatusOK {
		t.Fatalf("verify: got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"ann@x.com"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot-password: got %d", rec.Code)
	}
	resetToken := ts.mail.lastToken(t)

	rec = ts.do(t, http.MethodPost, "/api/auth/reset-password", `{"token":"`+resetToken+`","newPassword":"pw2"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset-password: got %d, body %s", rec.Code, rec.Body.String())
	}

	// Old password no longer works, new one does.
	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"email":"ann@x.com","password":"pw1"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password: got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"email":"ann@x.com","password":"pw2"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("new password: got %d", rec.Code)
	}

	// Consumed reset tokens are rejected on reuse.
	rec = ts.do(t, http.MethodPost, "/api/auth/reset-password", `{"token":"`+resetToken+`","newPassword":"pw3"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("token reuse: got %d", rec.Code)
	}
	if got := message(t, rec); got != "Token is invalid or expired" {
		t.Fatalf("unexpected message: %q", got)
	}
}
