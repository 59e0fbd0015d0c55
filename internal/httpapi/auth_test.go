package httpapi

import (
	"context"
	"net/http"
	"testing"

	"kasirlokal/internal/appstate"
	"kasirlokal/internal/domain"
)

type sessionResponse struct {
	Authenticated bool `json:"authenticated"`
	Session       struct {
		Username string      `json:"username"`
		Role     domain.Role `json:"role"`
	} `json:"session"`
}

func TestLoginPersistsTerminalSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testAdminPassword)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/session", token, nil)
	var body sessionResponse
	decodeBody(t, rec, &body)
	if !body.Authenticated || body.Session.Username != "admin" || body.Session.Role != domain.RoleAdmin {
		t.Fatalf("unexpected session %+v", body)
	}

	restarted := appstate.New(env.store, env.auth, nil)
	restored, err := restarted.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !restored {
		t.Fatalf("expected persisted session to survive a restart")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Username: "admin", Password: "nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin", testAdminPassword)

	inactive := false
	rec := env.do(t, http.MethodPatch, "/api/v1/users/usr-cashier", admin, domain.UserUpdateRequest{Active: &inactive})
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Username: "cashier", Password: testCashierPassword})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive account, got %d", rec.Code)
	}
}

func TestLogoutForgetsSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "cashier", testCashierPassword)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/auth/session", token, nil)
	var body sessionResponse
	decodeBody(t, rec, &body)
	if body.Authenticated {
		t.Fatalf("expected no terminal session after logout")
	}

	restored, err := appstate.New(env.store, env.auth, nil).Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored {
		t.Fatalf("expected nothing to restore after logout")
	}
}

func TestSessionDoesNotExposeToken(t *testing.T) {
	env := newTestEnv(t)
	cashier := env.login(t, "cashier", testCashierPassword)
	env.login(t, "admin", testAdminPassword)

	rec := env.do(t, http.MethodGet, "/api/v1/auth/session", cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Session map[string]any `json:"session"`
	}
	decodeBody(t, rec, &body)
	if body.Session["role"] != string(domain.RoleAdmin) {
		t.Fatalf("expected admin terminal session, got %v", body.Session)
	}
	if _, leaked := body.Session["token"]; leaked {
		t.Fatalf("session response exposes the bearer token: %v", body.Session)
	}
}
