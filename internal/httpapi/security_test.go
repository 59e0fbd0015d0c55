package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := rec.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestCORSPreflightAllowsConfiguredOrigin(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Fatalf("expected allowed origin %q, got %q", testOrigin, got)
	}
}

func TestLoginRateLimitReturns429(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 6; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Username: "admin", Password: "wrong-pass"})
		if i < 5 && rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401 before limit, got %d", i+1, rec.Code)
		}
		if i == 5 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 6 expected 429, got %d", rec.Code)
		}
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	env := newTestEnv(t)
	veryLong := strings.Repeat("a", maxJSONBody+1024)
	body := fmt.Sprintf(`{"username":"%s","password":"x"}`, veryLong)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", []byte(body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", rec.Code)
	}
}

func TestRequireAuthRejectsMissingAndForgedTokens(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/v1/products", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/products", "not-a-jwt", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", rec.Code)
	}
}

func TestCashierRoleIsLimited(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "cashier", testCashierPassword)

	if rec := env.do(t, http.MethodGet, "/api/v1/products", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected cashier to read products, got %d", rec.Code)
	}

	forbidden := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/v1/products", domain.ProductCreateRequest{Name: "X", SKU: "X"}},
		{http.MethodGet, "/api/v1/users", nil},
		{http.MethodGet, "/api/v1/backup/export", nil},
		{http.MethodPost, "/api/v1/transactions", domain.TransactionCreateRequest{Type: domain.TransactionRefund}},
	}
	for _, tc := range forbidden {
		rec := env.do(t, tc.method, tc.path, token, tc.body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestStatusForHidesUnknownErrors(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("wrap: %w", store.ErrNotFound):           http.StatusNotFound,
		fmt.Errorf("wrap: %w", store.ErrInUse):              http.StatusConflict,
		fmt.Errorf("wrap: %w", store.ErrInvalidRecord):      http.StatusBadRequest,
		fmt.Errorf("wrap: %w", store.ErrStorageUnavailable): http.StatusServiceUnavailable,
		errors.New("disk on fire"):                          http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
