package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	a := New("test-secret")
	token, err := a.Issue("user-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sub, err := a.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "user-1" {
		t.Errorf("expected subject user-1, got %s", sub)
	}
}

func TestVerify_Rejects(t *testing.T) {
	a := New("test-secret")

	expired, _ := a.Issue("user-1", -time.Minute)
	wrongKey, _ := New("other-secret").Issue("user-1", time.Hour)
	noSubject, _ := a.Issue("", time.Hour)
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).
		SignedString([]byte("test-secret"))
	wrongAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))

	tests := map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"no expiry":  noExpiry,
		"wrong alg":  wrongAlg,
		"garbage":    "not.a.token",
	}
	for name, token := range tests {
		if _, err := a.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestMiddleware(t *testing.T) {
	a := New("test-secret")
	var seen string
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, _ := a.Issue("user-42", time.Hour)
	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if tt.status == http.StatusNoContent && seen != "user-42" {
				t.Errorf("expected user-42 in context, got %q", seen)
			}
		})
	}
}

func TestUserID_Absent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserID(req.Context()); ok {
		t.Error("expected no user id")
	}
}
