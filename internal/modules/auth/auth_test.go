package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/georgemunganga/storefront/internal/modules/user"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type stubUsers struct {
	user.Repository
	u *user.User
}

func (s stubUsers) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	if s.u == nil || s.u.Email != email {
		return nil, user.ErrUserNotFound
	}
	return s.u, nil
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &user.User{ID: uuid.New(), Email: "ada@example.com", PasswordHash: string(hash), Role: user.RoleAdmin}
	svc := NewService(stubUsers{u: u}, "secret", time.Hour)

	token, err := svc.Login(context.Background(), " Ada@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id, role, err := ParseToken([]byte("secret"), token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != u.ID || role != user.RoleAdmin {
		t.Fatalf("unexpected claims: %s %q", id, role)
	}

	if _, err := svc.Login(context.Background(), u.Email, "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "x"); err != ErrInvalidCredentials {
		t.Fatalf("unknown email should be invalid credentials, got %v", err)
	}
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	expired, err := IssueToken([]byte("secret"), uuid.NewString(), user.RoleCustomer, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := ParseToken([]byte("secret"), expired); err != ErrUnauthenticated {
		t.Fatalf("expired token accepted: %v", err)
	}

	foreign, _ := IssueToken([]byte("other"), uuid.NewString(), user.RoleCustomer, time.Now().Add(time.Minute))
	if _, _, err := ParseToken([]byte("secret"), foreign); err != ErrUnauthenticated {
		t.Fatalf("token signed with another key accepted: %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	id := uuid.New()
	token, err := IssueToken([]byte("secret"), id.String(), user.RoleCustomer, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen uuid.UUID
	h := Middleware("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: unexpected status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if seen != id {
		t.Fatalf("unexpected user id in context: %s", seen)
	}
}

func TestRequireAdmin(t *testing.T) {
	customer, err := IssueToken([]byte("secret"), uuid.NewString(), user.RoleCustomer, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	admin, err := IssueToken([]byte("secret"), uuid.NewString(), user.RoleAdmin, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	h := Middleware("secret")(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	cases := map[string]struct {
		token string
		want  int
	}{
		"anonymous": {"", http.StatusUnauthorized},
		"customer":  {customer, http.StatusForbidden},
		"admin":     {admin, http.StatusNoContent},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/inventory/products/x/stock", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: unexpected status %d, want %d", name, rec.Code, tc.want)
		}
	}
}
