package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

type memRepo struct {
	Repository
	created []*User
}

func (m *memRepo) CreateUser(_ context.Context, u *User) error {
	for _, existing := range m.created {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	m.created = append(m.created, u)
	return nil
}

func newTestService(repo Repository) Service {
	return &service{repo: repo, cost: bcrypt.MinCost}
}

func TestRegisterUserNormalizesAndHashes(t *testing.T) {
	repo := &memRepo{}
	u, err := newTestService(repo).RegisterUser(context.Background(), "  Ada@Example.com ", "correct horse", " Ada ", "Lovelace")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "ada@example.com" || u.FirstName != "Ada" || u.Role != RoleCustomer {
		t.Fatalf("unexpected user: %+v", u)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")) != nil {
		t.Fatalf("password hash does not match")
	}
	if len(repo.created) != 1 {
		t.Fatalf("unexpected stored users: %d", len(repo.created))
	}
}

func TestRegisterUserReportsInvalidFields(t *testing.T) {
	repo := &memRepo{}
	_, err := newTestService(repo).RegisterUser(context.Background(), "not-an-email", "short", "", "")

	var verr *ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields["email"] != "must be a valid email address" {
		t.Fatalf("unexpected email message: %+v", verr.Fields)
	}
	if verr.Fields["password"] != "must be at least 8 characters" {
		t.Fatalf("unexpected password message: %+v", verr.Fields)
	}
	if len(repo.created) != 0 {
		t.Fatalf("invalid registrations must not be stored")
	}
}

func TestRegisterHandlerReturnsFields(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(newTestService(&memRepo{})).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(`{"email":"","password":"correct horse"}`))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Fields["email"] != "is required" {
		t.Fatalf("unexpected fields: %+v", body.Fields)
	}
}
