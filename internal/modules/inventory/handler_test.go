package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/georgemunganga/storefront/internal/modules/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type stubService struct {
	Service
	restocked int
}

func (s *stubService) CheckAvailability(context.Context, string, int) (bool, error) { return true, nil }

func (s *stubService) Restock(_ context.Context, _ string, qty int) (*Adjustment, error) {
	s.restocked += qty
	return &Adjustment{Current: qty}, nil
}

func newRouter(svc Service, role string) chi.Router {
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), uuid.New(), role)))
		})
	})
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		h.RegisterAdminRoutes(r)
	})
	return r
}

func TestStockManagementRequiresAdmin(t *testing.T) {
	id := uuid.NewString()
	svc := &stubService{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/products/"+id+"/restock", strings.NewReader(`{"quantity":5}`))
	newRouter(svc, "customer").ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden || svc.restocked != 0 {
		t.Fatalf("unexpected customer restock: %d, restocked=%d", rec.Code, svc.restocked)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/inventory/products/"+id+"/restock", strings.NewReader(`{"quantity":5}`))
	newRouter(svc, "admin").ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || svc.restocked != 5 {
		t.Fatalf("unexpected admin restock: %d, restocked=%d", rec.Code, svc.restocked)
	}
}

func TestAvailabilityIsOpenToCustomers(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/products/"+uuid.NewString()+"/availability?quantity=2", nil)
	newRouter(&stubService{}, "customer").ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"available":true`) {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}
