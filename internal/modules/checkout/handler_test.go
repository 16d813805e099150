package checkout_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/georgemunganga/storefront/internal/modules/auth"
	"github.com/georgemunganga/storefront/internal/modules/checkout"
	"github.com/georgemunganga/storefront/internal/modules/fulfillment"
	"github.com/georgemunganga/storefront/internal/testutil/memstore"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func serve(t *testing.T, h *checkout.Handler, user uuid.UUID, method string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, "/api/v1/checkout", &buf)
	req = req.WithContext(auth.WithUserID(context.Background(), user))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCheckoutHandlerAccepts(t *testing.T) {
	st := memstore.New(0)
	h := checkout.NewHandler(newService(st, fulfillment.NewMemoryQueue(4)))
	p := st.AddProduct("Mug", "MUG", "8.00", 10)
	user := uuid.New()
	st.AddToCart(user, p.ID, 1)

	rec := serve(t, h, user, http.MethodPost, validRequest())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var receipt checkout.Receipt
	if err := json.NewDecoder(rec.Body).Decode(&receipt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if receipt.OrderNumber == "" || receipt.Status != "processing" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if loc := rec.Header().Get("Location"); loc != receipt.StatusURL || loc != "/api/v1/orders/"+receipt.ID.String()+"/status" {
		t.Fatalf("unexpected location: %q", loc)
	}
}

func TestCheckoutHandlerErrors(t *testing.T) {
	st := memstore.New(0)
	h := checkout.NewHandler(newService(st, failingQueue{err: fulfillment.ErrQueueFull}))

	if rec := serve(t, h, uuid.New(), http.MethodPost, validRequest()); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty cart: unexpected status %d", rec.Code)
	}
	if rec := serve(t, h, uuid.New(), http.MethodPost, checkout.Request{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid request: unexpected status %d", rec.Code)
	}

	p := st.AddProduct("Mug", "MUG", "8.00", 10)
	user := uuid.New()
	st.AddToCart(user, p.ID, 1)
	if rec := serve(t, h, user, http.MethodPost, validRequest()); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("delivery failure: unexpected status %d", rec.Code)
	}
	if rec := serve(t, h, user, http.MethodGet, nil); rec.Code != http.StatusOK {
		t.Fatalf("summary: unexpected status %d", rec.Code)
	}
}
