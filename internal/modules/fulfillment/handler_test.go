package fulfillment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/georgemunganga/storefront/internal/modules/fulfillment"
	"github.com/georgemunganga/storefront/internal/testutil/memstore"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func TestListFailuresNewestFirst(t *testing.T) {
	st := memstore.New(0)
	for _, reason := range []string{"first", "second"} {
		rec := &fulfillment.Failure{OrderID: uuid.New(), UserID: uuid.New(), Attempts: 3, Reason: reason}
		if err := st.Failures().Record(context.Background(), rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	r := chi.NewRouter()
	fulfillment.NewHandler(st.Failures()).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/fulfillment/failures?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var got []fulfillment.Failure
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Reason != "second" {
		t.Fatalf("unexpected failures: %+v", got)
	}
}
