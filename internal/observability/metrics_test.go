package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/healthz", 200, 3*time.Millisecond)
	RecordCheckout("created")
	RecordFulfillmentAttempt("ok")
	RecordFulfillmentOutcome("completed", 40*time.Millisecond)
	RecordStatusEvent("processing")
	RecordLowStockCrossing()
	closeStream := StatusStreamOpened()
	closeStream()

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "storefront_fulfillment_outcomes_total") {
		t.Fatalf("fulfillment outcome metric missing from exposition")
	}
}
