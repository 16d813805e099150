package fulfillment

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the failure log for operators.
type Handler struct{ failures FailureLog }

func NewHandler(failures FailureLog) *Handler { return &Handler{failures: failures} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/fulfillment/failures", h.listFailures) // ?limit=50
}

func (h *Handler) listFailures(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	failures, err := h.failures.List(r.Context(), limit)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if failures == nil {
		failures = []*Failure{}
	}
	respond(w, http.StatusOK, failures)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
