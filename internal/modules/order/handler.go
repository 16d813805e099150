package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/georgemunganga/storefront/internal/modules/auth"
	"github.com/go-chi/chi/v5"
)

// Handler exposes order HTTP endpoints. Routes must sit behind auth.Middleware.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterRoutes mounts flat patterns so the status stream can share the
// /api/v1/orders/{id} prefix.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/orders", h.listOrders)                     // GET /api/v1/orders
	r.Get("/api/v1/orders/{id}", h.getOrder)                  // GET /api/v1/orders/{id}
	r.Get("/api/v1/orders/{id}/confirmation", h.confirmation) // GET /api/v1/orders/{id}/confirmation
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	orders, err := h.service.List(r.Context(), userID)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if orders == nil {
		orders = []*Order{}
	}
	respond(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	o, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, o)
}

func (h *Handler) confirmation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	o, err := h.service.Confirmation(r.Context(), userID, chi.URLParam(r, "id"))
	switch {
	case err == nil:
		respond(w, http.StatusOK, o)
	case errors.Is(err, ErrStillProcessing):
		w.Header().Set("Location", StatusURL(o.ID))
		respond(w, http.StatusAccepted, map[string]string{
			"status":     string(o.Status),
			"status_url": StatusURL(o.ID),
		})
	default:
		respondError(w, err)
	}
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrIncomplete):
		code = http.StatusNotFound
	case errors.Is(err, ErrProcessingFailed):
		code = http.StatusConflict
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
