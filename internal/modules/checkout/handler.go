package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/georgemunganga/storefront/internal/modules/auth"
	"github.com/georgemunganga/storefront/internal/modules/cart"
	"github.com/georgemunganga/storefront/internal/modules/fulfillment"
	"github.com/georgemunganga/storefront/internal/modules/inventory"
	"github.com/georgemunganga/storefront/internal/modules/order"
	"github.com/go-chi/chi/v5"
)

// Handler exposes checkout HTTP endpoints. Routes must sit behind auth.Middleware.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/checkout", h.summary)      // GET  /api/v1/checkout
	r.Post("/api/v1/checkout", h.createOrder) // POST /api/v1/checkout
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	s, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	o, err := h.service.CreateOrder(r.Context(), userID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Location", order.StatusURL(o.ID))
	respond(w, http.StatusAccepted, NewReceipt(o))
}

func respondError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		respond(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid checkout request", "fields": verr.Fields})
		return
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, cart.ErrEmptyCart):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, inventory.ErrInsufficientStock), errors.Is(err, inventory.ErrProductNotFound):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, fulfillment.ErrTaskDelivery):
		code = http.StatusServiceUnavailable
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
