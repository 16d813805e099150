package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/georgemunganga/storefront/internal/modules/auth"
	"github.com/georgemunganga/storefront/internal/modules/inventory"
	"github.com/go-chi/chi/v5"
)

// Handler exposes cart HTTP endpoints. Routes must sit behind auth.Middleware.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", h.view)                  // GET    /api/v1/cart
		r.Post("/items", h.add)             // POST   /api/v1/cart/items
		r.Patch("/items/{id}", h.update)    // PATCH  /api/v1/cart/items/{id}
		r.Delete("/items/{id}", h.remove)   // DELETE /api/v1/cart/items/{id}
	})
}

type addRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	c, err := h.service.View(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, c)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	line, err := h.service.Add(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, line)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	line, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, line)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	if err := h.service.Remove(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		code = http.StatusBadRequest
	case errors.Is(err, ErrNotOwner):
		code = http.StatusForbidden
	case errors.Is(err, ErrLineNotFound), errors.Is(err, inventory.ErrProductNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrOutOfStock), errors.Is(err, inventory.ErrInsufficientStock):
		code = http.StatusUnprocessableEntity
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
