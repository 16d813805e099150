package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler exposes inventory HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterRoutes mounts the routes open to any signed-in user.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/inventory/products/{id}/availability", h.availability) // ?quantity=2
}

// RegisterAdminRoutes mounts stock management; callers wrap them in auth.RequireAdmin.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/api/v1/inventory/low-stock", h.lowStock) // ?threshold=5
	r.Post("/api/v1/inventory/products/{id}/restock", h.restock)
	r.Put("/api/v1/inventory/products/{id}/stock", h.setStock)
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.Atoi(r.URL.Query().Get("threshold"))
	levels, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		respondError(w, err)
		return
	}
	if levels == nil {
		levels = []*StockLevel{}
	}
	respond(w, http.StatusOK, levels)
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	qty, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil {
		qty = 1
	}
	ok, err := h.service.CheckAvailability(r.Context(), chi.URLParam(r, "id"), qty)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"available": ok, "quantity": qty})
}

func (h *Handler) restock(w http.ResponseWriter, r *http.Request) {
	var body quantityBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	adj, err := h.service.Restock(r.Context(), chi.URLParam(r, "id"), body.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, adj)
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	var body quantityBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	adj, err := h.service.SetStock(r.Context(), chi.URLParam(r, "id"), body.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, adj)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrProductNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrInvalidQuantity):
		code = http.StatusBadRequest
	case errors.Is(err, ErrInsufficientStock):
		code = http.StatusUnprocessableEntity
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
