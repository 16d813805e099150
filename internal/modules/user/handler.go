package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CurrentUser resolves the authenticated user id from the request context.
type CurrentUser func(ctx context.Context) (uuid.UUID, bool)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public registration endpoint.
func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/api/v1/users/register", h.registerUser)
}

// RegisterAuthenticatedRoutes mounts endpoints that need a caller identity.
func (h *Handler) RegisterAuthenticatedRoutes(router chi.Router, current CurrentUser) {
	router.Get("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		id, ok := current(r.Context())
		if !ok {
			respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		h.getUser(w, r, id)
	})
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	var verr *ValidationError
	if errors.As(err, &verr) {
		respond(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error(), "fields": verr.Fields})
		return
	}
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrInvalidUser):
			code = http.StatusBadRequest
		case errors.Is(err, ErrEmailTaken):
			code = http.StatusConflict
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	user, err := h.service.GetUser(r.Context(), id)
	if errors.Is(err, ErrUserNotFound) {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, user)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
