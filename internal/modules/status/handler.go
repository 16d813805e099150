package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/georgemunganga/storefront/internal/modules/auth"
	"github.com/georgemunganga/storefront/internal/modules/order"
	"github.com/georgemunganga/storefront/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Owner resolves an order the caller is allowed to watch.
type Owner interface {
	Get(ctx context.Context, userID uuid.UUID, id string) (*order.Order, error)
}

// Handler serves the server-sent event status stream.
type Handler struct {
	orders    Owner
	publisher *Publisher
	log       zerolog.Logger
}

func NewHandler(orders Owner, publisher *Publisher, logger zerolog.Logger) *Handler {
	return &Handler{orders: orders, publisher: publisher, log: logger.With().Str("component", "status").Logger()}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/orders/{id}/status", h.stream) // GET /api/v1/orders/{id}/status (text/event-stream)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrUnauthenticated.Error()})
		return
	}
	o, err := h.orders.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if errors.Is(err, order.ErrOrderNotFound) {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.log.Error().Err(err).Msg("response writer cannot flush")
		return
	}

	closeStream := observability.StatusStreamOpened()
	defer closeStream()

	log := h.log.With().Str("order_id", o.ID.String()).Logger()
	err = h.publisher.Stream(r.Context(), o.ID, func(e Event) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		observability.RecordStatusEvent(e.Status)
		return rc.Flush()
	})
	switch {
	case err == nil:
		log.Debug().Msg("status stream finished")
	case errors.Is(err, context.Canceled):
		log.Debug().Msg("status stream closed by client")
	default:
		log.Warn().Err(err).Msg("status stream aborted")
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
