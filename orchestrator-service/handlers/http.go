package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// StatusChecker reads the terminal order status for a saga id. The transport
// strategy decides whether this is a local read or a call to the order
// service.
type StatusChecker interface {
	CheckOrderStatus(ctx context.Context, id models.ID) (string, error)
}

// SagaHandler exposes the orchestrated saga over HTTP. The request blocks
// until the saga reaches a terminal state; the response is the full summary.
type SagaHandler struct {
	coordinator *saga.Coordinator
	status      StatusChecker
}

// NewSagaHandler creates a new saga handler
func NewSagaHandler(coordinator *saga.Coordinator, status StatusChecker) *SagaHandler {
	return &SagaHandler{
		coordinator: coordinator,
		status:      status,
	}
}

// RegisterRoutes registers saga routes
func (h *SagaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create-order", h.CreateOrder)
	r.Get("/check-order-status", h.CheckStatus)
}

// CreateOrder handles POST /create-order
func (h *SagaHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req saga.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.coordinator.Run(r.Context(), req)
	if err != nil {
		if saga.IsInvalidInput(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// CheckStatus handles GET /check-order-status?id=...
func (h *SagaHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	id := models.ID(r.URL.Query().Get("id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing id query parameter")
		return
	}

	status, err := h.status.CheckOrderStatus(r.Context(), id)
	if err != nil {
		if saga.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":     id.String(),
		"status": status,
	})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
