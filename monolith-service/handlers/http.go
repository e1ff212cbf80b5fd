package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderstack/fulfillment-system/monolith-service/app"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// SagaHandler exposes the monolith saga over HTTP
type SagaHandler struct {
	saga *app.Saga
}

// NewSagaHandler creates a new saga handler
func NewSagaHandler(saga *app.Saga) *SagaHandler {
	return &SagaHandler{saga: saga}
}

// RegisterRoutes registers saga routes
func (h *SagaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create-order", h.CreateOrder)
	r.Get("/check-order-status", h.CheckOrderStatus)
}

// CreateOrder handles POST /create-order. The whole saga runs inside the
// request; the response is the terminal state.
func (h *SagaHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount   int64 `json:"amount"`
		Quantity int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.saga.CreateOrder(r.Context(), body.Amount, body.Quantity)
	if err != nil {
		if saga.IsInvalidInput(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// CheckOrderStatus handles GET /check-order-status?id=...
func (h *SagaHandler) CheckOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := models.ID(r.URL.Query().Get("id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing id query parameter")
		return
	}

	status, err := h.saga.CheckOrderStatus(r.Context(), id)
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
