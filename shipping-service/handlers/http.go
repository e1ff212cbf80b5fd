package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
	"github.com/orderstack/fulfillment-system/shipping-service/application"
)

// ShipmentHandler exposes the shipment operations over HTTP. The routes
// double as the participant surface for the HTTP transport strategy.
type ShipmentHandler struct {
	createShipment    *application.CreateShipment
	processShipment   *application.ProcessShipment
	reconcileShipment *application.ReconcileShipment
	getShipment       *application.GetShipment
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(
	createShipment *application.CreateShipment,
	processShipment *application.ProcessShipment,
	reconcileShipment *application.ReconcileShipment,
	getShipment *application.GetShipment,
) *ShipmentHandler {
	return &ShipmentHandler{
		createShipment:    createShipment,
		processShipment:   processShipment,
		reconcileShipment: reconcileShipment,
		getShipment:       getShipment,
	}
}

// RegisterRoutes registers shipment routes
func (h *ShipmentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/shipments", h.Create)
	r.Post("/shipments/{id}/process", h.Process)
	r.Post("/shipments/{id}/reconcile", h.Reconcile)
	r.Get("/shipments/{id}", h.Get)
}

// Create handles POST /shipments
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateShipmentCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.createShipment.Execute(r.Context(), cmd)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Process handles POST /shipments/{id}/process
func (h *ShipmentHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	var body struct {
		Quantity int `json:"quantity"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	resp, err := h.processShipment.Execute(r.Context(), application.ProcessShipmentCommand{
		ID:       id,
		Quantity: body.Quantity,
	})
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Reconcile handles POST /shipments/{id}/reconcile
func (h *ShipmentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	var body struct {
		Status string `json:"status"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	resp, err := h.reconcileShipment.Execute(r.Context(), application.ReconcileShipmentCommand{
		ID:     id,
		Status: body.Status,
	})
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /shipments/{id}
func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	resp, err := h.getShipment.Execute(r.Context(), id)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondUseCaseError maps domain failures to status codes. Transient store
// faults answer 503 so callers know the request is retryable.
func respondUseCaseError(w http.ResponseWriter, err error) {
	switch {
	case saga.IsInvalidInput(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case saga.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case saga.IsTransient(err):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
