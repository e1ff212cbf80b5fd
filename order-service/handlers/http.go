package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderstack/fulfillment-system/order-service/application"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// OrderHandler exposes the order operations over HTTP. Besides the
// participant surface it carries the choreography entry point: POST
// /create-order opens a saga on the bus and GET /check-order-status reads
// the eventual order status.
type OrderHandler struct {
	createOrder    *application.CreateOrder
	processOrder   *application.ProcessOrder
	reconcileOrder *application.ReconcileOrder
	getOrder       *application.GetOrder
	orderContext   *application.OrderContext
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	createOrder *application.CreateOrder,
	processOrder *application.ProcessOrder,
	reconcileOrder *application.ReconcileOrder,
	getOrder *application.GetOrder,
	orderContext *application.OrderContext,
) *OrderHandler {
	return &OrderHandler{
		createOrder:    createOrder,
		processOrder:   processOrder,
		reconcileOrder: reconcileOrder,
		getOrder:       getOrder,
		orderContext:   orderContext,
	}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Post("/orders/{id}/process", h.Process)
	r.Post("/orders/{id}/reconcile", h.Reconcile)
	r.Get("/orders/{id}", h.Get)

	r.Post("/create-order", h.StartSaga)
	r.Get("/check-order-status", h.CheckStatus)
}

// Create handles POST /orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreateOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.createOrder.Execute(r.Context(), cmd)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Process handles POST /orders/{id}/process
func (h *OrderHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	resp, err := h.processOrder.Execute(r.Context(), application.ProcessOrderCommand{ID: id})
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Reconcile handles POST /orders/{id}/reconcile
func (h *OrderHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	var body struct {
		Status string `json:"status"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	resp, err := h.reconcileOrder.Execute(r.Context(), application.ReconcileOrderCommand{
		ID:     id,
		Status: body.Status,
	})
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	resp, err := h.getOrder.Execute(r.Context(), id)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// StartSaga handles POST /create-order. The response is an acknowledgement:
// the saga completes asynchronously on the bus.
func (h *OrderHandler) StartSaga(w http.ResponseWriter, r *http.Request) {
	var cmd application.StartOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.orderContext.Start(r.Context(), cmd)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, resp)
}

// CheckStatus handles GET /check-order-status?id=...
func (h *OrderHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	id := models.ID(r.URL.Query().Get("id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing id query parameter")
		return
	}

	resp, err := h.getOrder.Execute(r.Context(), id)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":     resp.ID.String(),
		"status": resp.Status,
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
