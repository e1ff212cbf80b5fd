package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderstack/fulfillment-system/payment-service/application"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// PaymentHandler exposes the payment operations over HTTP. The routes double
// as the participant surface for the HTTP transport strategy.
type PaymentHandler struct {
	createPayment    *application.CreatePayment
	processPayment   *application.ProcessPayment
	reconcilePayment *application.ReconcilePayment
	getPayment       *application.GetPayment
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	createPayment *application.CreatePayment,
	processPayment *application.ProcessPayment,
	reconcilePayment *application.ReconcilePayment,
	getPayment *application.GetPayment,
) *PaymentHandler {
	return &PaymentHandler{
		createPayment:    createPayment,
		processPayment:   processPayment,
		reconcilePayment: reconcilePayment,
		getPayment:       getPayment,
	}
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/payments", h.Create)
	r.Post("/payments/{id}/process", h.Process)
	r.Post("/payments/{id}/reconcile", h.Reconcile)
	r.Get("/payments/{id}", h.Get)
}

// Create handles POST /payments
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd application.CreatePaymentCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.createPayment.Execute(r.Context(), cmd)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Process handles POST /payments/{id}/process
func (h *PaymentHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	var body struct {
		Amount int64 `json:"amount"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	resp, err := h.processPayment.Execute(r.Context(), application.ProcessPaymentCommand{
		ID:     id,
		Amount: body.Amount,
	})
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Reconcile handles POST /payments/{id}/reconcile
func (h *PaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	var body struct {
		Status string `json:"status"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	resp, err := h.reconcilePayment.Execute(r.Context(), application.ReconcilePaymentCommand{
		ID:     id,
		Status: body.Status,
	})
	if err != nil {
		respondUseCaseError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /payments/{id}
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := models.ID(chi.URLParam(r, "id"))

	resp, err := h.getPayment.Execute(r.Context(), id)
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
