package application

import (
	"context"
	"fmt"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/payment-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/telemetry"
)

// ReconcilePaymentCommand force-sets the compensation status for a payment
type ReconcilePaymentCommand struct {
	ID     models.ID `json:"id"`
	Status string    `json:"status"`
}

// ReconcilePaymentResponse is the use case response
type ReconcilePaymentResponse struct {
	ID      models.ID `json:"id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// ReconcilePayment compensates a payment after a sibling participant failed
type ReconcilePayment struct {
	payments domain.PaymentRepository
}

// NewReconcilePayment creates the use case
func NewReconcilePayment(payments domain.PaymentRepository) *ReconcilePayment {
	return &ReconcilePayment{payments: payments}
}

// Execute sets the target status unconditionally; repeating the call with
// the same status is a no-op.
func (uc *ReconcilePayment) Execute(ctx context.Context, cmd ReconcilePaymentCommand) (*ReconcilePaymentResponse, error) {
	status := domain.PaymentStatus(cmd.Status)
	if status == "" {
		status = domain.PaymentStatusOnHold
	}

	payment, err := uc.payments.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}

	payment.Reconcile(status)
	if err := uc.payments.UpdateStatus(ctx, payment.ID, payment.Status); err != nil {
		return nil, errors.Wrap(err, "failed to update payment status")
	}

	log.Printf("payment %s: reconciled to %s", payment.ID, payment.Status)
	telemetry.RecordCounter(ctx, "payment_reconciled_total", "Payments compensated by the saga", 1)

	return &ReconcilePaymentResponse{
		ID:      payment.ID,
		Status:  string(payment.Status),
		Message: fmt.Sprintf("Payment %s was reconciled.", payment.ID),
	}, nil
}
