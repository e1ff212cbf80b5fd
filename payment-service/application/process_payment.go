package application

import (
	"context"
	"fmt"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/payment-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
	"github.com/orderstack/fulfillment-system/shared/telemetry"
)

// ProcessPaymentCommand carries the saga id and the amount under decision
type ProcessPaymentCommand struct {
	ID     models.ID `json:"id"`
	Amount int64     `json:"amount"`
}

// ProcessPaymentResponse reports the processing outcome. An exceeded amount
// is reported through Error and Status, not through a Go error.
type ProcessPaymentResponse struct {
	ID      models.ID    `json:"id"`
	Outcome saga.Outcome `json:"outcome"`
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// ProcessPayment applies the amount threshold to a pending payment
type ProcessPayment struct {
	payments domain.PaymentRepository
}

// NewProcessPayment creates the use case
func NewProcessPayment(payments domain.PaymentRepository) *ProcessPayment {
	return &ProcessPayment{payments: payments}
}

// Execute loads the record, applies the threshold rule and persists the
// resulting status.
func (uc *ProcessPayment) Execute(ctx context.Context, cmd ProcessPaymentCommand) (*ProcessPaymentResponse, error) {
	payment, err := uc.payments.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}

	outcome := payment.Process()
	if err := uc.payments.UpdateStatus(ctx, payment.ID, payment.Status); err != nil {
		return nil, errors.Wrap(err, "failed to update payment status")
	}

	if outcome == saga.OutcomeExceeded {
		log.Printf("payment %s: amount %d exceeds limit %d", payment.ID, payment.Amount, domain.AmountLimit)
		telemetry.RecordCounter(ctx, "payment_exceeded_total", "Payments rejected over the amount limit", 1)
		return &ProcessPaymentResponse{
			ID:      payment.ID,
			Outcome: outcome,
			Status:  string(domain.PaymentStatusOnHold),
			Error:   fmt.Sprintf("Payment %s exceeded the maximum amount.", payment.ID),
		}, nil
	}

	log.Printf("payment %s: processed", payment.ID)
	return &ProcessPaymentResponse{
		ID:      payment.ID,
		Outcome: outcome,
		Status:  string(payment.Status),
		Message: fmt.Sprintf("Payment %s was processed.", payment.ID),
	}, nil
}
