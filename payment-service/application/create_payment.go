package application

import (
	"context"
	"fmt"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/payment-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
)

// CreatePaymentCommand carries the saga id and the amount to hold
type CreatePaymentCommand struct {
	ID     models.ID `json:"id"`
	Amount int64     `json:"amount"`
}

// CreatePaymentResponse is the use case response
type CreatePaymentResponse struct {
	ID      models.ID `json:"id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// CreatePayment creates a Pending payment record for a saga instance
type CreatePayment struct {
	payments domain.PaymentRepository
}

// NewCreatePayment creates the use case
func NewCreatePayment(payments domain.PaymentRepository) *CreatePayment {
	return &CreatePayment{payments: payments}
}

// Execute validates the command and stores the record. Creation is
// idempotent on the saga id.
func (uc *CreatePayment) Execute(ctx context.Context, cmd CreatePaymentCommand) (*CreatePaymentResponse, error) {
	payment, err := domain.CreatePayment(cmd.ID, cmd.Amount)
	if err != nil {
		return nil, err
	}

	if err := uc.payments.Create(ctx, payment); err != nil {
		return nil, errors.Wrap(err, "failed to create payment")
	}

	log.Printf("payment %s: created amount=%d", payment.ID, payment.Amount)

	return &CreatePaymentResponse{
		ID:      payment.ID,
		Status:  string(payment.Status),
		Message: fmt.Sprintf("Payment %s was created.", payment.ID),
	}, nil
}
