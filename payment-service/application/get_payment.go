package application

import (
	"context"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/payment-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
)

// GetPaymentResponse is the read model for a payment record
type GetPaymentResponse struct {
	ID     models.ID `json:"id"`
	Amount int64     `json:"amount"`
	Status string    `json:"status"`
}

// GetPayment reads a payment record
type GetPayment struct {
	payments domain.PaymentRepository
}

// NewGetPayment creates the use case
func NewGetPayment(payments domain.PaymentRepository) *GetPayment {
	return &GetPayment{payments: payments}
}

// Execute loads the record by saga id
func (uc *GetPayment) Execute(ctx context.Context, id models.ID) (*GetPaymentResponse, error) {
	payment, err := uc.payments.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}

	return &GetPaymentResponse{
		ID:     payment.ID,
		Amount: payment.Amount,
		Status: string(payment.Status),
	}, nil
}
