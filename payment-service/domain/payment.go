package domain

import (
	"context"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "Pending"
	PaymentStatusProcessed  PaymentStatus = "Processed"
	PaymentStatusExceeded   PaymentStatus = "Exceeded"
	PaymentStatusOnHold     PaymentStatus = "OnHold"
	PaymentStatusReconciled PaymentStatus = "Reconciled"
)

// AmountLimit is the processing threshold. Amounts above it are a valid
// business outcome (Exceeded), not a fault.
const AmountLimit int64 = 1000

// Payment record. Shares its id with the order and shipment of the same
// saga instance.
type Payment struct {
	ID         models.ID
	Amount     int64
	Status     PaymentStatus
	Timestamps models.Timestamps
}

// CreatePayment validates the amount and builds a Pending record
func CreatePayment(id models.ID, amount int64) (*Payment, error) {
	if amount < 0 {
		return nil, saga.NewInvalidInput("payment amount must not be negative")
	}

	return &Payment{
		ID:         id,
		Amount:     amount,
		Status:     PaymentStatusPending,
		Timestamps: models.NewTimestamps(),
	}, nil
}

// Process applies the threshold rule and returns the outcome. Re-processing
// a record that already reached a processing outcome repeats that outcome
// without a further transition.
func (p *Payment) Process() saga.Outcome {
	switch p.Status {
	case PaymentStatusProcessed:
		return saga.OutcomeSuccess
	case PaymentStatusExceeded:
		return saga.OutcomeExceeded
	}

	if p.Amount <= AmountLimit {
		p.Status = PaymentStatusProcessed
	} else {
		p.Status = PaymentStatusExceeded
	}
	p.Timestamps = p.Timestamps.Update()

	if p.Status == PaymentStatusExceeded {
		return saga.OutcomeExceeded
	}
	return saga.OutcomeSuccess
}

// Reconcile force-sets the compensation target status regardless of the
// current one; only the coordinator calls this, and only when the sibling
// participant failed.
func (p *Payment) Reconcile(status PaymentStatus) {
	p.Status = status
	p.Timestamps = p.Timestamps.Update()
}

// PaymentRepository interface
type PaymentRepository interface {
	// Create inserts the record if absent; re-running creation with the
	// same id is a no-op.
	Create(ctx context.Context, payment *Payment) error
	// UpdateStatus fails with saga.ErrNotFound when the record is absent.
	UpdateStatus(ctx context.Context, id models.ID, status PaymentStatus) error
	FindByID(ctx context.Context, id models.ID) (*Payment, error)
}
