package domain

import (
	"context"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusProcessed OrderStatus = "Processed"
	OrderStatusOnHold    OrderStatus = "OnHold"
)

// Order record. The saga root: payment and shipment records of the same
// instance share its id.
type Order struct {
	ID         models.ID
	Amount     int64
	Quantity   int
	Status     OrderStatus
	Timestamps models.Timestamps
}

// CreateOrder validates the input and builds a Pending record
func CreateOrder(id models.ID, amount int64, quantity int) (*Order, error) {
	if amount < 0 {
		return nil, saga.NewInvalidInput("order amount must not be negative")
	}
	if quantity < 0 {
		return nil, saga.NewInvalidInput("order quantity must not be negative")
	}

	return &Order{
		ID:         id,
		Amount:     amount,
		Quantity:   quantity,
		Status:     OrderStatusPending,
		Timestamps: models.NewTimestamps(),
	}, nil
}

// Process marks the order fulfilled after both siblings succeeded
func (o *Order) Process() {
	o.Status = OrderStatusProcessed
	o.Timestamps = o.Timestamps.Update()
}

// Reconcile force-sets the terminal status after a sibling failed
func (o *Order) Reconcile(status OrderStatus) {
	o.Status = status
	o.Timestamps = o.Timestamps.Update()
}

// OrderRepository interface
type OrderRepository interface {
	// Create inserts the record if absent; re-running creation with the
	// same id is a no-op.
	Create(ctx context.Context, order *Order) error
	// UpdateStatus fails with saga.ErrNotFound when the record is absent.
	UpdateStatus(ctx context.Context, id models.ID, status OrderStatus) error
	FindByID(ctx context.Context, id models.ID) (*Order, error)
}
