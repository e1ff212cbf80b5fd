package application

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/order-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// transientFaultAmount triggers a simulated store outage on the first two
// attempts of a coordinated create, to exercise the retry path end to end.
const transientFaultAmount int64 = 777

// CreateOrderCommand carries the order input. Attempt is the 1-based retry
// attempt when a coordinator drives the call; event-driven callers leave it
// zero.
type CreateOrderCommand struct {
	ID       models.ID `json:"id"`
	Amount   int64     `json:"amount"`
	Quantity int       `json:"quantity"`
	Attempt  int       `json:"attempt,omitempty"`
}

// CreateOrderResponse is the use case response
type CreateOrderResponse struct {
	ID      models.ID `json:"id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// CreateOrder creates a Pending order record for a saga instance
type CreateOrder struct {
	orders domain.OrderRepository
}

// NewCreateOrder creates the use case
func NewCreateOrder(orders domain.OrderRepository) *CreateOrder {
	return &CreateOrder{orders: orders}
}

// Execute validates the command and stores the record. Creation is
// idempotent on the saga id.
func (uc *CreateOrder) Execute(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResponse, error) {
	if cmd.Amount == transientFaultAmount && cmd.Attempt > 0 && cmd.Attempt < 3 {
		log.Printf("order %s: simulated transient fault on attempt %d", cmd.ID, cmd.Attempt)
		return nil, saga.NewTransient("order store unavailable")
	}

	order, err := domain.CreateOrder(cmd.ID, cmd.Amount, cmd.Quantity)
	if err != nil {
		return nil, err
	}

	if err := uc.orders.Create(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}

	log.Printf("order %s: created amount=%d quantity=%d", order.ID, order.Amount, order.Quantity)

	return &CreateOrderResponse{
		ID:      order.ID,
		Status:  string(order.Status),
		Message: "Order was created.",
	}, nil
}
