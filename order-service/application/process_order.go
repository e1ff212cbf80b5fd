package application

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/order-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
)

// ProcessOrderCommand marks an order fulfilled
type ProcessOrderCommand struct {
	ID models.ID `json:"id"`
}

// ProcessOrderResponse is the use case response
type ProcessOrderResponse struct {
	ID      models.ID `json:"id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// ProcessOrder completes an order after both siblings processed
type ProcessOrder struct {
	orders domain.OrderRepository
}

// NewProcessOrder creates the use case
func NewProcessOrder(orders domain.OrderRepository) *ProcessOrder {
	return &ProcessOrder{orders: orders}
}

// Execute marks the order Processed. Re-running against a Processed order is
// a no-op.
func (uc *ProcessOrder) Execute(ctx context.Context, cmd ProcessOrderCommand) (*ProcessOrderResponse, error) {
	order, err := uc.orders.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}

	order.Process()
	if err := uc.orders.UpdateStatus(ctx, order.ID, order.Status); err != nil {
		return nil, errors.Wrap(err, "failed to update order status")
	}

	log.Printf("order %s: processed", order.ID)

	return &ProcessOrderResponse{
		ID:      order.ID,
		Status:  string(order.Status),
		Message: "Order was processed.",
	}, nil
}
