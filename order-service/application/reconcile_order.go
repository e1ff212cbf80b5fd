package application

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/order-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/telemetry"
)

// ReconcileOrderCommand force-sets the terminal order status
type ReconcileOrderCommand struct {
	ID     models.ID `json:"id"`
	Status string    `json:"status"`
}

// ReconcileOrderResponse is the use case response
type ReconcileOrderResponse struct {
	ID      models.ID `json:"id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// ReconcileOrder parks an order after one or both siblings failed
type ReconcileOrder struct {
	orders domain.OrderRepository
}

// NewReconcileOrder creates the use case
func NewReconcileOrder(orders domain.OrderRepository) *ReconcileOrder {
	return &ReconcileOrder{orders: orders}
}

// Execute sets the target status unconditionally; repeating the call with
// the same status is a no-op.
func (uc *ReconcileOrder) Execute(ctx context.Context, cmd ReconcileOrderCommand) (*ReconcileOrderResponse, error) {
	status := domain.OrderStatus(cmd.Status)
	if status == "" {
		status = domain.OrderStatusOnHold
	}

	order, err := uc.orders.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}

	order.Reconcile(status)
	if err := uc.orders.UpdateStatus(ctx, order.ID, order.Status); err != nil {
		return nil, errors.Wrap(err, "failed to update order status")
	}

	log.Printf("order %s: reconciled to %s", order.ID, order.Status)
	telemetry.RecordCounter(ctx, "order_reconciled_total", "Orders parked after sibling failure", 1)

	return &ReconcileOrderResponse{
		ID:      order.ID,
		Status:  string(order.Status),
		Message: "Order was reconciled.",
	}, nil
}
