package application

import (
	"context"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/order-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
)

// GetOrderResponse is the read model for an order record
type GetOrderResponse struct {
	ID       models.ID `json:"id"`
	Amount   int64     `json:"amount"`
	Quantity int       `json:"quantity"`
	Status   string    `json:"status"`
}

// GetOrder reads an order record; backs the check-order-status operation
type GetOrder struct {
	orders domain.OrderRepository
}

// NewGetOrder creates the use case
func NewGetOrder(orders domain.OrderRepository) *GetOrder {
	return &GetOrder{orders: orders}
}

// Execute loads the record by saga id
func (uc *GetOrder) Execute(ctx context.Context, id models.ID) (*GetOrderResponse, error) {
	order, err := uc.orders.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}

	return &GetOrderResponse{
		ID:       order.ID,
		Amount:   order.Amount,
		Quantity: order.Quantity,
		Status:   string(order.Status),
	}, nil
}
