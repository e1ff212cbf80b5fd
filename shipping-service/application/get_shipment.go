package application

import (
	"context"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shipping-service/domain"
)

// GetShipmentResponse is the read model for a shipment record
type GetShipmentResponse struct {
	ID       models.ID `json:"id"`
	Quantity int       `json:"quantity"`
	Status   string    `json:"status"`
}

// GetShipment reads a shipment record
type GetShipment struct {
	shipments domain.ShipmentRepository
}

// NewGetShipment creates the use case
func NewGetShipment(shipments domain.ShipmentRepository) *GetShipment {
	return &GetShipment{shipments: shipments}
}

// Execute loads the record by saga id
func (uc *GetShipment) Execute(ctx context.Context, id models.ID) (*GetShipmentResponse, error) {
	shipment, err := uc.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find shipment")
	}

	return &GetShipmentResponse{
		ID:       shipment.ID,
		Quantity: shipment.Quantity,
		Status:   string(shipment.Status),
	}, nil
}
