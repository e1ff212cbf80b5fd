package application

import (
	"context"
	"fmt"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shipping-service/domain"
)

// CreateShipmentCommand carries the saga id and the quantity to reserve
type CreateShipmentCommand struct {
	ID       models.ID `json:"id"`
	Quantity int       `json:"quantity"`
}

// CreateShipmentResponse is the use case response
type CreateShipmentResponse struct {
	ID      models.ID `json:"id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// CreateShipment creates a Pending shipment record for a saga instance
type CreateShipment struct {
	shipments domain.ShipmentRepository
}

// NewCreateShipment creates the use case
func NewCreateShipment(shipments domain.ShipmentRepository) *CreateShipment {
	return &CreateShipment{shipments: shipments}
}

// Execute validates the command and stores the record. Creation is
// idempotent on the saga id.
func (uc *CreateShipment) Execute(ctx context.Context, cmd CreateShipmentCommand) (*CreateShipmentResponse, error) {
	shipment, err := domain.CreateShipment(cmd.ID, cmd.Quantity)
	if err != nil {
		return nil, err
	}

	if err := uc.shipments.Create(ctx, shipment); err != nil {
		return nil, errors.Wrap(err, "failed to create shipment")
	}

	log.Printf("shipment %s: created quantity=%d", shipment.ID, shipment.Quantity)

	return &CreateShipmentResponse{
		ID:      shipment.ID,
		Status:  string(shipment.Status),
		Message: fmt.Sprintf("Shipment %s was created.", shipment.ID),
	}, nil
}
