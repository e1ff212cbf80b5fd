package application

import (
	"context"
	"fmt"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/telemetry"
	"github.com/orderstack/fulfillment-system/shipping-service/domain"
)

// ReconcileShipmentCommand force-sets the compensation status for a shipment
type ReconcileShipmentCommand struct {
	ID     models.ID `json:"id"`
	Status string    `json:"status"`
}

// ReconcileShipmentResponse is the use case response
type ReconcileShipmentResponse struct {
	ID      models.ID `json:"id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

// ReconcileShipment compensates a shipment after a sibling participant
// failed
type ReconcileShipment struct {
	shipments domain.ShipmentRepository
}

// NewReconcileShipment creates the use case
func NewReconcileShipment(shipments domain.ShipmentRepository) *ReconcileShipment {
	return &ReconcileShipment{shipments: shipments}
}

// Execute sets the target status unconditionally; repeating the call with
// the same status is a no-op.
func (uc *ReconcileShipment) Execute(ctx context.Context, cmd ReconcileShipmentCommand) (*ReconcileShipmentResponse, error) {
	status := domain.ShipmentStatus(cmd.Status)
	if status == "" {
		status = domain.ShipmentStatusOnHold
	}

	shipment, err := uc.shipments.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find shipment")
	}

	shipment.Reconcile(status)
	if err := uc.shipments.UpdateStatus(ctx, shipment.ID, shipment.Status); err != nil {
		return nil, errors.Wrap(err, "failed to update shipment status")
	}

	log.Printf("shipment %s: reconciled to %s", shipment.ID, shipment.Status)
	telemetry.RecordCounter(ctx, "shipment_reconciled_total", "Shipments compensated by the saga", 1)

	return &ReconcileShipmentResponse{
		ID:      shipment.ID,
		Status:  string(shipment.Status),
		Message: fmt.Sprintf("Shipment %s was reconciled.", shipment.ID),
	}, nil
}
