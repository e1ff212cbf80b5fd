package application

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
	"github.com/orderstack/fulfillment-system/shared/telemetry"
	"github.com/orderstack/fulfillment-system/shipping-service/domain"
)

// ProcessShipmentCommand carries the saga id and the quantity under decision
type ProcessShipmentCommand struct {
	ID       models.ID `json:"id"`
	Quantity int       `json:"quantity"`
}

// ProcessShipmentResponse reports the processing outcome. An exceeded
// quantity is reported through Error and Status, not through a Go error.
type ProcessShipmentResponse struct {
	ID      models.ID    `json:"id"`
	Outcome saga.Outcome `json:"outcome"`
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// ProcessShipment applies the quantity threshold to a pending shipment.
// The carrier reservation is modeled as slower than the payment leg, so the
// use case waits out a configurable delay before deciding.
type ProcessShipment struct {
	shipments domain.ShipmentRepository
	delay     time.Duration
}

// NewProcessShipment creates the use case. A zero delay skips the simulated
// carrier wait.
func NewProcessShipment(shipments domain.ShipmentRepository, delay time.Duration) *ProcessShipment {
	return &ProcessShipment{shipments: shipments, delay: delay}
}

// Execute loads the record, applies the threshold rule and persists the
// resulting status.
func (uc *ProcessShipment) Execute(ctx context.Context, cmd ProcessShipmentCommand) (*ProcessShipmentResponse, error) {
	shipment, err := uc.shipments.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find shipment")
	}

	if uc.delay > 0 {
		select {
		case <-time.After(uc.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	outcome := shipment.Process()
	if err := uc.shipments.UpdateStatus(ctx, shipment.ID, shipment.Status); err != nil {
		return nil, errors.Wrap(err, "failed to update shipment status")
	}

	if outcome == saga.OutcomeExceeded {
		log.Printf("shipment %s: quantity %d exceeds limit %d", shipment.ID, shipment.Quantity, domain.QuantityLimit)
		telemetry.RecordCounter(ctx, "shipment_exceeded_total", "Shipments rejected over the quantity limit", 1)
		return &ProcessShipmentResponse{
			ID:      shipment.ID,
			Outcome: outcome,
			Status:  string(domain.ShipmentStatusOnHold),
			Error:   fmt.Sprintf("Shipment %s exceeded the maximum quantity.", shipment.ID),
		}, nil
	}

	log.Printf("shipment %s: processed", shipment.ID)
	return &ProcessShipmentResponse{
		ID:      shipment.ID,
		Outcome: outcome,
		Status:  string(shipment.Status),
		Message: fmt.Sprintf("Shipment %s was processed.", shipment.ID),
	}, nil
}
