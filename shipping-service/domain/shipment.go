package domain

import (
	"context"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// ShipmentStatus represents the status of a shipment
type ShipmentStatus string

const (
	ShipmentStatusPending    ShipmentStatus = "Pending"
	ShipmentStatusProcessed  ShipmentStatus = "Processed"
	ShipmentStatusExceeded   ShipmentStatus = "Exceeded"
	ShipmentStatusOnHold     ShipmentStatus = "OnHold"
	ShipmentStatusReconciled ShipmentStatus = "Reconciled"
)

// QuantityLimit is the processing threshold. Quantities above it are a valid
// business outcome (Exceeded), not a fault.
const QuantityLimit = 100

// Shipment record. Shares its id with the order and payment of the same
// saga instance.
type Shipment struct {
	ID         models.ID
	Quantity   int
	Status     ShipmentStatus
	Timestamps models.Timestamps
}

// CreateShipment validates the quantity and builds a Pending record
func CreateShipment(id models.ID, quantity int) (*Shipment, error) {
	if quantity < 0 {
		return nil, saga.NewInvalidInput("shipping quantity must not be negative")
	}

	return &Shipment{
		ID:         id,
		Quantity:   quantity,
		Status:     ShipmentStatusPending,
		Timestamps: models.NewTimestamps(),
	}, nil
}

// Process applies the threshold rule and returns the outcome. Re-processing
// a record that already reached a processing outcome repeats that outcome
// without a further transition.
func (s *Shipment) Process() saga.Outcome {
	switch s.Status {
	case ShipmentStatusProcessed:
		return saga.OutcomeSuccess
	case ShipmentStatusExceeded:
		return saga.OutcomeExceeded
	}

	if s.Quantity <= QuantityLimit {
		s.Status = ShipmentStatusProcessed
	} else {
		s.Status = ShipmentStatusExceeded
	}
	s.Timestamps = s.Timestamps.Update()

	if s.Status == ShipmentStatusExceeded {
		return saga.OutcomeExceeded
	}
	return saga.OutcomeSuccess
}

// Reconcile force-sets the compensation target status regardless of the
// current one.
func (s *Shipment) Reconcile(status ShipmentStatus) {
	s.Status = status
	s.Timestamps = s.Timestamps.Update()
}

// ShipmentRepository interface
type ShipmentRepository interface {
	// Create inserts the record if absent; re-running creation with the
	// same id is a no-op.
	Create(ctx context.Context, shipment *Shipment) error
	// UpdateStatus fails with saga.ErrNotFound when the record is absent.
	UpdateStatus(ctx context.Context, id models.ID, status ShipmentStatus) error
	FindByID(ctx context.Context, id models.ID) (*Shipment, error)
}
