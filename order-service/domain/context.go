package domain

import (
	"context"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// ParticipantState is the last state a participant reported to the context
type ParticipantState string

const (
	StateNone       ParticipantState = ""
	StateCreated    ParticipantState = "Created"
	StateProcessed  ParticipantState = "Processed"
	StateError      ParticipantState = "Error"
	StateReconciled ParticipantState = "Reconciled"
)

// ContextField names a participant column on the saga context row
type ContextField string

const (
	FieldOrder    ContextField = "order_state"
	FieldPayment  ContextField = "payment_state"
	FieldShipment ContextField = "shipment_state"
)

// Phase marks which fan-out decisions the context has already made for one
// saga instance. Phases only move forward, one claim each.
type Phase string

const (
	PhaseNone    Phase = ""
	PhaseCreate  Phase = "create"
	PhaseProcess Phase = "process"
)

// SagaContext is the choreography state of one saga instance. The context
// keeper folds participant notifications into it and fires the next commands
// when a join completes; notifications arrive in any order.
type SagaContext struct {
	ID         models.ID
	Amount     int64
	Quantity   int
	Order      ParticipantState
	Payment    ParticipantState
	Shipment   ParticipantState
	Phase      Phase
	Timestamps models.Timestamps
}

// NewSagaContext starts the context for a new saga instance
func NewSagaContext(id models.ID, amount int64, quantity int) *SagaContext {
	return &SagaContext{
		ID:         id,
		Amount:     amount,
		Quantity:   quantity,
		Timestamps: models.NewTimestamps(),
	}
}

// SiblingsCreated reports whether both siblings confirmed creation
func (c *SagaContext) SiblingsCreated() bool {
	return c.Payment == StateCreated && c.Shipment == StateCreated
}

// SiblingsDecided reports whether both siblings reported a processing
// outcome, success or failure alike.
func (c *SagaContext) SiblingsDecided() bool {
	return (c.Payment == StateProcessed || c.Payment == StateError) &&
		(c.Shipment == StateProcessed || c.Shipment == StateError)
}

// Outcomes maps the recorded sibling states onto processing outcomes. Only
// valid after SiblingsDecided.
func (c *SagaContext) Outcomes() (payment, shipment saga.Outcome) {
	payment = saga.OutcomeSuccess
	if c.Payment == StateError {
		payment = saga.OutcomeExceeded
	}
	shipment = saga.OutcomeSuccess
	if c.Shipment == StateError {
		shipment = saga.OutcomeExceeded
	}
	return payment, shipment
}

// ContextRepository persists saga contexts. SetField and ClaimPhase must be
// atomic: multiple notifications for one saga can be handled concurrently.
type ContextRepository interface {
	// Create inserts the context if absent.
	Create(ctx context.Context, sagaCtx *SagaContext) error
	FindByID(ctx context.Context, id models.ID) (*SagaContext, error)
	// SetField records a participant state on the context row.
	SetField(ctx context.Context, id models.ID, field ContextField, state ParticipantState) error
	// ClaimPhase advances the phase marker from one value to the next and
	// reports whether this caller won the claim. A lost claim means another
	// handler already fired the fan-out for that phase.
	ClaimPhase(ctx context.Context, id models.ID, from, to Phase) (bool, error)
}
