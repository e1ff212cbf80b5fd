package application

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/order-service/domain"
	"github.com/orderstack/fulfillment-system/shared/events"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
	"github.com/orderstack/fulfillment-system/shared/telemetry"
)

// StartOrderCommand opens a new choreographed saga instance
type StartOrderCommand struct {
	Amount   int64 `json:"amount"`
	Quantity int   `json:"quantity"`
}

// StartOrderResponse acknowledges the accepted saga. The outcome arrives
// asynchronously; callers poll check-order-status.
type StartOrderResponse struct {
	ID       models.ID `json:"id"`
	Amount   int64     `json:"amount"`
	Quantity int       `json:"quantity"`
	Message  string    `json:"message"`
}

// OrderContext is the choreography context keeper. It owns the saga context
// row, folds participant notifications into it and emits the next commands
// when a join completes. Participant notifications for one saga may arrive
// in any order and more than once; each fan-out fires exactly once, guarded
// by the phase claim on the context row.
type OrderContext struct {
	contexts  domain.ContextRepository
	publisher events.Publisher
}

// NewOrderContext creates the context keeper
func NewOrderContext(contexts domain.ContextRepository, publisher events.Publisher) *OrderContext {
	return &OrderContext{
		contexts:  contexts,
		publisher: publisher,
	}
}

// Start opens the saga: persists the context and commands the order creation
func (h *OrderContext) Start(ctx context.Context, cmd StartOrderCommand) (*StartOrderResponse, error) {
	id := models.GenerateUUID()

	sagaCtx := domain.NewSagaContext(id, cmd.Amount, cmd.Quantity)
	if err := h.contexts.Create(ctx, sagaCtx); err != nil {
		return nil, errors.Wrap(err, "failed to create saga context")
	}

	event := events.NewEvent(id, events.SourceOrderContext, events.DetailCreateOrder, events.Detail{
		ID:       id,
		Amount:   cmd.Amount,
		Quantity: cmd.Quantity,
	})
	if err := h.publisher.Publish(ctx, event); err != nil {
		return nil, errors.Wrap(err, "failed to publish create order command")
	}

	log.Printf("saga %s: started amount=%d quantity=%d", id, cmd.Amount, cmd.Quantity)
	telemetry.RecordCounter(ctx, "saga_started_total", "Choreographed sagas opened", 1)

	return &StartOrderResponse{
		ID:       id,
		Amount:   cmd.Amount,
		Quantity: cmd.Quantity,
		Message:  "Order was received.",
	}, nil
}

// Handle folds one participant notification into the saga context. The
// switch is the routing table of the whole choreography.
func (h *OrderContext) Handle(ctx context.Context, event *events.Event) error {
	if event.DetailType == events.DetailError {
		return h.handleError(ctx, event)
	}

	switch event.Key() {
	case events.Key{Source: events.SourceCreateOrder, Type: events.DetailSuccess}:
		return h.handleOrderCreated(ctx, event)

	case events.Key{Source: events.SourceCreatePayment, Type: events.DetailSuccess}:
		return h.handleSiblingCreated(ctx, event, domain.FieldPayment)
	case events.Key{Source: events.SourceCreateShipping, Type: events.DetailSuccess}:
		return h.handleSiblingCreated(ctx, event, domain.FieldShipment)

	case events.Key{Source: events.SourceProcessPayment, Type: events.DetailSuccess}:
		return h.handleSiblingDecided(ctx, event, domain.FieldPayment, domain.StateProcessed)
	case events.Key{Source: events.SourceProcessPayment, Type: events.DetailReconcile}:
		return h.handleSiblingDecided(ctx, event, domain.FieldPayment, domain.StateError)
	case events.Key{Source: events.SourceProcessShipping, Type: events.DetailSuccess}:
		return h.handleSiblingDecided(ctx, event, domain.FieldShipment, domain.StateProcessed)
	case events.Key{Source: events.SourceProcessShipping, Type: events.DetailReconcile}:
		return h.handleSiblingDecided(ctx, event, domain.FieldShipment, domain.StateError)

	case events.Key{Source: events.SourceProcessOrder, Type: events.DetailSuccess}:
		return h.setField(ctx, event, domain.FieldOrder, domain.StateProcessed)

	case events.Key{Source: events.SourceReconcileOrder, Type: events.DetailSuccess}:
		return h.setField(ctx, event, domain.FieldOrder, domain.StateReconciled)
	case events.Key{Source: events.SourceReconcilePayment, Type: events.DetailSuccess}:
		return h.setField(ctx, event, domain.FieldPayment, domain.StateReconciled)
	case events.Key{Source: events.SourceReconcileShipping, Type: events.DetailSuccess}:
		return h.setField(ctx, event, domain.FieldShipment, domain.StateReconciled)
	}

	return nil
}

// handleError records participant failures. Validation failures are terminal
// for the instance; the context keeps the partial state for inspection.
func (h *OrderContext) handleError(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	log.Printf("saga %s: %s reported error: %s", detail.ID, event.Source, detail.Error)
	telemetry.RecordCounter(ctx, "saga_participant_error_total", "Participant errors reported to the context", 1)

	switch event.Source {
	case events.SourceCreateOrder:
		return h.contexts.SetField(ctx, detail.ID, domain.FieldOrder, domain.StateError)
	case events.SourceCreatePayment:
		return h.contexts.SetField(ctx, detail.ID, domain.FieldPayment, domain.StateError)
	case events.SourceCreateShipping:
		return h.contexts.SetField(ctx, detail.ID, domain.FieldShipment, domain.StateError)
	}
	return nil
}

func (h *OrderContext) handleOrderCreated(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	if err := h.contexts.SetField(ctx, detail.ID, domain.FieldOrder, domain.StateCreated); err != nil {
		return errors.Wrap(err, "failed to record order state")
	}

	sagaCtx, err := h.contexts.FindByID(ctx, detail.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load saga context")
	}

	return h.publisher.Publish(ctx, events.NewEvent(sagaCtx.ID, events.SourceOrderContext, events.DetailOrderCreated, events.Detail{
		ID:       sagaCtx.ID,
		Amount:   sagaCtx.Amount,
		Quantity: sagaCtx.Quantity,
	}))
}

func (h *OrderContext) handleSiblingCreated(ctx context.Context, event *events.Event, field domain.ContextField) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	if err := h.contexts.SetField(ctx, detail.ID, field, domain.StateCreated); err != nil {
		return errors.Wrap(err, "failed to record sibling state")
	}

	sagaCtx, err := h.contexts.FindByID(ctx, detail.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load saga context")
	}
	if !sagaCtx.SiblingsCreated() {
		return nil
	}

	claimed, err := h.contexts.ClaimPhase(ctx, sagaCtx.ID, domain.PhaseNone, domain.PhaseCreate)
	if err != nil {
		return errors.Wrap(err, "failed to claim create phase")
	}
	if !claimed {
		return nil
	}

	err = h.publisher.Publish(ctx,
		events.NewEvent(sagaCtx.ID, events.SourceOrderContext, events.DetailProcessPayment, events.Detail{
			ID:     sagaCtx.ID,
			Amount: sagaCtx.Amount,
		}),
		events.NewEvent(sagaCtx.ID, events.SourceOrderContext, events.DetailProcessShipping, events.Detail{
			ID:       sagaCtx.ID,
			Quantity: sagaCtx.Quantity,
		}),
	)
	if err != nil {
		// Hand the claim back so the redelivered notification can retry the
		// fan-out.
		if _, revertErr := h.contexts.ClaimPhase(ctx, sagaCtx.ID, domain.PhaseCreate, domain.PhaseNone); revertErr != nil {
			log.Printf("saga %s: failed to revert create phase claim: %v", sagaCtx.ID, revertErr)
		}
		return errors.Wrap(err, "failed to publish process commands")
	}

	log.Printf("saga %s: both siblings created, processing", sagaCtx.ID)
	return nil
}

func (h *OrderContext) handleSiblingDecided(ctx context.Context, event *events.Event, field domain.ContextField, state domain.ParticipantState) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	if err := h.contexts.SetField(ctx, detail.ID, field, state); err != nil {
		return errors.Wrap(err, "failed to record sibling state")
	}

	sagaCtx, err := h.contexts.FindByID(ctx, detail.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load saga context")
	}
	if !sagaCtx.SiblingsDecided() {
		return nil
	}

	claimed, err := h.contexts.ClaimPhase(ctx, sagaCtx.ID, domain.PhaseCreate, domain.PhaseProcess)
	if err != nil {
		return errors.Wrap(err, "failed to claim process phase")
	}
	if !claimed {
		return nil
	}

	payment, shipment := sagaCtx.Outcomes()
	decision := saga.Decide(payment, shipment)

	var commands []*events.Event
	if decision.Order == saga.TargetProcessed {
		commands = append(commands, events.NewEvent(sagaCtx.ID, events.SourceOrderContext, events.DetailProcessOrder, events.Detail{
			ID: sagaCtx.ID,
		}))
	} else {
		commands = append(commands, events.NewEvent(sagaCtx.ID, events.SourceOrderContext, events.DetailReconcileOrder, events.Detail{
			ID:     sagaCtx.ID,
			Status: string(saga.TargetOnHold),
		}))
		if decision.CompensatePayment {
			commands = append(commands, events.NewEvent(sagaCtx.ID, events.SourceOrderContext, events.DetailReconcilePayment, events.Detail{
				ID:     sagaCtx.ID,
				Status: string(saga.TargetOnHold),
			}))
		}
		if decision.CompensateShipment {
			commands = append(commands, events.NewEvent(sagaCtx.ID, events.SourceOrderContext, events.DetailReconcileShipping, events.Detail{
				ID:     sagaCtx.ID,
				Status: string(saga.TargetOnHold),
			}))
		}
	}

	if err := h.publisher.Publish(ctx, commands...); err != nil {
		if _, revertErr := h.contexts.ClaimPhase(ctx, sagaCtx.ID, domain.PhaseProcess, domain.PhaseCreate); revertErr != nil {
			log.Printf("saga %s: failed to revert process phase claim: %v", sagaCtx.ID, revertErr)
		}
		return errors.Wrap(err, "failed to publish decision commands")
	}

	if decision.Order == saga.TargetProcessed {
		log.Printf("saga %s: both siblings processed, completing", sagaCtx.ID)
		telemetry.RecordCounter(ctx, "saga_completed_total", "Sagas completed without compensation", 1)
	} else {
		log.Printf("saga %s: reconciling (payment=%s shipment=%s)", sagaCtx.ID, payment, shipment)
		telemetry.RecordCounter(ctx, "saga_compensated_total", "Sagas ended on hold after compensation", 1)
	}
	return nil
}

func (h *OrderContext) setField(ctx context.Context, event *events.Event, field domain.ContextField, state domain.ParticipantState) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}
	return h.contexts.SetField(ctx, detail.ID, field, state)
}
