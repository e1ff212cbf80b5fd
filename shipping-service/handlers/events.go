package handlers

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/shared/events"
	"github.com/orderstack/fulfillment-system/shared/saga"
	"github.com/orderstack/fulfillment-system/shipping-service/application"
)

// ShipmentEventHandler reacts to the order context commands addressed at the
// shipping participant.
type ShipmentEventHandler struct {
	createShipment    *application.CreateShipment
	processShipment   *application.ProcessShipment
	reconcileShipment *application.ReconcileShipment
	publisher         events.Publisher
}

// NewShipmentEventHandler creates the event handler
func NewShipmentEventHandler(
	createShipment *application.CreateShipment,
	processShipment *application.ProcessShipment,
	reconcileShipment *application.ReconcileShipment,
	publisher events.Publisher,
) *ShipmentEventHandler {
	return &ShipmentEventHandler{
		createShipment:    createShipment,
		processShipment:   processShipment,
		reconcileShipment: reconcileShipment,
		publisher:         publisher,
	}
}

// Handle dispatches on the (source, detail type) routing key. Unmatched keys
// are dropped silently.
func (h *ShipmentEventHandler) Handle(ctx context.Context, event *events.Event) error {
	switch event.Key() {
	case events.Key{Source: events.SourceOrderContext, Type: events.DetailOrderCreated}:
		return h.handleCreate(ctx, event)
	case events.Key{Source: events.SourceOrderContext, Type: events.DetailProcessShipping}:
		return h.handleProcess(ctx, event)
	case events.Key{Source: events.SourceOrderContext, Type: events.DetailReconcileShipping}:
		return h.handleReconcile(ctx, event)
	}
	return nil
}

func (h *ShipmentEventHandler) handleCreate(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	resp, err := h.createShipment.Execute(ctx, application.CreateShipmentCommand{
		ID:       detail.ID,
		Quantity: detail.Quantity,
	})
	if saga.IsInvalidInput(err) {
		log.Printf("shipment %s: create rejected: %v", detail.ID, err)
		return h.publisher.Publish(ctx, events.NewEvent(detail.ID, events.SourceCreateShipping, events.DetailError, events.Detail{
			ID:    detail.ID,
			Error: err.Error(),
		}))
	}
	if err != nil {
		return err
	}

	return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceCreateShipping, events.DetailSuccess, events.Detail{
		ID:       resp.ID,
		Quantity: detail.Quantity,
		Status:   resp.Status,
	}))
}

func (h *ShipmentEventHandler) handleProcess(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	resp, err := h.processShipment.Execute(ctx, application.ProcessShipmentCommand{
		ID:       detail.ID,
		Quantity: detail.Quantity,
	})
	if err != nil {
		return err
	}

	if resp.Outcome == saga.OutcomeExceeded {
		return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceProcessShipping, events.DetailReconcile, events.Detail{
			ID:     resp.ID,
			Status: resp.Status,
			Error:  resp.Error,
		}))
	}

	return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceProcessShipping, events.DetailSuccess, events.Detail{
		ID:     resp.ID,
		Status: resp.Status,
	}))
}

func (h *ShipmentEventHandler) handleReconcile(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	resp, err := h.reconcileShipment.Execute(ctx, application.ReconcileShipmentCommand{
		ID:     detail.ID,
		Status: detail.Status,
	})
	if err != nil {
		return err
	}

	return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceReconcileShipping, events.DetailSuccess, events.Detail{
		ID:     resp.ID,
		Status: resp.Status,
	}))
}
