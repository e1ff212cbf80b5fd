package handlers

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/order-service/application"
	"github.com/orderstack/fulfillment-system/shared/events"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// OrderEventHandler reacts to the order context commands addressed at the
// order participant. The context keeper itself subscribes separately; this
// handler only performs order record operations and reports back.
type OrderEventHandler struct {
	createOrder    *application.CreateOrder
	processOrder   *application.ProcessOrder
	reconcileOrder *application.ReconcileOrder
	publisher      events.Publisher
}

// NewOrderEventHandler creates the event handler
func NewOrderEventHandler(
	createOrder *application.CreateOrder,
	processOrder *application.ProcessOrder,
	reconcileOrder *application.ReconcileOrder,
	publisher events.Publisher,
) *OrderEventHandler {
	return &OrderEventHandler{
		createOrder:    createOrder,
		processOrder:   processOrder,
		reconcileOrder: reconcileOrder,
		publisher:      publisher,
	}
}

// Handle dispatches on the (source, detail type) routing key. Unmatched keys
// are dropped silently.
func (h *OrderEventHandler) Handle(ctx context.Context, event *events.Event) error {
	switch event.Key() {
	case events.Key{Source: events.SourceOrderContext, Type: events.DetailCreateOrder}:
		return h.handleCreate(ctx, event)
	case events.Key{Source: events.SourceOrderContext, Type: events.DetailProcessOrder}:
		return h.handleProcess(ctx, event)
	case events.Key{Source: events.SourceOrderContext, Type: events.DetailReconcileOrder}:
		return h.handleReconcile(ctx, event)
	}
	return nil
}

func (h *OrderEventHandler) handleCreate(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	resp, err := h.createOrder.Execute(ctx, application.CreateOrderCommand{
		ID:       detail.ID,
		Amount:   detail.Amount,
		Quantity: detail.Quantity,
	})
	if saga.IsInvalidInput(err) {
		log.Printf("order %s: create rejected: %v", detail.ID, err)
		return h.publisher.Publish(ctx, events.NewEvent(detail.ID, events.SourceCreateOrder, events.DetailError, events.Detail{
			ID:    detail.ID,
			Error: err.Error(),
		}))
	}
	if err != nil {
		return err
	}

	return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceCreateOrder, events.DetailSuccess, events.Detail{
		ID:     resp.ID,
		Status: resp.Status,
	}))
}

func (h *OrderEventHandler) handleProcess(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	resp, err := h.processOrder.Execute(ctx, application.ProcessOrderCommand{ID: detail.ID})
	if err != nil {
		return err
	}

	return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceProcessOrder, events.DetailSuccess, events.Detail{
		ID:     resp.ID,
		Status: resp.Status,
	}))
}

func (h *OrderEventHandler) handleReconcile(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	resp, err := h.reconcileOrder.Execute(ctx, application.ReconcileOrderCommand{
		ID:     detail.ID,
		Status: detail.Status,
	})
	if err != nil {
		return err
	}

	return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceReconcileOrder, events.DetailSuccess, events.Detail{
		ID:     resp.ID,
		Status: resp.Status,
	}))
}
