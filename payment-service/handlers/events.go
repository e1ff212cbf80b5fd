package handlers

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/payment-service/application"
	"github.com/orderstack/fulfillment-system/shared/events"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// PaymentEventHandler reacts to the order context commands addressed at the
// payment participant. Every reaction reports back on the bus: Success when
// the step landed, Error for invalid input, Reconcile when the amount
// exceeded the limit.
type PaymentEventHandler struct {
	createPayment    *application.CreatePayment
	processPayment   *application.ProcessPayment
	reconcilePayment *application.ReconcilePayment
	publisher        events.Publisher
}

// NewPaymentEventHandler creates the event handler
func NewPaymentEventHandler(
	createPayment *application.CreatePayment,
	processPayment *application.ProcessPayment,
	reconcilePayment *application.ReconcilePayment,
	publisher events.Publisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		createPayment:    createPayment,
		processPayment:   processPayment,
		reconcilePayment: reconcilePayment,
		publisher:        publisher,
	}
}

// Handle dispatches on the (source, detail type) routing key. Unmatched keys
// are dropped silently; the queue carries notifications for every
// participant.
func (h *PaymentEventHandler) Handle(ctx context.Context, event *events.Event) error {
	switch event.Key() {
	case events.Key{Source: events.SourceOrderContext, Type: events.DetailOrderCreated}:
		return h.handleCreate(ctx, event)
	case events.Key{Source: events.SourceOrderContext, Type: events.DetailProcessPayment}:
		return h.handleProcess(ctx, event)
	case events.Key{Source: events.SourceOrderContext, Type: events.DetailReconcilePayment}:
		return h.handleReconcile(ctx, event)
	}
	return nil
}

func (h *PaymentEventHandler) handleCreate(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	resp, err := h.createPayment.Execute(ctx, application.CreatePaymentCommand{
		ID:     detail.ID,
		Amount: detail.Amount,
	})
	if saga.IsInvalidInput(err) {
		log.Printf("payment %s: create rejected: %v", detail.ID, err)
		return h.publisher.Publish(ctx, events.NewEvent(detail.ID, events.SourceCreatePayment, events.DetailError, events.Detail{
			ID:    detail.ID,
			Error: err.Error(),
		}))
	}
	if err != nil {
		return err
	}

	return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceCreatePayment, events.DetailSuccess, events.Detail{
		ID:     resp.ID,
		Amount: detail.Amount,
		Status: resp.Status,
	}))
}

func (h *PaymentEventHandler) handleProcess(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	resp, err := h.processPayment.Execute(ctx, application.ProcessPaymentCommand{
		ID:     detail.ID,
		Amount: detail.Amount,
	})
	if err != nil {
		return err
	}

	if resp.Outcome == saga.OutcomeExceeded {
		return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceProcessPayment, events.DetailReconcile, events.Detail{
			ID:     resp.ID,
			Status: resp.Status,
			Error:  resp.Error,
		}))
	}

	return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceProcessPayment, events.DetailSuccess, events.Detail{
		ID:     resp.ID,
		Status: resp.Status,
	}))
}

func (h *PaymentEventHandler) handleReconcile(ctx context.Context, event *events.Event) error {
	var detail events.Detail
	if err := event.UnmarshalDetail(&detail); err != nil {
		return errors.Wrap(err, "failed to decode detail")
	}

	resp, err := h.reconcilePayment.Execute(ctx, application.ReconcilePaymentCommand{
		ID:     detail.ID,
		Status: detail.Status,
	})
	if err != nil {
		return err
	}

	return h.publisher.Publish(ctx, events.NewEvent(resp.ID, events.SourceReconcilePayment, events.DetailSuccess, events.Detail{
		ID:     resp.ID,
		Status: resp.Status,
	}))
}
