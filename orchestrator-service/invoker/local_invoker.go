package invoker

import (
	"context"

	"github.com/pkg/errors"

	orderapp "github.com/orderstack/fulfillment-system/order-service/application"
	paymentapp "github.com/orderstack/fulfillment-system/payment-service/application"
	"github.com/orderstack/fulfillment-system/shared/saga"
	shippingapp "github.com/orderstack/fulfillment-system/shipping-service/application"
)

var _ saga.Invoker = (*LocalInvoker)(nil)

// LocalInvoker executes participant operations as direct use case calls
// inside the orchestrator process. All participants share the orchestrator's
// database connection; this is the single-binary deployment of the
// orchestrated variant.
type LocalInvoker struct {
	createOrder    *orderapp.CreateOrder
	processOrder   *orderapp.ProcessOrder
	reconcileOrder *orderapp.ReconcileOrder

	createPayment    *paymentapp.CreatePayment
	processPayment   *paymentapp.ProcessPayment
	reconcilePayment *paymentapp.ReconcilePayment

	createShipment    *shippingapp.CreateShipment
	processShipment   *shippingapp.ProcessShipment
	reconcileShipment *shippingapp.ReconcileShipment
}

// NewLocalInvoker wires the participant use cases into one transport
func NewLocalInvoker(
	createOrder *orderapp.CreateOrder,
	processOrder *orderapp.ProcessOrder,
	reconcileOrder *orderapp.ReconcileOrder,
	createPayment *paymentapp.CreatePayment,
	processPayment *paymentapp.ProcessPayment,
	reconcilePayment *paymentapp.ReconcilePayment,
	createShipment *shippingapp.CreateShipment,
	processShipment *shippingapp.ProcessShipment,
	reconcileShipment *shippingapp.ReconcileShipment,
) *LocalInvoker {
	return &LocalInvoker{
		createOrder:       createOrder,
		processOrder:      processOrder,
		reconcileOrder:    reconcileOrder,
		createPayment:     createPayment,
		processPayment:    processPayment,
		reconcilePayment:  reconcilePayment,
		createShipment:    createShipment,
		processShipment:   processShipment,
		reconcileShipment: reconcileShipment,
	}
}

// Invoke dispatches one invocation to the matching use case. Domain errors
// pass through untouched so the coordinator can classify them.
func (i *LocalInvoker) Invoke(ctx context.Context, inv saga.Invocation) (saga.Result, error) {
	switch inv.Participant {
	case saga.ParticipantOrder:
		return i.invokeOrder(ctx, inv)
	case saga.ParticipantPayment:
		return i.invokePayment(ctx, inv)
	case saga.ParticipantShipping:
		return i.invokeShipping(ctx, inv)
	}
	return saga.Result{}, errors.Errorf("unknown participant %q", inv.Participant)
}

func (i *LocalInvoker) invokeOrder(ctx context.Context, inv saga.Invocation) (saga.Result, error) {
	switch inv.Operation {
	case saga.OperationCreate:
		resp, err := i.createOrder.Execute(ctx, orderapp.CreateOrderCommand{
			ID:       inv.ID,
			Amount:   inv.Amount,
			Quantity: inv.Quantity,
			Attempt:  inv.Attempt,
		})
		if err != nil {
			return saga.Result{}, err
		}
		return saga.Result{Outcome: saga.OutcomeSuccess, Message: resp.Message}, nil

	case saga.OperationProcess:
		resp, err := i.processOrder.Execute(ctx, orderapp.ProcessOrderCommand{ID: inv.ID})
		if err != nil {
			return saga.Result{}, err
		}
		return saga.Result{Outcome: saga.OutcomeSuccess, Message: resp.Message}, nil

	case saga.OperationReconcile:
		resp, err := i.reconcileOrder.Execute(ctx, orderapp.ReconcileOrderCommand{
			ID:     inv.ID,
			Status: string(inv.Status),
		})
		if err != nil {
			return saga.Result{}, err
		}
		return saga.Result{Outcome: saga.OutcomeSuccess, Message: resp.Message}, nil
	}
	return saga.Result{}, errors.Errorf("unknown operation %q", inv.Operation)
}

func (i *LocalInvoker) invokePayment(ctx context.Context, inv saga.Invocation) (saga.Result, error) {
	switch inv.Operation {
	case saga.OperationCreate:
		resp, err := i.createPayment.Execute(ctx, paymentapp.CreatePaymentCommand{
			ID:     inv.ID,
			Amount: inv.Amount,
		})
		if err != nil {
			return saga.Result{}, err
		}
		return saga.Result{Outcome: saga.OutcomeSuccess, Message: resp.Message}, nil

	case saga.OperationProcess:
		resp, err := i.processPayment.Execute(ctx, paymentapp.ProcessPaymentCommand{
			ID:     inv.ID,
			Amount: inv.Amount,
		})
		if err != nil {
			return saga.Result{}, err
		}
		return saga.Result{Outcome: resp.Outcome, Message: resp.Message, Error: resp.Error}, nil

	case saga.OperationReconcile:
		resp, err := i.reconcilePayment.Execute(ctx, paymentapp.ReconcilePaymentCommand{
			ID:     inv.ID,
			Status: string(inv.Status),
		})
		if err != nil {
			return saga.Result{}, err
		}
		return saga.Result{Outcome: saga.OutcomeSuccess, Message: resp.Message}, nil
	}
	return saga.Result{}, errors.Errorf("unknown operation %q", inv.Operation)
}

func (i *LocalInvoker) invokeShipping(ctx context.Context, inv saga.Invocation) (saga.Result, error) {
	switch inv.Operation {
	case saga.OperationCreate:
		resp, err := i.createShipment.Execute(ctx, shippingapp.CreateShipmentCommand{
			ID:       inv.ID,
			Quantity: inv.Quantity,
		})
		if err != nil {
			return saga.Result{}, err
		}
		return saga.Result{Outcome: saga.OutcomeSuccess, Message: resp.Message}, nil

	case saga.OperationProcess:
		resp, err := i.processShipment.Execute(ctx, shippingapp.ProcessShipmentCommand{
			ID:       inv.ID,
			Quantity: inv.Quantity,
		})
		if err != nil {
			return saga.Result{}, err
		}
		return saga.Result{Outcome: resp.Outcome, Message: resp.Message, Error: resp.Error}, nil

	case saga.OperationReconcile:
		resp, err := i.reconcileShipment.Execute(ctx, shippingapp.ReconcileShipmentCommand{
			ID:     inv.ID,
			Status: string(inv.Status),
		})
		if err != nil {
			return saga.Result{}, err
		}
		return saga.Result{Outcome: saga.OutcomeSuccess, Message: resp.Message}, nil
	}
	return saga.Result{}, errors.Errorf("unknown operation %q", inv.Operation)
}
