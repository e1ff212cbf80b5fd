package saga

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInvoker scripts participant behavior per (participant, operation) key
// and records every invocation.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []Invocation
	scripts map[string]func(inv Invocation) (Result, error)
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{scripts: make(map[string]func(inv Invocation) (Result, error))}
}

func key(p Participant, op Operation) string {
	return fmt.Sprintf("%s/%s", p, op)
}

func (f *fakeInvoker) on(p Participant, op Operation, fn func(inv Invocation) (Result, error)) {
	f.scripts[key(p, op)] = fn
}

func (f *fakeInvoker) Invoke(_ context.Context, inv Invocation) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	f.mu.Unlock()

	if fn, ok := f.scripts[key(inv.Participant, inv.Operation)]; ok {
		return fn(inv)
	}
	return Result{Outcome: OutcomeSuccess, Message: "ok"}, nil
}

func (f *fakeInvoker) count(p Participant, op Operation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Participant == p && c.Operation == op {
			n++
		}
	}
	return n
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Interval: time.Millisecond, BackoffRate: 2}
}

func TestCoordinator_Run_AllProcessed(t *testing.T) {
	inv := newFakeInvoker()
	c := NewCoordinator(inv, fastRetry())

	summary, err := c.Run(context.Background(), Request{Amount: 500, Quantity: 10})
	require.NoError(t, err)

	assert.Equal(t, StatusProcessed, summary.Status)
	assert.Equal(t, OutcomeSuccess, summary.Payment)
	assert.Equal(t, OutcomeSuccess, summary.Shipment)
	assert.Equal(t, 1, inv.count(ParticipantOrder, OperationProcess))
	assert.Equal(t, 0, inv.count(ParticipantOrder, OperationReconcile))
	assert.Equal(t, 0, inv.count(ParticipantPayment, OperationReconcile))
	assert.Equal(t, 0, inv.count(ParticipantShipping, OperationReconcile))
}

func TestCoordinator_Run_PaymentExceeded(t *testing.T) {
	inv := newFakeInvoker()
	inv.on(ParticipantPayment, OperationProcess, func(Invocation) (Result, error) {
		return Result{Outcome: OutcomeExceeded, Error: "amount over limit"}, nil
	})
	c := NewCoordinator(inv, fastRetry())

	summary, err := c.Run(context.Background(), Request{Amount: 1500, Quantity: 10})
	require.NoError(t, err)

	assert.Equal(t, StatusOnHold, summary.Status)
	assert.Equal(t, OutcomeExceeded, summary.Payment)
	assert.Equal(t, OutcomeSuccess, summary.Shipment)

	// The shipment already processed, so it gets compensated; the payment
	// failed on its own and must not be touched again.
	assert.Equal(t, 1, inv.count(ParticipantShipping, OperationProcess))
	assert.Equal(t, 1, inv.count(ParticipantOrder, OperationReconcile))
	assert.Equal(t, 1, inv.count(ParticipantShipping, OperationReconcile))
	assert.Equal(t, 0, inv.count(ParticipantPayment, OperationReconcile))
	assert.Equal(t, 0, inv.count(ParticipantOrder, OperationProcess))
}

func TestCoordinator_Run_ShipmentExceeded(t *testing.T) {
	inv := newFakeInvoker()
	inv.on(ParticipantShipping, OperationProcess, func(Invocation) (Result, error) {
		return Result{Outcome: OutcomeExceeded, Error: "quantity over limit"}, nil
	})
	c := NewCoordinator(inv, fastRetry())

	summary, err := c.Run(context.Background(), Request{Amount: 500, Quantity: 150})
	require.NoError(t, err)

	assert.Equal(t, StatusOnHold, summary.Status)
	assert.Equal(t, 1, inv.count(ParticipantPayment, OperationReconcile))
	assert.Equal(t, 0, inv.count(ParticipantShipping, OperationReconcile))
}

func TestCoordinator_Run_BothExceeded(t *testing.T) {
	inv := newFakeInvoker()
	inv.on(ParticipantPayment, OperationProcess, func(Invocation) (Result, error) {
		return Result{Outcome: OutcomeExceeded}, nil
	})
	inv.on(ParticipantShipping, OperationProcess, func(Invocation) (Result, error) {
		return Result{Outcome: OutcomeExceeded}, nil
	})
	c := NewCoordinator(inv, fastRetry())

	summary, err := c.Run(context.Background(), Request{Amount: 1500, Quantity: 150})
	require.NoError(t, err)

	// Both siblings are terminal on their own; only the order gets parked.
	assert.Equal(t, StatusOnHold, summary.Status)
	assert.Equal(t, 1, inv.count(ParticipantOrder, OperationReconcile))
	assert.Equal(t, 0, inv.count(ParticipantPayment, OperationReconcile))
	assert.Equal(t, 0, inv.count(ParticipantShipping, OperationReconcile))
}

func TestCoordinator_Run_JoinsBeforeDeciding(t *testing.T) {
	// The slow sibling must still be awaited when the fast one already
	// rejected; the decision needs both outcomes.
	inv := newFakeInvoker()
	var shipmentDone bool
	inv.on(ParticipantPayment, OperationProcess, func(Invocation) (Result, error) {
		return Result{Outcome: OutcomeExceeded}, nil
	})
	inv.on(ParticipantShipping, OperationProcess, func(Invocation) (Result, error) {
		time.Sleep(50 * time.Millisecond)
		shipmentDone = true
		return Result{Outcome: OutcomeSuccess, Message: "ok"}, nil
	})
	c := NewCoordinator(inv, fastRetry())

	summary, err := c.Run(context.Background(), Request{Amount: 1500, Quantity: 10})
	require.NoError(t, err)

	assert.True(t, shipmentDone)
	assert.Equal(t, OutcomeSuccess, summary.Shipment)
	assert.Equal(t, StatusOnHold, summary.Status)
}

func TestCoordinator_Run_RetriesTransientCreate(t *testing.T) {
	inv := newFakeInvoker()
	inv.on(ParticipantOrder, OperationCreate, func(i Invocation) (Result, error) {
		if i.Attempt < 3 {
			return Result{}, NewTransient("store unavailable")
		}
		return Result{Outcome: OutcomeSuccess, Message: "created"}, nil
	})
	c := NewCoordinator(inv, fastRetry())

	summary, err := c.Run(context.Background(), Request{Amount: 777, Quantity: 10})
	require.NoError(t, err)

	assert.Equal(t, StatusProcessed, summary.Status)
	// Success on the last budgeted attempt, and no fourth call.
	assert.Equal(t, 3, inv.count(ParticipantOrder, OperationCreate))
}

func TestCoordinator_Run_RetryBudgetExhausted(t *testing.T) {
	inv := newFakeInvoker()
	inv.on(ParticipantOrder, OperationCreate, func(Invocation) (Result, error) {
		return Result{}, NewTransient("store unavailable")
	})
	c := NewCoordinator(inv, fastRetry())

	summary, err := c.Run(context.Background(), Request{Amount: 777, Quantity: 10})
	require.Error(t, err)

	assert.Equal(t, StatusFailed, summary.Status)
	assert.Equal(t, 3, inv.count(ParticipantOrder, OperationCreate))
	// Nothing downstream may run after a failed create.
	assert.Equal(t, 0, inv.count(ParticipantPayment, OperationCreate))
	assert.Equal(t, 0, inv.count(ParticipantShipping, OperationCreate))
}

func TestCoordinator_Run_InvalidInputIsTerminal(t *testing.T) {
	inv := newFakeInvoker()
	inv.on(ParticipantOrder, OperationCreate, func(Invocation) (Result, error) {
		return Result{}, NewInvalidInput("order amount must not be negative")
	})
	c := NewCoordinator(inv, fastRetry())

	summary, err := c.Run(context.Background(), Request{Amount: -5, Quantity: 10})
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))

	assert.Equal(t, StatusFailed, summary.Status)
	// No retry for validation failures.
	assert.Equal(t, 1, inv.count(ParticipantOrder, OperationCreate))
	assert.Equal(t, 0, inv.count(ParticipantPayment, OperationProcess))
	assert.Equal(t, 0, inv.count(ParticipantShipping, OperationProcess))
}

func TestCoordinator_Run_SiblingCreateInvalidFailsSaga(t *testing.T) {
	inv := newFakeInvoker()
	inv.on(ParticipantPayment, OperationCreate, func(Invocation) (Result, error) {
		return Result{}, NewInvalidInput("payment amount must not be negative")
	})
	c := NewCoordinator(inv, fastRetry())

	summary, err := c.Run(context.Background(), Request{Amount: -5, Quantity: 10})
	require.Error(t, err)

	assert.Equal(t, StatusFailed, summary.Status)
	assert.Equal(t, 0, inv.count(ParticipantPayment, OperationProcess))
	assert.Equal(t, 0, inv.count(ParticipantShipping, OperationProcess))
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Interval: time.Second, BackoffRate: 2}

	assert.Equal(t, time.Second, p.backoff(1))
	assert.Equal(t, 2*time.Second, p.backoff(2))
	assert.Equal(t, 4*time.Second, p.backoff(3))
}
