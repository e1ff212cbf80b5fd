package saga

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/telemetry"
)

// Participant identifies a saga participant
type Participant string

const (
	ParticipantOrder    Participant = "order"
	ParticipantPayment  Participant = "payment"
	ParticipantShipping Participant = "shipping"
)

// Operation identifies a participant operation
type Operation string

const (
	OperationCreate    Operation = "create"
	OperationProcess   Operation = "process"
	OperationReconcile Operation = "reconcile"
)

// Invocation is one participant call. The transport strategy decides whether
// it becomes a direct function call or an HTTP request.
type Invocation struct {
	Participant Participant
	Operation   Operation
	ID          models.ID
	Amount      int64
	Quantity    int
	Status      Target
	// Attempt is the 1-based retry attempt for this invocation. It is scoped
	// to one coordinator run; concurrent sagas never share a counter.
	Attempt int
}

// Result is the outcome of one invocation. Business failures (Exceeded,
// Invalid) are carried here as data; only transport and store faults surface
// as errors.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
	Error   string  `json:"error,omitempty"`
}

// Invoker is the transport strategy for participant operations
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (Result, error)
}

// RetryPolicy is the attempt budget for the create-order step. Backoff is
// exponential: interval * rate^(attempt-1).
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
	BackoffRate float64
}

// DefaultRetryPolicy mirrors the workflow definition: 3 attempts, 1s base,
// doubling each time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Interval:    time.Second,
		BackoffRate: 2,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.Interval
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.BackoffRate)
	}
	return d
}

// Request starts a new saga instance
type Request struct {
	Amount   int64 `json:"amount"`
	Quantity int   `json:"quantity"`
}

// StepResult is one participant message in the saga summary
type StepResult struct {
	Message string `json:"message"`
}

// Summary is the terminal state of a saga run
type Summary struct {
	ID       models.ID    `json:"id"`
	Amount   int64        `json:"amount"`
	Quantity int          `json:"quantity"`
	Status   Status       `json:"status"`
	Payment  Outcome      `json:"payment"`
	Shipment Outcome      `json:"shipment"`
	Results  []StepResult `json:"results"`
}

// Coordinator drives the shared state machine over a pluggable transport.
// One instance serves the synchronous request/response variant and the
// workflow variant alike; retry and catch behavior live here instead of a
// workflow DSL.
type Coordinator struct {
	invoker Invoker
	retry   RetryPolicy
}

// NewCoordinator creates a coordinator over the given transport strategy
func NewCoordinator(invoker Invoker, retry RetryPolicy) *Coordinator {
	return &Coordinator{
		invoker: invoker,
		retry:   retry,
	}
}

// Run executes one saga instance to a terminal state. The returned error is
// non-nil only for hard failures (validation, exhausted retries, store
// faults); business compensation ends with a nil error and Status OnHold.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Summary, error) {
	id := models.GenerateUUID()
	log.Printf("saga %s: create order amount=%d quantity=%d", id, req.Amount, req.Quantity)

	summary := &Summary{
		ID:       id,
		Amount:   req.Amount,
		Quantity: req.Quantity,
		Status:   StatusCreated,
	}

	// Create phase: order first, then both siblings concurrently. A
	// validation failure on either sibling is terminal for the saga.
	orderRes, err := c.createOrder(ctx, id, req)
	if err != nil {
		summary.Status = StatusFailed
		telemetry.RecordCounter(ctx, "saga_failed_total", "Sagas ended in hard failure", 1)
		return summary, err
	}
	summary.Results = append(summary.Results, StepResult{Message: orderRes.Message})

	summary.Status = StatusPendingCreate
	if err := c.createSiblings(ctx, id, req, summary); err != nil {
		summary.Status = StatusFailed
		telemetry.RecordCounter(ctx, "saga_failed_total", "Sagas ended in hard failure", 1)
		return summary, err
	}

	// Process phase: a join point. Both outcomes are required even when one
	// rejects, so the group must not cancel on first failure.
	summary.Status = StatusPendingProcess
	paymentRes, shipmentRes, err := c.processSiblings(ctx, id, req)
	if err != nil {
		summary.Status = StatusFailed
		telemetry.RecordCounter(ctx, "saga_failed_total", "Sagas ended in hard failure", 1)
		return summary, err
	}
	summary.Payment = paymentRes.Outcome
	summary.Shipment = shipmentRes.Outcome
	summary.Results = append(summary.Results,
		StepResult{Message: paymentRes.Message},
		StepResult{Message: shipmentRes.Message},
	)

	decision := Decide(paymentRes.Outcome, shipmentRes.Outcome)
	if decision.Order == TargetProcessed {
		summary.Status = StatusCompleted
		res, err := c.invoker.Invoke(ctx, Invocation{
			Participant: ParticipantOrder,
			Operation:   OperationProcess,
			ID:          id,
		})
		if err != nil {
			summary.Status = StatusFailed
			telemetry.RecordCounter(ctx, "saga_failed_total", "Sagas ended in hard failure", 1)
			return summary, errors.Wrap(err, "process order")
		}
		summary.Results = append(summary.Results, StepResult{Message: res.Message})
		summary.Status = StatusProcessed
		log.Printf("saga %s: processed", id)
		telemetry.RecordCounter(ctx, "saga_completed_total", "Sagas completed without compensation", 1)
		return summary, nil
	}

	summary.Status = StatusReconciling
	if err := c.reconcile(ctx, id, decision, summary); err != nil {
		summary.Status = StatusFailed
		telemetry.RecordCounter(ctx, "saga_failed_total", "Sagas ended in hard failure", 1)
		return summary, err
	}
	summary.Status = StatusOnHold
	log.Printf("saga %s: on hold (payment=%s shipment=%s)", id, paymentRes.Outcome, shipmentRes.Outcome)
	telemetry.RecordCounter(ctx, "saga_compensated_total", "Sagas ended on hold after compensation", 1)
	return summary, nil
}

// createOrder retries transient failures up to the attempt budget. The
// attempt counter is threaded through the invocation so the participant can
// distinguish retries of the same logical request.
func (c *Coordinator) createOrder(ctx context.Context, id models.ID, req Request) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		res, err := c.invoker.Invoke(ctx, Invocation{
			Participant: ParticipantOrder,
			Operation:   OperationCreate,
			ID:          id,
			Amount:      req.Amount,
			Quantity:    req.Quantity,
			Attempt:     attempt,
		})
		if err == nil {
			return res, nil
		}
		if !IsTransient(err) {
			return Result{}, errors.Wrap(err, "create order")
		}

		lastErr = err
		if attempt == c.retry.MaxAttempts {
			break
		}
		log.Printf("saga %s: create order attempt %d failed, retrying: %v", id, attempt, err)
		select {
		case <-time.After(c.retry.backoff(attempt)):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return Result{}, errors.Wrap(lastErr, "create order retries exhausted")
}

func (c *Coordinator) createSiblings(ctx context.Context, id models.ID, req Request, summary *Summary) error {
	var paymentRes, shipmentRes Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := c.invoker.Invoke(gctx, Invocation{
			Participant: ParticipantPayment,
			Operation:   OperationCreate,
			ID:          id,
			Amount:      req.Amount,
		})
		if err != nil {
			return errors.Wrap(err, "create payment")
		}
		paymentRes = res
		return nil
	})
	g.Go(func() error {
		res, err := c.invoker.Invoke(gctx, Invocation{
			Participant: ParticipantShipping,
			Operation:   OperationCreate,
			ID:          id,
			Quantity:    req.Quantity,
		})
		if err != nil {
			return errors.Wrap(err, "create shipping")
		}
		shipmentRes = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	summary.Results = append(summary.Results,
		StepResult{Message: paymentRes.Message},
		StepResult{Message: shipmentRes.Message},
	)
	return nil
}

func (c *Coordinator) processSiblings(ctx context.Context, id models.ID, req Request) (Result, Result, error) {
	var paymentRes, shipmentRes Result

	// Plain group: a transport error on one sibling must not cancel the
	// other, and Wait still joins on both.
	var g errgroup.Group
	g.Go(func() error {
		res, err := c.invoker.Invoke(ctx, Invocation{
			Participant: ParticipantPayment,
			Operation:   OperationProcess,
			ID:          id,
			Amount:      req.Amount,
		})
		if err != nil {
			return errors.Wrap(err, "process payment")
		}
		paymentRes = res
		return nil
	})
	g.Go(func() error {
		res, err := c.invoker.Invoke(ctx, Invocation{
			Participant: ParticipantShipping,
			Operation:   OperationProcess,
			ID:          id,
			Quantity:    req.Quantity,
		})
		if err != nil {
			return errors.Wrap(err, "process shipping")
		}
		shipmentRes = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, Result{}, err
	}
	return paymentRes, shipmentRes, nil
}

func (c *Coordinator) reconcile(ctx context.Context, id models.ID, decision Decision, summary *Summary) error {
	var results []Result
	invocations := []Invocation{{
		Participant: ParticipantOrder,
		Operation:   OperationReconcile,
		ID:          id,
		Status:      decision.Order,
	}}
	if decision.CompensatePayment {
		invocations = append(invocations, Invocation{
			Participant: ParticipantPayment,
			Operation:   OperationReconcile,
			ID:          id,
			Status:      TargetOnHold,
		})
	}
	if decision.CompensateShipment {
		invocations = append(invocations, Invocation{
			Participant: ParticipantShipping,
			Operation:   OperationReconcile,
			ID:          id,
			Status:      TargetOnHold,
		})
	}

	results = make([]Result, len(invocations))
	g, gctx := errgroup.WithContext(ctx)
	for i, inv := range invocations {
		i, inv := i, inv
		g.Go(func() error {
			res, err := c.invoker.Invoke(gctx, inv)
			if err != nil {
				return errors.Wrapf(err, "reconcile %s", inv.Participant)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		summary.Results = append(summary.Results, StepResult{Message: res.Message})
	}
	return nil
}
