package app

import (
	"context"
	"database/sql"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
	"github.com/orderstack/fulfillment-system/shared/telemetry"
)

// Thresholds shared with the distributed variants.
const (
	amountLimit   int64 = 1000
	quantityLimit       = 100
)

// Saga runs the whole order fulfillment inside one process against one
// database. Each phase is a single transaction, so the cross-record
// consistency the distributed variants buy with compensation comes for free
// from atomic commit; the decision rule itself is the shared one.
type Saga struct {
	db *sqlx.DB
}

// NewSaga creates the monolith saga
func NewSaga(db *sqlx.DB) *Saga {
	return &Saga{db: db}
}

// Result is the terminal state of one monolith run
type Result struct {
	ID       models.ID    `json:"id"`
	Amount   int64        `json:"amount"`
	Quantity int          `json:"quantity"`
	Status   string       `json:"status"`
	Payment  saga.Outcome `json:"payment"`
	Shipment saga.Outcome `json:"shipment"`
	Message  string       `json:"message"`
}

// CreateOrder runs one saga instance to its terminal state: create the three
// pending records in one transaction, then process and decide in a second
// one.
func (s *Saga) CreateOrder(ctx context.Context, amount int64, quantity int) (*Result, error) {
	if amount < 0 {
		return nil, saga.NewInvalidInput("order amount must not be negative")
	}
	if quantity < 0 {
		return nil, saga.NewInvalidInput("order quantity must not be negative")
	}

	id := models.GenerateUUID()
	log.Printf("saga %s: create order amount=%d quantity=%d", id, amount, quantity)

	if err := s.createPendingRecords(ctx, id, amount, quantity); err != nil {
		return nil, err
	}

	result, err := s.processPendingRecords(ctx, id, amount, quantity)
	if err != nil {
		return nil, err
	}

	if result.Status == string(saga.TargetProcessed) {
		telemetry.RecordCounter(ctx, "saga_completed_total", "Sagas completed without compensation", 1)
	} else {
		telemetry.RecordCounter(ctx, "saga_compensated_total", "Sagas ended on hold after compensation", 1)
	}
	return result, nil
}

// CheckOrderStatus reads the terminal order status
func (s *Saga) CheckOrderStatus(ctx context.Context, id models.ID) (string, error) {
	var status string
	err := s.db.GetContext(ctx, &status, `SELECT status FROM orders WHERE id = $1`, id.String())
	if err == sql.ErrNoRows {
		return "", saga.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to find order")
	}
	return status, nil
}

// createPendingRecords inserts the order, payment and shipment rows
// atomically. All three share the saga id; conflicts are ignored so a
// repeated request cannot duplicate records.
func (s *Saga) createPendingRecords(ctx context.Context, id models.ID, amount int64, quantity int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	statements := []struct {
		query string
		args  []interface{}
	}{
		{
			query: `INSERT INTO orders (id, amount, quantity, status, created_at, updated_at)
				VALUES ($1, $2, $3, 'Pending', EXTRACT(EPOCH FROM NOW())::bigint, EXTRACT(EPOCH FROM NOW())::bigint)
				ON CONFLICT (id) DO NOTHING`,
			args: []interface{}{id.String(), amount, quantity},
		},
		{
			query: `INSERT INTO payments (id, amount, status, created_at, updated_at)
				VALUES ($1, $2, 'Pending', EXTRACT(EPOCH FROM NOW())::bigint, EXTRACT(EPOCH FROM NOW())::bigint)
				ON CONFLICT (id) DO NOTHING`,
			args: []interface{}{id.String(), amount},
		},
		{
			query: `INSERT INTO shipments (id, quantity, status, created_at, updated_at)
				VALUES ($1, $2, 'Pending', EXTRACT(EPOCH FROM NOW())::bigint, EXTRACT(EPOCH FROM NOW())::bigint)
				ON CONFLICT (id) DO NOTHING`,
			args: []interface{}{id.String(), quantity},
		},
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return errors.Wrap(err, "failed to insert pending record")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit pending records")
	}
	return nil
}

// processPendingRecords applies both thresholds and the decision rule in one
// transaction. Both outcomes are always evaluated before deciding;
// reconciliation happens inside the same transaction, so a failure anywhere
// rolls the whole phase back to Pending.
func (s *Saga) processPendingRecords(ctx context.Context, id models.ID, amount int64, quantity int) (*Result, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	paymentOutcome := saga.OutcomeSuccess
	paymentStatus := "Processed"
	if amount > amountLimit {
		paymentOutcome = saga.OutcomeExceeded
		paymentStatus = "Exceeded"
	}

	shipmentOutcome := saga.OutcomeSuccess
	shipmentStatus := "Processed"
	if quantity > quantityLimit {
		shipmentOutcome = saga.OutcomeExceeded
		shipmentStatus = "Exceeded"
	}

	if err := s.updateStatus(ctx, tx, "payments", id, paymentStatus); err != nil {
		return nil, err
	}
	if err := s.updateStatus(ctx, tx, "shipments", id, shipmentStatus); err != nil {
		return nil, err
	}

	decision := saga.Decide(paymentOutcome, shipmentOutcome)
	if decision.CompensatePayment {
		if err := s.updateStatus(ctx, tx, "payments", id, string(saga.TargetOnHold)); err != nil {
			return nil, err
		}
	}
	if decision.CompensateShipment {
		if err := s.updateStatus(ctx, tx, "shipments", id, string(saga.TargetOnHold)); err != nil {
			return nil, err
		}
	}

	if err := s.updateStatus(ctx, tx, "orders", id, string(decision.Order)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit processing")
	}

	message := "Order was processed."
	if decision.Order == saga.TargetOnHold {
		message = "Order was put on hold."
		log.Printf("saga %s: on hold (payment=%s shipment=%s)", id, paymentOutcome, shipmentOutcome)
	} else {
		log.Printf("saga %s: processed", id)
	}

	return &Result{
		ID:       id,
		Amount:   amount,
		Quantity: quantity,
		Status:   string(decision.Order),
		Payment:  paymentOutcome,
		Shipment: shipmentOutcome,
		Message:  message,
	}, nil
}

func (s *Saga) updateStatus(ctx context.Context, tx *sqlx.Tx, table string, id models.ID, status string) error {
	var query string
	switch table {
	case "orders":
		query = `UPDATE orders SET status = $2, updated_at = EXTRACT(EPOCH FROM NOW())::bigint WHERE id = $1`
	case "payments":
		query = `UPDATE payments SET status = $2, updated_at = EXTRACT(EPOCH FROM NOW())::bigint WHERE id = $1`
	case "shipments":
		query = `UPDATE shipments SET status = $2, updated_at = EXTRACT(EPOCH FROM NOW())::bigint WHERE id = $1`
	default:
		return errors.Errorf("unknown table %q", table)
	}

	result, err := tx.ExecContext(ctx, query, id.String(), status)
	if err != nil {
		return errors.Wrapf(err, "failed to update %s status", table)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get affected rows")
	}
	if rows == 0 {
		return saga.ErrNotFound
	}
	return nil
}
