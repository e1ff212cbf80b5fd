package infrastructure

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/order-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

var _ domain.ContextRepository = (*PostgresContextRepository)(nil)

// PostgresContextRepository implements ContextRepository using PostgreSQL.
// Field writes and phase claims are single statements, so concurrent
// notification handlers for one saga serialize on the row without explicit
// locks.
type PostgresContextRepository struct {
	db *sqlx.DB
}

// NewPostgresContextRepository creates a new repository
func NewPostgresContextRepository(db *sqlx.DB) *PostgresContextRepository {
	return &PostgresContextRepository{db: db}
}

type contextRow struct {
	ID            string `db:"id"`
	Amount        int64  `db:"amount"`
	Quantity      int    `db:"quantity"`
	OrderState    string `db:"order_state"`
	PaymentState  string `db:"payment_state"`
	ShipmentState string `db:"shipment_state"`
	Phase         string `db:"phase"`
	CreatedAt     int64  `db:"created_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

// Create inserts the context row; a conflicting id leaves the stored row
// untouched.
func (r *PostgresContextRepository) Create(ctx context.Context, sagaCtx *domain.SagaContext) error {
	query := `
		INSERT INTO saga_contexts (id, amount, quantity, order_state, payment_state, shipment_state, phase, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		sagaCtx.ID.String(),
		sagaCtx.Amount,
		sagaCtx.Quantity,
		string(sagaCtx.Order),
		string(sagaCtx.Payment),
		string(sagaCtx.Shipment),
		string(sagaCtx.Phase),
		sagaCtx.Timestamps.CreatedAt.Unix(),
		sagaCtx.Timestamps.UpdatedAt.Unix(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert saga context")
	}
	return nil
}

// FindByID loads the context row
func (r *PostgresContextRepository) FindByID(ctx context.Context, id models.ID) (*domain.SagaContext, error) {
	query := `
		SELECT id, amount, quantity, order_state, payment_state, shipment_state, phase, created_at, updated_at
		FROM saga_contexts WHERE id = $1`

	var row contextRow
	err := r.db.GetContext(ctx, &row, query, id.String())
	if err == sql.ErrNoRows {
		return nil, saga.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find saga context")
	}

	return &domain.SagaContext{
		ID:         models.ID(row.ID),
		Amount:     row.Amount,
		Quantity:   row.Quantity,
		Order:      domain.ParticipantState(row.OrderState),
		Payment:    domain.ParticipantState(row.PaymentState),
		Shipment:   domain.ParticipantState(row.ShipmentState),
		Phase:      domain.Phase(row.Phase),
		Timestamps: models.TimestampsFromUnix(row.CreatedAt, row.UpdatedAt),
	}, nil
}

// SetField records a participant state. The field name is restricted to the
// known context columns before it reaches the statement.
func (r *PostgresContextRepository) SetField(ctx context.Context, id models.ID, field domain.ContextField, state domain.ParticipantState) error {
	switch field {
	case domain.FieldOrder, domain.FieldPayment, domain.FieldShipment:
	default:
		return errors.Errorf("unknown context field %q", field)
	}

	query := fmt.Sprintf(`
		UPDATE saga_contexts
		SET %s = $2, updated_at = EXTRACT(EPOCH FROM NOW())::bigint
		WHERE id = $1`, field)

	result, err := r.db.ExecContext(ctx, query, id.String(), string(state))
	if err != nil {
		return errors.Wrap(err, "failed to update saga context")
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

// ClaimPhase advances the phase marker with a compare-and-set. Zero affected
// rows means another handler holds the claim already.
func (r *PostgresContextRepository) ClaimPhase(ctx context.Context, id models.ID, from, to domain.Phase) (bool, error) {
	query := `
		UPDATE saga_contexts
		SET phase = $3, updated_at = EXTRACT(EPOCH FROM NOW())::bigint
		WHERE id = $1 AND phase = $2`

	result, err := r.db.ExecContext(ctx, query, id.String(), string(from), string(to))
	if err != nil {
		return false, errors.Wrap(err, "failed to claim saga phase")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get affected rows")
	}
	return rows == 1, nil
}
