package infrastructure

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/payment-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

var _ domain.PaymentRepository = (*PostgresPaymentRepository)(nil)

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL
type PostgresPaymentRepository struct {
	db *sqlx.DB
}

// NewPostgresPaymentRepository creates a new repository
func NewPostgresPaymentRepository(db *sqlx.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

type paymentRow struct {
	ID        string `db:"id"`
	Amount    int64  `db:"amount"`
	Status    string `db:"status"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// Create inserts the record; a conflicting id leaves the stored record
// untouched, which makes saga retries safe.
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID.String(),
		payment.Amount,
		string(payment.Status),
		payment.Timestamps.CreatedAt.Unix(),
		payment.Timestamps.UpdatedAt.Unix(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert payment")
	}
	return nil
}

// UpdateStatus updates the payment status
func (r *PostgresPaymentRepository) UpdateStatus(ctx context.Context, id models.ID, status domain.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $2, updated_at = EXTRACT(EPOCH FROM NOW())::bigint
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String(), string(status))
	if err != nil {
		return errors.Wrap(err, "failed to update payment status")
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

// FindByID finds a payment by its saga id
func (r *PostgresPaymentRepository) FindByID(ctx context.Context, id models.ID) (*domain.Payment, error) {
	query := `SELECT id, amount, status, created_at, updated_at FROM payments WHERE id = $1`

	var row paymentRow
	err := r.db.GetContext(ctx, &row, query, id.String())
	if err == sql.ErrNoRows {
		return nil, saga.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find payment")
	}

	return &domain.Payment{
		ID:         models.ID(row.ID),
		Amount:     row.Amount,
		Status:     domain.PaymentStatus(row.Status),
		Timestamps: models.TimestampsFromUnix(row.CreatedAt, row.UpdatedAt),
	}, nil
}
