package infrastructure

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/order-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

var _ domain.OrderRepository = (*PostgresOrderRepository)(nil)

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *sqlx.DB
}

// NewPostgresOrderRepository creates a new repository
func NewPostgresOrderRepository(db *sqlx.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

type orderRow struct {
	ID        string `db:"id"`
	Amount    int64  `db:"amount"`
	Quantity  int    `db:"quantity"`
	Status    string `db:"status"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// Create inserts the record; a conflicting id leaves the stored record
// untouched, which makes saga retries safe.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, amount, quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		order.ID.String(),
		order.Amount,
		order.Quantity,
		string(order.Status),
		order.Timestamps.CreatedAt.Unix(),
		order.Timestamps.UpdatedAt.Unix(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert order")
	}
	return nil
}

// UpdateStatus updates the order status
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id models.ID, status domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = EXTRACT(EPOCH FROM NOW())::bigint
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String(), string(status))
	if err != nil {
		return errors.Wrap(err, "failed to update order status")
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

// FindByID finds an order by its saga id
func (r *PostgresOrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	query := `SELECT id, amount, quantity, status, created_at, updated_at FROM orders WHERE id = $1`

	var row orderRow
	err := r.db.GetContext(ctx, &row, query, id.String())
	if err == sql.ErrNoRows {
		return nil, saga.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}

	return &domain.Order{
		ID:         models.ID(row.ID),
		Amount:     row.Amount,
		Quantity:   row.Quantity,
		Status:     domain.OrderStatus(row.Status),
		Timestamps: models.TimestampsFromUnix(row.CreatedAt, row.UpdatedAt),
	}, nil
}
