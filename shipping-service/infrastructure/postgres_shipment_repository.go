package infrastructure

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
	"github.com/orderstack/fulfillment-system/shipping-service/domain"
)

var _ domain.ShipmentRepository = (*PostgresShipmentRepository)(nil)

// PostgresShipmentRepository implements ShipmentRepository using PostgreSQL
type PostgresShipmentRepository struct {
	db *sqlx.DB
}

// NewPostgresShipmentRepository creates a new repository
func NewPostgresShipmentRepository(db *sqlx.DB) *PostgresShipmentRepository {
	return &PostgresShipmentRepository{db: db}
}

type shipmentRow struct {
	ID        string `db:"id"`
	Quantity  int    `db:"quantity"`
	Status    string `db:"status"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

// Create inserts the record; a conflicting id leaves the stored record
// untouched, which makes saga retries safe.
func (r *PostgresShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	query := `
		INSERT INTO shipments (id, quantity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		shipment.ID.String(),
		shipment.Quantity,
		string(shipment.Status),
		shipment.Timestamps.CreatedAt.Unix(),
		shipment.Timestamps.UpdatedAt.Unix(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert shipment")
	}
	return nil
}

// UpdateStatus updates the shipment status
func (r *PostgresShipmentRepository) UpdateStatus(ctx context.Context, id models.ID, status domain.ShipmentStatus) error {
	query := `
		UPDATE shipments
		SET status = $2, updated_at = EXTRACT(EPOCH FROM NOW())::bigint
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String(), string(status))
	if err != nil {
		return errors.Wrap(err, "failed to update shipment status")
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

// FindByID finds a shipment by its saga id
func (r *PostgresShipmentRepository) FindByID(ctx context.Context, id models.ID) (*domain.Shipment, error) {
	query := `SELECT id, quantity, status, created_at, updated_at FROM shipments WHERE id = $1`

	var row shipmentRow
	err := r.db.GetContext(ctx, &row, query, id.String())
	if err == sql.ErrNoRows {
		return nil, saga.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find shipment")
	}

	return &domain.Shipment{
		ID:         models.ID(row.ID),
		Quantity:   row.Quantity,
		Status:     domain.ShipmentStatus(row.Status),
		Timestamps: models.TimestampsFromUnix(row.CreatedAt, row.UpdatedAt),
	}, nil
}
