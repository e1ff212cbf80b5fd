package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/orderstack/fulfillment-system/monolith-service/app"
	"github.com/orderstack/fulfillment-system/monolith-service/handlers"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Application
	Saga *app.Saga

	// HTTP Handlers
	SagaHandler *handlers.SagaHandler
}

func BuildDependencies(config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	deps.DB = db

	deps.Saga = app.NewSaga(db)
	deps.SagaHandler = handlers.NewSagaHandler(deps.Saga)

	return deps, nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
