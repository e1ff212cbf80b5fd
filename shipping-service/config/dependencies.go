package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	sharedinfra "github.com/orderstack/fulfillment-system/shared/infrastructure"
	"github.com/orderstack/fulfillment-system/shipping-service/application"
	"github.com/orderstack/fulfillment-system/shipping-service/handlers"
	"github.com/orderstack/fulfillment-system/shipping-service/infrastructure"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Repositories
	ShipmentRepository *infrastructure.PostgresShipmentRepository

	// Use Cases
	CreateShipment    *application.CreateShipment
	ProcessShipment   *application.ProcessShipment
	ReconcileShipment *application.ReconcileShipment
	GetShipment       *application.GetShipment

	// HTTP Handlers
	ShipmentHandler *handlers.ShipmentHandler

	// Event Handlers
	ShipmentEventHandler *handlers.ShipmentEventHandler

	// Infrastructure
	EventPublisher  *sharedinfra.SNSPublisherAdapter
	EventSubscriber *sharedinfra.SQSSubscriberAdapter
}

func BuildDependencies(config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	deps.DB = db

	eventPublisher, err := sharedinfra.NewSNSPublisherAdapter(config.AWS.SNSTopicArn)
	if err != nil {
		return nil, fmt.Errorf("failed to create SNS publisher: %w", err)
	}
	deps.EventPublisher = eventPublisher

	eventSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.SQSQueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQS subscriber: %w", err)
	}
	deps.EventSubscriber = eventSubscriber

	deps.ShipmentRepository = infrastructure.NewPostgresShipmentRepository(db)

	deps.CreateShipment = application.NewCreateShipment(deps.ShipmentRepository)
	deps.ProcessShipment = application.NewProcessShipment(deps.ShipmentRepository, config.ProcessDelay)
	deps.ReconcileShipment = application.NewReconcileShipment(deps.ShipmentRepository)
	deps.GetShipment = application.NewGetShipment(deps.ShipmentRepository)

	deps.ShipmentHandler = handlers.NewShipmentHandler(
		deps.CreateShipment,
		deps.ProcessShipment,
		deps.ReconcileShipment,
		deps.GetShipment,
	)
	deps.ShipmentEventHandler = handlers.NewShipmentEventHandler(
		deps.CreateShipment,
		deps.ProcessShipment,
		deps.ReconcileShipment,
		eventPublisher,
	)

	return deps, nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.EventPublisher != nil {
		if err := d.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}

	if d.EventSubscriber != nil {
		if err := d.EventSubscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event subscriber: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
