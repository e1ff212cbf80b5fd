package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/orderstack/fulfillment-system/order-service/application"
	"github.com/orderstack/fulfillment-system/order-service/handlers"
	"github.com/orderstack/fulfillment-system/order-service/infrastructure"
	sharedinfra "github.com/orderstack/fulfillment-system/shared/infrastructure"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Repositories
	OrderRepository   *infrastructure.PostgresOrderRepository
	ContextRepository *infrastructure.PostgresContextRepository

	// Use Cases
	CreateOrder    *application.CreateOrder
	ProcessOrder   *application.ProcessOrder
	ReconcileOrder *application.ReconcileOrder
	GetOrder       *application.GetOrder
	OrderContext   *application.OrderContext

	// HTTP Handlers
	OrderHandler *handlers.OrderHandler

	// Event Handlers
	OrderEventHandler *handlers.OrderEventHandler

	// Infrastructure
	EventPublisher    *sharedinfra.SNSPublisherAdapter
	EventSubscriber   *sharedinfra.SQSSubscriberAdapter
	ContextSubscriber *sharedinfra.SQSSubscriberAdapter
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

	contextSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.ContextQueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create context SQS subscriber: %w", err)
	}
	deps.ContextSubscriber = contextSubscriber

	deps.OrderRepository = infrastructure.NewPostgresOrderRepository(db)
	deps.ContextRepository = infrastructure.NewPostgresContextRepository(db)

	deps.CreateOrder = application.NewCreateOrder(deps.OrderRepository)
	deps.ProcessOrder = application.NewProcessOrder(deps.OrderRepository)
	deps.ReconcileOrder = application.NewReconcileOrder(deps.OrderRepository)
	deps.GetOrder = application.NewGetOrder(deps.OrderRepository)
	deps.OrderContext = application.NewOrderContext(deps.ContextRepository, eventPublisher)

	deps.OrderHandler = handlers.NewOrderHandler(
		deps.CreateOrder,
		deps.ProcessOrder,
		deps.ReconcileOrder,
		deps.GetOrder,
		deps.OrderContext,
	)
	deps.OrderEventHandler = handlers.NewOrderEventHandler(
		deps.CreateOrder,
		deps.ProcessOrder,
		deps.ReconcileOrder,
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

	if d.ContextSubscriber != nil {
		if err := d.ContextSubscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context subscriber: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
