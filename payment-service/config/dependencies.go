package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/orderstack/fulfillment-system/payment-service/application"
	"github.com/orderstack/fulfillment-system/payment-service/handlers"
	"github.com/orderstack/fulfillment-system/payment-service/infrastructure"
	sharedinfra "github.com/orderstack/fulfillment-system/shared/infrastructure"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Repositories
	PaymentRepository *infrastructure.PostgresPaymentRepository

	// Use Cases
	CreatePayment    *application.CreatePayment
	ProcessPayment   *application.ProcessPayment
	ReconcilePayment *application.ReconcilePayment
	GetPayment       *application.GetPayment

	// HTTP Handlers
	PaymentHandler *handlers.PaymentHandler

	// Event Handlers
	PaymentEventHandler *handlers.PaymentEventHandler

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

	deps.PaymentRepository = infrastructure.NewPostgresPaymentRepository(db)

	deps.CreatePayment = application.NewCreatePayment(deps.PaymentRepository)
	deps.ProcessPayment = application.NewProcessPayment(deps.PaymentRepository)
	deps.ReconcilePayment = application.NewReconcilePayment(deps.PaymentRepository)
	deps.GetPayment = application.NewGetPayment(deps.PaymentRepository)

	deps.PaymentHandler = handlers.NewPaymentHandler(
		deps.CreatePayment,
		deps.ProcessPayment,
		deps.ReconcilePayment,
		deps.GetPayment,
	)
	deps.PaymentEventHandler = handlers.NewPaymentEventHandler(
		deps.CreatePayment,
		deps.ProcessPayment,
		deps.ReconcilePayment,
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
