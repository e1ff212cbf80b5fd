package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	orderapp "github.com/orderstack/fulfillment-system/order-service/application"
	orderinfra "github.com/orderstack/fulfillment-system/order-service/infrastructure"
	"github.com/orderstack/fulfillment-system/orchestrator-service/handlers"
	"github.com/orderstack/fulfillment-system/orchestrator-service/invoker"
	paymentapp "github.com/orderstack/fulfillment-system/payment-service/application"
	paymentinfra "github.com/orderstack/fulfillment-system/payment-service/infrastructure"
	"github.com/orderstack/fulfillment-system/shared/saga"
	shippingapp "github.com/orderstack/fulfillment-system/shipping-service/application"
	shippinginfra "github.com/orderstack/fulfillment-system/shipping-service/infrastructure"
)

type Dependencies struct {
	// Database; nil under the http strategy
	DB *sqlx.DB

	// Saga
	Invoker     saga.Invoker
	Coordinator *saga.Coordinator

	// HTTP Handlers
	SagaHandler *handlers.SagaHandler
}

func BuildDependencies(config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	var inv saga.Invoker
	var status handlers.StatusChecker
	switch config.Strategy {
	case StrategyHTTP:
		inv = invoker.NewHTTPInvoker(
			config.Services.OrderURL,
			config.Services.PaymentURL,
			config.Services.ShippingURL,
		)
		status = invoker.NewHTTPStatusChecker(config.Services.OrderURL)

	case StrategyLocal:
		db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		deps.DB = db

		orders := orderinfra.NewPostgresOrderRepository(db)
		payments := paymentinfra.NewPostgresPaymentRepository(db)
		shipments := shippinginfra.NewPostgresShipmentRepository(db)

		inv = invoker.NewLocalInvoker(
			orderapp.NewCreateOrder(orders),
			orderapp.NewProcessOrder(orders),
			orderapp.NewReconcileOrder(orders),
			paymentapp.NewCreatePayment(payments),
			paymentapp.NewProcessPayment(payments),
			paymentapp.NewReconcilePayment(payments),
			shippingapp.NewCreateShipment(shipments),
			// The orchestrated run skips the carrier wait; the delay belongs
			// to the standalone shipping service.
			shippingapp.NewProcessShipment(shipments, 0),
			shippingapp.NewReconcileShipment(shipments),
		)
		status = invoker.NewLocalStatusChecker(orderapp.NewGetOrder(orders))

	default:
		return nil, fmt.Errorf("unknown strategy %q", config.Strategy)
	}
	deps.Invoker = inv

	maxAttempts, interval, backoffRate := config.RetryPolicy()
	deps.Coordinator = saga.NewCoordinator(inv, saga.RetryPolicy{
		MaxAttempts: maxAttempts,
		Interval:    interval,
		BackoffRate: backoffRate,
	})

	deps.SagaHandler = handlers.NewSagaHandler(deps.Coordinator, status)

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
