package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstack/fulfillment-system/order-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

type memoryOrderRepository struct {
	mu     sync.Mutex
	orders map[models.ID]*domain.Order
}

func newMemoryOrderRepository() *memoryOrderRepository {
	return &memoryOrderRepository{orders: make(map[models.ID]*domain.Order)}
}

func (r *memoryOrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return nil
	}
	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

func (r *memoryOrderRepository) UpdateStatus(_ context.Context, id models.ID, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return saga.ErrNotFound
	}
	order.Status = status
	return nil
}

func (r *memoryOrderRepository) FindByID(_ context.Context, id models.ID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, saga.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func TestCreateOrder_Execute(t *testing.T) {
	tests := []struct {
		name          string
		amount        int64
		quantity      int
		expectInvalid bool
	}{
		{name: "valid input", amount: 500, quantity: 10},
		{name: "negative amount is rejected", amount: -1, quantity: 10, expectInvalid: true},
		{name: "negative quantity is rejected", amount: 500, quantity: -1, expectInvalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryOrderRepository()
			uc := NewCreateOrder(repo)
			id := models.GenerateUUID()

			resp, err := uc.Execute(context.Background(), CreateOrderCommand{ID: id, Amount: tt.amount, Quantity: tt.quantity})
			if tt.expectInvalid {
				require.Error(t, err)
				assert.True(t, saga.IsInvalidInput(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, string(domain.OrderStatusPending), resp.Status)
		})
	}
}

func TestCreateOrder_SimulatedTransientFault(t *testing.T) {
	repo := newMemoryOrderRepository()
	uc := NewCreateOrder(repo)
	id := models.GenerateUUID()

	// The fault amount fails on the first two coordinated attempts and lands
	// on the third.
	for attempt := 1; attempt <= 2; attempt++ {
		_, err := uc.Execute(context.Background(), CreateOrderCommand{ID: id, Amount: 777, Quantity: 1, Attempt: attempt})
		require.Error(t, err)
		assert.True(t, saga.IsTransient(err))
	}

	resp, err := uc.Execute(context.Background(), CreateOrderCommand{ID: id, Amount: 777, Quantity: 1, Attempt: 3})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusPending), resp.Status)
}

func TestCreateOrder_FaultAmountWithoutAttemptSucceeds(t *testing.T) {
	// Event-driven callers carry no attempt counter; the simulation only
	// applies to coordinated runs.
	repo := newMemoryOrderRepository()
	resp, err := NewCreateOrder(repo).Execute(context.Background(), CreateOrderCommand{
		ID:     models.GenerateUUID(),
		Amount: 777, Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusPending), resp.Status)
}

func TestProcessAndReconcileOrder(t *testing.T) {
	repo := newMemoryOrderRepository()
	id := models.GenerateUUID()
	_, err := NewCreateOrder(repo).Execute(context.Background(), CreateOrderCommand{ID: id, Amount: 10, Quantity: 1})
	require.NoError(t, err)

	resp, err := NewProcessOrder(repo).Execute(context.Background(), ProcessOrderCommand{ID: id})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusProcessed), resp.Status)

	recResp, err := NewReconcileOrder(repo).Execute(context.Background(), ReconcileOrderCommand{ID: id, Status: string(domain.OrderStatusOnHold)})
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusOnHold), recResp.Status)

	status, err := NewGetOrder(repo).Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(domain.OrderStatusOnHold), status.Status)
}
