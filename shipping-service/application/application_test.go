package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
	"github.com/orderstack/fulfillment-system/shipping-service/domain"
)

type memoryShipmentRepository struct {
	mu        sync.Mutex
	shipments map[models.ID]*domain.Shipment
}

func newMemoryShipmentRepository() *memoryShipmentRepository {
	return &memoryShipmentRepository{shipments: make(map[models.ID]*domain.Shipment)}
}

func (r *memoryShipmentRepository) Create(_ context.Context, shipment *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shipments[shipment.ID]; ok {
		return nil
	}
	copied := *shipment
	r.shipments[shipment.ID] = &copied
	return nil
}

func (r *memoryShipmentRepository) UpdateStatus(_ context.Context, id models.ID, status domain.ShipmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	shipment, ok := r.shipments[id]
	if !ok {
		return saga.ErrNotFound
	}
	shipment.Status = status
	return nil
}

func (r *memoryShipmentRepository) FindByID(_ context.Context, id models.ID) (*domain.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shipment, ok := r.shipments[id]
	if !ok {
		return nil, saga.ErrNotFound
	}
	copied := *shipment
	return &copied, nil
}

func TestCreateShipment_Execute(t *testing.T) {
	tests := []struct {
		name          string
		quantity      int
		expectInvalid bool
	}{
		{name: "valid quantity", quantity: 10},
		{name: "zero quantity", quantity: 0},
		{name: "negative quantity is rejected", quantity: -1, expectInvalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryShipmentRepository()
			uc := NewCreateShipment(repo)
			id := models.GenerateUUID()

			resp, err := uc.Execute(context.Background(), CreateShipmentCommand{ID: id, Quantity: tt.quantity})
			if tt.expectInvalid {
				require.Error(t, err)
				assert.True(t, saga.IsInvalidInput(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, string(domain.ShipmentStatusPending), resp.Status)
		})
	}
}

func TestProcessShipment_Execute(t *testing.T) {
	tests := []struct {
		name          string
		quantity      int
		expectOutcome saga.Outcome
		expectStored  domain.ShipmentStatus
	}{
		{
			name:          "at the limit processes",
			quantity:      100,
			expectOutcome: saga.OutcomeSuccess,
			expectStored:  domain.ShipmentStatusProcessed,
		},
		{
			name:          "over the limit exceeds",
			quantity:      101,
			expectOutcome: saga.OutcomeExceeded,
			expectStored:  domain.ShipmentStatusExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryShipmentRepository()
			id := models.GenerateUUID()
			_, err := NewCreateShipment(repo).Execute(context.Background(), CreateShipmentCommand{ID: id, Quantity: tt.quantity})
			require.NoError(t, err)

			resp, err := NewProcessShipment(repo, 0).Execute(context.Background(), ProcessShipmentCommand{ID: id, Quantity: tt.quantity})
			require.NoError(t, err)

			assert.Equal(t, tt.expectOutcome, resp.Outcome)

			stored, err := repo.FindByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.expectStored, stored.Status)
		})
	}
}

func TestProcessShipment_CancelledDuringCarrierWait(t *testing.T) {
	repo := newMemoryShipmentRepository()
	id := models.GenerateUUID()
	_, err := NewCreateShipment(repo).Execute(context.Background(), CreateShipmentCommand{ID: id, Quantity: 10})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewProcessShipment(repo, time.Minute).Execute(ctx, ProcessShipmentCommand{ID: id, Quantity: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The wait was cut short before any transition.
	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusPending, stored.Status)
}

func TestReconcileShipment_Execute(t *testing.T) {
	repo := newMemoryShipmentRepository()
	id := models.GenerateUUID()
	_, err := NewCreateShipment(repo).Execute(context.Background(), CreateShipmentCommand{ID: id, Quantity: 10})
	require.NoError(t, err)
	_, err = NewProcessShipment(repo, 0).Execute(context.Background(), ProcessShipmentCommand{ID: id, Quantity: 10})
	require.NoError(t, err)

	resp, err := NewReconcileShipment(repo).Execute(context.Background(), ReconcileShipmentCommand{ID: id, Status: string(domain.ShipmentStatusOnHold)})
	require.NoError(t, err)
	assert.Equal(t, string(domain.ShipmentStatusOnHold), resp.Status)

	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusOnHold, stored.Status)
}
