package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstack/fulfillment-system/payment-service/domain"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// memoryPaymentRepository keeps records in a map; mirrors the idempotent
// insert semantics of the Postgres repository.
type memoryPaymentRepository struct {
	mu       sync.Mutex
	payments map[models.ID]*domain.Payment
}

func newMemoryPaymentRepository() *memoryPaymentRepository {
	return &memoryPaymentRepository{payments: make(map[models.ID]*domain.Payment)}
}

func (r *memoryPaymentRepository) Create(_ context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[payment.ID]; ok {
		return nil
	}
	copied := *payment
	r.payments[payment.ID] = &copied
	return nil
}

func (r *memoryPaymentRepository) UpdateStatus(_ context.Context, id models.ID, status domain.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok {
		return saga.ErrNotFound
	}
	payment.Status = status
	return nil
}

func (r *memoryPaymentRepository) FindByID(_ context.Context, id models.ID) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[id]
	if !ok {
		return nil, saga.ErrNotFound
	}
	copied := *payment
	return &copied, nil
}

func TestCreatePayment_Execute(t *testing.T) {
	tests := []struct {
		name          string
		amount        int64
		expectInvalid bool
	}{
		{name: "valid amount", amount: 500},
		{name: "zero amount", amount: 0},
		{name: "negative amount is rejected", amount: -1, expectInvalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryPaymentRepository()
			uc := NewCreatePayment(repo)
			id := models.GenerateUUID()

			resp, err := uc.Execute(context.Background(), CreatePaymentCommand{ID: id, Amount: tt.amount})
			if tt.expectInvalid {
				require.Error(t, err)
				assert.True(t, saga.IsInvalidInput(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, id, resp.ID)
			assert.Equal(t, string(domain.PaymentStatusPending), resp.Status)

			stored, err := repo.FindByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.amount, stored.Amount)
		})
	}
}

func TestCreatePayment_IdempotentOnSagaID(t *testing.T) {
	repo := newMemoryPaymentRepository()
	uc := NewCreatePayment(repo)
	id := models.GenerateUUID()

	_, err := uc.Execute(context.Background(), CreatePaymentCommand{ID: id, Amount: 100})
	require.NoError(t, err)
	_, err = uc.Execute(context.Background(), CreatePaymentCommand{ID: id, Amount: 9999})
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.Amount)
}

func TestProcessPayment_Execute(t *testing.T) {
	tests := []struct {
		name           string
		amount         int64
		expectOutcome  saga.Outcome
		expectStored   domain.PaymentStatus
		expectResponse string
	}{
		{
			name:           "at the limit processes",
			amount:         1000,
			expectOutcome:  saga.OutcomeSuccess,
			expectStored:   domain.PaymentStatusProcessed,
			expectResponse: string(domain.PaymentStatusProcessed),
		},
		{
			name:           "over the limit exceeds",
			amount:         1001,
			expectOutcome:  saga.OutcomeExceeded,
			expectStored:   domain.PaymentStatusExceeded,
			expectResponse: string(domain.PaymentStatusOnHold),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryPaymentRepository()
			id := models.GenerateUUID()
			_, err := NewCreatePayment(repo).Execute(context.Background(), CreatePaymentCommand{ID: id, Amount: tt.amount})
			require.NoError(t, err)

			resp, err := NewProcessPayment(repo).Execute(context.Background(), ProcessPaymentCommand{ID: id, Amount: tt.amount})
			require.NoError(t, err)

			assert.Equal(t, tt.expectOutcome, resp.Outcome)
			assert.Equal(t, tt.expectResponse, resp.Status)
			if tt.expectOutcome == saga.OutcomeExceeded {
				assert.NotEmpty(t, resp.Error)
				assert.Empty(t, resp.Message)
			} else {
				assert.NotEmpty(t, resp.Message)
				assert.Empty(t, resp.Error)
			}

			stored, err := repo.FindByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.expectStored, stored.Status)
		})
	}
}

func TestProcessPayment_Repeatable(t *testing.T) {
	repo := newMemoryPaymentRepository()
	id := models.GenerateUUID()
	_, err := NewCreatePayment(repo).Execute(context.Background(), CreatePaymentCommand{ID: id, Amount: 1500})
	require.NoError(t, err)

	uc := NewProcessPayment(repo)
	first, err := uc.Execute(context.Background(), ProcessPaymentCommand{ID: id, Amount: 1500})
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), ProcessPaymentCommand{ID: id, Amount: 1500})
	require.NoError(t, err)

	assert.Equal(t, first.Outcome, second.Outcome)

	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusExceeded, stored.Status)
}

func TestProcessPayment_MissingRecord(t *testing.T) {
	repo := newMemoryPaymentRepository()
	_, err := NewProcessPayment(repo).Execute(context.Background(), ProcessPaymentCommand{ID: models.GenerateUUID(), Amount: 10})
	require.Error(t, err)
	assert.True(t, saga.IsNotFound(err))
}

func TestReconcilePayment_Execute(t *testing.T) {
	repo := newMemoryPaymentRepository()
	id := models.GenerateUUID()
	_, err := NewCreatePayment(repo).Execute(context.Background(), CreatePaymentCommand{ID: id, Amount: 500})
	require.NoError(t, err)
	_, err = NewProcessPayment(repo).Execute(context.Background(), ProcessPaymentCommand{ID: id, Amount: 500})
	require.NoError(t, err)

	uc := NewReconcilePayment(repo)
	resp, err := uc.Execute(context.Background(), ReconcilePaymentCommand{ID: id, Status: string(domain.PaymentStatusOnHold)})
	require.NoError(t, err)
	assert.Equal(t, string(domain.PaymentStatusOnHold), resp.Status)

	// Reconciliation is repeatable with the same target.
	resp, err = uc.Execute(context.Background(), ReconcilePaymentCommand{ID: id, Status: string(domain.PaymentStatusOnHold)})
	require.NoError(t, err)
	assert.Equal(t, string(domain.PaymentStatusOnHold), resp.Status)

	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusOnHold, stored.Status)
}

func TestReconcilePayment_DefaultsToOnHold(t *testing.T) {
	repo := newMemoryPaymentRepository()
	id := models.GenerateUUID()
	_, err := NewCreatePayment(repo).Execute(context.Background(), CreatePaymentCommand{ID: id, Amount: 500})
	require.NoError(t, err)

	resp, err := NewReconcilePayment(repo).Execute(context.Background(), ReconcilePaymentCommand{ID: id})
	require.NoError(t, err)
	assert.Equal(t, string(domain.PaymentStatusOnHold), resp.Status)
}
