package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstack/fulfillment-system/order-service/domain"
	"github.com/orderstack/fulfillment-system/shared/events"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// memoryContextRepository mirrors the atomic field writes and phase claims
// of the Postgres repository.
type memoryContextRepository struct {
	mu       sync.Mutex
	contexts map[models.ID]*domain.SagaContext
}

func newMemoryContextRepository() *memoryContextRepository {
	return &memoryContextRepository{contexts: make(map[models.ID]*domain.SagaContext)}
}

func (r *memoryContextRepository) Create(_ context.Context, sagaCtx *domain.SagaContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contexts[sagaCtx.ID]; ok {
		return nil
	}
	copied := *sagaCtx
	r.contexts[sagaCtx.ID] = &copied
	return nil
}

func (r *memoryContextRepository) FindByID(_ context.Context, id models.ID) (*domain.SagaContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sagaCtx, ok := r.contexts[id]
	if !ok {
		return nil, saga.ErrNotFound
	}
	copied := *sagaCtx
	return &copied, nil
}

func (r *memoryContextRepository) SetField(_ context.Context, id models.ID, field domain.ContextField, state domain.ParticipantState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sagaCtx, ok := r.contexts[id]
	if !ok {
		return saga.ErrNotFound
	}
	switch field {
	case domain.FieldOrder:
		sagaCtx.Order = state
	case domain.FieldPayment:
		sagaCtx.Payment = state
	case domain.FieldShipment:
		sagaCtx.Shipment = state
	}
	return nil
}

func (r *memoryContextRepository) ClaimPhase(_ context.Context, id models.ID, from, to domain.Phase) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sagaCtx, ok := r.contexts[id]
	if !ok {
		return false, saga.ErrNotFound
	}
	if sagaCtx.Phase != from {
		return false, nil
	}
	sagaCtx.Phase = to
	return true, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *capturePublisher) Publish(_ context.Context, evts ...*events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *capturePublisher) byType(dt events.DetailType) []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*events.Event
	for _, e := range p.events {
		if e.DetailType == dt {
			out = append(out, e)
		}
	}
	return out
}

func notify(t *testing.T, h *OrderContext, id models.ID, source events.Source, dt events.DetailType, detail events.Detail) {
	t.Helper()
	detail.ID = id
	require.NoError(t, h.Handle(context.Background(), events.NewEvent(id, source, dt, detail)))
}

func startSaga(t *testing.T, h *OrderContext, amount int64, quantity int) models.ID {
	t.Helper()
	resp, err := h.Start(context.Background(), StartOrderCommand{Amount: amount, Quantity: quantity})
	require.NoError(t, err)
	return resp.ID
}

func TestOrderContext_StartCommandsOrderCreation(t *testing.T) {
	repo := newMemoryContextRepository()
	pub := &capturePublisher{}
	h := NewOrderContext(repo, pub)

	id := startSaga(t, h, 500, 10)

	commands := pub.byType(events.DetailCreateOrder)
	require.Len(t, commands, 1)
	assert.Equal(t, events.SourceOrderContext, commands[0].Source)
	assert.Equal(t, id, commands[0].SagaID)

	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(500), stored.Amount)
	assert.Equal(t, 10, stored.Quantity)
}

func TestOrderContext_OrderCreatedFansOutToSiblings(t *testing.T) {
	repo := newMemoryContextRepository()
	pub := &capturePublisher{}
	h := NewOrderContext(repo, pub)

	id := startSaga(t, h, 500, 10)
	notify(t, h, id, events.SourceCreateOrder, events.DetailSuccess, events.Detail{})

	created := pub.byType(events.DetailOrderCreated)
	require.Len(t, created, 1)

	var detail events.Detail
	require.NoError(t, created[0].UnmarshalDetail(&detail))
	assert.Equal(t, int64(500), detail.Amount)
	assert.Equal(t, 10, detail.Quantity)
}

func TestOrderContext_SiblingCreateJoin(t *testing.T) {
	orders := [][2]events.Source{
		{events.SourceCreatePayment, events.SourceCreateShipping},
		{events.SourceCreateShipping, events.SourceCreatePayment},
	}

	for _, order := range orders {
		repo := newMemoryContextRepository()
		pub := &capturePublisher{}
		h := NewOrderContext(repo, pub)
		id := startSaga(t, h, 500, 10)

		notify(t, h, id, order[0], events.DetailSuccess, events.Detail{})
		// One confirmation alone must not trigger processing.
		assert.Empty(t, pub.byType(events.DetailProcessPayment))

		notify(t, h, id, order[1], events.DetailSuccess, events.Detail{})
		assert.Len(t, pub.byType(events.DetailProcessPayment), 1)
		assert.Len(t, pub.byType(events.DetailProcessShipping), 1)
	}
}

func TestOrderContext_SiblingCreateJoinFiresOnce(t *testing.T) {
	repo := newMemoryContextRepository()
	pub := &capturePublisher{}
	h := NewOrderContext(repo, pub)
	id := startSaga(t, h, 500, 10)

	notify(t, h, id, events.SourceCreatePayment, events.DetailSuccess, events.Detail{})
	notify(t, h, id, events.SourceCreateShipping, events.DetailSuccess, events.Detail{})
	// Redeliveries after the join must not re-trigger the fan-out.
	notify(t, h, id, events.SourceCreatePayment, events.DetailSuccess, events.Detail{})
	notify(t, h, id, events.SourceCreateShipping, events.DetailSuccess, events.Detail{})

	assert.Len(t, pub.byType(events.DetailProcessPayment), 1)
	assert.Len(t, pub.byType(events.DetailProcessShipping), 1)
}

func decided(t *testing.T, paymentOK, shipmentOK bool) (*OrderContext, *capturePublisher, models.ID) {
	t.Helper()
	repo := newMemoryContextRepository()
	pub := &capturePublisher{}
	h := NewOrderContext(repo, pub)
	id := startSaga(t, h, 500, 10)

	notify(t, h, id, events.SourceCreatePayment, events.DetailSuccess, events.Detail{})
	notify(t, h, id, events.SourceCreateShipping, events.DetailSuccess, events.Detail{})

	paymentType := events.DetailReconcile
	if paymentOK {
		paymentType = events.DetailSuccess
	}
	shipmentType := events.DetailReconcile
	if shipmentOK {
		shipmentType = events.DetailSuccess
	}
	notify(t, h, id, events.SourceProcessPayment, paymentType, events.Detail{})
	notify(t, h, id, events.SourceProcessShipping, shipmentType, events.Detail{})
	return h, pub, id
}

func TestOrderContext_Decision(t *testing.T) {
	tests := []struct {
		name               string
		paymentOK          bool
		shipmentOK         bool
		expectProcessOrder int
		expectRecOrder     int
		expectRecPayment   int
		expectRecShipping  int
	}{
		{
			name:      "both processed completes the order",
			paymentOK: true, shipmentOK: true,
			expectProcessOrder: 1,
		},
		{
			name:      "payment exceeded compensates shipment",
			paymentOK: false, shipmentOK: true,
			expectRecOrder: 1, expectRecShipping: 1,
		},
		{
			name:      "shipment exceeded compensates payment",
			paymentOK: true, shipmentOK: false,
			expectRecOrder: 1, expectRecPayment: 1,
		},
		{
			name:      "both exceeded parks the order only",
			paymentOK: false, shipmentOK: false,
			expectRecOrder: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, pub, _ := decided(t, tt.paymentOK, tt.shipmentOK)

			assert.Len(t, pub.byType(events.DetailProcessOrder), tt.expectProcessOrder)
			assert.Len(t, pub.byType(events.DetailReconcileOrder), tt.expectRecOrder)
			assert.Len(t, pub.byType(events.DetailReconcilePayment), tt.expectRecPayment)
			assert.Len(t, pub.byType(events.DetailReconcileShipping), tt.expectRecShipping)
		})
	}
}

func TestOrderContext_DecisionOrderIndependent(t *testing.T) {
	// Shipment reports before payment; the decision still requires both.
	repo := newMemoryContextRepository()
	pub := &capturePublisher{}
	h := NewOrderContext(repo, pub)
	id := startSaga(t, h, 1500, 10)

	notify(t, h, id, events.SourceCreatePayment, events.DetailSuccess, events.Detail{})
	notify(t, h, id, events.SourceCreateShipping, events.DetailSuccess, events.Detail{})

	notify(t, h, id, events.SourceProcessShipping, events.DetailSuccess, events.Detail{})
	assert.Empty(t, pub.byType(events.DetailProcessOrder))
	assert.Empty(t, pub.byType(events.DetailReconcileOrder))

	notify(t, h, id, events.SourceProcessPayment, events.DetailReconcile, events.Detail{})
	assert.Len(t, pub.byType(events.DetailReconcileOrder), 1)
	assert.Len(t, pub.byType(events.DetailReconcileShipping), 1)
	assert.Empty(t, pub.byType(events.DetailReconcilePayment))
}

func TestOrderContext_DecisionFiresOnce(t *testing.T) {
	h, pub, id := decided(t, true, true)
	require.Len(t, pub.byType(events.DetailProcessOrder), 1)

	// Redelivered processing notifications must not produce a second
	// decision.
	notify(t, h, id, events.SourceProcessPayment, events.DetailSuccess, events.Detail{})
	notify(t, h, id, events.SourceProcessShipping, events.DetailSuccess, events.Detail{})

	assert.Len(t, pub.byType(events.DetailProcessOrder), 1)
}

func TestOrderContext_ErrorNotificationsAreRecordedOnly(t *testing.T) {
	repo := newMemoryContextRepository()
	pub := &capturePublisher{}
	h := NewOrderContext(repo, pub)
	id := startSaga(t, h, -5, 10)

	before := len(pub.events)
	notify(t, h, id, events.SourceCreateOrder, events.DetailError, events.Detail{Error: "invalid input"})

	assert.Len(t, pub.events, before)

	stored, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateError, stored.Order)
}

func TestOrderContext_IgnoresUnknownKeys(t *testing.T) {
	repo := newMemoryContextRepository()
	pub := &capturePublisher{}
	h := NewOrderContext(repo, pub)
	id := startSaga(t, h, 500, 10)

	before := len(pub.events)
	notify(t, h, id, events.SourceOrderContext, events.DetailProcessPayment, events.Detail{})
	assert.Len(t, pub.events, before)
}
