package infrastructure

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstack/fulfillment-system/shared/events"
	"github.com/orderstack/fulfillment-system/shared/models"
)

type recordingHandler struct {
	seen []*events.Event
	err  error
}

func (h *recordingHandler) Handle(_ context.Context, event *events.Event) error {
	h.seen = append(h.seen, event)
	return h.err
}

func TestMemoryBus_DeliversToAllHandlers(t *testing.T) {
	bus := NewMemoryBus()
	first := &recordingHandler{}
	second := &recordingHandler{}
	require.NoError(t, bus.Subscribe(context.Background(), first))
	require.NoError(t, bus.Subscribe(context.Background(), second))

	id := models.GenerateUUID()
	event := events.NewEvent(id, events.SourceCreateOrder, events.DetailSuccess, events.Detail{ID: id})
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, first.seen, 1)
	require.Len(t, second.seen, 1)
	assert.Equal(t, event.Key(), first.seen[0].Key())
}

func TestMemoryBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewMemoryBus()
	failing := &recordingHandler{err: errors.New("boom")}
	healthy := &recordingHandler{}
	require.NoError(t, bus.Subscribe(context.Background(), failing))
	require.NoError(t, bus.Subscribe(context.Background(), healthy))

	id := models.GenerateUUID()
	require.NoError(t, bus.Publish(context.Background(), events.NewEvent(id, events.SourceCreatePayment, events.DetailSuccess, events.Detail{ID: id})))

	assert.Len(t, failing.seen, 1)
	assert.Len(t, healthy.seen, 1)
}

func TestMemoryBus_PreservesPublishOrder(t *testing.T) {
	bus := NewMemoryBus()
	h := &recordingHandler{}
	require.NoError(t, bus.Subscribe(context.Background(), h))

	id := models.GenerateUUID()
	first := events.NewEvent(id, events.SourceOrderContext, events.DetailProcessPayment, events.Detail{ID: id})
	second := events.NewEvent(id, events.SourceOrderContext, events.DetailProcessShipping, events.Detail{ID: id})
	require.NoError(t, bus.Publish(context.Background(), first, second))

	require.Len(t, h.seen, 2)
	assert.Equal(t, events.DetailProcessPayment, h.seen[0].DetailType)
	assert.Equal(t, events.DetailProcessShipping, h.seen[1].DetailType)
}
