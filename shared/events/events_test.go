package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstack/fulfillment-system/shared/models"
)

func TestNewEvent(t *testing.T) {
	sagaID := models.GenerateUUID()
	event := NewEvent(sagaID, SourceProcessPayment, DetailReconcile, Detail{
		ID:     sagaID,
		Status: "OnHold",
		Error:  "Payment exceeded the maximum amount.",
	})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, sagaID, event.SagaID)
	assert.Equal(t, Key{Source: SourceProcessPayment, Type: DetailReconcile}, event.Key())
	assert.NotZero(t, event.Timestamp)
	assert.NotNil(t, event.Metadata)
}

func TestEvent_UnmarshalDetail(t *testing.T) {
	sagaID := models.GenerateUUID()

	t.Run("struct detail", func(t *testing.T) {
		event := NewEvent(sagaID, SourceOrderContext, DetailOrderCreated, Detail{
			ID:       sagaID,
			Amount:   500,
			Quantity: 10,
		})

		var detail Detail
		require.NoError(t, event.UnmarshalDetail(&detail))
		assert.Equal(t, sagaID, detail.ID)
		assert.Equal(t, int64(500), detail.Amount)
		assert.Equal(t, 10, detail.Quantity)
	})

	t.Run("raw detail from the wire", func(t *testing.T) {
		// Subscribers see the detail as raw JSON, the way the queue decoder
		// leaves it.
		raw, err := json.Marshal(Detail{ID: sagaID, Status: "Processed"})
		require.NoError(t, err)

		event := NewEvent(sagaID, SourceProcessShipping, DetailSuccess, json.RawMessage(raw))

		var detail Detail
		require.NoError(t, event.UnmarshalDetail(&detail))
		assert.Equal(t, sagaID, detail.ID)
		assert.Equal(t, "Processed", detail.Status)
	})
}

func TestEvent_RoutingKeys(t *testing.T) {
	// The wire values are the contract with the queue filters; they must not
	// drift.
	assert.Equal(t, "OrderContext", string(SourceOrderContext))
	assert.Equal(t, "CreateOrder", string(SourceCreateOrder))
	assert.Equal(t, "CreatePayment", string(SourceCreatePayment))
	assert.Equal(t, "CreateShipping", string(SourceCreateShipping))
	assert.Equal(t, "ProcessOrder", string(SourceProcessOrder))
	assert.Equal(t, "ProcessPayment", string(SourceProcessPayment))
	assert.Equal(t, "ProcessShipping", string(SourceProcessShipping))
	assert.Equal(t, "ReconcileOrder", string(SourceReconcileOrder))
	assert.Equal(t, "ReconcilePayment", string(SourceReconcilePayment))
	assert.Equal(t, "ReconcileShipping", string(SourceReconcileShipping))

	assert.Equal(t, "Success", string(DetailSuccess))
	assert.Equal(t, "Error", string(DetailError))
	assert.Equal(t, "Reconcile", string(DetailReconcile))
	assert.Equal(t, "OrderCreated", string(DetailOrderCreated))
}

func TestMetadata(t *testing.T) {
	m := Metadata{"a": "1"}

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	m.Set("b", "2")
	assert.True(t, m.Has("b"))

	clone := m.Clone()
	clone.Set("c", "3")
	assert.False(t, m.Has("c"))
}
