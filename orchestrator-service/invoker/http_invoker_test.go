package invoker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

type recordedRequest struct {
	path string
	body map[string]interface{}
}

func newRecordingServer(t *testing.T, status int, response string) (*httptest.Server, *recordedRequest) {
	t.Helper()
	recorded := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorded.path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&recorded.body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, recorded
}

func TestHTTPInvoker_ProcessDecodesResult(t *testing.T) {
	srv, recorded := newRecordingServer(t, http.StatusOK,
		`{"id":"x","outcome":"Exceeded","status":"OnHold","error":"amount limit exceeded"}`)
	inv := NewHTTPInvoker(srv.URL, srv.URL, srv.URL)
	id := models.GenerateUUID()

	result, err := inv.Invoke(context.Background(), saga.Invocation{
		Participant: saga.ParticipantPayment,
		Operation:   saga.OperationProcess,
		ID:          id,
		Amount:      1500,
	})
	require.NoError(t, err)

	assert.Equal(t, saga.OutcomeExceeded, result.Outcome)
	assert.Equal(t, "/payments/"+id.String()+"/process", recorded.path)
	assert.Equal(t, float64(1500), recorded.body["amount"])
}

func TestHTTPInvoker_CreateDefaultsToSuccess(t *testing.T) {
	srv, recorded := newRecordingServer(t, http.StatusCreated,
		`{"id":"x","status":"Pending"}`)
	inv := NewHTTPInvoker(srv.URL, srv.URL, srv.URL)
	id := models.GenerateUUID()

	result, err := inv.Invoke(context.Background(), saga.Invocation{
		Participant: saga.ParticipantOrder,
		Operation:   saga.OperationCreate,
		ID:          id,
		Amount:      500,
		Quantity:    10,
		Attempt:     2,
	})
	require.NoError(t, err)

	assert.Equal(t, saga.OutcomeSuccess, result.Outcome)
	assert.Equal(t, "/orders", recorded.path)
	assert.Equal(t, float64(2), recorded.body["attempt"])
}

func TestHTTPInvoker_BadRequestIsInvalidInput(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusBadRequest,
		`{"error":"order amount must not be negative"}`)
	inv := NewHTTPInvoker(srv.URL, srv.URL, srv.URL)

	_, err := inv.Invoke(context.Background(), saga.Invocation{
		Participant: saga.ParticipantOrder,
		Operation:   saga.OperationCreate,
		ID:          models.GenerateUUID(),
		Amount:      -1,
	})
	require.Error(t, err)
	assert.True(t, saga.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "order amount must not be negative")
}

func TestHTTPInvoker_ServiceUnavailableIsTransient(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusServiceUnavailable,
		`{"error":"order store unavailable"}`)
	inv := NewHTTPInvoker(srv.URL, srv.URL, srv.URL)

	_, err := inv.Invoke(context.Background(), saga.Invocation{
		Participant: saga.ParticipantOrder,
		Operation:   saga.OperationCreate,
		ID:          models.GenerateUUID(),
		Amount:      777,
		Attempt:     1,
	})
	require.Error(t, err)
	assert.True(t, saga.IsTransient(err))
}

func TestHTTPInvoker_UnexpectedStatusIsPlainError(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusInternalServerError, `{}`)
	inv := NewHTTPInvoker(srv.URL, srv.URL, srv.URL)

	_, err := inv.Invoke(context.Background(), saga.Invocation{
		Participant: saga.ParticipantShipping,
		Operation:   saga.OperationProcess,
		ID:          models.GenerateUUID(),
	})
	require.Error(t, err)
	assert.False(t, saga.IsInvalidInput(err))
	assert.False(t, saga.IsTransient(err))
}

func TestHTTPInvoker_ReconcileRoute(t *testing.T) {
	srv, recorded := newRecordingServer(t, http.StatusOK, `{"outcome":"Success","status":"OnHold"}`)
	inv := NewHTTPInvoker(srv.URL, srv.URL, srv.URL)
	id := models.GenerateUUID()

	_, err := inv.Invoke(context.Background(), saga.Invocation{
		Participant: saga.ParticipantShipping,
		Operation:   saga.OperationReconcile,
		ID:          id,
		Status:      saga.TargetOnHold,
	})
	require.NoError(t, err)

	assert.Equal(t, "/shipments/"+id.String()+"/reconcile", recorded.path)
	assert.Equal(t, string(saga.TargetOnHold), recorded.body["status"])
}

func TestHTTPStatusChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","status":"Processed"}`))
	}))
	t.Cleanup(srv.Close)

	status, err := NewHTTPStatusChecker(srv.URL).CheckOrderStatus(context.Background(), models.GenerateUUID())
	require.NoError(t, err)
	assert.Equal(t, "Processed", status)
}

func TestHTTPStatusChecker_UnknownOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := NewHTTPStatusChecker(srv.URL).CheckOrderStatus(context.Background(), models.GenerateUUID())
	require.Error(t, err)
	assert.True(t, saga.IsNotFound(err))
}

func TestHTTPInvoker_UnknownParticipant(t *testing.T) {
	inv := NewHTTPInvoker("http://localhost", "http://localhost", "http://localhost")

	_, err := inv.Invoke(context.Background(), saga.Invocation{
		Participant: "warehouse",
		Operation:   saga.OperationCreate,
		ID:          models.GenerateUUID(),
	})
	require.Error(t, err)
}
