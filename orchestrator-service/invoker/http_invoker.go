package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/orderstack/fulfillment-system/shared/saga"
)

var _ saga.Invoker = (*HTTPInvoker)(nil)

// HTTPInvoker executes participant operations against the services' HTTP
// surfaces. This is the distributed deployment of the orchestrated variant:
// each participant runs its own binary and database connection.
type HTTPInvoker struct {
	client      *http.Client
	orderURL    string
	paymentURL  string
	shippingURL string
}

// NewHTTPInvoker creates the HTTP transport. Base URLs carry no trailing
// slash.
func NewHTTPInvoker(orderURL, paymentURL, shippingURL string) *HTTPInvoker {
	return &HTTPInvoker{
		client: &http.Client{
			// Generous enough for the shipping leg's simulated carrier wait.
			Timeout: 30 * time.Second,
		},
		orderURL:    orderURL,
		paymentURL:  paymentURL,
		shippingURL: shippingURL,
	}
}

type invocationBody struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
	Status   string `json:"status,omitempty"`
	Attempt  int    `json:"attempt,omitempty"`
}

// Invoke maps one invocation to a request against the participant service.
// Responses are classified by status code: 400 is a validation failure, 503
// a retryable fault; both preserve the coordinator's error semantics.
func (i *HTTPInvoker) Invoke(ctx context.Context, inv saga.Invocation) (saga.Result, error) {
	url, err := i.route(inv)
	if err != nil {
		return saga.Result{}, err
	}

	payload, err := json.Marshal(invocationBody{
		ID:       inv.ID.String(),
		Amount:   inv.Amount,
		Quantity: inv.Quantity,
		Status:   string(inv.Status),
		Attempt:  inv.Attempt,
	})
	if err != nil {
		return saga.Result{}, errors.Wrap(err, "failed to encode invocation")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return saga.Result{}, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return saga.Result{}, errors.Wrapf(err, "failed to call %s", url)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var result saga.Result
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return saga.Result{}, errors.Wrap(err, "failed to decode response")
		}
		if result.Outcome == "" {
			result.Outcome = saga.OutcomeSuccess
		}
		return result, nil

	case resp.StatusCode == http.StatusBadRequest:
		return saga.Result{}, saga.NewInvalidInput(decodeError(resp))

	case resp.StatusCode == http.StatusServiceUnavailable:
		return saga.Result{}, saga.NewTransient(decodeError(resp))

	default:
		return saga.Result{}, errors.Errorf("%s answered %d: %s", url, resp.StatusCode, decodeError(resp))
	}
}

func (i *HTTPInvoker) route(inv saga.Invocation) (string, error) {
	var base, resource string
	switch inv.Participant {
	case saga.ParticipantOrder:
		base, resource = i.orderURL, "orders"
	case saga.ParticipantPayment:
		base, resource = i.paymentURL, "payments"
	case saga.ParticipantShipping:
		base, resource = i.shippingURL, "shipments"
	default:
		return "", errors.Errorf("unknown participant %q", inv.Participant)
	}

	switch inv.Operation {
	case saga.OperationCreate:
		return fmt.Sprintf("%s/%s", base, resource), nil
	case saga.OperationProcess:
		return fmt.Sprintf("%s/%s/%s/process", base, resource, inv.ID), nil
	case saga.OperationReconcile:
		return fmt.Sprintf("%s/%s/%s/reconcile", base, resource, inv.ID), nil
	}
	return "", errors.Errorf("unknown operation %q", inv.Operation)
}

func decodeError(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return resp.Status
	}
	return body.Error
}
