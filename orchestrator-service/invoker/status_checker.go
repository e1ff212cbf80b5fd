package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	orderapp "github.com/orderstack/fulfillment-system/order-service/application"
	"github.com/orderstack/fulfillment-system/shared/models"
	"github.com/orderstack/fulfillment-system/shared/saga"
)

// LocalStatusChecker reads the order status through the use case on the
// orchestrator's own database connection.
type LocalStatusChecker struct {
	getOrder *orderapp.GetOrder
}

// NewLocalStatusChecker creates the local status reader
func NewLocalStatusChecker(getOrder *orderapp.GetOrder) *LocalStatusChecker {
	return &LocalStatusChecker{getOrder: getOrder}
}

func (c *LocalStatusChecker) CheckOrderStatus(ctx context.Context, id models.ID) (string, error) {
	resp, err := c.getOrder.Execute(ctx, id)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// HTTPStatusChecker asks the order service for the order status
type HTTPStatusChecker struct {
	client   *http.Client
	orderURL string
}

// NewHTTPStatusChecker creates the HTTP status reader. The base URL carries
// no trailing slash.
func NewHTTPStatusChecker(orderURL string) *HTTPStatusChecker {
	return &HTTPStatusChecker{
		client:   &http.Client{Timeout: 10 * time.Second},
		orderURL: orderURL,
	}
}

func (c *HTTPStatusChecker) CheckOrderStatus(ctx context.Context, id models.ID) (string, error) {
	url := fmt.Sprintf("%s/orders/%s", c.orderURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to call %s", url)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", errors.Wrap(err, "failed to decode response")
		}
		return body.Status, nil

	case resp.StatusCode == http.StatusNotFound:
		return "", saga.ErrNotFound

	default:
		return "", errors.Errorf("%s answered %d", url, resp.StatusCode)
	}
}
