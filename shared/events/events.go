package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/orderstack/fulfillment-system/shared/models"
)

var (
	ErrInvalidSource   = errors.New("invalid source")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrInvalidReceiver = errors.New("receiver should be a pointer")
)

// Source identifies the operation a notification originates from. Together
// with the DetailType it forms the routing key of the whole choreography, so
// the wire values must stay exactly as they are.
type Source string

const (
	SourceOrderContext      Source = "OrderContext"
	SourceCreateOrder       Source = "CreateOrder"
	SourceCreatePayment     Source = "CreatePayment"
	SourceCreateShipping    Source = "CreateShipping"
	SourceProcessOrder      Source = "ProcessOrder"
	SourceProcessPayment    Source = "ProcessPayment"
	SourceProcessShipping   Source = "ProcessShipping"
	SourceReconcileOrder    Source = "ReconcileOrder"
	SourceReconcilePayment  Source = "ReconcilePayment"
	SourceReconcileShipping Source = "ReconcileShipping"
)

// DetailType classifies a notification. Services report Success, Error or
// Reconcile; the order context emits command detail types addressed at the
// participant services.
type DetailType string

const (
	DetailSuccess   DetailType = "Success"
	DetailError     DetailType = "Error"
	DetailReconcile DetailType = "Reconcile"

	// Commands emitted by the order context.
	DetailCreateOrder       DetailType = "CreateOrder"
	DetailOrderCreated      DetailType = "OrderCreated"
	DetailProcessOrder      DetailType = "ProcessOrder"
	DetailProcessPayment    DetailType = "ProcessPayment"
	DetailProcessShipping   DetailType = "ProcessShipping"
	DetailReconcileOrder    DetailType = "ReconcileOrder"
	DetailReconcilePayment  DetailType = "ReconcilePayment"
	DetailReconcileShipping DetailType = "ReconcileShipping"
)

// Key is the (source, detail type) pair consumers filter on. Dispatching on
// the typed pair instead of raw strings keeps the switch arms checkable.
type Key struct {
	Source Source
	Type   DetailType
}

// Detail is the notification body. Every notification carries the saga id;
// the remaining fields depend on the (source, detail type) pair.
type Detail struct {
	ID       models.ID `json:"id"`
	Amount   int64     `json:"amount,omitempty"`
	Quantity int       `json:"quantity,omitempty"`
	Status   string    `json:"status,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Metadata represents event metadata
type Metadata map[string]string

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Metadata) Set(key string, value string) {
	if m == nil {
		return
	}
	m[key] = value
}

func (m Metadata) Has(key string) bool {
	_, ok := m[key]
	return ok
}

func (m Metadata) Clone() Metadata {
	clone := Metadata{}
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// Event represents a saga notification
type Event struct {
	ID         models.ID   `json:"id"`
	SagaID     models.ID   `json:"saga_id"`
	Source     Source      `json:"source"`
	DetailType DetailType  `json:"detail_type"`
	Detail     interface{} `json:"detail"`
	Metadata   Metadata    `json:"metadata"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Publisher publishes events
type Publisher interface {
	Publish(ctx context.Context, events ...*Event) error
}

// Subscriber subscribes to events
type Subscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// EventHandler handles saga notifications
type EventHandler interface {
	Handle(ctx context.Context, event *Event) error
}

// NewEvent creates a new notification addressed by its routing key
func NewEvent(sagaID models.ID, source Source, detailType DetailType, detail interface{}) *Event {
	return &Event{
		ID:         models.GenerateUUID(),
		SagaID:     sagaID,
		Source:     source,
		DetailType: detailType,
		Detail:     detail,
		Metadata:   make(Metadata),
		Timestamp:  time.Now(),
	}
}

// Key returns the routing key of the event
func (e *Event) Key() Key {
	return Key{Source: e.Source, Type: e.DetailType}
}

// WithMetadata adds metadata
func (e *Event) WithMetadata(key string, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata.Set(key, value)
	return e
}

// ToJSON converts event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}

// MarshalDetail marshals the event detail
func (e *Event) MarshalDetail() (json.RawMessage, error) {
	if b, ok := e.Detail.([]byte); ok {
		return b, nil
	}

	if b, ok := e.Detail.(json.RawMessage); ok {
		return b, nil
	}

	return json.Marshal(e.Detail)
}

// UnmarshalDetail unmarshals the event detail into the given receiver
func (e *Event) UnmarshalDetail(v interface{}) error {
	if b, ok := e.Detail.([]byte); ok {
		return json.Unmarshal(b, v)
	}

	if b, ok := e.Detail.(json.RawMessage); ok {
		return json.Unmarshal(b, v)
	}

	raw, err := e.MarshalDetail()
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, v)
}
