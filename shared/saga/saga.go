package saga

// The order-fulfillment saga drives three records sharing one id (order,
// payment, shipment) to a consistent terminal state. The state machine below
// is shared by every coordination variant; only the transport differs.

// Status represents the aggregate status of one saga instance
type Status string

const (
	StatusCreated        Status = "Created"
	StatusPendingCreate  Status = "PendingCreate"
	StatusPendingProcess Status = "PendingProcess"
	StatusCompleted      Status = "Completed"
	StatusReconciling    Status = "Reconciling"
	StatusProcessed      Status = "Processed"
	StatusOnHold         Status = "OnHold"
	StatusFailed         Status = "Failed"
)

// Outcome is the result of a single participant operation. Exceeded is a
// business outcome, not a fault: it always flows through the join-then-decide
// path and triggers compensation upstream.
type Outcome string

const (
	OutcomeSuccess  Outcome = "Success"
	OutcomeExceeded Outcome = "Exceeded"
	OutcomeInvalid  Outcome = "Invalid"
	OutcomeFailed   Outcome = "Failed"
)

// Target is the terminal status a reconciliation drives a record to
type Target string

const (
	TargetProcessed Target = "Processed"
	TargetOnHold    Target = "OnHold"
)

// Decision is the reconciliation plan for a pair of processing outcomes.
// Compensation only touches the sibling that succeeded; a participant that
// failed on its own is already terminal.
type Decision struct {
	Order              Target
	CompensatePayment  bool
	CompensateShipment bool
}

// Decide evaluates the pair of processing outcomes. Both outcomes must be
// present: the caller joins on both siblings before deciding, regardless of
// which completed first.
func Decide(payment, shipment Outcome) Decision {
	paymentOK := payment == OutcomeSuccess
	shipmentOK := shipment == OutcomeSuccess

	switch {
	case paymentOK && shipmentOK:
		return Decision{Order: TargetProcessed}
	case !paymentOK && !shipmentOK:
		return Decision{Order: TargetOnHold}
	case !paymentOK:
		return Decision{Order: TargetOnHold, CompensateShipment: true}
	default:
		return Decision{Order: TargetOnHold, CompensatePayment: true}
	}
}
