package saga

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		payment  Outcome
		shipment Outcome
		expected Decision
	}{
		{
			name:     "both processed completes the order",
			payment:  OutcomeSuccess,
			shipment: OutcomeSuccess,
			expected: Decision{Order: TargetProcessed},
		},
		{
			name:     "payment exceeded compensates the shipment",
			payment:  OutcomeExceeded,
			shipment: OutcomeSuccess,
			expected: Decision{Order: TargetOnHold, CompensateShipment: true},
		},
		{
			name:     "shipment exceeded compensates the payment",
			payment:  OutcomeSuccess,
			shipment: OutcomeExceeded,
			expected: Decision{Order: TargetOnHold, CompensatePayment: true},
		},
		{
			name:     "both exceeded compensates neither sibling",
			payment:  OutcomeExceeded,
			shipment: OutcomeExceeded,
			expected: Decision{Order: TargetOnHold},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decide(tt.payment, tt.shipment))
		})
	}
}

func TestDecide_OrderIndependence(t *testing.T) {
	// The decision only depends on the pair of outcomes, never on which
	// sibling reported first; both argument orders must agree.
	outcomes := []Outcome{OutcomeSuccess, OutcomeExceeded}
	for _, p := range outcomes {
		for _, s := range outcomes {
			forward := Decide(p, s)
			mirrored := Decide(s, p)
			assert.Equal(t, forward.Order, mirrored.Order)
			assert.Equal(t, forward.CompensatePayment, mirrored.CompensateShipment)
			assert.Equal(t, forward.CompensateShipment, mirrored.CompensatePayment)
		}
	}
}
