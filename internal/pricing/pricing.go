package pricing

import (
	"math"

	"github.com/boursa/brokerage-api/internal/types"
)

// Rates holds the configured commission rate per security type, as a fraction
// of the gross amount.
type Rates struct {
	Action       float64
	Obligation   float64
	Sukuk        float64
	Participatif float64
}

// For returns the commission rate applicable to a security. Government issues
// are commission-free regardless of type.
func (r Rates) For(t types.SecurityType, government bool) float64 {
	if government {
		return 0
	}
	switch t {
	case types.SecurityTypeAction:
		return r.Action
	case types.SecurityTypeObligation:
		return r.Obligation
	case types.SecurityTypeSukuk:
		return r.Sukuk
	case types.SecurityTypeParticipatif:
		return r.Participatif
	default:
		return 0
	}
}

// Snapshot is the derived amount breakdown for an order. It is recomputed,
// never stored independently of the order it belongs to.
type Snapshot struct {
	GrossAmount      float64 `json:"gross_amount"`
	CommissionAmount float64 `json:"commission_amount"`
	NetTotal         float64 `json:"net_total"`
}

// Gross returns unit price times quantity. Negative or NaN unit prices and
// negative quantities clamp to zero.
func Gross(unitPrice float64, quantity int64) float64 {
	if math.IsNaN(unitPrice) || unitPrice < 0 {
		unitPrice = 0
	}
	if quantity < 0 {
		quantity = 0
	}
	return unitPrice * float64(quantity)
}

// Compute derives the full amount snapshot for an order. Commission is added
// to the cost on buys and deducted from proceeds on sells.
func Compute(op types.OperationType, unitPrice float64, quantity int64, rate float64) Snapshot {
	gross := Gross(unitPrice, quantity)
	commission := gross * rate

	net := gross + commission
	if op == types.OperationSell {
		net = gross - commission
	}

	return Snapshot{
		GrossAmount:      gross,
		CommissionAmount: commission,
		NetTotal:         net,
	}
}
