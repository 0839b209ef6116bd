package orders

import (
	"fmt"
	"time"

	"github.com/boursa/brokerage-api/internal/types"
)

// Orders with a fixed validity date must expire within this many days.
const maxValidityDays = 30

const validityDateLayout = "2006-01-02"

// ValidateDraft checks an order draft against the condition rules. Each
// condition enum selects exactly the checks its variant requires; no
// cross-field refinement happens outside the switch arms. The returned map
// carries one message per offending field and is empty for a valid draft.
func ValidateDraft(req *types.OrderRequest, availableQuantity int64, now time.Time) map[string]string {
	fields := make(map[string]string)

	switch req.OperationType {
	case types.OperationBuy, types.OperationSell:
	default:
		fields["operation_type"] = "operation type must be A (buy) or V (sell)"
	}

	if req.Quantity < 1 {
		fields["quantity"] = "quantity must be at least 1"
	} else if req.Quantity > availableQuantity {
		fields["quantity"] = fmt.Sprintf("quantity must not exceed the available %d", availableQuantity)
	}

	switch req.DurationCondition {
	case types.DurationDayOnly, types.DurationUnstipulated:
		// No extra fields required
	case types.DurationFixedDate:
		if req.Validity == "" {
			fields["validity"] = "a validity date is required for fixed-date orders"
			break
		}
		date, err := time.Parse(validityDateLayout, req.Validity)
		if err != nil {
			fields["validity"] = "validity date must be formatted YYYY-MM-DD"
			break
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		latest := today.AddDate(0, 0, maxValidityDays)
		if date.Before(today) || date.After(latest) {
			fields["validity"] = fmt.Sprintf("validity date must fall between %s and %s",
				today.Format(validityDateLayout), latest.Format(validityDateLayout))
		}
	default:
		fields["conditionDuree"] = "unknown duration condition"
	}

	switch req.PriceCondition {
	case types.PriceMarket:
		// Priced at face value, nothing to check
	case types.PriceLimit:
		if req.Price <= 0 {
			fields["price"] = "a limit price greater than zero is required"
		}
	default:
		fields["conditionPrix"] = "unknown price condition"
	}

	switch req.QuantityCondition {
	case types.QuantityAllOrNone:
		// No extra fields required
	case types.QuantityMinimum:
		if req.MinQuantity <= 0 {
			fields["quantiteMinimale"] = "minimum quantity must be greater than zero"
		} else if req.MinQuantity > req.Quantity {
			fields["quantiteMinimale"] = "minimum quantity must not exceed the order quantity"
		}
	default:
		fields["conditionQuantite"] = "unknown quantity condition"
	}

	return fields
}
