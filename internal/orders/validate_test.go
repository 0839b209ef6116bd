package orders

import (
	"strings"
	"testing"
	"time"

	"github.com/boursa/brokerage-api/internal/types"
)

func baseDraft() *types.OrderRequest {
	return &types.OrderRequest{
		StockID:           "sec-1",
		ClientID:          "cli-1",
		Quantity:          10,
		OperationType:     types.OperationBuy,
		DurationCondition: types.DurationDayOnly,
		PriceCondition:    types.PriceMarket,
		QuantityCondition: types.QuantityAllOrNone,
	}
}

func TestValidateDraft_Valid(t *testing.T) {
	fields := ValidateDraft(baseDraft(), 50, time.Now())
	if len(fields) != 0 {
		t.Errorf("expected no field errors, got %v", fields)
	}
}

func TestValidateDraft_QuantityBounds(t *testing.T) {
	now := time.Now()

	draft := baseDraft()
	draft.Quantity = 0
	if fields := ValidateDraft(draft, 50, now); fields["quantity"] == "" {
		t.Error("expected quantity error for zero quantity")
	}

	draft.Quantity = 51
	fields := ValidateDraft(draft, 50, now)
	if fields["quantity"] == "" {
		t.Fatal("expected quantity error when exceeding available quantity")
	}
	// The message must name the maximum allowed
	if !strings.Contains(fields["quantity"], "50") {
		t.Errorf("expected quantity message to name the max 50, got %q", fields["quantity"])
	}

	// Every quantity within range passes
	for q := int64(1); q <= 50; q++ {
		draft.Quantity = q
		if fields := ValidateDraft(draft, 50, now); len(fields) != 0 {
			t.Fatalf("expected quantity %d to validate, got %v", q, fields)
		}
	}
}

func TestValidateDraft_LimitPrice(t *testing.T) {
	now := time.Now()

	draft := baseDraft()
	draft.PriceCondition = types.PriceLimit
	draft.Price = 0
	if fields := ValidateDraft(draft, 50, now); fields["price"] == "" {
		t.Error("expected price error for missing limit price")
	}

	draft.Price = -10
	if fields := ValidateDraft(draft, 50, now); fields["price"] == "" {
		t.Error("expected price error for negative limit price")
	}

	draft.Price = 450
	if fields := ValidateDraft(draft, 50, now); len(fields) != 0 {
		t.Errorf("expected valid limit order, got %v", fields)
	}

	// A market order ignores the price field entirely
	draft.PriceCondition = types.PriceMarket
	draft.Price = 0
	if fields := ValidateDraft(draft, 50, now); len(fields) != 0 {
		t.Errorf("expected market order to validate without price, got %v", fields)
	}
}

func TestValidateDraft_FixedDateValidity(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		validity string
		wantErr  bool
	}{
		{"missing", "", true},
		{"malformed", "10/03/2026", true},
		{"yesterday", "2026-03-09", true},
		{"today", "2026-03-10", false},
		{"day plus 30", "2026-04-09", false},
		{"day plus 31", "2026-04-10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := baseDraft()
			draft.DurationCondition = types.DurationFixedDate
			draft.Validity = tt.validity

			fields := ValidateDraft(draft, 50, now)
			if tt.wantErr && fields["validity"] == "" {
				t.Errorf("expected validity error for %q", tt.validity)
			}
			if !tt.wantErr && fields["validity"] != "" {
				t.Errorf("unexpected validity error for %q: %s", tt.validity, fields["validity"])
			}
		})
	}

	// Day-only and unstipulated orders need no validity date
	draft := baseDraft()
	draft.DurationCondition = types.DurationUnstipulated
	if fields := ValidateDraft(draft, 50, now); len(fields) != 0 {
		t.Errorf("expected unstipulated order to validate, got %v", fields)
	}
}

func TestValidateDraft_MinimumQuantity(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		quantity    int64
		minQuantity int64
		wantErr     bool
	}{
		{"missing", 20, 0, true},
		{"negative", 20, -1, true},
		{"exceeds quantity", 20, 25, true},
		{"equal to quantity", 20, 20, false},
		{"below quantity", 20, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := baseDraft()
			draft.Quantity = tt.quantity
			draft.QuantityCondition = types.QuantityMinimum
			draft.MinQuantity = tt.minQuantity

			fields := ValidateDraft(draft, 50, now)
			if tt.wantErr && fields["quantiteMinimale"] == "" {
				t.Errorf("expected quantiteMinimale error, got %v", fields)
			}
			if !tt.wantErr && fields["quantiteMinimale"] != "" {
				t.Errorf("unexpected quantiteMinimale error: %s", fields["quantiteMinimale"])
			}
		})
	}
}

func TestValidateDraft_UnknownConditions(t *testing.T) {
	now := time.Now()

	draft := baseDraft()
	draft.DurationCondition = "forever"
	if fields := ValidateDraft(draft, 50, now); fields["conditionDuree"] == "" {
		t.Error("expected conditionDuree error for unknown duration condition")
	}

	draft = baseDraft()
	draft.PriceCondition = "best-effort"
	if fields := ValidateDraft(draft, 50, now); fields["conditionPrix"] == "" {
		t.Error("expected conditionPrix error for unknown price condition")
	}

	draft = baseDraft()
	draft.QuantityCondition = "whatever"
	if fields := ValidateDraft(draft, 50, now); fields["conditionQuantite"] == "" {
		t.Error("expected conditionQuantite error for unknown quantity condition")
	}

	draft = baseDraft()
	draft.OperationType = "X"
	if fields := ValidateDraft(draft, 50, now); fields["operation_type"] == "" {
		t.Error("expected operation_type error for unknown operation")
	}
}
