package pricing

import (
	"math"
	"testing"

	"github.com/boursa/brokerage-api/internal/types"
)

func TestGross(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice float64
		quantity  int64
		want      float64
	}{
		{"simple", 1000, 10, 10000},
		{"single unit", 250.5, 1, 250.5},
		{"zero quantity", 1000, 0, 0},
		{"negative quantity clamps", 1000, -5, 0},
		{"negative price clamps", -1000, 10, 0},
		{"nan price clamps", math.NaN(), 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Gross(tt.unitPrice, tt.quantity); got != tt.want {
				t.Errorf("Gross(%v, %d) = %v, want %v", tt.unitPrice, tt.quantity, got, tt.want)
			}
		})
	}
}

func TestCompute_BuyAddsCommission(t *testing.T) {
	// 1000 x 10 at 3%: gross 10000, commission 300, total 10300
	snap := Compute(types.OperationBuy, 1000, 10, 0.03)

	if snap.GrossAmount != 10000 {
		t.Errorf("expected gross 10000, got %v", snap.GrossAmount)
	}
	if snap.CommissionAmount != 300 {
		t.Errorf("expected commission 300, got %v", snap.CommissionAmount)
	}
	if snap.NetTotal != 10300 {
		t.Errorf("expected net total 10300, got %v", snap.NetTotal)
	}
}

func TestCompute_SellDeductsCommission(t *testing.T) {
	snap := Compute(types.OperationSell, 1000, 10, 0.03)

	if snap.NetTotal != 9700 {
		t.Errorf("expected net total 9700, got %v", snap.NetTotal)
	}
}

func TestRates_For(t *testing.T) {
	rates := Rates{
		Action:       0.03,
		Obligation:   0.015,
		Sukuk:        0.015,
		Participatif: 0.02,
	}

	if got := rates.For(types.SecurityTypeAction, false); got != 0.03 {
		t.Errorf("expected action rate 0.03, got %v", got)
	}
	if got := rates.For(types.SecurityTypeObligation, false); got != 0.015 {
		t.Errorf("expected obligation rate 0.015, got %v", got)
	}

	// Government issues are always commission-free
	if got := rates.For(types.SecurityTypeObligation, true); got != 0 {
		t.Errorf("expected zero rate for government issue, got %v", got)
	}

	if got := rates.For(types.SecurityType("unknown"), false); got != 0 {
		t.Errorf("expected zero rate for unknown type, got %v", got)
	}
}

func TestCompute_GrossExactForAllQuantitiesInRange(t *testing.T) {
	const unitPrice = 437.25
	for q := int64(1); q <= 50; q++ {
		snap := Compute(types.OperationBuy, unitPrice, q, 0)
		if snap.GrossAmount != unitPrice*float64(q) {
			t.Fatalf("gross mismatch at quantity %d: got %v", q, snap.GrossAmount)
		}
	}
}
