package cart

import (
	"math"
	"testing"

	"mkulima/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTotalsDiverge(t *testing.T) {
	items := []models.CartItem{
		{ProductID: "p1", Quantity: 10, PricePerUnit: 20}, // 200
		{ProductID: "p2", Quantity: 2, PricePerUnit: 25},  // 50
	}

	if got := Subtotal(items); !almostEqual(got, 250) {
		t.Fatalf("Subtotal = %v, want 250", got)
	}
	if got := CheckoutTotal(items); !almostEqual(got, 250) {
		t.Fatalf("CheckoutTotal = %v, want 250", got)
	}
	// 250 * 1.16 + 10 = 300
	if got := FullTotalWithFees(items, DefaultTaxRate, DefaultDeliveryFee); !almostEqual(got, 300) {
		t.Fatalf("FullTotalWithFees = %v, want 300", got)
	}
}

func TestTotalsSkipSavedForLater(t *testing.T) {
	items := []models.CartItem{
		{ProductID: "p1", Quantity: 4, PricePerUnit: 50},
		{ProductID: "p2", Quantity: 100, PricePerUnit: 99, SavedForLater: true},
	}

	if got := Subtotal(items); !almostEqual(got, 200) {
		t.Fatalf("Subtotal = %v, want 200 (saved line must not count)", got)
	}
	if got := CheckoutTotal(items); !almostEqual(got, 200) {
		t.Fatalf("CheckoutTotal = %v, want 200 (saved line must not count)", got)
	}
}

func TestTotalsEmptyCart(t *testing.T) {
	if got := Subtotal(nil); got != 0 {
		t.Fatalf("Subtotal(nil) = %v, want 0", got)
	}
	// An empty cart still pays the flat delivery fee if it ever got here;
	// checkout rejects empty carts before the amount matters.
	if got := FullTotalWithFees(nil, DefaultTaxRate, DefaultDeliveryFee); !almostEqual(got, DefaultDeliveryFee) {
		t.Fatalf("FullTotalWithFees(nil) = %v, want %v", got, DefaultDeliveryFee)
	}
}
