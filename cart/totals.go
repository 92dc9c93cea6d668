package cart

import "mkulima/models"

// Default pricing knobs. The delivery fee is flat regardless of cart
// composition; that is the documented behavior, not an oversight.
const (
	DefaultTaxRate     = 0.16
	DefaultDeliveryFee = 10.0
)

// Subtotal sums the line totals of active items; saved-for-later lines
// are excluded.
func Subtotal(items []models.CartItem) float64 {
	var sum float64
	for _, it := range items {
		if it.SavedForLater {
			continue
		}
		sum += it.Subtotal()
	}
	return sum
}

// CheckoutTotal is the amount sent to the payment gateway: the unweighted
// sum of active item subtotals, with no tax or delivery fee. It diverges
// from FullTotalWithFees on purpose; the two paths have always charged
// differently and must not be silently unified.
func CheckoutTotal(items []models.CartItem) float64 {
	var sum float64
	for _, it := range items {
		if it.SavedForLater {
			continue
		}
		sum += it.Subtotal()
	}
	return sum
}

// FullTotalWithFees is the order-confirmation amount:
// subtotal × (1 + taxRate) + deliveryFee.
func FullTotalWithFees(items []models.CartItem, taxRate, deliveryFee float64) float64 {
	return Subtotal(items)*(1+taxRate) + deliveryFee
}
