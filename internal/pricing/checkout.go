package pricing

import "github.com/shopspring/decimal"

// CheckoutTotal is the payable amount after discount, tax and delivery.
type CheckoutTotal struct {
	Taxable            Money `json:"taxable"`
	Tax                Money `json:"tax"`
	DeliveryFeeApplied Money `json:"deliveryFee"`
	GrandTotal         Money `json:"grandTotal"`
}

// ComputeCheckoutTotal taxes the post-discount amount and waives the flat delivery fee
// once subtotal reaches deliveryThreshold. A discount larger than the subtotal leaves a
// zero tax base. Tax is rounded to two decimal places.
func ComputeCheckoutTotal(subtotal, discount, taxRate, deliveryThreshold, deliveryFee Money) CheckoutTotal {
	taxable := subtotal.Sub(decimal.Max(discount, decimal.Zero))
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	tax := taxable.Mul(taxRate).Round(2)
	if tax.IsNegative() {
		tax = decimal.Zero
	}
	fee := decimal.Max(deliveryFee, decimal.Zero)
	if subtotal.GreaterThanOrEqual(deliveryThreshold) {
		fee = decimal.Zero
	}
	return CheckoutTotal{
		Taxable:            taxable,
		Tax:                tax,
		DeliveryFeeApplied: fee,
		GrandTotal:         taxable.Add(tax).Add(fee),
	}
}
