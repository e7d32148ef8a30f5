package order

import "github.com/shopspring/decimal"

// subscriptionRate is the flat discount applied to subscription orders.
var subscriptionRate = decimal.NewFromFloat(0.30)

// subscriptionFeeName is the customer-visible label of the discount fee line.
const subscriptionFeeName = "Prenumeratos nuolaida (30%)"

// ApplySubscriptionDiscount adds a negative fee equal to 30% of the order
// subtotal, tags the order as a monthly subscription, and recomputes totals.
// Applying the rule twice would double-discount, so an order already tagged
// as a subscription is left untouched.
func ApplySubscriptionDiscount(o *Order) {
	if o.Meta(MetaIsSubscription) == "yes" {
		return
	}

	discount := o.Subtotal.Mul(subscriptionRate).Round(2)
	o.Fees = append(o.Fees, FeeLine{
		Name:   subscriptionFeeName,
		Amount: discount.Neg(),
	})

	o.SetMeta(MetaIsSubscription, "yes")
	o.SetMeta(MetaSubscriptionInterval, "month")
	o.SetMeta(MetaSubscriptionDiscount, discount.String())

	o.CalculateTotals()
}
