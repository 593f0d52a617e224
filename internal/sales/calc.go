package sales

import "math"

// Totals are the monetary aggregates of a document.
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// ComputeTotals derives the aggregates from line items. It is pure: callers
// run it once per mutation batch and persist the result, so the stored totals
// are always a function of the stored lines.
func ComputeTotals(lines []LineItem, taxPercent float64) Totals {
	var subtotal float64
	for _, l := range lines {
		subtotal += round2(l.Quantity * l.UnitPrice)
	}
	subtotal = round2(subtotal)
	tax := round2(subtotal * taxPercent / 100)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    round2(subtotal + tax),
	}
}

// round2 rounds to cents, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
