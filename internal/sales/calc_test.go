package sales

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	lines := []LineItem{
		{Quantity: 2, UnitPrice: 10},
	}
	totals := ComputeTotals(lines, 16)
	require.Equal(t, 20.00, totals.Subtotal)
	require.Equal(t, 3.20, totals.Tax)
	require.Equal(t, 23.20, totals.Total)
}

func TestComputeTotalsRoundsPerLine(t *testing.T) {
	lines := []LineItem{
		{Quantity: 3, UnitPrice: 0.333},  // 0.999 -> 1.00
		{Quantity: 1.5, UnitPrice: 1.01}, // 1.515 -> 1.52
	}
	totals := ComputeTotals(lines, 0)
	require.Equal(t, 2.52, totals.Subtotal)
	require.Equal(t, 0.00, totals.Tax)
	require.Equal(t, 2.52, totals.Total)
}

func TestComputeTotalsNoTax(t *testing.T) {
	totals := ComputeTotals([]LineItem{{Quantity: 1, UnitPrice: 99.99}}, 0)
	require.Equal(t, 99.99, totals.Total)
	require.Zero(t, totals.Tax)
}

func TestSaleBalanceNeverNegative(t *testing.T) {
	s := Sale{Total: 50, AmountPaid: 60}
	require.Equal(t, 0.0, s.Balance())

	s = Sale{Total: 50, AmountPaid: 12.5}
	require.Equal(t, 37.5, s.Balance())
}

func TestSaleKindPrefersInvoice(t *testing.T) {
	invoiceID, noteID := int64(4), int64(9)

	converted := Sale{InvoiceID: &invoiceID, DeliveryNoteID: &noteID}
	require.Equal(t, KindInvoice, converted.Kind())
	require.Equal(t, "Factura", converted.DocumentLabel())

	open := Sale{DeliveryNoteID: &noteID}
	require.Equal(t, KindDeliveryNote, open.Kind())
	require.Equal(t, "Nota de Entrega", open.DocumentLabel())
}
