package sales

import "time"

// Document kinds. An invoice is a cash sale paid in full on the spot; a
// delivery note is a credit sale collected over time and converted into an
// invoice once settled.
const (
	KindInvoice      = "invoice"
	KindDeliveryNote = "delivery_note"
)

// Sale statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Statuses lists the filterable sale statuses.
var Statuses = []string{StatusPending, StatusCompleted, StatusCancelled}

// PaymentMethods lists the accepted payment methods.
var PaymentMethods = []string{"efectivo", "tarjeta", "pago_movil", "transferencia", "otro"}

// ValidPaymentMethod reports whether method is accepted.
func ValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Sale is the lifecycle record behind an invoice or delivery note.
type Sale struct {
	ID             int64
	EmployeeID     int64
	InvoiceID      *int64
	DeliveryNoteID *int64
	IsCredit       bool
	AmountPaid     float64
	Status         string
	SoldAt         time.Time

	// Denormalized document fields filled on reads.
	DocumentNumber int64
	ClientID       int64
	ClientName     string
	EmployeeName   string
	Subtotal       float64
	Tax            float64
	Total          float64
}

// Kind derives the document kind. A converted delivery note carries both
// ids and reports as an invoice, which is the fiscal document that matters
// once the credit is settled.
func (s Sale) Kind() string {
	if s.InvoiceID != nil {
		return KindInvoice
	}
	return KindDeliveryNote
}

// DocumentLabel is the Spanish label used across pages and PDFs.
func (s Sale) DocumentLabel() string {
	if s.Kind() == KindDeliveryNote {
		return "Nota de Entrega"
	}
	return "Factura"
}

// Paid is the amount collected so far.
func (s Sale) Paid() float64 { return s.AmountPaid }

// Balance is what remains to collect.
func (s Sale) Balance() float64 {
	b := round2(s.Total - s.AmountPaid)
	if b < 0 {
		return 0
	}
	return b
}

// LineItem is one product line of a document.
type LineItem struct {
	ID          int64
	ProductID   int64
	ProductName string
	Quantity    float64
	UnitPrice   float64
	LineTotal   float64
}

// Payment is one collection against a sale.
type Payment struct {
	ID        int64
	SaleID    int64
	Amount    float64
	Method    string
	Reference string
	PaidAt    time.Time
}

// saleProduct is what sale creation needs to know about a product.
type saleProduct struct {
	ID         int64
	Name       string
	SalePrice  float64
	Fractional bool
	Active     bool
}
