package sales

import "time"

// LineInput is one product line of the sale form.
type LineInput struct {
	ProductID int64   `validate:"required"`
	Quantity  float64 `validate:"gt=0"`
}

// PaymentInput carries a payment registration.
type PaymentInput struct {
	Amount    float64 `validate:"gt=0"`
	Method    string  `validate:"required"`
	Reference string  `validate:"max=120"`
}

// CreateSaleInput carries the sale form fields.
type CreateSaleInput struct {
	ClientID       int64       `validate:"required"`
	Kind           string      `validate:"required,oneof=invoice delivery_note"`
	Lines          []LineInput `validate:"required,min=1,dive"`
	InitialPayment *PaymentInput
}

// ListFilters narrows the sales listing.
type ListFilters struct {
	From   time.Time
	To     time.Time
	Status string
}

// DashboardSummary feeds the home page cards.
type DashboardSummary struct {
	TodayCount     int
	TodayTotal     float64
	PendingBalance float64
}
