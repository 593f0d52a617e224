package sysconfig

// UpdateConfigInput carries the settings form fields.
type UpdateConfigInput struct {
	CompanyName       string  `validate:"required,max=120"`
	CompanyRIF        string  `validate:"required,max=20"`
	CompanyAddress    string  `validate:"max=255"`
	CompanyPhone      string  `validate:"max=30"`
	TaxPercent        float64 `validate:"gte=0,lte=100"`
	TaxEnabled        bool
	NextInvoiceNumber int64 `validate:"gte=1"`
	NextNoteNumber    int64 `validate:"gte=1"`
	FXAutoRefresh     bool
}
