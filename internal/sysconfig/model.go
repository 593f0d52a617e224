package sysconfig

import "time"

// Config is the singleton business configuration row.
type Config struct {
	CompanyName       string
	CompanyRIF        string
	CompanyAddress    string
	CompanyPhone      string
	TaxPercent        float64
	TaxEnabled        bool
	NextInvoiceNumber int64
	NextNoteNumber    int64
	FXAutoRefresh     bool
	UpdatedAt         time.Time
}
