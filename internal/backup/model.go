package backup

import "time"

// FormatVersion guards restores against snapshots from incompatible builds.
const FormatVersion = 1

// Snapshot is the full JSON backup of the operational data. Audit logs stay
// out: they are an append-only trail, not state worth transplanting.
type Snapshot struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`

	Users         []User         `json:"users"`
	Employees     []Employee     `json:"employees"`
	Clients       []Client       `json:"clients"`
	Units         []Unit         `json:"units"`
	Products      []Product      `json:"products"`
	FXRates       []FXRate       `json:"fx_rates"`
	CurrentRateID *int64         `json:"current_rate_id,omitempty"`
	Config        *Config        `json:"config,omitempty"`
	Invoices      []Invoice      `json:"invoices"`
	DeliveryNotes []DeliveryNote `json:"delivery_notes"`
	LineItems     []LineItem     `json:"line_items"`
	Sales         []Sale         `json:"sales"`
	Payments      []Payment      `json:"payments"`
	ProfitRecords []ProfitRecord `json:"profit_records"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"password_hash"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Employee struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone"`
	HiredAt   time.Time `json:"hired_at"`
	Active    bool      `json:"is_active"`
}

type Client struct {
	ID             int64     `json:"id"`
	DocumentType   string    `json:"document_type"`
	DocumentNumber string    `json:"document_number"`
	FullName       string    `json:"full_name"`
	Email          *string   `json:"email,omitempty"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	CreatedAt      time.Time `json:"created_at"`
}

type Unit struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Description  string `json:"description"`
	Fractional   bool   `json:"fractional"`
	Active       bool   `json:"is_active"`
}

type Product struct {
	ID                int64     `json:"id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	SalePrice         float64   `json:"sale_price"`
	PurchasePrice     float64   `json:"purchase_price"`
	Stock             float64   `json:"stock"`
	LowStockThreshold float64   `json:"low_stock_threshold"`
	UnitID            *int64    `json:"unit_id,omitempty"`
	Active            bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

type FXRate struct {
	ID       int64     `json:"id"`
	RateDate time.Time `json:"rate_date"`
	USDVES   float64   `json:"usd_ves"`
	Source   string    `json:"source"`
}

type Config struct {
	CompanyName       string  `json:"company_name"`
	CompanyRIF        string  `json:"company_rif"`
	CompanyAddress    string  `json:"company_address"`
	CompanyPhone      string  `json:"company_phone"`
	TaxPercent        float64 `json:"tax_percent"`
	TaxEnabled        bool    `json:"tax_enabled"`
	NextInvoiceNumber int64   `json:"next_invoice_number"`
	NextNoteNumber    int64   `json:"next_note_number"`
	FXAutoRefresh     bool    `json:"fx_auto_refresh"`
}

type Invoice struct {
	ID            int64     `json:"id"`
	Number        int64     `json:"number"`
	ClientID      int64     `json:"client_id"`
	EmployeeID    int64     `json:"employee_id"`
	PaymentMethod string    `json:"payment_method"`
	Subtotal      float64   `json:"subtotal"`
	Tax           float64   `json:"tax"`
	Total         float64   `json:"total"`
	IssuedAt      time.Time `json:"issued_at"`
}

type DeliveryNote struct {
	ID         int64     `json:"id"`
	Number     int64     `json:"number"`
	ClientID   int64     `json:"client_id"`
	EmployeeID int64     `json:"employee_id"`
	Subtotal   float64   `json:"subtotal"`
	Tax        float64   `json:"tax"`
	Total      float64   `json:"total"`
	Notes      *string   `json:"notes,omitempty"`
	Converted  bool      `json:"converted"`
	InvoiceID  *int64    `json:"invoice_id,omitempty"`
	IssuedAt   time.Time `json:"issued_at"`
}

type LineItem struct {
	ID             int64   `json:"id"`
	InvoiceID      *int64  `json:"invoice_id,omitempty"`
	DeliveryNoteID *int64  `json:"delivery_note_id,omitempty"`
	ProductID      int64   `json:"product_id"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	LineSubtotal   float64 `json:"line_subtotal"`
}

type Sale struct {
	ID             int64     `json:"id"`
	EmployeeID     int64     `json:"employee_id"`
	InvoiceID      *int64    `json:"invoice_id,omitempty"`
	DeliveryNoteID *int64    `json:"delivery_note_id,omitempty"`
	IsCredit       bool      `json:"is_credit"`
	AmountPaid     float64   `json:"amount_paid"`
	Status         string    `json:"status"`
	SoldAt         time.Time `json:"sold_at"`
}

type Payment struct {
	ID        int64     `json:"id"`
	SaleID    int64     `json:"sale_id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Reference *string   `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
}

type ProfitRecord struct {
	ID         int64     `json:"id"`
	RecordDate time.Time `json:"record_date"`
	Revenue    float64   `json:"revenue"`
	Cost       float64   `json:"cost"`
	Profit     float64   `json:"profit"`
}
