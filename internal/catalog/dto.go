package catalog

// ProductInput carries the product form fields.
type ProductInput struct {
	SKU               string  `validate:"required,max=40"`
	Name              string  `validate:"required,max=150"`
	Description       string  `validate:"max=500"`
	SalePrice         float64 `validate:"gte=0.01,lte=5000"`
	PurchasePrice     float64 `validate:"gte=0.01,lte=5000"`
	Stock             float64 `validate:"gte=0,lte=100000"`
	LowStockThreshold float64 `validate:"gte=0"`
	UnitID            int64   `validate:"required"`
	Active            bool
}

// UnitInput carries the unit form fields.
type UnitInput struct {
	Name         string `validate:"required,max=60"`
	Abbreviation string `validate:"required,max=10"`
	Description  string `validate:"max=255"`
	Fractional   bool
}

// LookupItem is a JSON autocomplete suggestion.
type LookupItem struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}
