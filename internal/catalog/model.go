package catalog

import "time"

// Price and stock bounds enforced on every write, mirrored by database
// check constraints.
const (
	MinPrice = 0.01
	MaxPrice = 5000.00
	MaxStock = 100000.0
)

// Unit is a unit of measure. Fractional units accept quantities with up to
// three decimals; the rest only whole numbers.
type Unit struct {
	ID           int64
	Name         string
	Abbreviation string
	Description  string
	Fractional   bool
	Active       bool
	CreatedAt    time.Time
}

// Product is a catalog item. UnitName and Fractional come from the joined
// unit row and are empty on writes.
type Product struct {
	ID                int64
	SKU               string
	Name              string
	Description       string
	SalePrice         float64
	PurchasePrice     float64
	Stock             float64
	LowStockThreshold float64
	UnitID            *int64
	UnitName          string
	Fractional        bool
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LowStock reports whether the product is at or below its threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

// TopSeller is one row of the best-sellers ranking.
type TopSeller struct {
	ProductID int64
	Name      string
	Quantity  float64
	Revenue   float64
}
