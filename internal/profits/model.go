package profits

import "time"

// Record is one day of aggregated sales performance. Revenue sums the line
// subtotals of non-cancelled sales, cost prices the same lines at purchase
// price, and profit is the difference.
type Record struct {
	ID         int64
	RecordDate time.Time
	Revenue    float64
	Cost       float64
	Profit     float64
	UpdatedAt  time.Time
}

// Summary aggregates a period for the report header.
type Summary struct {
	TotalRevenue float64
	TotalCost    float64
	TotalProfit  float64
}
