package fx

import "time"

// Rate is a registered USD to VES exchange rate.
type Rate struct {
	ID        int64
	Rate      float64
	RateDate  time.Time
	Source    string
	CreatedAt time.Time
}

// DefaultRate is the last-resort rate applied when no provider responds
// and no rate has ever been registered.
const DefaultRate = 36.50
