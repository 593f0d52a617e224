package app

import (
	"context"

	"github.com/facturo/facturo/internal/clients"
	"github.com/facturo/facturo/internal/sales"
)

// clientSales narrows the sales service to what the client detail page needs.
type clientSales struct {
	svc *sales.Service
}

// NewClientSaleLister adapts the sales service to the clients package.
func NewClientSaleLister(svc *sales.Service) clients.SaleLister {
	return &clientSales{svc: svc}
}

func (a *clientSales) ListByClient(ctx context.Context, clientID int64) ([]clients.SaleSummary, error) {
	list, err := a.svc.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]clients.SaleSummary, 0, len(list))
	for _, s := range list {
		out = append(out, clients.SaleSummary{
			ID:             s.ID,
			SoldAt:         s.SoldAt,
			DocumentLabel:  s.DocumentLabel(),
			DocumentNumber: s.DocumentNumber,
			Total:          s.Total,
			Status:         s.Status,
		})
	}
	return out, nil
}
