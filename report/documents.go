package report

import (
	"context"

	"github.com/facturo/facturo/internal/catalog"
	"github.com/facturo/facturo/internal/clients"
	"github.com/facturo/facturo/internal/sales"
	"github.com/facturo/facturo/internal/sysconfig"
	"github.com/facturo/facturo/internal/view"
)

// SaleLine is one priced document line with its bolívar equivalent.
type SaleLine struct {
	ProductName  string
	Quantity     float64
	UnitPrice    float64
	LineTotal    float64
	LineTotalVES float64
}

// SaleDocument feeds the invoice and delivery note PDF template.
type SaleDocument struct {
	Config        sysconfig.Config
	Sale          sales.Sale
	Client        clients.Client
	EmployeeName  string
	DocumentLabel string
	Cancelled     bool
	Lines         []SaleLine
	SubtotalVES   float64
	TaxVES        float64
	TotalVES      float64
	TaxPercent    float64
	ShowBalance   bool
	RateNote      string
}

// TopProducts feeds the best-sellers PDF template.
type TopProducts struct {
	Config sysconfig.Config
	From   string
	To     string
	Rows   []catalog.TopSeller
}

// Builder turns payloads into PDFs through the HTML templates and Gotenberg.
type Builder struct {
	gotenberg *Client
	templates *view.Engine
}

// NewBuilder constructs a Builder.
func NewBuilder(gotenberg *Client, templates *view.Engine) *Builder {
	return &Builder{gotenberg: gotenberg, templates: templates}
}

// SaleDocument renders an invoice or delivery note PDF.
func (b *Builder) SaleDocument(ctx context.Context, doc SaleDocument) ([]byte, error) {
	html, err := b.templates.RenderDocument("pdf/document.html", doc)
	if err != nil {
		return nil, err
	}
	return b.gotenberg.RenderHTML(ctx, html)
}

// TopProducts renders the best-sellers ranking PDF.
func (b *Builder) TopProducts(ctx context.Context, doc TopProducts) ([]byte, error) {
	html, err := b.templates.RenderDocument("pdf/top_products.html", doc)
	if err != nil {
		return nil, err
	}
	return b.gotenberg.RenderHTML(ctx, html)
}
