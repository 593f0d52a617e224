package report

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facturo/facturo/internal/catalog"
	"github.com/facturo/facturo/internal/clients"
	"github.com/facturo/facturo/internal/fx"
	"github.com/facturo/facturo/internal/sales"
	"github.com/facturo/facturo/internal/sysconfig"
)

// Handler serves the PDF downloads.
type Handler struct {
	logger  *slog.Logger
	builder *Builder
	sales   *sales.Service
	clients *clients.Service
	catalog *catalog.Service
	config  *sysconfig.Service
	rates   *fx.Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, builder *Builder, salesSvc *sales.Service, clientsSvc *clients.Service, catalogSvc *catalog.Service, configSvc *sysconfig.Service, ratesSvc *fx.Service) *Handler {
	return &Handler{
		logger:  logger,
		builder: builder,
		sales:   salesSvc,
		clients: clientsSvc,
		catalog: catalogSvc,
		config:  configSvc,
		rates:   ratesSvc,
	}
}

// SalePDF renders the sale's fiscal document.
func (h *Handler) SalePDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid sale ID", http.StatusBadRequest)
		return
	}
	sale, err := h.sales.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Sale not found", http.StatusNotFound)
		return
	}
	lines, err := h.sales.Lines(r.Context(), sale)
	if err != nil {
		h.logger.Error("load sale lines failed", "error", err, "sale_id", id)
		http.Error(w, "Failed to build document", http.StatusInternalServerError)
		return
	}
	client, err := h.clients.Get(r.Context(), sale.ClientID)
	if err != nil {
		h.logger.Error("load sale client failed", "error", err, "sale_id", id)
		http.Error(w, "Failed to build document", http.StatusInternalServerError)
		return
	}
	cfg, err := h.config.Get(r.Context())
	if err != nil {
		h.logger.Error("load config failed", "error", err)
		http.Error(w, "Failed to build document", http.StatusInternalServerError)
		return
	}
	rate, known := h.rates.Current(r.Context())

	doc := SaleDocument{
		Config:        cfg,
		Sale:          sale,
		Client:        client,
		EmployeeName:  sale.EmployeeName,
		DocumentLabel: sale.DocumentLabel(),
		Cancelled:     sale.Status == sales.StatusCancelled,
		SubtotalVES:   round2(sale.Subtotal * rate.Rate),
		TaxVES:        round2(sale.Tax * rate.Rate),
		TotalVES:      round2(sale.Total * rate.Rate),
		ShowBalance:   sale.IsCredit,
	}
	if sale.Subtotal > 0 {
		doc.TaxPercent = round2(sale.Tax / sale.Subtotal * 100)
	}
	if known {
		doc.RateNote = fmt.Sprintf("Montos en Bs calculados a la tasa %s del %s (%.4f Bs/USD).",
			rate.Source, rate.RateDate.Format("02/01/2006"), rate.Rate)
	}
	for _, l := range lines {
		doc.Lines = append(doc.Lines, SaleLine{
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			LineTotal:    l.LineTotal,
			LineTotalVES: round2(l.LineTotal * rate.Rate),
		})
	}

	pdf, err := h.builder.SaleDocument(r.Context(), doc)
	if err != nil {
		h.logger.Error("render sale pdf failed", "error", err, "sale_id", id)
		http.Error(w, "Failed to render PDF", http.StatusBadGateway)
		return
	}
	filename := fmt.Sprintf("%s-%08d.pdf", slugLabel(sale.DocumentLabel()), sale.DocumentNumber)
	servePDF(w, filename, pdf)
}

// TopProductsPDF renders the best-sellers ranking for the requested period.
func (h *Handler) TopProductsPDF(w http.ResponseWriter, r *http.Request) {
	from, to := periodFromQuery(r)
	rows, err := h.catalog.TopSellers(r.Context(), from, to, 20)
	if err != nil {
		h.logger.Error("top sellers failed", "error", err)
		http.Error(w, "Failed to build ranking", http.StatusInternalServerError)
		return
	}
	cfg, err := h.config.Get(r.Context())
	if err != nil {
		h.logger.Error("load config failed", "error", err)
		http.Error(w, "Failed to build ranking", http.StatusInternalServerError)
		return
	}

	pdf, err := h.builder.TopProducts(r.Context(), TopProducts{
		Config: cfg,
		From:   from.Format("02/01/2006"),
		To:     to.Format("02/01/2006"),
		Rows:   rows,
	})
	if err != nil {
		h.logger.Error("render top products pdf failed", "error", err)
		http.Error(w, "Failed to render PDF", http.StatusBadGateway)
		return
	}
	servePDF(w, "mas-vendidos.pdf", pdf)
}

func servePDF(w http.ResponseWriter, filename string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

func slugLabel(label string) string {
	if label == "Nota de Entrega" {
		return "nota"
	}
	return "factura"
}

func periodFromQuery(r *http.Request) (time.Time, time.Time) {
	q := r.URL.Query()
	now := time.Now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	from := to.AddDate(0, 0, -30)
	if t, err := time.ParseInLocation("2006-01-02", q.Get("from"), time.Local); err == nil {
		from = t
	}
	if t, err := time.ParseInLocation("2006-01-02", q.Get("to"), time.Local); err == nil {
		to = t
	}
	return from, to
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
