package app

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/facturo/facturo/internal/catalog"
	"github.com/facturo/facturo/internal/fx"
	"github.com/facturo/facturo/internal/sales"
	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/sysconfig"
	"github.com/facturo/facturo/internal/view"
)

// HomeHandler serves the dashboard.
type HomeHandler struct {
	logger    *slog.Logger
	sales     *sales.Service
	catalog   *catalog.Service
	rates     *fx.Service
	config    *sysconfig.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHomeHandler constructs a HomeHandler.
func NewHomeHandler(logger *slog.Logger, salesSvc *sales.Service, catalogSvc *catalog.Service, ratesSvc *fx.Service, configSvc *sysconfig.Service, templates *view.Engine, csrf *shared.CSRFManager) *HomeHandler {
	return &HomeHandler{
		logger:    logger,
		sales:     salesSvc,
		catalog:   catalogSvc,
		rates:     ratesSvc,
		config:    configSvc,
		templates: templates,
		csrf:      csrf,
	}
}

func (h *HomeHandler) Show(w http.ResponseWriter, r *http.Request) {
	var (
		summary  sales.DashboardSummary
		lowStock []catalog.Product
		cfg      sysconfig.Config
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		summary, err = h.sales.Dashboard(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		lowStock, err = h.catalog.LowStockProducts(gctx, 10)
		return err
	})
	g.Go(func() error {
		var err error
		cfg, err = h.config.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("load dashboard failed", "error", err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}
	rate, hasRate := h.rates.Current(r.Context())

	type lowStockRow struct {
		ID    int64
		Name  string
		SKU   string
		Stock float64
	}
	rows := make([]lowStockRow, 0, len(lowStock))
	for _, p := range lowStock {
		rows = append(rows, lowStockRow{ID: p.ID, Name: p.Name, SKU: p.SKU, Stock: p.Stock})
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	if err := h.templates.Render(w, "pages/home.html", view.TemplateData{
		Title:       "Inicio",
		CSRFToken:   csrfToken,
		Flash:       flash,
		Employee:    shared.EmployeeFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"CompanyName":    cfg.CompanyName,
			"TodayCount":     summary.TodayCount,
			"TodayTotal":     summary.TodayTotal,
			"PendingBalance": summary.PendingBalance,
			"HasRate":        hasRate,
			"Rate":           rate.Rate,
			"RateSource":     rate.Source,
			"LowStock":       rows,
		},
	}); err != nil {
		h.logger.Error("render home", "error", err)
	}
}
