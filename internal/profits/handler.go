package profits

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/view"
)

// Handler serves the profit report pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	from, to := periodFromQuery(r)
	// Refresh the period on demand so the page never shows stale days.
	if _, err := h.service.Backfill(r.Context(), from, to); err != nil {
		h.logger.Error("profit backfill failed", "error", err)
		http.Error(w, "Failed to compute profits", http.StatusInternalServerError)
		return
	}
	records, summary, err := h.service.Report(r.Context(), from, to)
	if err != nil {
		h.logger.Error("profit report failed", "error", err)
		http.Error(w, "Failed to load profits", http.StatusInternalServerError)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	if err := h.templates.Render(w, "pages/profits.html", view.TemplateData{
		Title:       "Ganancias",
		CSRFToken:   csrfToken,
		Flash:       flash,
		Employee:    shared.EmployeeFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"Records":      records,
			"TotalRevenue": summary.TotalRevenue,
			"TotalCost":    summary.TotalCost,
			"TotalProfit":  summary.TotalProfit,
			"From":         from.Format("2006-01-02"),
			"To":           to.AddDate(0, 0, -1).Format("2006-01-02"),
		},
	}); err != nil {
		h.logger.Error("render template", "error", err, "template", "pages/profits.html")
	}
}

// Backfill recomputes the requested period and redirects back to the report.
func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	from, to := periodFromQuery(r)
	days, err := h.service.Backfill(r.Context(), from, to)
	if err != nil {
		h.logger.Error("profit backfill failed", "error", err)
		h.redirectWithFlash(w, r, "/profits", "error", "No se pudo recalcular el período.")
		return
	}
	h.redirectWithFlash(w, r, "/profits?from="+from.Format("2006-01-02")+"&to="+to.AddDate(0, 0, -1).Format("2006-01-02"),
		"success", fmt.Sprintf("Ganancias recalculadas (%d días).", days))
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// ExportCSV streams the period's records.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	from, to := periodFromQuery(r)
	records, _, err := h.service.Report(r.Context(), from, to)
	if err != nil {
		h.logger.Error("profit export failed", "error", err)
		http.Error(w, "Failed to export profits", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ganancias.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"fecha", "ingresos", "costos", "ganancia"})
	for _, rec := range records {
		_ = cw.Write([]string{
			rec.RecordDate.Format("2006-01-02"),
			fmt.Sprintf("%.2f", rec.Revenue),
			fmt.Sprintf("%.2f", rec.Cost),
			fmt.Sprintf("%.2f", rec.Profit),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("write profits csv", "error", err)
	}
}

// periodFromQuery parses from/to dates from the query string or form body,
// defaulting to the last 30 days. The upper bound is exclusive and one day
// past the requested end date.
func periodFromQuery(r *http.Request) (time.Time, time.Time) {
	now := time.Now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -31)
	if t, err := time.ParseInLocation("2006-01-02", r.FormValue("from"), time.Local); err == nil {
		from = t
	}
	if t, err := time.ParseInLocation("2006-01-02", r.FormValue("to"), time.Local); err == nil {
		to = t.AddDate(0, 0, 1)
	}
	return from, to
}
