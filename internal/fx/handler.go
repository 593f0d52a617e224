package fx

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/view"
)

// Handler serves the exchange rate pages.
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.List(r.Context(), 30)
	if err != nil {
		h.logger.Error("list rates failed", "error", err)
		http.Error(w, "Failed to load rates", http.StatusInternalServerError)
		return
	}
	data := map[string]any{
		"Rates": rates,
		"Today": time.Now().Format("2006-01-02"),
	}
	if current, ok := h.service.Current(r.Context()); ok {
		data["Current"] = current
	}
	h.render(w, r, data, http.StatusOK)
}

func (h *Handler) CreateManual(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	value, err := strconv.ParseFloat(r.PostFormValue("rate"), 64)
	if err != nil {
		h.redirectWithFlash(w, r, "/rates", "error", "Tasa inválida.")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", r.PostFormValue("rate_date"), time.Local)
	if err != nil {
		date = time.Now()
	}
	if _, err := h.service.SetManual(r.Context(), value, date); err != nil {
		h.logger.Error("set manual rate failed", "error", err)
		h.redirectWithFlash(w, r, "/rates", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/rates", "success", "Tasa registrada.")
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	rate, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.Error("refresh rate failed", "error", err)
		h.redirectWithFlash(w, r, "/rates", "error", "No se pudo actualizar la tasa.")
		return
	}
	h.redirectWithFlash(w, r, "/rates", "success",
		"Tasa actualizada: "+view.FormatVES(rate.Rate)+" ("+rate.Source+").")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/rates_list.html", view.TemplateData{
		Title:       "Tasas de cambio",
		CSRFToken:   csrfToken,
		Flash:       flash,
		Employee:    shared.EmployeeFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Data:        data,
	}); err != nil {
		h.logger.Error("render template", "error", err, "template", "pages/rates_list.html")
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
