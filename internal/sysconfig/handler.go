package sysconfig

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/view"
)

// Handler serves the settings page.
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

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Get(r.Context())
	if err != nil {
		h.logger.Error("load config failed", "error", err)
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{"Config": cfg}, http.StatusOK)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	input := UpdateConfigInput{
		CompanyName:    strings.TrimSpace(r.PostFormValue("company_name")),
		CompanyRIF:     strings.TrimSpace(r.PostFormValue("company_rif")),
		CompanyAddress: strings.TrimSpace(r.PostFormValue("company_address")),
		CompanyPhone:   strings.TrimSpace(r.PostFormValue("company_phone")),
		TaxEnabled:     r.PostFormValue("tax_enabled") != "",
		FXAutoRefresh:  r.PostFormValue("fx_auto_refresh") != "",
	}
	input.TaxPercent, _ = strconv.ParseFloat(r.PostFormValue("tax_percent"), 64)
	input.NextInvoiceNumber, _ = strconv.ParseInt(r.PostFormValue("next_invoice_number"), 10, 64)
	input.NextNoteNumber, _ = strconv.ParseInt(r.PostFormValue("next_note_number"), 10, 64)

	if err := h.service.Update(r.Context(), input); err != nil {
		h.logger.Error("update config failed", "error", err)
		h.redirectWithFlash(w, r, "/settings", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/settings", "success", "Configuración guardada.")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/settings.html", view.TemplateData{
		Title:       "Configuración",
		CSRFToken:   csrfToken,
		Flash:       flash,
		Employee:    shared.EmployeeFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Data:        data,
	}); err != nil {
		h.logger.Error("render template", "error", err, "template", "pages/settings.html")
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
