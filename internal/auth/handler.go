package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/view"
)

// Handler serves login, logout and the operator profile.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  EmployeeResolver
	sessions  *shared.SessionManager
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver EmployeeResolver, sessions *shared.SessionManager, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver, sessions: sessions, templates: templates, csrf: csrf}
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.User() != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, "", http.StatusOK)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	claims, err := h.service.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		h.logger.Warn("login failed", "username", r.PostFormValue("username"), "error", err)
		h.renderLogin(w, r, shared.UserSafeMessage(err), http.StatusUnauthorized)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return
	}
	sess.SetUser(strconv.FormatInt(claims.UserID, 10))
	h.logger.Info("operator logged in", "employee_id", claims.EmployeeID, "role", claims.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := shared.EmployeeFromContext(r.Context())
	if claims == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	employee, err := h.resolver.GetByUserID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	h.renderProfile(w, r, employee, "", http.StatusOK)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := shared.EmployeeFromContext(r.Context())
	if claims == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	err := h.service.ChangePassword(r.Context(), claims.UserID,
		r.PostFormValue("current_password"), r.PostFormValue("new_password"))
	if err != nil {
		employee, getErr := h.resolver.GetByUserID(r.Context(), claims.UserID)
		if getErr != nil {
			http.Error(w, "Profile not found", http.StatusNotFound)
			return
		}
		h.renderProfile(w, r, employee, shared.UserSafeMessage(err), http.StatusBadRequest)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Contraseña actualizada."})
	}
	http.Redirect(w, r, "/auth/profile", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, errMsg string, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", view.TemplateData{
		Title:       "Ingresar",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        map[string]any{"Error": errMsg},
	}); err != nil {
		h.logger.Error("render template", "error", err, "template", "pages/login.html")
	}
}

func (h *Handler) renderProfile(w http.ResponseWriter, r *http.Request, employee any, errMsg string, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/profile.html", view.TemplateData{
		Title:       "Mi perfil",
		CSRFToken:   csrfToken,
		Flash:       flash,
		Employee:    shared.EmployeeFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Data:        map[string]any{"Employee": employee, "Error": errMsg},
	}); err != nil {
		h.logger.Error("render template", "error", err, "template", "pages/profile.html")
	}
}
