package employees

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/view"
)

// Handler serves the employee pages.
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
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list employees failed", "error", err)
		http.Error(w, "Failed to load employees", http.StatusInternalServerError)
		return
	}
	type row struct {
		ID       int64
		FullName string
		Username string
		Role     string
		Active   bool
	}
	rows := make([]row, 0, len(list))
	for _, e := range list {
		rows = append(rows, row{ID: e.ID, FullName: e.FullName(), Username: e.Username, Role: e.Role, Active: e.Active})
	}
	h.render(w, r, "pages/employees_list.html", "Empleados", map[string]any{
		"Employees": rows,
	}, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/employee_form.html", "Nuevo empleado", map[string]any{
		"Errors":   map[string]string{},
		"Employee": nil,
		"Roles":    Roles,
		"Action":   "/employees",
	}, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := CreateEmployeeInput{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Username:  r.PostFormValue("username"),
		Password:  r.PostFormValue("password"),
		Phone:     r.PostFormValue("phone"),
		Role:      r.PostFormValue("role"),
		Active:    r.PostFormValue("active") != "",
	}
	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.render(w, r, "pages/employee_form.html", "Nuevo empleado", map[string]any{
			"Errors":   map[string]string{"general": shared.UserSafeMessage(err)},
			"Employee": nil,
			"Roles":    Roles,
			"Action":   "/employees",
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/employees", "success", "Empleado "+created.FullName()+" registrado.")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid employee ID", http.StatusBadRequest)
		return
	}
	employee, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Employee not found", http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/employee_form.html", "Editar empleado", map[string]any{
		"Errors":   map[string]string{},
		"Employee": employee,
		"Roles":    Roles,
		"Action":   "/employees/" + strconv.FormatInt(id, 10),
	}, http.StatusOK)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid employee ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := UpdateEmployeeInput{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Password:  r.PostFormValue("password"),
		Phone:     r.PostFormValue("phone"),
		Role:      r.PostFormValue("role"),
		Active:    r.PostFormValue("active") != "",
	}
	if err := h.service.Update(r.Context(), id, input); err != nil {
		employee, getErr := h.service.Get(r.Context(), id)
		data := map[string]any{
			"Errors": map[string]string{"general": shared.UserSafeMessage(err)},
			"Roles":  Roles,
			"Action": "/employees/" + strconv.FormatInt(id, 10),
		}
		if getErr == nil {
			data["Employee"] = employee
		}
		h.render(w, r, "pages/employee_form.html", "Editar empleado", data, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/employees", "success", "Empleado actualizado.")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		Employee:    shared.EmployeeFromContext(r.Context()),
		CurrentPath: r.URL.Path,
		Data:        data,
	}); err != nil {
		h.logger.Error("render template", "error", err, "template", template)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
