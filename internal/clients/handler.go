package clients

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/view"
)

// SaleSummary is what the client detail page shows per sale.
type SaleSummary struct {
	ID             int64
	SoldAt         time.Time
	DocumentLabel  string
	DocumentNumber int64
	Total          float64
	Status         string
}

// SaleLister provides the sales history shown on the client detail page.
type SaleLister interface {
	ListByClient(ctx context.Context, clientID int64) ([]SaleSummary, error)
}

// Handler serves the client pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sales     SaleLister
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, sales SaleLister, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, sales: sales, templates: templates, csrf: csrf}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("q")
	list, err := h.service.List(r.Context(), search)
	if err != nil {
		h.logger.Error("list clients failed", "error", err)
		http.Error(w, "Failed to load clients", http.StatusInternalServerError)
		return
	}
	type row struct {
		ID         int64
		DocumentID string
		FullName   string
		Phone      string
	}
	rows := make([]row, 0, len(list))
	for _, c := range list {
		rows = append(rows, row{ID: c.ID, DocumentID: c.DocumentID(), FullName: c.FullName, Phone: c.Phone})
	}
	h.render(w, r, "pages/clients_list.html", "Clientes", map[string]any{
		"Clients": rows,
		"Query":   search,
	}, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}
	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Client not found", http.StatusNotFound)
		return
	}
	sales, err := h.sales.ListByClient(r.Context(), id)
	if err != nil {
		h.logger.Error("list client sales failed", "error", err, "client_id", id)
		http.Error(w, "Failed to load client sales", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/client_detail.html", client.FullName, map[string]any{
		"Client": clientView(client),
		"Sales":  sales,
	}, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/client_form.html", "Nuevo cliente", map[string]any{
		"Errors":        map[string]string{},
		"Client":        nil,
		"Action":        "/clients",
		"DocumentTypes": DocumentTypes,
	}, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := inputFromForm(r)
	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.render(w, r, "pages/client_form.html", "Nuevo cliente", map[string]any{
			"Errors":        map[string]string{"general": shared.UserSafeMessage(err)},
			"Client":        nil,
			"Action":        "/clients",
			"DocumentTypes": DocumentTypes,
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/clients/"+strconv.FormatInt(created.ID, 10), "success", "Cliente registrado.")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}
	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Client not found", http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/client_form.html", "Editar cliente", map[string]any{
		"Errors":        map[string]string{},
		"Client":        clientView(client),
		"Action":        "/clients/" + strconv.FormatInt(id, 10),
		"DocumentTypes": DocumentTypes,
	}, http.StatusOK)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := inputFromForm(r)
	if err := h.service.Update(r.Context(), id, input); err != nil {
		h.render(w, r, "pages/client_form.html", "Editar cliente", map[string]any{
			"Errors":        map[string]string{"general": shared.UserSafeMessage(err)},
			"Client":        nil,
			"Action":        "/clients/" + strconv.FormatInt(id, 10),
			"DocumentTypes": DocumentTypes,
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/clients/"+strconv.FormatInt(id, 10), "success", "Cliente actualizado.")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.redirectWithFlash(w, r, "/clients/"+strconv.FormatInt(id, 10), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/clients", "success", "Cliente eliminado.")
}

// Lookup serves JSON autocomplete suggestions for the sale form.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Lookup(r.Context(), r.URL.Query().Get("q"), 10)
	if err != nil {
		h.logger.Error("client lookup failed", "error", err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []LookupItem{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(items); err != nil {
		h.logger.Error("encode lookup response", "error", err)
	}
}

type clientViewModel struct {
	ID             int64
	DocumentType   string
	DocumentNumber string
	DocumentID     string
	FullName       string
	Email          *string
	Phone          string
	Address        string
}

func clientView(c Client) clientViewModel {
	return clientViewModel{
		ID:             c.ID,
		DocumentType:   c.DocumentType,
		DocumentNumber: c.DocumentNumber,
		DocumentID:     c.DocumentID(),
		FullName:       c.FullName,
		Email:          c.Email,
		Phone:          c.Phone,
		Address:        c.Address,
	}
}

func inputFromForm(r *http.Request) ClientInput {
	return ClientInput{
		DocumentType:   r.PostFormValue("document_type"),
		DocumentNumber: r.PostFormValue("document_number"),
		FullName:       r.PostFormValue("full_name"),
		Email:          r.PostFormValue("email"),
		Phone:          r.PostFormValue("phone"),
		Address:        r.PostFormValue("address"),
	}
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
