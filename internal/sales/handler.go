package sales

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facturo/facturo/internal/employees"
	"github.com/facturo/facturo/internal/fx"
	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/view"
)

// lineSlots is how many product rows the sale form offers.
const lineSlots = 10

// RateSource supplies the exchange rate for dual-currency display.
type RateSource interface {
	Current(ctx context.Context) (fx.Rate, bool)
}

// Handler serves the sales pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rates     RateSource
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rates RateSource, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, rates: rates, templates: templates, csrf: csrf}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters, from, to, status := filtersFromQuery(r)
	list, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list sales failed", "error", err)
		http.Error(w, "Failed to load sales", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/sales_list.html", "Ventas", map[string]any{
		"Sales":       list,
		"Statuses":    Statuses,
		"From":        from,
		"To":          to,
		"Status":      status,
		"QueryString": r.URL.RawQuery,
	}, http.StatusOK)
}

func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPending(r.Context())
	if err != nil {
		h.logger.Error("list pending sales failed", "error", err)
		http.Error(w, "Failed to load pending sales", http.StatusInternalServerError)
		return
	}
	var total float64
	for _, s := range list {
		total += s.Balance()
	}
	h.render(w, r, "pages/sales_pending.html", "Ventas por cobrar", map[string]any{
		"Sales":        list,
		"TotalBalance": total,
	}, http.StatusOK)
}

func (h *Handler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "", http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	claims := shared.EmployeeFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	input, err := saleInputFromForm(r)
	if err != nil {
		h.renderForm(w, r, shared.UserSafeMessage(err), http.StatusBadRequest)
		return
	}
	saleID, err := h.service.CreateSale(r.Context(), claims.EmployeeID, input)
	if err != nil {
		h.renderForm(w, r, shared.UserSafeMessage(err), http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/sales/"+strconv.FormatInt(saleID, 10), "success", "Venta registrada.")
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid sale ID", http.StatusBadRequest)
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Sale not found", http.StatusNotFound)
		return
	}
	lines, err := h.service.Lines(r.Context(), sale)
	if err != nil {
		h.logger.Error("load sale lines failed", "error", err, "sale_id", id)
		http.Error(w, "Failed to load sale", http.StatusInternalServerError)
		return
	}
	payments, err := h.service.Payments(r.Context(), id)
	if err != nil {
		h.logger.Error("load sale payments failed", "error", err, "sale_id", id)
		http.Error(w, "Failed to load sale", http.StatusInternalServerError)
		return
	}

	rate, _ := h.rates.Current(r.Context())
	var taxPercent float64
	if sale.Subtotal > 0 {
		taxPercent = round2(sale.Tax / sale.Subtotal * 100)
	}
	claims := shared.EmployeeFromContext(r.Context())
	canCancel := sale.Status != StatusCancelled && claims != nil && claims.Role != employees.RoleSeller

	h.render(w, r, "pages/sale_detail.html",
		fmt.Sprintf("%s #%d", sale.DocumentLabel(), sale.DocumentNumber),
		map[string]any{
			"Sale":          sale,
			"DocumentLabel": sale.DocumentLabel(),
			"Client":        struct{ ID int64; FullName string }{sale.ClientID, sale.ClientName},
			"EmployeeName":  sale.EmployeeName,
			"Lines":         lines,
			"Payments":      payments,
			"SubtotalVES":   round2(sale.Subtotal * rate.Rate),
			"TaxVES":        round2(sale.Tax * rate.Rate),
			"TotalVES":      round2(sale.Total * rate.Rate),
			"TaxPercent":    taxPercent,
			"Methods":       PaymentMethods,
			"CanPay":        sale.Status == StatusPending,
			"CanCancel":     canCancel,
		}, http.StatusOK)
}

func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid sale ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	amount, err := strconv.ParseFloat(r.PostFormValue("amount"), 64)
	if err != nil {
		h.redirectWithFlash(w, r, "/sales/"+strconv.FormatInt(id, 10), "error", "Monto inválido.")
		return
	}
	input := PaymentInput{
		Amount:    amount,
		Method:    r.PostFormValue("method"),
		Reference: r.PostFormValue("reference"),
	}
	if err := h.service.RegisterPayment(r.Context(), id, input); err != nil {
		h.redirectWithFlash(w, r, "/sales/"+strconv.FormatInt(id, 10), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/sales/"+strconv.FormatInt(id, 10), "success", "Pago registrado.")
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid sale ID", http.StatusBadRequest)
		return
	}
	if err := h.service.CancelSale(r.Context(), id); err != nil {
		h.redirectWithFlash(w, r, "/sales/"+strconv.FormatInt(id, 10), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/sales/"+strconv.FormatInt(id, 10), "success", "Venta anulada y stock restituido.")
}

// ExportCSV streams the filtered sales listing.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filters, _, _, _ := filtersFromQuery(r)
	list, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("export sales failed", "error", err)
		http.Error(w, "Failed to export sales", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ventas.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"fecha", "documento", "numero", "cliente", "vendedor", "subtotal", "iva", "total", "pagado", "saldo", "estado"})
	for _, s := range list {
		_ = cw.Write([]string{
			s.SoldAt.Format("2006-01-02 15:04"),
			s.DocumentLabel(),
			fmt.Sprintf("%08d", s.DocumentNumber),
			s.ClientName,
			s.EmployeeName,
			fmt.Sprintf("%.2f", s.Subtotal),
			fmt.Sprintf("%.2f", s.Tax),
			fmt.Sprintf("%.2f", s.Total),
			fmt.Sprintf("%.2f", s.AmountPaid),
			fmt.Sprintf("%.2f", s.Balance()),
			s.Status,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("write sales csv", "error", err)
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, errMsg string, status int) {
	slots := make([]int, lineSlots)
	for i := range slots {
		slots[i] = i
	}
	h.render(w, r, "pages/sale_form.html", "Nueva venta", map[string]any{
		"LineSlots": slots,
		"Methods":   PaymentMethods,
		"Error":     errMsg,
	}, status)
}

// saleInputFromForm collects the POS form fields. Line slots with no product
// are skipped, so the cashier can fill any subset of the rows.
func saleInputFromForm(r *http.Request) (CreateSaleInput, error) {
	clientID, err := strconv.ParseInt(r.PostFormValue("client_id"), 10, 64)
	if err != nil {
		return CreateSaleInput{}, shared.NewBusinessError("Seleccione un cliente de la lista.", err)
	}
	input := CreateSaleInput{
		ClientID: clientID,
		Kind:     r.PostFormValue("kind"),
	}
	for i := 0; i < lineSlots; i++ {
		rawID := r.PostFormValue("product_id_" + strconv.Itoa(i))
		if rawID == "" {
			continue
		}
		productID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return CreateSaleInput{}, shared.NewBusinessError("Seleccione los productos de la lista.", err)
		}
		qty, err := strconv.ParseFloat(r.PostFormValue("quantity_"+strconv.Itoa(i)), 64)
		if err != nil || qty <= 0 {
			return CreateSaleInput{}, shared.NewBusinessError("Indique una cantidad válida en cada línea.", err)
		}
		input.Lines = append(input.Lines, LineInput{ProductID: productID, Quantity: qty})
	}
	if len(input.Lines) == 0 {
		return CreateSaleInput{}, shared.NewBusinessError("Agregue al menos un producto.", nil)
	}
	if raw := r.PostFormValue("payment_amount"); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil || amount <= 0 {
			return CreateSaleInput{}, shared.NewBusinessError("Monto de pago inválido.", err)
		}
		input.InitialPayment = &PaymentInput{
			Amount:    amount,
			Method:    r.PostFormValue("payment_method"),
			Reference: r.PostFormValue("payment_reference"),
		}
	}
	return input, nil
}

func filtersFromQuery(r *http.Request) (ListFilters, string, string, string) {
	q := r.URL.Query()
	from, to, status := q.Get("from"), q.Get("to"), q.Get("status")
	var filters ListFilters
	if t, err := time.ParseInLocation("2006-01-02", from, time.Local); err == nil {
		filters.From = t
	} else {
		from = ""
	}
	if t, err := time.ParseInLocation("2006-01-02", to, time.Local); err == nil {
		filters.To = t.AddDate(0, 0, 1)
	} else {
		to = ""
	}
	if status != "" {
		valid := false
		for _, s := range Statuses {
			if s == status {
				valid = true
			}
		}
		if !valid {
			status = ""
		}
	}
	filters.Status = status
	return filters, from, to, status
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
