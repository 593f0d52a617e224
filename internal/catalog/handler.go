package catalog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facturo/facturo/internal/fx"
	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/view"
)

// RateSource supplies the rate used to display bolívar prices.
type RateSource interface {
	Current(ctx context.Context) (fx.Rate, bool)
}

// Handler serves the product and unit pages.
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

type productRow struct {
	ID       int64
	SKU      string
	Name     string
	Price    float64
	PriceVES float64
	Stock    float64
	UnitName string
	LowStock bool
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("q")
	products, err := h.service.ListProducts(r.Context(), search)
	if err != nil {
		h.logger.Error("list products failed", "error", err)
		http.Error(w, "Failed to load products", http.StatusInternalServerError)
		return
	}
	rate, _ := h.rates.Current(r.Context())
	rows := make([]productRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productRow{
			ID:       p.ID,
			SKU:      p.SKU,
			Name:     p.Name,
			Price:    p.SalePrice,
			PriceVES: p.SalePrice * rate.Rate,
			Stock:    p.Stock,
			UnitName: p.UnitName,
			LowStock: p.LowStock(),
		})
	}
	h.render(w, r, "pages/products_list.html", "Productos", map[string]any{
		"Products": rows,
		"Query":    search,
	}, http.StatusOK)
}

func (h *Handler) ShowProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromURL(w, r)
	if !ok {
		return
	}
	rate, _ := h.rates.Current(r.Context())
	h.render(w, r, "pages/product_detail.html", product.Name, map[string]any{
		"Product":  productView(product),
		"PriceVES": product.SalePrice * rate.Rate,
	}, http.StatusOK)
}

func (h *Handler) ProductForm(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		http.Error(w, "Failed to load units", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/product_form.html", "Nuevo producto", map[string]any{
		"Errors":  map[string]string{},
		"Product": nil,
		"Units":   units,
		"Action":  "/products",
	}, http.StatusOK)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := productInputFromForm(r)
	created, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		units, _ := h.service.ListUnits(r.Context())
		h.render(w, r, "pages/product_form.html", "Nuevo producto", map[string]any{
			"Errors":  map[string]string{"general": shared.UserSafeMessage(err)},
			"Product": nil,
			"Units":   units,
			"Action":  "/products",
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/products/"+strconv.FormatInt(created.ID, 10), "success", "Producto registrado.")
}

func (h *Handler) EditProductForm(w http.ResponseWriter, r *http.Request) {
	product, ok := h.productFromURL(w, r)
	if !ok {
		return
	}
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		http.Error(w, "Failed to load units", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/product_form.html", "Editar producto", map[string]any{
		"Errors":  map[string]string{},
		"Product": productView(product),
		"Units":   units,
		"Action":  "/products/" + strconv.FormatInt(product.ID, 10),
	}, http.StatusOK)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := productInputFromForm(r)
	if err := h.service.UpdateProduct(r.Context(), id, input); err != nil {
		units, _ := h.service.ListUnits(r.Context())
		h.render(w, r, "pages/product_form.html", "Editar producto", map[string]any{
			"Errors":  map[string]string{"general": shared.UserSafeMessage(err)},
			"Product": nil,
			"Units":   units,
			"Action":  "/products/" + strconv.FormatInt(id, 10),
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/products/"+strconv.FormatInt(id, 10), "success", "Producto actualizado.")
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	delta, err := strconv.ParseFloat(r.PostFormValue("delta"), 64)
	if err != nil {
		h.redirectWithFlash(w, r, "/products/"+strconv.FormatInt(id, 10), "error", "Cantidad inválida.")
		return
	}
	newStock, err := h.service.AdjustStock(r.Context(), id, delta, r.PostFormValue("reason"))
	if err != nil {
		h.logger.Error("adjust stock failed", "error", err, "product_id", id)
		h.redirectWithFlash(w, r, "/products/"+strconv.FormatInt(id, 10), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/products/"+strconv.FormatInt(id, 10), "success",
		"Stock ajustado. Nuevo stock: "+view.FormatQuantity(newStock)+".")
}

// Lookup serves JSON autocomplete suggestions for the sale form.
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Lookup(r.Context(), r.URL.Query().Get("q"), 10)
	if err != nil {
		h.logger.Error("product lookup failed", "error", err)
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

func (h *Handler) TopSellers(w http.ResponseWriter, r *http.Request) {
	from, to := periodFromQuery(r)
	rows, err := h.service.TopSellers(r.Context(), from, to, 20)
	if err != nil {
		h.logger.Error("top sellers failed", "error", err)
		http.Error(w, "Failed to load ranking", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/products_top.html", "Más vendidos", map[string]any{
		"Rows": rows,
		"From": from.Format("2006-01-02"),
		"To":   to.Format("2006-01-02"),
	}, http.StatusOK)
}

// ExportCSV streams the product list as CSV.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), "")
	if err != nil {
		h.logger.Error("export products failed", "error", err)
		http.Error(w, "Failed to export products", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="productos.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"sku", "nombre", "precio_usd", "costo_usd", "stock", "unidad", "activo"})
	for _, p := range products {
		active := "no"
		if p.Active {
			active = "si"
		}
		_ = cw.Write([]string{
			p.SKU,
			p.Name,
			fmt.Sprintf("%.2f", p.SalePrice),
			fmt.Sprintf("%.2f", p.PurchasePrice),
			fmt.Sprintf("%.3f", p.Stock),
			p.UnitName,
			active,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("write products csv", "error", err)
	}
}

func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context())
	if err != nil {
		http.Error(w, "Failed to load units", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/units_list.html", "Unidades", map[string]any{
		"Units": units,
	}, http.StatusOK)
}

func (h *Handler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := UnitInput{
		Name:         r.PostFormValue("name"),
		Abbreviation: r.PostFormValue("abbreviation"),
		Description:  r.PostFormValue("description"),
		Fractional:   r.PostFormValue("fractional") != "",
	}
	if _, err := h.service.CreateUnit(r.Context(), input); err != nil {
		h.redirectWithFlash(w, r, "/units", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/units", "success", "Unidad registrada.")
}

func (h *Handler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid unit ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := UnitInput{
		Name:         r.PostFormValue("name"),
		Abbreviation: r.PostFormValue("abbreviation"),
		Description:  r.PostFormValue("description"),
		Fractional:   r.PostFormValue("fractional") != "",
	}
	if err := h.service.UpdateUnit(r.Context(), id, input); err != nil {
		h.redirectWithFlash(w, r, "/units", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/units", "success", "Unidad actualizada.")
}

// ExportTopCSV streams the top-sellers ranking as CSV.
func (h *Handler) ExportTopCSV(w http.ResponseWriter, r *http.Request) {
	from, to := periodFromQuery(r)
	rows, err := h.service.TopSellers(r.Context(), from, to, 20)
	if err != nil {
		h.logger.Error("export top sellers failed", "error", err)
		http.Error(w, "Failed to export ranking", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="mas-vendidos.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"producto", "cantidad", "ingresos_usd"})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.Name,
			fmt.Sprintf("%.3f", row.Quantity),
			fmt.Sprintf("%.2f", row.Revenue),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("write top sellers csv", "error", err)
	}
}

func (h *Handler) productFromURL(w http.ResponseWriter, r *http.Request) (Product, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return Product{}, false
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return Product{}, false
	}
	return product, true
}

type productViewModel struct {
	ID                int64
	SKU               string
	Name              string
	Description       string
	Price             float64
	Cost              float64
	Stock             float64
	LowStockThreshold float64
	UnitID            int64
	UnitName          string
	Active            bool
}

func productView(p Product) productViewModel {
	vm := productViewModel{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		Description:       p.Description,
		Price:             p.SalePrice,
		Cost:              p.PurchasePrice,
		Stock:             p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		UnitName:          p.UnitName,
		Active:            p.Active,
	}
	if p.UnitID != nil {
		vm.UnitID = *p.UnitID
	}
	return vm
}

func productInputFromForm(r *http.Request) ProductInput {
	input := ProductInput{
		SKU:         r.PostFormValue("sku"),
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Active:      r.PostFormValue("active") != "",
	}
	input.SalePrice, _ = strconv.ParseFloat(r.PostFormValue("price"), 64)
	input.PurchasePrice, _ = strconv.ParseFloat(r.PostFormValue("cost"), 64)
	input.Stock, _ = strconv.ParseFloat(r.PostFormValue("stock"), 64)
	input.LowStockThreshold, _ = strconv.ParseFloat(r.PostFormValue("low_stock_threshold"), 64)
	input.UnitID, _ = strconv.ParseInt(r.PostFormValue("unit_id"), 10, 64)
	return input
}

// periodFromQuery parses from/to dates, defaulting to the last 30 days.
func periodFromQuery(r *http.Request) (time.Time, time.Time) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			from = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			to = t
		}
	}
	return from, to
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
