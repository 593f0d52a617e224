package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	Employee    *shared.EmployeeClaims
	CurrentPath string
	Data        any
}

// Venezuelan figures use dot thousands separators and a comma decimal mark.
var printer = message.NewPrinter(language.MustParse("es-VE"))

// NewEngine parses templates at startup.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(FuncMap()).ParseFS(web.Templates,
		"templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html",
		"templates/pdf/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// FuncMap exposes the template helpers, shared with the PDF document builders.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"usd": FormatUSD,
		"ves": FormatVES,
		"qty": FormatQuantity,
		"docNumber": func(n int64) string {
			return fmt.Sprintf("%08d", n)
		},
		"add": func(a, b int) int { return a + b },
	}
}

// FormatUSD renders a dollar amount, e.g. $1.234,56.
func FormatUSD(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// FormatVES renders a bolívar amount, e.g. 45.678,90 Bs.
func FormatVES(v float64) string {
	return printer.Sprintf("%.2f Bs", v)
}

// FormatQuantity renders a stock/sale quantity with up to three decimals.
func FormatQuantity(v float64) string {
	if v == float64(int64(v)) {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.3f", v)
}

// RenderDocument executes a standalone template into a buffer. The PDF
// builders use it to produce the HTML handed to Gotenberg.
func (e *Engine) RenderDocument(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
