package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/facturo/facturo/internal/auth"
	"github.com/facturo/facturo/internal/backup"
	"github.com/facturo/facturo/internal/catalog"
	"github.com/facturo/facturo/internal/clients"
	"github.com/facturo/facturo/internal/employees"
	"github.com/facturo/facturo/internal/fx"
	"github.com/facturo/facturo/internal/observability"
	"github.com/facturo/facturo/internal/profits"
	"github.com/facturo/facturo/internal/sales"
	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/sysconfig"
	"github.com/facturo/facturo/report"
	"github.com/facturo/facturo/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthMiddleware   *auth.Middleware
	AuthHandler      *auth.Handler
	HomeHandler      *HomeHandler
	ClientsHandler   *clients.Handler
	CatalogHandler   *catalog.Handler
	EmployeesHandler *employees.Handler
	SalesHandler     *sales.Handler
	FXHandler        *fx.Handler
	ProfitsHandler   *profits.Handler
	ConfigHandler    *sysconfig.Handler
	BackupHandler    *backup.Handler
	ReportHandler    *report.Handler
}

// NewRouter constructs the chi router with the full route table. Sellers
// reach the POS and catalog reads; supervisors add profits, cancellations
// and stock moves; settings, employees and backups stay admin-only.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", params.AuthHandler.LoginForm)
		r.Post("/login", params.AuthHandler.Login)
		r.Post("/logout", params.AuthHandler.Logout)
	})

	supervisorUp := params.AuthMiddleware.RequireRole(employees.RoleAdmin, employees.RoleSupervisor)
	adminOnly := params.AuthMiddleware.RequireRole(employees.RoleAdmin)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireAuth)

		r.Get("/", params.HomeHandler.Show)
		r.Get("/profile", params.AuthHandler.Profile)
		r.Post("/profile/password", params.AuthHandler.ChangePassword)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", params.ClientsHandler.List)
			r.Get("/lookup", params.ClientsHandler.Lookup)
			r.Get("/new", params.ClientsHandler.Form)
			r.Post("/", params.ClientsHandler.Create)
			r.Get("/{id}", params.ClientsHandler.Show)
			r.Get("/{id}/edit", params.ClientsHandler.EditForm)
			r.Post("/{id}", params.ClientsHandler.Update)
			r.With(adminOnly).Post("/{id}/delete", params.ClientsHandler.Delete)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", params.CatalogHandler.ListProducts)
			r.Get("/lookup", params.CatalogHandler.Lookup)
			r.Get("/export", params.CatalogHandler.ExportCSV)
			r.Get("/top", params.CatalogHandler.TopSellers)
			r.Get("/top/export", params.CatalogHandler.ExportTopCSV)
			r.Get("/top/pdf", params.ReportHandler.TopProductsPDF)
			r.Get("/new", params.CatalogHandler.ProductForm)
			r.Post("/", params.CatalogHandler.CreateProduct)
			r.Get("/{id}", params.CatalogHandler.ShowProduct)
			r.Get("/{id}/edit", params.CatalogHandler.EditProductForm)
			r.Post("/{id}", params.CatalogHandler.UpdateProduct)
			r.With(supervisorUp).Post("/{id}/stock", params.CatalogHandler.AdjustStock)
		})

		r.Route("/units", func(r chi.Router) {
			r.Get("/", params.CatalogHandler.ListUnits)
			r.With(supervisorUp).Post("/", params.CatalogHandler.CreateUnit)
			r.With(supervisorUp).Post("/{id}", params.CatalogHandler.UpdateUnit)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", params.SalesHandler.List)
			r.Get("/new", params.SalesHandler.New)
			r.Post("/", params.SalesHandler.Create)
			r.Get("/pending", params.SalesHandler.Pending)
			r.Get("/export", params.SalesHandler.ExportCSV)
			r.Get("/{id}", params.SalesHandler.Show)
			r.Get("/{id}/pdf", params.ReportHandler.SalePDF)
			r.Post("/{id}/payments", params.SalesHandler.RegisterPayment)
			r.With(supervisorUp).Post("/{id}/cancel", params.SalesHandler.Cancel)
		})

		r.Route("/rates", func(r chi.Router) {
			r.Get("/", params.FXHandler.List)
			r.With(supervisorUp).Post("/refresh", params.FXHandler.Refresh)
			r.With(supervisorUp).Post("/", params.FXHandler.CreateManual)
		})

		r.Route("/profits", func(r chi.Router) {
			r.Use(supervisorUp)
			r.Get("/", params.ProfitsHandler.Report)
			r.Get("/export", params.ProfitsHandler.ExportCSV)
			r.Post("/backfill", params.ProfitsHandler.Backfill)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", params.EmployeesHandler.List)
			r.Get("/new", params.EmployeesHandler.Form)
			r.Post("/", params.EmployeesHandler.Create)
			r.Get("/{id}/edit", params.EmployeesHandler.EditForm)
			r.Post("/{id}", params.EmployeesHandler.Update)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", params.ConfigHandler.Show)
			r.Post("/", params.ConfigHandler.Update)
			r.Get("/backup", params.BackupHandler.Download)
			r.Post("/restore", params.BackupHandler.Restore)
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
