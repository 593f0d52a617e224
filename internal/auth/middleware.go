package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/facturo/facturo/internal/shared"
)

// Middleware gates routes on the session's employee claims.
type Middleware struct {
	service *Service
	logger  *slog.Logger
}

// NewMiddleware constructs a Middleware.
func NewMiddleware(service *Service, logger *slog.Logger) *Middleware {
	return &Middleware{service: service, logger: logger}
}

// RequireAuth redirects to the login page when the session has no valid
// employee behind it, and otherwise injects the claims into the context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		userID, err := strconv.ParseInt(sess.User(), 10, 64)
		if err != nil {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		claims, err := m.service.Claims(r.Context(), userID)
		if err != nil {
			m.logger.Warn("session user has no usable profile", "user_id", userID, "error", err)
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithEmployee(r.Context(), &claims)))
	})
}

// RequireRole allows only the given roles through. It assumes RequireAuth
// already ran.
func (m *Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := shared.EmployeeFromContext(r.Context())
			if claims == nil {
				http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				http.Error(w, "No tiene permisos para acceder a esta sección", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
