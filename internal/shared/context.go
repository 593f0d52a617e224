package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

type employeeContextKey struct{}

// EmployeeClaims identifies the operator resolved for the current request.
type EmployeeClaims struct {
	EmployeeID int64
	UserID     int64
	Name       string
	Role       string
}

// ContextWithEmployee stores resolved employee claims in context.
func ContextWithEmployee(ctx context.Context, claims *EmployeeClaims) context.Context {
	return context.WithValue(ctx, employeeContextKey{}, claims)
}

// EmployeeFromContext extracts employee claims from context, if resolved.
func EmployeeFromContext(ctx context.Context) *EmployeeClaims {
	claims, _ := ctx.Value(employeeContextKey{}).(*EmployeeClaims)
	return claims
}
