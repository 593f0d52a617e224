package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrNoEmployeeProfile occurs when a logged-in user has no active employee record.
	ErrNoEmployeeProfile = errors.New("no active employee profile")
	// ErrInsufficientStock occurs when a sale or adjustment would leave negative stock.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// BusinessError carries a message that is safe to show to the operator.
type BusinessError struct {
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error { return e.Err }

// NewBusinessError wraps err with an operator-facing message.
func NewBusinessError(message string, err error) *BusinessError {
	return &BusinessError{Message: message, Err: err}
}

// UserSafeMessage extracts a message suitable for a flash banner. Business
// rule violations keep their text; anything else degrades to a generic line
// so internals never leak into rendered pages.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Message
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "El registro solicitado no existe"
	case errors.Is(err, ErrInvalidCredentials):
		return "Usuario o contraseña incorrectos"
	case errors.Is(err, ErrNoEmployeeProfile):
		return "Su usuario no tiene un perfil de empleado activo"
	case errors.Is(err, ErrInsufficientStock):
		return "Stock insuficiente para completar la operación"
	}
	return "Ocurrió un error inesperado. Intente nuevamente."
}
