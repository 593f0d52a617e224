package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturo/facturo/internal/shared"
)

func TestNewEngineParsesAllTemplates(t *testing.T) {
	_, err := NewEngine()
	require.NoError(t, err)
}

func TestRenderHomePage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	err = engine.Render(w, "pages/home.html", TemplateData{
		Title:       "Inicio",
		CSRFToken:   "tok",
		Employee:    &shared.EmployeeClaims{EmployeeID: 1, Name: "Ana Pérez", Role: "admin"},
		CurrentPath: "/",
		Data: map[string]any{
			"CompanyName":    "Comercial La Esquina",
			"TodayCount":     3,
			"TodayTotal":     120.50,
			"PendingBalance": 45.00,
			"HasRate":        true,
			"Rate":           36.5,
			"RateSource":     "BCV",
			"LowStock":       nil,
		},
	})
	require.NoError(t, err)
	assert.Contains(t, w.Body.String(), "Comercial La Esquina")
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestRenderLoginPageWithoutEmployee(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	err = engine.Render(w, "pages/login.html", TemplateData{Title: "Iniciar sesión", CSRFToken: "tok"})
	require.NoError(t, err)
	assert.Contains(t, w.Body.String(), "tok")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "$1.234,56", FormatUSD(1234.56))
	assert.Equal(t, "45.678,90 Bs", FormatVES(45678.9))
	assert.Equal(t, "3", FormatQuantity(3))
	assert.Equal(t, "0,500", FormatQuantity(0.5))
}
