package clients

import (
	"regexp"
	"strings"
	"time"

	"github.com/facturo/facturo/internal/shared"
)

// DocumentTypes lists the accepted Venezuelan identity document prefixes:
// V and E for natural persons, J and G for juridical ones.
var DocumentTypes = []string{"V", "E", "J", "G"}

// Client is a registered customer.
type Client struct {
	ID             int64
	DocumentType   string
	DocumentNumber string
	FullName       string
	Email          *string
	Phone          string
	Address        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DocumentID renders the full document, e.g. V-12345678.
func (c Client) DocumentID() string {
	return c.DocumentType + "-" + c.DocumentNumber
}

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// NormalizeDocument strips separators and uppercases the type so the same
// person typed as "v-12.345.678" and "V12345678" matches one row.
func NormalizeDocument(docType, number string) (string, string) {
	docType = strings.ToUpper(strings.TrimSpace(docType))
	cleaned := strings.NewReplacer(".", "", "-", "", " ", "").Replace(strings.TrimSpace(number))
	return docType, cleaned
}

// ValidateDocument checks the type and the digit count: 6 to 8 digits for
// natural persons (V, E), 8 to 9 for juridical ones (J, G).
func ValidateDocument(docType, number string) error {
	valid := false
	for _, t := range DocumentTypes {
		if docType == t {
			valid = true
			break
		}
	}
	if !valid {
		return shared.NewBusinessError("Tipo de documento inválido. Use V, E, J o G.", nil)
	}
	if !digitsOnly.MatchString(number) {
		return shared.NewBusinessError("El número de documento solo admite dígitos.", nil)
	}
	n := len(number)
	switch docType {
	case "V", "E":
		if n < 6 || n > 8 {
			return shared.NewBusinessError("La cédula debe tener entre 6 y 8 dígitos.", nil)
		}
	case "J", "G":
		if n < 8 || n > 9 {
			return shared.NewBusinessError("El RIF debe tener entre 8 y 9 dígitos.", nil)
		}
	}
	return nil
}
