package clients

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDocument(t *testing.T) {
	docType, number := NormalizeDocument(" v ", "12.345.678")
	require.Equal(t, "V", docType)
	require.Equal(t, "12345678", number)

	docType, number = NormalizeDocument("J", "J-1234 5678-9")
	require.Equal(t, "J", docType)
	require.Equal(t, "J123456789", number)
}

func TestValidateDocument(t *testing.T) {
	cases := []struct {
		name    string
		docType string
		number  string
		wantErr bool
	}{
		{"cedula minimum length", "V", "123456", false},
		{"cedula maximum length", "E", "12345678", false},
		{"cedula too short", "V", "12345", true},
		{"cedula too long", "V", "123456789", true},
		{"rif minimum length", "J", "12345678", false},
		{"rif maximum length", "G", "123456789", false},
		{"rif too short", "J", "1234567", true},
		{"rif too long", "J", "1234567890", true},
		{"unknown type", "X", "12345678", true},
		{"non numeric", "V", "1234A678", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDocument(tc.docType, tc.number)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestClientDocumentID(t *testing.T) {
	c := Client{DocumentType: "V", DocumentNumber: "12345678"}
	require.Equal(t, "V-12345678", c.DocumentID())
}
