package clients

// ClientInput carries the client form fields.
type ClientInput struct {
	DocumentType   string `validate:"required"`
	DocumentNumber string `validate:"required"`
	FullName       string `validate:"required,max=150"`
	Email          string `validate:"omitempty,email"`
	Phone          string `validate:"required,max=30"`
	Address        string `validate:"required,max=255"`
}

// LookupItem is a JSON autocomplete suggestion.
type LookupItem struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}
