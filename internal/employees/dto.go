package employees

// CreateEmployeeInput carries the new-employee form fields.
type CreateEmployeeInput struct {
	FirstName string `validate:"required,max=60"`
	LastName  string `validate:"required,max=60"`
	Username  string `validate:"required,min=3,max=40,alphanum"`
	Password  string `validate:"required,min=8"`
	Phone     string `validate:"max=30"`
	Role      string `validate:"required"`
	Active    bool
}

// UpdateEmployeeInput carries the edit form fields. Password is optional;
// empty keeps the current one.
type UpdateEmployeeInput struct {
	FirstName string `validate:"required,max=60"`
	LastName  string `validate:"required,max=60"`
	Password  string `validate:"omitempty,min=8"`
	Phone     string `validate:"max=30"`
	Role      string `validate:"required"`
	Active    bool
}
