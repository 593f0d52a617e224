package employees

import "time"

// Roles, from most to least privileged. Admins manage employees and
// configuration, supervisors additionally see profits and can cancel sales,
// sellers operate the counter.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleSeller     = "seller"
)

// Roles lists the assignable roles.
var Roles = []string{RoleAdmin, RoleSupervisor, RoleSeller}

// Employee is a staff member tied to a login user.
type Employee struct {
	ID        int64
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
	HiredAt   time.Time
	Active    bool
}

// FullName joins first and last name.
func (e Employee) FullName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// ValidRole reports whether role is assignable.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
