package entity

// StaffRole is carried on station tokens. Staff accounts live outside
// this service.
type StaffRole string

const (
	RoleNurse  StaffRole = "nurse"
	RoleDoctor StaffRole = "doctor"
	RoleAdmin  StaffRole = "admin"
)

// Valid reports whether r is a known role
func (r StaffRole) Valid() bool {
	switch r {
	case RoleNurse, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}
