package model

// Role classifies an authenticated subject. It is resolved once at
// connection time and never changes for the lifetime of the connection.
type Role string

const (
	RolePassenger Role = "PASSENGER"
	RoleDriver    Role = "DRIVER"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePassenger, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// CanPublish reports whether the role is allowed to publish location
// updates at all. Ownership of the specific vehicle is checked separately.
func (r Role) CanPublish() bool {
	return r == RoleDriver || r == RoleAdmin
}

// Identity is the result of verifying a bearer credential.
type Identity struct {
	SubjectID string
	Role      Role
}
