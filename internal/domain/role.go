package domain

// Role names. "master" is the distinguished admin role: accounts created
// with it are promoted to staff/superuser at creation time.
const (
	RoleUser   = "user"
	RoleMaster = "master"
)

// ValidRole reports whether name is an assignable role.
func ValidRole(name string) bool {
	return name == RoleUser || name == RoleMaster
}
