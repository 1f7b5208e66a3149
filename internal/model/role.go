package model

// Role is the derived classification of a user. It is computed from the
// capability flags and never stored or transmitted.
type Role string

const (
	RoleSuperuser Role = "superuser"
	RoleStaff     Role = "staff"
	RoleStudent   Role = "student"
)

// DeriveRole classifies a user by capability flags, in priority order
// superuser > staff > student. A superuser who also has is_staff set is
// classified superuser, not staff.
func DeriveRole(u *User) Role {
	switch {
	case u == nil:
		return RoleStudent
	case u.IsSuperuser:
		return RoleSuperuser
	case u.IsStaff:
		return RoleStaff
	default:
		return RoleStudent
	}
}

// SatisfiesAny reports whether the user meets at least one of the required
// role names. A superuser satisfies any requirement, including "admin",
// which some pages use as an alias for the superuser role.
func SatisfiesAny(u *User, required []string) bool {
	if u == nil {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	role := string(DeriveRole(u))
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the user's permission set contains p.
// user_permissions is the authoritative source field.
func HasPermission(u *User, p string) bool {
	if u == nil {
		return false
	}
	for _, have := range u.UserPermissions {
		if have == p {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every listed permission is present.
// An empty list is trivially satisfied.
func HasAllPermissions(u *User, perms []string) bool {
	for _, p := range perms {
		if !HasPermission(u, p) {
			return false
		}
	}
	return true
}
