package core

import "strings"

// Permission is a bitmask of vault capabilities. Each permission occupies a
// distinct bit so grants can combine them with bitwise OR.
type Permission int

const (
	PermissionRead   Permission = 1 << iota // read existing secrets
	PermissionCreate                        // create new secrets
	PermissionUpdate                        // modify existing secrets
	PermissionDelete                        // delete secrets

	PermissionAll = PermissionRead | PermissionCreate | PermissionUpdate | PermissionDelete
)

var permissionNames = []struct {
	bit  Permission
	name string
}{
	{PermissionRead, "READ"},
	{PermissionCreate, "CREATE"},
	{PermissionUpdate, "UPDATE"},
	{PermissionDelete, "DELETE"},
}

// Has reports whether every bit in required is present in p.
func (p Permission) Has(required Permission) bool {
	return p&required == required
}

// Names returns the canonical names of the bits set in p, in bit order.
func (p Permission) Names() []string {
	names := make([]string, 0, len(permissionNames))
	for _, entry := range permissionNames {
		if p&entry.bit != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

func (p Permission) String() string {
	names := p.Names()
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// MissingNames returns the names of the bits in p that granted does not
// cover. It is the single translation point between bits and names; call
// sites must not re-implement the mapping.
func (p Permission) MissingNames(granted Permission) []string {
	missing := make([]string, 0, len(permissionNames))
	for _, entry := range permissionNames {
		if p&entry.bit != 0 && granted&entry.bit == 0 {
			missing = append(missing, entry.name)
		}
	}
	return missing
}

// ParsePermission resolves a canonical permission name to its bit. Unknown
// names resolve to zero.
func ParsePermission(name string) Permission {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for _, entry := range permissionNames {
		if entry.name == normalized {
			return entry.bit
		}
	}
	if normalized == "ALL" {
		return PermissionAll
	}
	return 0
}
