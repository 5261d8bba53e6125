package identity

// Role is the role a user holds within a store
type Role string

const (
	RoleOwner Role = "OWNER"
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// Permission codes checked by the dashboard routes
const (
	PermStoreUpdate        = "store:update"
	PermStoreDelete        = "store:delete"
	PermMemberManage       = "member:manage"
	PermMemberOwner        = "member:owner"
	PermProductRead        = "product:read"
	PermProductWrite       = "product:write"
	PermCatalogWrite       = "catalog:write"
	PermOrderRead          = "order:read"
	PermOrderUpdate        = "order:update"
	PermExportCreate       = "export:create"
	PermImportCreate       = "import:create"
	PermSubscriptionManage = "subscription:manage"
	PermAuditRead          = "audit:read"
)

// AllPermissions lists every permission in a stable order
var AllPermissions = []string{
	PermStoreUpdate,
	PermStoreDelete,
	PermMemberManage,
	PermMemberOwner,
	PermProductRead,
	PermProductWrite,
	PermCatalogWrite,
	PermOrderRead,
	PermOrderUpdate,
	PermExportCreate,
	PermImportCreate,
	PermSubscriptionManage,
	PermAuditRead,
}

var staffPermissions = []string{
	PermProductRead,
	PermOrderRead,
	PermOrderUpdate,
	PermExportCreate,
}

// Permissions returns the permission codes granted to the role
func (r Role) Permissions() []string {
	switch r {
	case RoleOwner:
		return append([]string(nil), AllPermissions...)
	case RoleAdmin:
		perms := make([]string, 0, len(AllPermissions))
		for _, p := range AllPermissions {
			if p == PermStoreDelete || p == PermMemberOwner {
				continue
			}
			perms = append(perms, p)
		}
		return perms
	case RoleStaff:
		return append([]string(nil), staffPermissions...)
	}
	return nil
}

// HasPermission checks whether the role grants the permission
func (r Role) HasPermission(code string) bool {
	for _, p := range r.Permissions() {
		if p == code {
			return true
		}
	}
	return false
}
