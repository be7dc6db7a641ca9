// Package rbac decides what each role may see and do, on the client and in
// the backend double.
package rbac

import "github.com/wastewatch/wastewatch/internal/shared"

// Capabilities is the set of actions open to a role. It is a pure function
// of the role; views and controllers consult it instead of comparing roles.
type Capabilities struct {
	CanManageUsers      bool
	CanManageWasteTypes bool
	CanSeeAllReports    bool
	CanEditStatus       bool
	CanDelete           bool
	CanSubmitReports    bool
}

// For returns the capabilities of role. Unknown roles get none.
func For(role shared.Role) Capabilities {
	switch role {
	case shared.RoleAdmin:
		return Capabilities{
			CanManageUsers:      true,
			CanManageWasteTypes: true,
			CanSeeAllReports:    true,
			CanEditStatus:       true,
			CanDelete:           true,
		}
	case shared.RoleOfficer:
		return Capabilities{
			CanSeeAllReports: true,
			CanEditStatus:    true,
		}
	case shared.RoleCitizen:
		return Capabilities{
			CanSubmitReports: true,
		}
	}
	return Capabilities{}
}

// Any reports whether at least one capability is granted.
func (c Capabilities) Any() bool {
	return c != Capabilities{}
}
