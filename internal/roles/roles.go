// internal/roles/roles.go
package roles

import "github.com/google/uuid"

// Role is a caller's resolved authorization level. Identity and role are
// established by the caller's authenticated context before the engine is
// invoked; the engine only enforces capabilities.
type Role string

const (
	Member Role = "MEMBER"
	Staff  Role = "STAFF"
	Admin  Role = "ADMIN"
)

// Operation names a capability-checked engine operation.
type Operation string

const (
	OpRequestIssue  Operation = "issue.request"
	OpApproveIssue  Operation = "issue.approve"
	OpRejectIssue   Operation = "issue.reject"
	OpReturnIssue   Operation = "issue.return"
	OpReissueIssue  Operation = "issue.reissue"
	OpListAllIssues Operation = "issue.list_all"
	OpListOverdue   Operation = "issue.list_overdue"
	OpManageBooks   Operation = "book.manage"
	OpListUsers     Operation = "user.list"
	OpManageUsers   Operation = "user.manage"
)

var grants = map[Role]map[Operation]bool{
	Member: {
		OpRequestIssue: true,
		OpReissueIssue: true,
	},
	Staff: {
		OpRequestIssue:  true,
		OpApproveIssue:  true,
		OpRejectIssue:   true,
		OpReturnIssue:   true,
		OpReissueIssue:  true,
		OpListAllIssues: true,
		OpListOverdue:   true,
		OpManageBooks:   true,
		OpListUsers:     true,
	},
	Admin: {
		OpRequestIssue:  true,
		OpApproveIssue:  true,
		OpRejectIssue:   true,
		OpReturnIssue:   true,
		OpReissueIssue:  true,
		OpListAllIssues: true,
		OpListOverdue:   true,
		OpManageBooks:   true,
		OpListUsers:     true,
		OpManageUsers:   true,
	},
}

// Can reports whether the role is granted the operation. All call sites go
// through this single predicate rather than comparing role strings inline.
func Can(r Role, op Operation) bool {
	return grants[r][op]
}

// Valid reports whether r is one of the known roles.
func Valid(r Role) bool {
	_, ok := grants[r]
	return ok
}

// IsStaff reports whether the role has staff-level privileges.
func IsStaff(r Role) bool {
	return r == Staff || r == Admin
}

// Actor is the already-authenticated caller of an engine operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}
