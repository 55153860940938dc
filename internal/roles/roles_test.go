// internal/roles/roles_test.go
package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	cases := []struct {
		role Role
		op   Operation
		want bool
	}{
		{Member, OpRequestIssue, true},
		{Member, OpReissueIssue, true},
		{Member, OpApproveIssue, false},
		{Member, OpRejectIssue, false},
		{Member, OpReturnIssue, false},
		{Member, OpListAllIssues, false},
		{Member, OpListOverdue, false},
		{Member, OpManageBooks, false},
		{Member, OpManageUsers, false},

		{Staff, OpRequestIssue, true},
		{Staff, OpApproveIssue, true},
		{Staff, OpRejectIssue, true},
		{Staff, OpReturnIssue, true},
		{Staff, OpListAllIssues, true},
		{Staff, OpListOverdue, true},
		{Staff, OpManageBooks, true},
		{Staff, OpListUsers, true},
		{Staff, OpManageUsers, false},

		{Admin, OpManageUsers, true},
		{Admin, OpManageBooks, true},

		{Role("GUEST"), OpRequestIssue, false},
		{Role(""), OpRequestIssue, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Can(tc.role, tc.op), "%s / %s", tc.role, tc.op)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(Member))
	assert.True(t, Valid(Staff))
	assert.True(t, Valid(Admin))
	assert.False(t, Valid(Role("GUEST")))
	assert.False(t, Valid(Role("")))
	assert.False(t, Valid(Role("member")), "roles are case sensitive")
}

func TestIsStaff(t *testing.T) {
	assert.False(t, IsStaff(Member))
	assert.True(t, IsStaff(Staff))
	assert.True(t, IsStaff(Admin))
	assert.False(t, IsStaff(Role("GUEST")))
}
