package rbac

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

func TestNewPermissionSetNormalizes(t *testing.T) {
	set := NewPermissionSet(" view_orders ", "view_orders", "", "  ", "edit_order")
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"edit_order", "view_orders"}, set.Slice())
	assert.False(t, set.Has("VIEW_ORDERS"), "matching is exact")
}

func TestGrants(t *testing.T) {
	set := NewPermissionSet(shared.PermOrderView)
	assert.True(t, set.Grants(""))
	assert.True(t, set.Grants(shared.PermOrderView))
	assert.False(t, set.Grants(shared.PermOrderEdit))
	assert.False(t, set.Wildcard())

	all := NewPermissionSet(shared.PermAll)
	assert.True(t, all.Wildcard())
	assert.True(t, all.Grants(shared.PermStaffDelete))
	assert.False(t, all.Grants("launch_rockets"), "unknown identifiers are never granted")
}

func TestGrantsDeniesUnknownPermissions(t *testing.T) {
	set := NewPermissionSet("launch_rockets", shared.PermAll)
	assert.True(t, set.Has("launch_rockets"))
	assert.False(t, set.Grants("launch_rockets"))
	assert.False(t, set.GrantsAny("launch_rockets", "fly_to_moon"))
	assert.True(t, set.GrantsAny("launch_rockets", shared.PermOrderView))
}

func TestGrantsAny(t *testing.T) {
	set := NewPermissionSet(shared.PermRolesView)
	assert.True(t, set.GrantsAny())
	assert.True(t, set.GrantsAny(shared.PermUsersView, shared.PermRolesView))
	assert.False(t, set.GrantsAny(shared.PermUsersView))
}

func TestPermissionSetJSON(t *testing.T) {
	data, err := json.Marshal(NewPermissionSet("b", "a", "a"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))

	var decoded PermissionSet
	require.NoError(t, json.Unmarshal([]byte(`["view_orders"," view_orders","*"]`), &decoded))
	assert.Equal(t, 2, decoded.Len())
	assert.True(t, decoded.Wildcard())
}

func TestRolePermissionSet(t *testing.T) {
	var none *Role
	assert.Equal(t, 0, none.PermissionSet().Len())

	role := &Role{Name: "cashier", Permissions: []string{shared.PermOrderView, shared.PermOrderAdd, shared.PermOrderView}}
	assert.Equal(t, 2, role.PermissionSet().Len())
}
