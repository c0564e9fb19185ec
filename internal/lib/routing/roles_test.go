package routing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupRole_Synonyms(t *testing.T) {
	tests := []struct {
		token string
		want  RoleKind
	}{
		{"MEET", RoleMeet},
		{"start", RoleMeet},
		{"Campground", RoleCamp},
		{"fuel", RoleGas},
		{"PETROL", RoleGas},
		{"ev", RoleCharge},
		{"Lunch", RoleFood},
		{"motel", RoleHotel},
		{"beer", RoleDrinks},
		{"Cafe", RoleCoffee},
		{"poi", RolePOI},
		{"OVERLOOK", RoleView},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, Role{Kind: tt.want}, LookupRole(tt.token))
		})
	}
}

func TestLookupRole_CustomAndEmpty(t *testing.T) {
	assert.Equal(t, Role{Kind: RoleNone}, LookupRole(""))
	assert.Equal(t, Role{Kind: RoleNone}, LookupRole("   "))

	custom := LookupRole("Tacos")
	assert.Equal(t, RoleCustom, custom.Kind)
	assert.Equal(t, "Tacos", custom.Raw, "custom tokens keep their original case")
	assert.Equal(t, "Tacos", custom.String())
	assert.Equal(t, "Waypoint", custom.Title())
	assert.Empty(t, custom.IconFile())
}

func TestRole_TitlesAndIcons(t *testing.T) {
	for _, kind := range KnownRoles() {
		r := Role{Kind: kind}
		assert.NotEmpty(t, r.String(), "kind %d", kind)
		assert.NotEqual(t, "Waypoint", r.Title(), "kind %s", r)
		assert.Equal(t, "icon-"+strings.ToLower(r.String())+".svg", r.IconFile())
	}
	assert.Equal(t, "Gas Stop", Role{Kind: RoleGas}.Title())
	assert.True(t, Role{Kind: RoleGas}.IsFuelStop())
	assert.False(t, Role{Kind: RoleCharge}.IsFuelStop())
	assert.Len(t, KnownRoles(), 10)
}

func TestRole_JSON(t *testing.T) {
	data, err := json.Marshal([]Role{{Kind: RoleGas}, {Kind: RoleCustom, Raw: "Tacos"}, {Kind: RoleNone}})
	require.NoError(t, err)
	assert.JSONEq(t, `["GAS","Tacos",""]`, string(data))

	var back []Role
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Role{{Kind: RoleGas}, {Kind: RoleCustom, Raw: "Tacos"}, {Kind: RoleNone}}, back)
}

func TestParseRoleKind(t *testing.T) {
	kind, ok := ParseRoleKind("vista")
	assert.True(t, ok)
	assert.Equal(t, RoleView, kind)

	_, ok = ParseRoleKind("nope")
	assert.False(t, ok)
}
