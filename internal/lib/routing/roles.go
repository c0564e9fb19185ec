package routing

import (
	"encoding/json"
	"strings"
)

// RoleKind is the canonical category of a waypoint
type RoleKind int

const (
	RoleNone RoleKind = iota
	RoleMeet
	RoleCamp
	RoleGas
	RoleCharge
	RoleFood
	RoleHotel
	RoleDrinks
	RoleCoffee
	RolePOI
	RoleView
	RoleCustom // unrecognized token, kept verbatim in Role.Raw
)

// roleInfo is one row of the canonical role table
type roleInfo struct {
	name     string
	title    string
	icon     string
	synonyms []string
}

// roleTable maps each canonical role to its display data and accepted
// spellings. Lookups are case-insensitive.
var roleTable = map[RoleKind]roleInfo{
	RoleMeet:   {"MEET", "Meeting Point", "icon-meet.svg", []string{"MEET", "MEETING", "MEETUP", "START"}},
	RoleCamp:   {"CAMP", "Campground", "icon-camp.svg", []string{"CAMP", "CAMPING", "CAMPGROUND"}},
	RoleGas:    {"GAS", "Gas Stop", "icon-gas.svg", []string{"GAS", "FUEL", "PETROL"}},
	RoleCharge: {"CHARGE", "EV Charging Stop", "icon-charge.svg", []string{"CHARGE", "CHARGING", "EV"}},
	RoleFood:   {"FOOD", "Meal Stop", "icon-food.svg", []string{"FOOD", "MEAL", "LUNCH", "BREAKFAST", "DINNER"}},
	RoleHotel:  {"HOTEL", "Lodging", "icon-hotel.svg", []string{"HOTEL", "LODGING", "MOTEL"}},
	RoleDrinks: {"DRINKS", "Drinks", "icon-drinks.svg", []string{"DRINKS", "BAR", "BEER"}},
	RoleCoffee: {"COFFEE", "Coffee Shop", "icon-coffee.svg", []string{"COFFEE", "CAFE"}},
	RolePOI:    {"POI", "Point of Interest", "icon-poi.svg", []string{"POI"}},
	RoleView:   {"VIEW", "Scenic Point", "icon-view.svg", []string{"VIEW", "VISTA", "SCENIC", "OVERLOOK"}},
}

// synonymIndex is roleTable inverted: upper-case spelling → kind
var synonymIndex = func() map[string]RoleKind {
	idx := make(map[string]RoleKind)
	for kind, info := range roleTable {
		for _, s := range info.synonyms {
			idx[s] = kind
		}
	}
	return idx
}()

// Role is a canonical role or, for RoleCustom, the verbatim token
type Role struct {
	Kind RoleKind
	Raw  string
}

// LookupRole canonicalizes a single role token
func LookupRole(token string) Role {
	token = strings.TrimSpace(token)
	if token == "" {
		return Role{Kind: RoleNone}
	}
	if kind, ok := synonymIndex[strings.ToUpper(token)]; ok {
		return Role{Kind: kind}
	}
	return Role{Kind: RoleCustom, Raw: token}
}

// KnownRoles lists the canonical roles in declaration order
func KnownRoles() []RoleKind {
	kinds := make([]RoleKind, 0, len(roleTable))
	for k := RoleMeet; k < RoleCustom; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// String returns the canonical name, or the raw token for custom roles
func (r Role) String() string {
	switch r.Kind {
	case RoleNone:
		return ""
	case RoleCustom:
		return r.Raw
	default:
		return roleTable[r.Kind].name
	}
}

// Title is the heading shown on a waypoint's popup
func (r Role) Title() string {
	if info, ok := roleTable[r.Kind]; ok {
		return info.title
	}
	return "Waypoint"
}

// IconFile is the icon asset name, empty when the role is drawn as a circle
func (r Role) IconFile() string {
	return r.Kind.IconFile()
}

// IsFuelStop reports whether the role resets the fuel baseline
func (r Role) IsFuelStop() bool {
	return r.Kind == RoleGas
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = LookupRole(s)
	return nil
}

// String returns the canonical name of a kind; custom and none are empty
func (k RoleKind) String() string {
	return roleTable[k].name
}

// IconFile is the icon asset for a canonical kind
func (k RoleKind) IconFile() string {
	return roleTable[k].icon
}

// ParseRoleKind resolves a canonical role or synonym to its kind
func ParseRoleKind(name string) (RoleKind, bool) {
	kind, ok := synonymIndex[strings.ToUpper(strings.TrimSpace(name))]
	return kind, ok
}
