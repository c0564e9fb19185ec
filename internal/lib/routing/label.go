package routing

import (
	"regexp"
	"strings"
)

// maxLabelRoles bounds the "ROLE1/ROLE2/ROLE3/ROLE4 - text" prefix
const maxLabelRoles = 4

// labelPattern matches "ROLE - text" and "ROLE1/ROLE2 - text". Role tokens
// contain no whitespace, slash or hyphen.
var labelPattern = regexp.MustCompile(`(?s)^([^\s/-]+(?:/[^\s/-]+){0,3})\s+-\s+(.*)$`)

var numberOnlyPattern = regexp.MustCompile(`^\d+$`)

// Label is a placemark name broken into roles and display text
type Label struct {
	Raw         string
	Roles       []Role
	DisplayName string
	Delimited   bool
	NumberOnly  bool
}

// ParseLabel extracts roles from a marker label. Without a role prefix the
// whole label is looked up as one token and the display name is the label.
func ParseLabel(raw string) Label {
	label := Label{
		Raw:         raw,
		DisplayName: raw,
		NumberOnly:  numberOnlyPattern.MatchString(strings.TrimSpace(raw)),
	}

	if m := labelPattern.FindStringSubmatch(raw); m != nil {
		tokens := strings.SplitN(m[1], "/", maxLabelRoles)
		label.Delimited = true
		label.DisplayName = m[2]
		label.Roles = dedupeRoles(tokens)
		return label
	}

	if role := LookupRole(raw); role.Kind != RoleNone {
		label.Roles = []Role{role}
	}
	return label
}

// Primary is the first role, or RoleNone for an empty label
func (l Label) Primary() Role {
	if len(l.Roles) == 0 {
		return Role{Kind: RoleNone}
	}
	return l.Roles[0]
}

// Has reports whether any of the label's roles is kind
func (l Label) Has(kind RoleKind) bool {
	for _, r := range l.Roles {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

func dedupeRoles(tokens []string) []Role {
	roles := make([]Role, 0, len(tokens))
	seen := make(map[Role]bool, len(tokens))
	for _, tok := range tokens {
		r := LookupRole(tok)
		if r.Kind == RoleNone || seen[r] {
			continue
		}
		seen[r] = true
		roles = append(roles, r)
	}
	return roles
}
