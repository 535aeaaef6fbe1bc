package principal

// System-level role tags. A principal holding either is treated as a
// platform administrator regardless of per-resource attributes.
const (
	RoleSystemAdmin = "system-admin"
	RoleIFLAAdmin   = "ifla-admin"
)

// RoleOrgOwner marks a verified owner of the platform's organization.
// It is granted by the identity resolver from the ownership oracle, not
// by provider claims.
const RoleOrgOwner = "org-owner"

// GroupMembership records membership in a review group, team or
// translation project, together with the namespaces that membership
// reaches.
type GroupMembership struct {
	ID         string   `json:"id"`
	Role       string   `json:"role"`
	Namespaces []string `json:"namespaces,omitempty"`
}

// Attributes holds the structured per-resource role assignments for a
// principal. The three independent sub-maps mirror the resource
// categories the platform scopes access by.
type Attributes struct {
	Namespaces   map[string]string `json:"namespaces,omitempty"`
	Sites        map[string]string `json:"sites,omitempty"`
	ReviewGroups []GroupMembership `json:"review_groups,omitempty"`
	Teams        []GroupMembership `json:"teams,omitempty"`
	Translations []GroupMembership `json:"translations,omitempty"`
}

// Principal is the authenticated actor. It is a read-only projection of
// the identity provider's session plus enrichment data; it is built
// fresh on every request and never persisted.
type Principal struct {
	ID         string     `json:"id"`
	Roles      []string   `json:"roles,omitempty"`
	Username   string     `json:"username,omitempty"`
	Email      string     `json:"email,omitempty"`
	Attributes Attributes `json:"attributes"`
}

// RawSession is the duck-typed session/token payload handed over by the
// identity provider. Only the fields this core reads are declared;
// anything else the provider sends rides along in Claims and is
// ignored.
type RawSession struct {
	Subject  string                 `json:"sub"`
	Username string                 `json:"login,omitempty"`
	Email    string                 `json:"email,omitempty"`
	Roles    []string               `json:"roles,omitempty"`
	Claims   map[string]interface{} `json:"claims,omitempty"`
}

// HasRole reports whether the principal carries the given coarse role tag.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsSystemAdmin reports whether the principal holds a system-level
// admin role.
func (p *Principal) IsSystemAdmin() bool {
	return p.HasRole(RoleSystemAdmin) || p.HasRole(RoleIFLAAdmin)
}

// IsEmpty reports whether the principal has no roles and no populated
// attribute maps. An empty principal is routed to the pending state and
// never reaches an admin surface.
func (p *Principal) IsEmpty() bool {
	if len(p.Roles) > 0 {
		return false
	}
	a := p.Attributes
	return len(a.Namespaces) == 0 &&
		len(a.Sites) == 0 &&
		len(a.ReviewGroups) == 0 &&
		len(a.Teams) == 0 &&
		len(a.Translations) == 0
}

// AddRole appends a role tag if not already present.
func (p *Principal) AddRole(role string) {
	if !p.HasRole(role) {
		p.Roles = append(p.Roles, role)
	}
}
