// Package routing computes the default landing destination for a
// resolved principal and answers coarse resource-access queries. It is
// stateless and performs no I/O: all inputs arrive with the principal,
// so both entry points are total functions that degrade to the most
// conservative answer on malformed input.
package routing

import (
	"strings"

	"github.com/iflastandards/authgate/pkg/principal"
)

// adminRoles are the per-resource role strings that count as "directly
// administered" for landing-page tier purposes.
func isAdminRole(role string) bool {
	return role == "admin"
}

// Resolver answers landing-page and access queries against a fixed
// review-group table.
type Resolver struct {
	table ReviewGroupTable
}

// NewResolver creates a resolver over the given review-group table. A
// nil table falls back to the built-in default.
func NewResolver(table ReviewGroupTable) *Resolver {
	if table == nil {
		table = DefaultReviewGroupTable()
	}
	return &Resolver{table: table}
}

// LandingPage returns the single best default destination for a
// principal. Precedence, first match wins:
//
//  1. system-level admin role -> generic admin dashboard
//  2. exactly one directly administered namespace/site -> its dashboard
//  3. exactly one accessible namespace/site at all -> its dashboard
//  4. exactly one administered review group owning exactly one namespace
//  5. exactly one namespace reachable via team membership
//  6. otherwise the generic dashboard, requiring explicit selection
func (r *Resolver) LandingPage(p *principal.Principal, baseURL string) string {
	base := strings.TrimSuffix(baseURL, "/")
	generic := base + "/dashboard"

	if p == nil {
		return generic
	}

	// Tier 1: system admins always land on the generic admin root, even
	// when they also administer individual namespaces.
	if p.IsSystemAdmin() {
		return generic
	}

	// Tier 2: exactly one directly administered namespace or site.
	if key, ok := singleKey(p.Attributes, isAdminRole); ok {
		return generic + "/" + key
	}

	// Tier 3: exactly one namespace or site accessible at all.
	if key, ok := singleKey(p.Attributes, func(string) bool { return true }); ok {
		return generic + "/" + key
	}

	// Tier 4: exactly one administered review group that owns exactly
	// one namespace. Groups owning several namespaces fall through: the
	// user has to choose.
	if group, ok := singleAdministeredGroup(p.Attributes.ReviewGroups); ok {
		if namespaces := r.table.Namespaces(group); len(namespaces) == 1 {
			return generic + "/" + namespaces[0]
		}
	}

	// Tier 5: exactly one namespace reachable via team membership.
	if ns, ok := singleTeamNamespace(p.Attributes.Teams); ok {
		return generic + "/" + ns
	}

	return generic
}

// HasAccess reports whether the principal can reach the resource
// identified by resourceKey. System admins have unconditional access;
// otherwise the key must appear in the principal's site/namespace maps,
// be reachable via a team or translation membership, or belong to a
// review group the principal is a member of.
func (r *Resolver) HasAccess(p *principal.Principal, resourceKey string) bool {
	if p == nil || resourceKey == "" {
		return false
	}

	if p.IsSystemAdmin() {
		return true
	}

	if _, ok := p.Attributes.Namespaces[resourceKey]; ok {
		return true
	}
	if _, ok := p.Attributes.Sites[resourceKey]; ok {
		return true
	}

	for _, team := range p.Attributes.Teams {
		if containsString(team.Namespaces, resourceKey) {
			return true
		}
	}
	for _, tr := range p.Attributes.Translations {
		if containsString(tr.Namespaces, resourceKey) {
			return true
		}
	}

	if group, ok := r.table.GroupFor(resourceKey); ok {
		for _, rg := range p.Attributes.ReviewGroups {
			if rg.ID == group {
				return true
			}
		}
	}

	return false
}

// singleKey returns the sole namespace/site key whose role satisfies
// the filter, and false when zero or more than one qualify. Namespace
// and site maps are considered together since they address the same
// dashboards.
func singleKey(a principal.Attributes, match func(role string) bool) (string, bool) {
	var found string
	count := 0

	for key, role := range a.Namespaces {
		if match(role) {
			found = key
			count++
			if count > 1 {
				return "", false
			}
		}
	}
	for key, role := range a.Sites {
		if !match(role) {
			continue
		}
		// The same key may legitimately appear in both maps.
		if count == 1 && key == found {
			continue
		}
		found = key
		count++
		if count > 1 {
			return "", false
		}
	}

	return found, count == 1
}

func singleAdministeredGroup(groups []principal.GroupMembership) (string, bool) {
	var found string
	count := 0
	for _, g := range groups {
		if isAdminRole(g.Role) {
			found = g.ID
			count++
		}
	}
	return found, count == 1
}

func singleTeamNamespace(teams []principal.GroupMembership) (string, bool) {
	seen := make(map[string]struct{})
	for _, team := range teams {
		for _, ns := range team.Namespaces {
			seen[ns] = struct{}{}
		}
	}
	if len(seen) != 1 {
		return "", false
	}
	for ns := range seen {
		return ns, true
	}
	return "", false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
