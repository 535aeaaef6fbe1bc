package principal

import "strings"

// Legacy role encoding: older NextAuth-era sessions carried compound
// role strings like "namespace-admin:ISBD" or "site-editor:isbd" instead
// of the structured attribute maps. ApplyLegacyRoles translates that
// encoding into the canonical form so both session generations resolve
// to the same Principal shape.

// legacyPrefixes maps a compound-string prefix to the attribute bucket
// and role it expands to.
var legacyPrefixes = map[string]struct {
	bucket string
	role   string
}{
	"namespace-admin":      {"namespace", "admin"},
	"namespace-editor":     {"namespace", "editor"},
	"namespace-translator": {"namespace", "translator"},
	"namespace-reviewer":   {"namespace", "reviewer"},
	"site-admin":           {"site", "admin"},
	"site-editor":          {"site", "editor"},
	"rg-admin":             {"reviewgroup", "admin"},
	"rg-member":            {"reviewgroup", "member"},
}

// ApplyLegacyRoles folds compound role strings into the principal's
// structured attributes. Strings that do not match a known prefix are
// kept verbatim as coarse role tags.
func ApplyLegacyRoles(p *Principal, roles []string) {
	for _, raw := range roles {
		prefix, target, ok := splitLegacyRole(raw)
		if !ok {
			p.AddRole(raw)
			continue
		}

		mapping, known := legacyPrefixes[prefix]
		if !known {
			p.AddRole(raw)
			continue
		}

		// Legacy strings used uppercase namespace keys; the canonical
		// maps are keyed lowercase.
		key := strings.ToLower(target)

		switch mapping.bucket {
		case "namespace":
			if p.Attributes.Namespaces == nil {
				p.Attributes.Namespaces = make(map[string]string)
			}
			if _, exists := p.Attributes.Namespaces[key]; !exists {
				p.Attributes.Namespaces[key] = mapping.role
			}
		case "site":
			if p.Attributes.Sites == nil {
				p.Attributes.Sites = make(map[string]string)
			}
			if _, exists := p.Attributes.Sites[key]; !exists {
				p.Attributes.Sites[key] = mapping.role
			}
		case "reviewgroup":
			if !hasMembership(p.Attributes.ReviewGroups, key) {
				p.Attributes.ReviewGroups = append(p.Attributes.ReviewGroups, GroupMembership{
					ID:   key,
					Role: mapping.role,
				})
			}
		}
	}
}

func splitLegacyRole(raw string) (prefix, target string, ok bool) {
	idx := strings.IndexByte(raw, ':')
	if idx <= 0 || idx == len(raw)-1 {
		return "", "", false
	}
	return raw[:idx], raw[idx+1:], true
}

func hasMembership(list []GroupMembership, id string) bool {
	for _, m := range list {
		if m.ID == id {
			return true
		}
	}
	return false
}
