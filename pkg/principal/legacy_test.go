package principal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyLegacyRoles(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		check func(t *testing.T, p *Principal)
	}{
		{
			name:  "namespace admin with uppercase key",
			roles: []string{"namespace-admin:ISBD"},
			check: func(t *testing.T, p *Principal) {
				assert.Equal(t, "admin", p.Attributes.Namespaces["isbd"])
				assert.Empty(t, p.Roles)
			},
		},
		{
			name:  "site editor",
			roles: []string{"site-editor:isbdm"},
			check: func(t *testing.T, p *Principal) {
				assert.Equal(t, "editor", p.Attributes.Sites["isbdm"])
			},
		},
		{
			name:  "review group admin",
			roles: []string{"rg-admin:ISBD"},
			check: func(t *testing.T, p *Principal) {
				assert.Equal(t, []GroupMembership{{ID: "isbd", Role: "admin"}}, p.Attributes.ReviewGroups)
			},
		},
		{
			name:  "unknown compound string kept as coarse tag",
			roles: []string{"mystery-role:xyz"},
			check: func(t *testing.T, p *Principal) {
				assert.Equal(t, []string{"mystery-role:xyz"}, p.Roles)
			},
		},
		{
			name:  "plain tag passes through",
			roles: []string{"system-admin"},
			check: func(t *testing.T, p *Principal) {
				assert.Equal(t, []string{"system-admin"}, p.Roles)
				assert.True(t, p.IsSystemAdmin())
			},
		},
		{
			name:  "trailing colon is not a compound role",
			roles: []string{"namespace-admin:"},
			check: func(t *testing.T, p *Principal) {
				assert.Equal(t, []string{"namespace-admin:"}, p.Roles)
				assert.Empty(t, p.Attributes.Namespaces)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Principal{ID: "u1"}
			ApplyLegacyRoles(p, tt.roles)
			tt.check(t, p)
		})
	}
}

func TestApplyLegacyRoles_DoesNotOverrideStructured(t *testing.T) {
	p := &Principal{
		ID:         "u1",
		Attributes: Attributes{Namespaces: map[string]string{"isbd": "reviewer"}},
	}
	ApplyLegacyRoles(p, []string{"namespace-admin:ISBD"})
	// The structured assignment is authoritative; the legacy string must
	// not elevate it.
	assert.Equal(t, "reviewer", p.Attributes.Namespaces["isbd"])
}
