package authz

import "time"

// ResourceKind identifies the category of resource a check targets.
// The set is closed: the decision service has policies only for these.
type ResourceKind string

const (
	ResourceNamespace   ResourceKind = "namespace"
	ResourceSite        ResourceKind = "site"
	ResourceUserAdmin   ResourceKind = "user_admin"
	ResourceTranslation ResourceKind = "translation"
)

// Valid reports whether the kind belongs to the closed set.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceNamespace, ResourceSite, ResourceUserAdmin, ResourceTranslation:
		return true
	}
	return false
}

// Resource is the target of an authorization check.
type Resource struct {
	Kind       ResourceKind      `json:"kind"`
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// CheckResult is the outcome of a permission check. Allowed is true iff
// at least one requested action is permitted. Results holds one entry
// per requested action; on any decision-service failure every entry is
// false.
type CheckResult struct {
	Allowed   bool            `json:"allowed"`
	Results   map[string]bool `json:"results"`
	CheckedAt time.Time       `json:"checked_at"`
}

// deniedResult builds the fail-closed result for the given actions.
func deniedResult(actions []string, now time.Time) *CheckResult {
	results := make(map[string]bool, len(actions))
	for _, action := range actions {
		results[action] = false
	}
	return &CheckResult{Allowed: false, Results: results, CheckedAt: now}
}
