package routing

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ReviewGroupTable maps a review-group key to the namespaces it owns.
// This is hand-maintained configuration data, not logic: the platform's
// review groups and their namespaces change rarely and only by editorial
// decision.
type ReviewGroupTable map[string][]string

// DefaultReviewGroupTable returns the built-in review-group mapping.
func DefaultReviewGroupTable() ReviewGroupTable {
	return ReviewGroupTable{
		"icp":     {"muldicat"},
		"bcm":     {"frbr", "lrm", "frad"},
		"isbd":    {"isbd", "isbdm"},
		"puc":     {"unimarc", "mri"},
		"unimarc": {"unimarc"},
	}
}

// LoadReviewGroupTable reads a review-group mapping from a YAML file.
// The file holds a flat map of review-group key to namespace list.
func LoadReviewGroupTable(path string) (ReviewGroupTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read review group table: %w", err)
	}

	var table ReviewGroupTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse review group table: %w", err)
	}

	for group, namespaces := range table {
		if len(namespaces) == 0 {
			return nil, fmt.Errorf("review group %q has no namespaces", group)
		}
	}

	return table, nil
}

// Namespaces returns the namespaces owned by a review group.
func (t ReviewGroupTable) Namespaces(group string) []string {
	return t[group]
}

// GroupFor returns the review group owning a namespace, if any. Lookup
// is order-independent: group keys are scanned in sorted order so a
// namespace claimed by multiple groups resolves deterministically.
func (t ReviewGroupTable) GroupFor(namespace string) (string, bool) {
	groups := make([]string, 0, len(t))
	for g := range t {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, g := range groups {
		for _, ns := range t[g] {
			if ns == namespace {
				return g, true
			}
		}
	}
	return "", false
}
