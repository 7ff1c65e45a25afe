// Package strings provides string-set helpers shared across packages.
package strings

import (
	"sort"
	"strings"
)

// NormalizeSet trims whitespace, drops empty entries, removes duplicates,
// and sorts the result. Used wherever a caller needs a canonical, stable
// list of names, such as attribute definitions sent in a batch.
//
// Example:
//
//	NormalizeSet([]string{"  tier ", "age", "tier", ""})
//	// Returns: []string{"age", "tier"}
func NormalizeSet(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	sort.Strings(result)
	return result
}
