package run

import (
	"fmt"
	"strings"
)

// Report aggregates one run's outcomes. Merged and DisabledMismatch mirror
// the reserved per-user fields; they stay zero until merge detection exists.
type Report struct {
	RunID            string
	DryRun           bool
	Found            int
	Succeeded        int
	Merged           int
	DisabledMismatch []string
	Failed           []string
}

// Created is the number of brand-new users in the target platform.
func (r Report) Created() int {
	return r.Succeeded - r.Merged
}

// String renders the operator-facing summary block.
func (r Report) String() string {
	if r.DryRun {
		return fmt.Sprintf("Would migrate %d users to the target platform\n", r.Found)
	}

	var b strings.Builder
	fmt.Fprintln(&b, "=================== User Migration =============================")
	fmt.Fprintf(&b, "Source users found: %d\n", r.Found)
	fmt.Fprintf(&b, "Successfully migrated %d users\n", r.Succeeded)
	fmt.Fprintf(&b, "Successfully merged %d users\n", r.Merged)
	if len(r.DisabledMismatch) != 0 {
		fmt.Fprintf(&b, "Users migrated, but disabled due to a merged account being disabled: %d\n", len(r.DisabledMismatch))
		for _, id := range r.DisabledMismatch {
			fmt.Fprintf(&b, "  %s\n", id)
		}
	}
	if len(r.Failed) != 0 {
		fmt.Fprintf(&b, "Failed to migrate %d users:\n", len(r.Failed))
		for _, failure := range r.Failed {
			fmt.Fprintf(&b, "  %s\n", failure)
		}
	}
	fmt.Fprintf(&b, "Created users in the target platform: %d\n", r.Created())
	return b.String()
}
