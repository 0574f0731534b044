package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Violation records one broken schedule rule: the Start-time partition
// it belongs to, the rule text, and the titles of the offending rows
// (offending row first, conflicting peers after).
type Violation struct {
	Group     string   `json:"group"`
	Rule      string   `json:"rule"`
	Locations []string `json:"locations"`
}

// ValidationError aggregates every violation found during a full
// validation pass. Callers always receive the complete list, never
// only the first failure.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func NewValidationError(violations []Violation) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid spreadsheet detected:\n\n%s", e.report())
}

// report renders violations grouped by partition, then by rule, the way
// operators read them back against the source sheet.
func (e *ValidationError) report() string {
	byGroup := make(map[string][]Violation)
	var groups []string
	for _, v := range e.Violations {
		if _, seen := byGroup[v.Group]; !seen {
			groups = append(groups, v.Group)
		}
		byGroup[v.Group] = append(byGroup[v.Group], v)
	}
	sort.Strings(groups)

	var b strings.Builder
	for i, group := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s]\n", group)
		for _, v := range byGroup[group] {
			fmt.Fprintf(&b, "  rule: %s\n", v.Rule)
			if len(v.Locations) > 0 {
				quoted := make([]string, len(v.Locations))
				for j, loc := range v.Locations {
					quoted[j] = fmt.Sprintf("%q", loc)
				}
				fmt.Fprintf(&b, "  location: %s\n", strings.Join(quoted, ", "))
			}
		}
	}
	return b.String()
}
