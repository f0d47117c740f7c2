package collection

import (
	"strings"

	"taskflow/internal/service"
)

// Filter narrows a list on the client. Zero fields match everything; set
// fields are ANDed.
type Filter struct {
	// Query matches title or description, case-insensitively.
	Query    string
	Category service.Category
	Status   service.Status
}

// Empty reports whether f matches every task.
func (f Filter) Empty() bool {
	return strings.TrimSpace(f.Query) == "" && f.Category == "" && f.Status == ""
}

// Match reports whether t satisfies f.
func (f Filter) Match(t service.Task) bool {
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// Apply returns the tasks matching f, in order. The input is not modified.
func (f Filter) Apply(items []service.Task) []service.Task {
	out := make([]service.Task, 0, len(items))
	for _, t := range items {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
