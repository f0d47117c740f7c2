package commands

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"taskflow/internal/app"
	"taskflow/internal/service"
)

// TaskRef is a parsed task reference: either a task id or a 1-based number
// in `taskflow list` order.
type TaskRef struct {
	ID  string
	Num int
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = service.Validationf("task reference required")

// ParseTaskRef parses one reference.
// All digits is a list number; anything else without whitespace is an id.
func ParseTaskRef(arg string) (TaskRef, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if isAllDigits(arg) {
		num, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, service.Validationf("invalid task reference: %s", arg)
		}
		if num < 1 {
			return TaskRef{}, service.Validationf("task number out of range: %d", num)
		}
		return TaskRef{Num: num}, nil
	}
	if strings.IndexFunc(arg, unicode.IsSpace) >= 0 {
		return TaskRef{}, service.Validationf("invalid task reference: %s", arg)
	}
	return TaskRef{ID: arg}, nil
}

// ParseTaskRefs parses every arg as a reference. At least one is required.
func ParseTaskRefs(args []string) ([]TaskRef, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	refs := make([]TaskRef, 0, len(args))
	for _, a := range args {
		ref, err := ParseTaskRef(a)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveRefs turns references into task ids, in order and without
// duplicates. Numbers are resolved against a fresh load of all tasks, which
// also leaves the collection populated for the mutations that follow.
func resolveRefs(ctx context.Context, rt *app.Runtime, refs []TaskRef) ([]string, error) {
	var items []service.Task
	for _, r := range refs {
		if r.Num == 0 {
			continue
		}
		owner, err := rt.Owner()
		if err != nil {
			return nil, err
		}
		if items, err = rt.Tasks.LoadAll(ctx, owner); err != nil {
			return nil, err
		}
		break
	}

	ids := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, r := range refs {
		id := r.ID
		if r.Num > 0 {
			if r.Num > len(items) {
				return nil, service.Validationf("task number out of range: %d", r.Num)
			}
			id = items[r.Num-1].ID
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}
