package commands

import (
	"context"
	"flag"
	"io"
	"strings"

	"taskflow/internal/app"
	"taskflow/internal/guard"
	"taskflow/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// optString is a string flag that remembers whether it was given, so an
// explicit empty value can be told apart from an absent one.
type optString struct {
	val string
	set bool
}

func (o *optString) String() string { return o.val }

func (o *optString) Set(s string) error {
	o.val, o.set = s, true
	return nil
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optString
	description optString
	category    optString
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"update"} }
func (c *EditCmd) Synopsis() string  { return "Change a task's title, description or category" }
func (c *EditCmd) Usage() string {
	return "taskflow edit [--title <t>] [--description <d>] [--category <c>] <ref>"
}
func (c *EditCmd) Route() string      { return guard.TasksPath }
func (c *EditCmd) NeedsRuntime() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description, c.category = optString{}, optString{}, optString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
	fs.Var(&c.category, "category", "")
	fs.Var(&c.category, "c", "")
}

func (c *EditCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		return usageError(errOut, "exactly one task reference required")
	}
	patch, err := c.patch()
	if err != nil {
		return fail(errOut, err, "")
	}
	refs, err := ParseTaskRefs(args)
	if err != nil {
		return fail(errOut, err, "")
	}
	ids, err := resolveRefs(ctx, rt, refs)
	if err != nil {
		return fail(errOut, err, rt.Tasks.Snapshot().Err)
	}

	if _, err := rt.Tasks.Update(ctx, ids[0], patch); err != nil {
		return fail(errOut, err, rt.Tasks.Snapshot().Err)
	}
	return ok(rt, out)
}

func (c *EditCmd) patch() (service.TaskPatch, error) {
	var p service.TaskPatch
	if c.title.set {
		title := strings.TrimSpace(c.title.val)
		if title == "" {
			return p, service.Validationf("Task title is required")
		}
		p.Title = &title
	}
	if c.description.set {
		d := c.description.val
		p.Description = &d
	}
	if c.category.set {
		cat, err := service.ParseCategory(c.category.val)
		if err != nil {
			return p, service.Validationf("%s", err)
		}
		p.Category = &cat
	}
	if p.Empty() {
		return p, service.Validationf("nothing to update (use --title, --description or --category)")
	}
	return p, nil
}
