package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"taskflow/internal/app"
	"taskflow/internal/collection"
	"taskflow/internal/exitcode"
	"taskflow/internal/guard"
	"taskflow/internal/output"
	"taskflow/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
//
// --category, --pending, --completed and --search select a server-side
// view; at most one may be given. --filter, --status and --in narrow the
// result on the client.
type ListCmd struct {
	category  string
	pending   bool
	completed bool
	search    string

	filter string
	status string
	in     string
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "taskflow list [--category <c> | --pending | --completed | --search <q>] [--filter <q>] [--status <s>] [--in <c>]"
}
func (c *ListCmd) Route() string      { return guard.TasksPath }
func (c *ListCmd) NeedsRuntime() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.BoolVar(&c.pending, "pending", false, "")
	fs.BoolVar(&c.completed, "completed", false, "")
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.filter, "filter", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.in, "in", "", "")
}

func (c *ListCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	views := 0
	for _, set := range []bool{c.category != "", c.pending, c.completed, c.search != ""} {
		if set {
			views++
		}
	}
	if views > 1 {
		return usageError(errOut, "only one of --category, --pending, --completed, --search may be used")
	}

	f, err := c.clientFilter()
	if err != nil {
		return fail(errOut, err, "")
	}
	owner, err := rt.Owner()
	if err != nil {
		return fail(errOut, err, "")
	}

	items, err := c.load(ctx, rt, owner)
	if err != nil {
		if errors.Is(err, collection.ErrSuperseded) {
			return exitcode.Success
		}
		return fail(errOut, err, rt.Tasks.Snapshot().Err)
	}

	// Only the plain view numbers tasks, so numbers stay valid references.
	numbered := views == 0
	shown := 0
	for i, t := range items {
		if !f.Match(t) {
			continue
		}
		shown++
		if numbered {
			output.FormatTask(out, i+1, t)
		} else {
			output.FormatTaskID(out, t)
		}
	}

	if rt.Config.Quiet {
		return exitcode.Success
	}
	if shown == 0 {
		fmt.Fprintln(out, "no tasks found")
		return exitcode.Success
	}
	output.FormatSummary(out, f.Apply(items))
	return exitcode.Success
}

func (c *ListCmd) clientFilter() (collection.Filter, error) {
	f := collection.Filter{Query: c.filter}
	if c.status != "" {
		s, err := service.ParseStatus(c.status)
		if err != nil {
			return f, service.Validationf("%s", err)
		}
		f.Status = s
	}
	if c.in != "" {
		cat, err := service.ParseCategory(c.in)
		if err != nil {
			return f, service.Validationf("%s", err)
		}
		f.Category = cat
	}
	return f, nil
}

func (c *ListCmd) load(ctx context.Context, rt *app.Runtime, owner string) ([]service.Task, error) {
	switch {
	case c.category != "":
		cat, err := service.ParseCategory(c.category)
		if err != nil {
			return nil, service.Validationf("%s", err)
		}
		return rt.Tasks.LoadByCategory(ctx, owner, cat)
	case c.pending:
		return rt.Tasks.LoadPending(ctx, owner)
	case c.completed:
		return rt.Tasks.LoadCompleted(ctx, owner)
	case c.search != "":
		return rt.Tasks.Search(ctx, c.search)
	}
	return rt.Tasks.LoadAll(ctx, owner)
}
