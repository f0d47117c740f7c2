package commands

import (
	"context"
	"flag"
	"io"

	"taskflow/internal/app"
	"taskflow/internal/exitcode"
	"taskflow/internal/guard"
	"taskflow/internal/output"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd prints one task in full.
type ShowCmd struct{}

func (c *ShowCmd) Name() string       { return "show" }
func (c *ShowCmd) Aliases() []string  { return []string{"get"} }
func (c *ShowCmd) Synopsis() string   { return "Show a task" }
func (c *ShowCmd) Usage() string      { return "taskflow show <ref>" }
func (c *ShowCmd) Route() string      { return guard.TasksPath }
func (c *ShowCmd) NeedsRuntime() bool { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		return usageError(errOut, "exactly one task reference required")
	}
	refs, err := ParseTaskRefs(args)
	if err != nil {
		return fail(errOut, err, "")
	}
	ids, err := resolveRefs(ctx, rt, refs)
	if err != nil {
		return fail(errOut, err, rt.Tasks.Snapshot().Err)
	}

	task, err := rt.Tasks.Fetch(ctx, ids[0])
	if err != nil {
		return fail(errOut, err, rt.Tasks.Snapshot().Err)
	}
	output.FormatTaskDetail(out, task)
	return exitcode.Success
}
