package commands

import (
	"context"
	"flag"
	"io"

	"taskflow/internal/app"
	"taskflow/internal/guard"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete tasks" }
func (c *RmCmd) Usage() string      { return "taskflow rm <ref>..." }
func (c *RmCmd) Route() string      { return guard.TasksPath }
func (c *RmCmd) NeedsRuntime() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	return eachRef(ctx, rt, args, out, errOut, rt.Tasks.Delete)
}
