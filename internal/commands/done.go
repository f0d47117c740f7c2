package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"taskflow/internal/app"
	"taskflow/internal/exitcode"
	"taskflow/internal/guard"
	"taskflow/internal/service"
)

// maxInFlight bounds concurrent mutations for multi-ref commands.
const maxInFlight = 4

func init() {
	Register(&DoneCmd{})
	Register(&UndoCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string   { return "Mark tasks completed" }
func (c *DoneCmd) Usage() string      { return "taskflow done <ref>..." }
func (c *DoneCmd) Route() string      { return guard.TasksPath }
func (c *DoneCmd) NeedsRuntime() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	return setStatus(ctx, rt, args, service.StatusCompleted, out, errOut)
}

// UndoCmd reopens completed tasks.
type UndoCmd struct{}

func (c *UndoCmd) Name() string       { return "undo" }
func (c *UndoCmd) Aliases() []string  { return []string{"reopen"} }
func (c *UndoCmd) Synopsis() string   { return "Mark tasks pending again" }
func (c *UndoCmd) Usage() string      { return "taskflow undo <ref>..." }
func (c *UndoCmd) Route() string      { return guard.TasksPath }
func (c *UndoCmd) NeedsRuntime() bool { return true }

func (c *UndoCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UndoCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	return setStatus(ctx, rt, args, service.StatusPending, out, errOut)
}

func setStatus(ctx context.Context, rt *app.Runtime, args []string, status service.Status, out, errOut io.Writer) int {
	return eachRef(ctx, rt, args, out, errOut, func(ctx context.Context, id string) error {
		_, err := rt.Tasks.ToggleStatus(ctx, id, status)
		return err
	})
}

// eachRef resolves args and applies fn to every task concurrently. Every
// failure is reported; the exit code is that of the first failing ref in
// argument order.
func eachRef(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer, fn func(context.Context, string) error) int {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		return fail(errOut, err, "")
	}
	ids, err := resolveRefs(ctx, rt, refs)
	if err != nil {
		return fail(errOut, err, rt.Tasks.Snapshot().Err)
	}

	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(maxInFlight)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = fn(ctx, id)
			return errs[i]
		})
	}
	_ = g.Wait()

	code := exitcode.Success
	for i, err := range errs {
		if err == nil {
			continue
		}
		msg := service.Message(err, err.Error())
		if len(ids) > 1 {
			msg = ids[i] + ": " + msg
		}
		fmt.Fprintf(errOut, "error: %s\n", msg)
		if code == exitcode.Success {
			code = exitcode.FromError(err)
		}
	}
	if code != exitcode.Success {
		return code
	}
	return ok(rt, out)
}
