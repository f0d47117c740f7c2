package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskflow/internal/app"
	"taskflow/internal/exitcode"
	"taskflow/internal/guard"
	"taskflow/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	category    string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskflow add [--description <text>] [--category Work|Personal|Other] <title...>"
}
func (c *AddCmd) Route() string      { return guard.TasksPath }
func (c *AddCmd) NeedsRuntime() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.category, "category", string(service.CategoryWork), "")
	fs.StringVar(&c.category, "c", string(service.CategoryWork), "")
}

func (c *AddCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		return usageError(errOut, "Task title is required")
	}
	cat, err := service.ParseCategory(c.category)
	if err != nil {
		return usageError(errOut, "%s", err)
	}
	owner, err := rt.Owner()
	if err != nil {
		return fail(errOut, &service.Error{Kind: service.KindAuth, Message: "You must be logged in to create tasks", Err: err}, "")
	}

	task, err := rt.Tasks.Create(ctx, service.TaskInput{
		Title:       title,
		Description: c.description,
		Category:    cat,
		Status:      service.StatusPending,
		Owner:       owner,
	})
	if err != nil {
		return fail(errOut, err, rt.Tasks.Snapshot().Err)
	}
	if !rt.Config.Quiet {
		fmt.Fprintf(out, "created %s\n", task.ID)
	}
	return exitcode.Success
}
