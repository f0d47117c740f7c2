// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskflow/internal/app"
	"taskflow/internal/exitcode"
	"taskflow/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Route returns the navigation path the route guard checks before Run,
	// or "" when the command is not guarded.
	Route() string

	// NeedsRuntime returns false for commands that touch neither storage
	// nor the network (help, version).
	NeedsRuntime() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// rt is nil if NeedsRuntime() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int
}

// fail prints err and returns its exit code. fallback is shown when err
// carries no message of its own; with no fallback the raw error is shown.
func fail(errOut io.Writer, err error, fallback string) int {
	msg := service.Message(err, fallback)
	if msg == "" {
		msg = err.Error()
	}
	fmt.Fprintf(errOut, "error: %s\n", msg)
	return exitcode.FromError(err)
}

// ok prints the success marker unless quiet.
func ok(rt *app.Runtime, out io.Writer) int {
	if !rt.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// usageError prints a usage problem.
func usageError(errOut io.Writer, format string, args ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}
