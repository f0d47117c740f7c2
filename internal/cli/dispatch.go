// Package cli parses the command line and dispatches to commands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"taskflow/internal/app"
	"taskflow/internal/commands"
	"taskflow/internal/config"
	"taskflow/internal/exitcode"
	"taskflow/internal/guard"
)

// RuntimeFactory builds the runtime for one invocation.
type RuntimeFactory func(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app.Runtime, error)

// DefaultFactory opens storage under the config directory and talks to cfg.BaseURL.
func DefaultFactory(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app.Runtime, error) {
	return app.New(ctx, cfg, app.WithLogger(log))
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  RuntimeFactory
}

// NewDispatcher creates a new dispatcher. A nil factory means DefaultFactory.
func NewDispatcher(registry *commands.Registry, factory RuntimeFactory) *Dispatcher {
	if factory == nil {
		factory = DefaultFactory
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		if cmdName != "" {
			if s := d.registry.Suggest(cmdName[:1]); len(s) > 0 {
				fmt.Fprintf(errOut, "did you mean: %s\n", strings.Join(s, ", "))
			}
		}
		return exitcode.UserError
	}

	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir, apiURL string
	var quiet, debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.StringVar(&apiURL, "api", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return flagError(errOut, err)
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	if !cmd.NeedsRuntime() {
		return cmd.Run(ctx, nil, positionalArgs, out, errOut)
	}

	cfg, err := config.Load(configDir, apiURL)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug
	log := app.NewLogger(errOut, debug)
	log.Debug("dispatch", "command", cmd.Name(), "api", cfg.BaseURL, "config", cfg.Dir)

	rt, err := d.factory(ctx, cfg, log)
	if err != nil {
		// Storage and gateway setup failures are backend errors, not auth.
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.FromError(err)
	}
	defer rt.Close()

	if code, stop := d.checkRoute(ctx, rt, cmd, out, errOut); stop {
		return code
	}
	return cmd.Run(ctx, rt, positionalArgs, out, errOut)
}

// checkRoute runs the route guard for cmd. stop reports that the guard
// redirected and code is the exit code to use.
func (d *Dispatcher) checkRoute(ctx context.Context, rt *app.Runtime, cmd commands.Command, out, errOut io.Writer) (code int, stop bool) {
	route := cmd.Route()
	if route == "" {
		return 0, false
	}
	token, err := rt.Creds.CookieToken(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError, true
	}

	dec := guard.Decide(guard.Request{Path: route, Token: token})
	if dec.Action == guard.Allow {
		return 0, false
	}
	rt.Log.Debug("route guard redirect", "from", route, "to", dec.Location)

	if dec.Location == guard.TasksPath {
		if !rt.Config.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success, true
	}
	fmt.Fprintln(errOut, "error: not logged in (run: taskflow login)")
	return exitcode.AuthError, true
}

func flagError(errOut io.Writer, err error) int {
	errStr := err.Error()

	// Check for missing flag value
	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		flagPart := strings.TrimSpace(parts[len(parts)-1])
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
		return exitcode.UserError
	}

	// Check for unknown flag
	if flagName, ok := strings.CutPrefix(errStr, "flag provided but not defined: "); ok {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return exitcode.UserError
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
	return exitcode.UserError
}
