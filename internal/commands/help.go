package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskflow/internal/app"
	"taskflow/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "taskflow help [command]" }
func (c *HelpCmd) Route() string      { return "" }
func (c *HelpCmd) NeedsRuntime() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(out, helpText)
		return exitcode.Success
	}
	cmd, found := DefaultRegistry.Find(args[0])
	if !found {
		return usageError(errOut, "unknown command: %s", args[0])
	}
	fmt.Fprintf(out, "%s\n\nUsage:\n  %s\n", cmd.Synopsis(), cmd.Usage())
	return exitcode.Success
}

const helpText = `Usage:
  taskflow                                     List all tasks
  taskflow list [flags]                        List tasks
      --category <c> | --pending | --completed | --search <q>   server-side view (one at most)
      --filter <q>  --status <s>  --in <c>                      narrow on the client
  taskflow show <ref>
  taskflow add [--description <d>] [--category <c>] <title...>
  taskflow edit [--title <t>] [--description <d>] [--category <c>] <ref>
  taskflow done <ref>...
  taskflow undo <ref>...
  taskflow rm <ref>...
  taskflow otp <email>
  taskflow signup --first <name> [--last <name>] [--email <email>] --otp <code>
  taskflow login [--email <email>] [--password <pw>]
  taskflow logout
  taskflow whoami
  taskflow help [command]
  taskflow version

A <ref> is a task id or a number from the plain "taskflow list" output.
Categories: Work, Personal, Other. Statuses: Pending, Completed.
Passwords not given as flags are read from stdin, one per line.

Common flags:
  --config <dir>   Override config directory
  --api <url>      Override the API base URL (default from TASKFLOW_API_URL)
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
