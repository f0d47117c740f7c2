package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"taskflow/internal/app"
	"taskflow/internal/exitcode"
	"taskflow/internal/guard"
	"taskflow/internal/output"
	"taskflow/internal/service"
)

// Stdin supplies passwords that were not given as flags. Tests replace it.
var Stdin io.Reader = os.Stdin

func init() {
	Register(&LoginCmd{})
	Register(&OTPCmd{})
	Register(&SignupCmd{})
	Register(&LogoutCmd{})
	Register(&WhoamiCmd{})
}

// secrets reads newline-terminated values from Stdin on demand.
type secrets struct {
	r *bufio.Reader
}

func newSecrets() *secrets {
	return &secrets{r: bufio.NewReader(Stdin)}
}

// next returns flagVal if set, otherwise the next line of input.
func (s *secrets) next(flagVal, what string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	line, err := s.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", service.Validationf("%s required", what)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// authFail reports a session store failure using the message the store
// recorded, so the CLI shows exactly what the store holds.
func authFail(rt *app.Runtime, errOut io.Writer, err error) int {
	return fail(errOut, err, rt.Session.Snapshot().Error)
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Sign in with email and password" }
func (c *LoginCmd) Usage() string      { return "taskflow login [--email <email>] [--password <password>] [<email>]" }
func (c *LoginCmd) Route() string      { return guard.LoginPath }
func (c *LoginCmd) NeedsRuntime() bool { return true }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.email, "e", "", "")
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	email := c.email
	if email == "" && len(args) > 0 {
		email = args[0]
	}
	if strings.TrimSpace(email) == "" {
		return usageError(errOut, "email required")
	}
	password, err := newSecrets().next(c.password, "password")
	if err != nil {
		return fail(errOut, err, "")
	}

	if err := rt.Session.Login(ctx, email, password); err != nil {
		return authFail(rt, errOut, err)
	}
	if !rt.Config.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", rt.Session.Session().DisplayName())
	}
	return exitcode.Success
}

// OTPCmd implements the otp command, the first step of signup.
type OTPCmd struct{}

func (c *OTPCmd) Name() string       { return "otp" }
func (c *OTPCmd) Aliases() []string  { return []string{"sendotp"} }
func (c *OTPCmd) Synopsis() string   { return "Email a signup code" }
func (c *OTPCmd) Usage() string      { return "taskflow otp <email>" }
func (c *OTPCmd) Route() string      { return guard.SignupPath }
func (c *OTPCmd) NeedsRuntime() bool { return true }

func (c *OTPCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *OTPCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return usageError(errOut, "exactly one email required")
	}
	if err := rt.Session.SendOTP(ctx, args[0]); err != nil {
		return authFail(rt, errOut, err)
	}
	if !rt.Config.Quiet {
		fmt.Fprintf(out, "otp sent to %s (run: taskflow signup --otp <code>)\n", rt.Session.Snapshot().OTPEmail)
	}
	return exitcode.Success
}

// SignupCmd implements the signup command.
type SignupCmd struct {
	first    string
	last     string
	email    string
	password string
	confirm  string
	otp      string
}

func (c *SignupCmd) Name() string      { return "signup" }
func (c *SignupCmd) Aliases() []string { return nil }
func (c *SignupCmd) Synopsis() string  { return "Create an account with a mailed code" }
func (c *SignupCmd) Usage() string {
	return "taskflow signup --first <name> [--last <name>] [--email <email>] --otp <code> [--password <pw> --confirm <pw>]"
}
func (c *SignupCmd) Route() string      { return guard.SignupPath }
func (c *SignupCmd) NeedsRuntime() bool { return true }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.first, "first", "", "")
	fs.StringVar(&c.last, "last", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.confirm, "confirm", "", "")
	fs.StringVar(&c.otp, "otp", "", "")
}

func (c *SignupCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	email := c.email
	if email == "" {
		// Defaults to where the code was sent.
		email = rt.Session.Snapshot().OTPEmail
	}

	in := newSecrets()
	password, err := in.next(c.password, "password")
	if err != nil {
		return fail(errOut, err, "")
	}
	confirm, err := in.next(c.confirm, "password confirmation")
	if err != nil {
		return fail(errOut, err, "")
	}

	err = rt.Session.Signup(ctx, service.SignupInput{
		FirstName:       c.first,
		LastName:        c.last,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
		OTP:             c.otp,
	})
	if err != nil {
		return authFail(rt, errOut, err)
	}
	if !rt.Config.Quiet {
		fmt.Fprintf(out, "signed up as %s\n", rt.Session.Session().DisplayName())
	}
	return exitcode.Success
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Remove the stored session" }
func (c *LogoutCmd) Usage() string      { return "taskflow logout" }
func (c *LogoutCmd) Route() string      { return "" }
func (c *LogoutCmd) NeedsRuntime() bool { return true }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	wasIn := rt.Session.IsAuthenticated()
	// Clears storage even when memory holds nothing, so a half-written
	// session cannot survive.
	if err := rt.Session.Logout(ctx); err != nil {
		return authFail(rt, errOut, err)
	}
	if !wasIn {
		if !rt.Config.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}
	return ok(rt, out)
}

// WhoamiCmd prints the signed-in user.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string       { return "whoami" }
func (c *WhoamiCmd) Aliases() []string  { return nil }
func (c *WhoamiCmd) Synopsis() string   { return "Show the signed-in user" }
func (c *WhoamiCmd) Usage() string      { return "taskflow whoami" }
func (c *WhoamiCmd) Route() string      { return "" }
func (c *WhoamiCmd) NeedsRuntime() bool { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, rt *app.Runtime, args []string, out, errOut io.Writer) int {
	sess := rt.Session.Session()
	if sess == nil {
		fmt.Fprintln(errOut, "error: not logged in (run: taskflow login)")
		return exitcode.AuthError
	}
	output.FormatSession(out, *sess)
	return exitcode.Success
}
