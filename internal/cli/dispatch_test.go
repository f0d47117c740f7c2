package cli_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"taskflow/internal/app"
	"taskflow/internal/cli"
	"taskflow/internal/commands"
	"taskflow/internal/config"
	"taskflow/internal/exitcode"
	"taskflow/internal/service"
	"taskflow/internal/testutil"
)

// harness runs the dispatcher against a stub API and a temp config dir.
type harness struct {
	t   *testing.T
	srv *testutil.APIServer
	dir string
	d   *cli.Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("TASKFLOW_API_URL", "")
	return &harness{
		t:   t,
		srv: testutil.NewAPIServer(t, testutil.NewFakeService()),
		dir: t.TempDir(),
		d:   cli.NewDispatcher(commands.DefaultRegistry, cli.DefaultFactory),
	}
}

// run executes "taskflow <cmd> --config <dir> --api <url> <rest...>".
func (h *harness) run(cmd string, rest ...string) (stdout, stderr string, code int) {
	h.t.Helper()
	args := append([]string{cmd, "--config", h.dir, "--api", h.srv.URL}, rest...)
	var out, errOut bytes.Buffer
	code = h.d.Run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func (h *harness) login() {
	h.t.Helper()
	h.srv.Svc.AddUser(service.User{ID: "u1", FirstName: "Ada", Email: "ada@example.com"}, "pw")
	if _, stderr, code := h.run("login", "--email", "ada@example.com", "--password", "pw"); code != exitcode.Success {
		h.t.Fatalf("login: code %d, stderr %q", code, stderr)
	}
}

func runBare(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	d := cli.NewDispatcher(commands.DefaultRegistry, nil)
	var out, errOut bytes.Buffer
	code := d.Run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := runBare(t, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: unknown command: unknowncmd\n") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if !strings.Contains(stderr, "did you mean: undo, update") {
		t.Errorf("expected suggestions, got %q", stderr)
	}
}

func TestDispatcher_EmptyCommand(t *testing.T) {
	stdout, stderr, code := runBare(t, "")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown command: \n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
}

func TestDispatcher_RuntimeFailureExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"storage failure", errors.New("failed to open state.db: file is not a database"), exitcode.BackendError},
		{"auth failure", &service.Error{Kind: service.KindAuth, Message: "session rejected"}, exitcode.AuthError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TASKFLOW_API_URL", "")
			factory := func(context.Context, *config.Config, *slog.Logger) (*app.Runtime, error) {
				return nil, tt.err
			}
			d := cli.NewDispatcher(commands.DefaultRegistry, factory)
			var out, errOut bytes.Buffer
			code := d.Run(context.Background(), []string{"whoami", "--config", t.TempDir()}, &out, &errOut)

			if code != tt.want {
				t.Errorf("expected exit code %d, got %d", tt.want, code)
			}
			if want := "error: " + tt.err.Error() + "\n"; errOut.String() != want {
				t.Errorf("expected %q, got %q", want, errOut.String())
			}
		})
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := runBare(t, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := runBare(t, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := runBare(t, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "taskflow 0.1.0\n" {
		t.Errorf("expected 'taskflow 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := runBare(t, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_InvalidAPIURL(t *testing.T) {
	h := newHarness(t)
	var out, errOut bytes.Buffer
	code := h.d.Run(context.Background(), []string{"whoami", "--config", h.dir, "--api", "localhost:4000"}, &out, &errOut)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if errOut.String() != "error: invalid api url: localhost:4000\n" {
		t.Errorf("unexpected stderr %q", errOut.String())
	}
}

func TestGuard_TaskCommandsRequireLogin(t *testing.T) {
	h := newHarness(t)

	for _, cmd := range []string{"list", "add", "done", "rm", "show", "edit", "undo"} {
		t.Run(cmd, func(t *testing.T) {
			_, stderr, code := h.run(cmd, "1")
			if code != exitcode.AuthError {
				t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
			}
			if stderr != "error: not logged in (run: taskflow login)\n" {
				t.Errorf("unexpected stderr %q", stderr)
			}
		})
	}
	if got := h.srv.Requests(); len(got) != 0 {
		t.Errorf("guarded commands reached the API: %v", got)
	}
}

func TestGuard_PublicCommandsRedirectWhenLoggedIn(t *testing.T) {
	h := newHarness(t)
	h.login()

	for _, args := range [][]string{
		{"login", "--email", "x@example.com", "--password", "pw"},
		{"otp", "x@example.com"},
		{"signup", "--first", "X", "--otp", "123456", "--password", "a", "--confirm", "a"},
	} {
		t.Run(args[0], func(t *testing.T) {
			stdout, stderr, code := h.run(args[0], args[1:]...)
			if code != exitcode.Success {
				t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
			}
			if stdout != "already logged in\n" {
				t.Errorf("unexpected stdout %q", stdout)
			}
		})
	}
	if got := h.srv.Requests(); len(got) != 1 {
		t.Errorf("expected only the first login to reach the API, got %v", got)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)
	h.srv.Svc.AddUser(service.User{ID: "u1", Email: "ada@example.com"}, "pw")

	_, stderr, code := h.run("login", "--email", "ada@example.com", "--password", "nope")
	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: Invalid credentials\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}

	// Still signed out.
	if _, _, code := h.run("whoami"); code != exitcode.AuthError {
		t.Errorf("whoami after failed login: code %d", code)
	}
}

func TestSignupAndTaskLifecycle(t *testing.T) {
	h := newHarness(t)

	stdout, stderr, code := h.run("otp", "a@b.com")
	if code != exitcode.Success {
		t.Fatalf("otp: code %d, stderr %q", code, stderr)
	}
	if !strings.HasPrefix(stdout, "otp sent to a@b.com") {
		t.Errorf("otp stdout = %q", stdout)
	}

	// The pending code survives into the next invocation; email defaults to it.
	stdout, stderr, code = h.run("signup", "--first", "Ada", "--last", "Lovelace",
		"--otp", h.srv.Svc.PendingOTP("a@b.com"), "--password", "pw", "--confirm", "pw")
	if code != exitcode.Success {
		t.Fatalf("signup: code %d, stderr %q", code, stderr)
	}
	if stdout != "signed up as Ada Lovelace\n" {
		t.Errorf("signup stdout = %q", stdout)
	}

	if stdout, _, _ := h.run("whoami"); stdout != "Ada Lovelace <a@b.com>\n" {
		t.Errorf("whoami = %q", stdout)
	}

	if stdout, _, code := h.run("list"); code != exitcode.Success || stdout != "no tasks found\n" {
		t.Errorf("empty list: code %d, stdout %q", code, stdout)
	}

	if _, stderr, code := h.run("add", "--category", "personal", "Buy", "milk"); code != exitcode.Success {
		t.Fatalf("add: code %d, stderr %q", code, stderr)
	}
	if _, stderr, code := h.run("add", "-c", "Work", "Ship report"); code != exitcode.Success {
		t.Fatalf("add: code %d, stderr %q", code, stderr)
	}

	if _, stderr, code := h.run("done", "1"); code != exitcode.Success {
		t.Fatalf("done: code %d, stderr %q", code, stderr)
	}
	stdout, _, _ = h.run("list")
	want := "   1  [x] Buy milk  (Personal)\n   2  [ ] Ship report  (Work)\n2 tasks, 1 pending, 1 completed\n"
	if stdout != want {
		t.Errorf("list:\n got %q\nwant %q", stdout, want)
	}

	if _, stderr, code := h.run("rm", "1"); code != exitcode.Success {
		t.Fatalf("rm: code %d, stderr %q", code, stderr)
	}
	if stdout, _, _ := h.run("list", "--quiet"); stdout != "   1  [ ] Ship report  (Work)\n" {
		t.Errorf("list after rm = %q", stdout)
	}

	if stdout, _, code := h.run("logout"); code != exitcode.Success || stdout != "ok\n" {
		t.Errorf("logout: code %d, stdout %q", code, stdout)
	}
	if _, _, code := h.run("list"); code != exitcode.AuthError {
		t.Errorf("list after logout: code %d", code)
	}
	if stdout, _, code := h.run("logout"); code != exitcode.Success || stdout != "not logged in\n" {
		t.Errorf("second logout: code %d, stdout %q", code, stdout)
	}
}

func TestNoArgsListsTasks(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.srv.Svc.AddTask("u1", "t-a", "Gym", service.CategoryPersonal, service.StatusPending)

	// Bare invocation cannot carry --config, so point the environment at the harness.
	t.Setenv("TASKFLOW_CONFIG_DIR", h.dir)
	t.Setenv("TASKFLOW_API_URL", h.srv.URL)
	var out, errOut bytes.Buffer
	code := h.d.Run(context.Background(), nil, &out, &errOut)

	if code != exitcode.Success {
		t.Fatalf("code %d, stderr %q", code, errOut.String())
	}
	if !strings.HasPrefix(out.String(), "   1  [ ] Gym  (Personal)\n") {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestList_ConflictingViews(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, stderr, code := h.run("list", "--pending", "--completed")
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "only one of") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDebugLogsToStderr(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, stderr, code := h.run("list", "--debug")
	if code != exitcode.Success {
		t.Fatalf("code %d", code)
	}
	if !strings.Contains(stderr, "level=DEBUG") || !strings.Contains(stderr, "command=list") {
		t.Errorf("expected debug logs, got %q", stderr)
	}
}
