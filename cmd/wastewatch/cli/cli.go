// Package cli implements the wastewatch subcommands. Each command parses its
// own flags, prints human-readable output and returns a process exit code.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/app"
	"github.com/wastewatch/wastewatch/internal/auth"
	"github.com/wastewatch/wastewatch/internal/dashboard"
	"github.com/wastewatch/wastewatch/internal/shared"
	"github.com/wastewatch/wastewatch/internal/submission"
	"github.com/wastewatch/wastewatch/internal/view"
)

// Exit codes.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitUsage           = 2
	ExitUnauthenticated = 3
)

const authRequired = "Authentication required. Please login again."

// Options configures a Run.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// EnvFiles are loaded before the configuration. Variables already set in
	// the environment win.
	EnvFiles []string
}

// CLI executes one command against a wired runtime.
type CLI struct {
	stdin  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *app.Config
	logger *slog.Logger
	views  *view.Engine
	rt     *app.Runtime
	assume bool
}

var usageText = `usage: wastewatch <command> [flags]

commands:
  login -u NAME [-p PASSWORD]      sign in (password read from stdin when omitted)
  register -u NAME -email EMAIL -p PASSWORD -confirm PASSWORD [-role citizen|officer]
  logout                           sign out
  whoami                           show the signed-in account
  dashboard [-tab T] [-json]       show reports, users or waste types
  report submit -type T -location L -description D [-image FILE]
  report status -id N -status pending|in_progress|resolved
  report delete -id N [-yes]
  waste list | add -name N -description D | delete -id N [-yes]
  user delete -id N [-yes]
  mock-server [-addr HOST:PORT]    serve the in-memory backend
`

// Run executes args (without the program name) and returns the exit code.
func Run(ctx context.Context, args []string, opts Options) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		_, _ = io.WriteString(opts.Stderr, usageText)
		if len(args) == 0 {
			return ExitUsage
		}
		return ExitOK
	}
	if len(opts.EnvFiles) > 0 {
		if err := godotenv.Load(opts.EnvFiles...); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "load env: %v\n", err)
			return ExitFailure
		}
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "config: %v\n", err)
		return ExitFailure
	}
	views, err := view.NewEngine()
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "templates: %v\n", err)
		return ExitFailure
	}
	c := &CLI{
		stdin:  bufio.NewReader(opts.Stdin),
		stdout: opts.Stdout,
		stderr: opts.Stderr,
		cfg:    cfg,
		logger: app.NewLogger(cfg, opts.Stderr),
		views:  views,
	}
	defer c.close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return c.LoginCommand(ctx, rest)
	case "register":
		return c.RegisterCommand(ctx, rest)
	case "logout":
		return c.LogoutCommand(ctx, rest)
	case "whoami":
		return c.WhoamiCommand(ctx, rest)
	case "dashboard":
		return c.DashboardCommand(ctx, rest)
	case "report":
		return c.dispatch(ctx, "report", rest, map[string]func(context.Context, []string) int{
			"submit": c.ReportSubmitCommand,
			"status": c.ReportStatusCommand,
			"delete": c.ReportDeleteCommand,
		})
	case "waste":
		return c.dispatch(ctx, "waste", rest, map[string]func(context.Context, []string) int{
			"list":   c.WasteListCommand,
			"add":    c.WasteAddCommand,
			"delete": c.WasteDeleteCommand,
		})
	case "user":
		return c.dispatch(ctx, "user", rest, map[string]func(context.Context, []string) int{
			"delete": c.UserDeleteCommand,
		})
	case "mock-server":
		return c.MockServerCommand(ctx, rest)
	}
	_, _ = fmt.Fprintf(opts.Stderr, "unknown command %q\n\n%s", cmd, usageText)
	return ExitUsage
}

func (c *CLI) dispatch(ctx context.Context, group string, args []string, subs map[string]func(context.Context, []string) int) int {
	if len(args) == 0 {
		c.errorf("%s: subcommand required", group)
		return ExitUsage
	}
	fn, ok := subs[args[0]]
	if !ok {
		c.errorf("%s: unknown subcommand %q", group, args[0])
		return ExitUsage
	}
	return fn(ctx, args[1:])
}

func (c *CLI) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// parse returns an exit code and false when the command should stop.
func (c *CLI) parse(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK, false
		}
		return ExitUsage, false
	}
	return ExitOK, true
}

func (c *CLI) runtime(ctx context.Context) (*app.Runtime, error) {
	if c.rt != nil {
		return c.rt, nil
	}
	rt, err := app.Build(ctx, app.BuildParams{Config: c.cfg, Logger: c.logger, Confirm: c})
	if err != nil {
		return nil, err
	}
	c.rt = rt
	return rt, nil
}

// signedIn returns the runtime when a session is active.
func (c *CLI) signedIn(ctx context.Context) (*app.Runtime, int, bool) {
	rt, err := c.runtime(ctx)
	if err != nil {
		c.errorf("%v", err)
		return nil, ExitFailure, false
	}
	if !rt.Sessions.Snapshot().Authenticated() {
		c.errorf("Not signed in. Run `wastewatch login` first.")
		return nil, ExitUnauthenticated, false
	}
	return rt, ExitOK, true
}

func (c *CLI) close() {
	if c.rt == nil {
		return
	}
	if err := c.rt.Close(); err != nil {
		c.logger.Warn("close runtime", slog.Any("error", err))
	}
}

// Confirm implements dashboard.Confirmer by prompting on stderr.
func (c *CLI) Confirm(ctx context.Context, prompt string) bool {
	if c.assume {
		return true
	}
	_, _ = fmt.Fprintf(c.stderr, "%s [y/N]: ", prompt)
	line, err := c.stdin.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *CLI) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.stderr, format+"\n", args...)
}

func (c *CLI) render(name string, data any) int {
	if err := c.views.Render(c.stdout, name, data); err != nil {
		c.errorf("render %s: %v", name, err)
		return ExitFailure
	}
	return ExitOK
}

func (c *CLI) say(message string) int {
	return c.render("message", message)
}

// fail prints the message for err and maps it to an exit code.
func (c *CLI) fail(err error, action string) int {
	var (
		flow *auth.FlowError
		sub  *submission.Error
		form *auth.FormError
	)
	switch {
	case errors.As(err, &flow):
		c.errorf("%s", flow.Message)
		if flow.Op != "login" && errors.Is(err, api.ErrUnauthorized) {
			return ExitUnauthenticated
		}
		return ExitFailure
	case errors.As(err, &form):
		c.errorf("%s", form.Error())
		return ExitUsage
	case errors.As(err, &sub):
		c.errorf("%s", sub.Message)
		switch {
		case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, api.ErrUnauthorized):
			return ExitUnauthenticated
		case errors.Is(err, shared.ErrInvalidInput):
			return ExitUsage
		}
		return ExitFailure
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, api.ErrUnauthorized), errors.Is(err, dashboard.ErrStale):
		c.errorf(authRequired)
		return ExitUnauthenticated
	case errors.Is(err, shared.ErrDeclined):
		c.errorf("Cancelled.")
		return ExitFailure
	case errors.Is(err, shared.ErrForbidden):
		c.errorf("You do not have permission to %s.", action)
		return ExitFailure
	}
	code := ExitFailure
	if errors.Is(err, shared.ErrInvalidInput) {
		code = ExitUsage
	}
	if c.rt != nil {
		if banner := c.rt.Dashboard.State().Error; banner != "" {
			c.errorf("%s", banner)
			return code
		}
	}
	if _, ok := api.AsError(err); ok {
		c.errorf("%s", api.UserMessage(err, action))
		return code
	}
	c.errorf("%v", err)
	return code
}
