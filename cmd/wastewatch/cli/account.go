package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wastewatch/wastewatch/internal/auth"
	"github.com/wastewatch/wastewatch/internal/view"
)

// LoginCommand signs in and persists the session.
func (c *CLI) LoginCommand(ctx context.Context, args []string) int {
	fs := c.flags("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (read from stdin when empty)")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if *password == "" {
		_, _ = fmt.Fprint(c.stderr, "Password: ")
		line, _ := c.stdin.ReadString('\n')
		*password = strings.TrimRight(line, "\r\n")
	}
	rt, err := c.runtime(ctx)
	if err != nil {
		c.errorf("%v", err)
		return ExitFailure
	}
	res, err := rt.Auth.Login(ctx, auth.LoginForm{Username: *username, Password: *password})
	if err != nil {
		return c.fail(err, "sign in")
	}
	return c.say(fmt.Sprintf("Signed in as %s (%s).", res.User.DisplayName(), view.RoleLabel(res.User.Role)))
}

// RegisterCommand creates an account. It does not sign in.
func (c *CLI) RegisterCommand(ctx context.Context, args []string) int {
	fs := c.flags("register")
	var form auth.RegisterForm
	fs.StringVar(&form.Username, "u", "", "username")
	fs.StringVar(&form.Email, "email", "", "email address")
	fs.StringVar(&form.Password, "p", "", "password")
	fs.StringVar(&form.ConfirmPassword, "confirm", "", "password again")
	fs.StringVar(&form.FirstName, "first", "", "first name")
	fs.StringVar(&form.LastName, "last", "", "last name")
	fs.StringVar(&form.PhoneNumber, "phone", "", "phone number")
	fs.StringVar(&form.Role, "role", "citizen", "citizen or officer")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	rt, err := c.runtime(ctx)
	if err != nil {
		c.errorf("%v", err)
		return ExitFailure
	}
	res, err := rt.Auth.Register(ctx, form)
	if err != nil {
		return c.fail(err, "register")
	}
	return c.say(res.Message)
}

// LogoutCommand ends the session. Signing out twice is not an error.
func (c *CLI) LogoutCommand(ctx context.Context, args []string) int {
	fs := c.flags("logout")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	rt, err := c.runtime(ctx)
	if err != nil {
		c.errorf("%v", err)
		return ExitFailure
	}
	if rt.Sessions.Snapshot().Authenticated() {
		if err := rt.Client.Logout(ctx); err != nil {
			c.logger.Warn("backend logout failed", slog.Any("error", err))
		}
	}
	rt.Sessions.Logout(ctx)
	return c.say("Signed out.")
}

// WhoamiCommand prints the signed-in identity and token expiry.
func (c *CLI) WhoamiCommand(ctx context.Context, args []string) int {
	fs := c.flags("whoami")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	rt, code, ok := c.signedIn(ctx)
	if !ok {
		return code
	}
	data := view.AccountData{User: *rt.Sessions.Snapshot().User}
	token := rt.Store.AccessToken(ctx)
	expires, err := auth.AccessExpiry(token)
	switch {
	case err == nil:
		data.HasExpiry = true
		data.Expires = expires
		data.Expired = auth.Expired(token, time.Now())
	case !errors.Is(err, auth.ErrNoExpiry):
		c.logger.Debug("access token unreadable", slog.Any("error", err))
	}
	return c.render("whoami", data)
}
