package cli

import (
	"context"
	"fmt"

	"github.com/wastewatch/wastewatch/internal/app"
	"github.com/wastewatch/wastewatch/internal/dashboard"
)

// WasteListCommand prints the waste taxonomy.
func (c *CLI) WasteListCommand(ctx context.Context, args []string) int {
	fs := c.flags("waste list")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	rt, code, ok := c.signedIn(ctx)
	if !ok {
		return code
	}
	wastes, err := rt.Client.ListWasteTypes(ctx)
	if err != nil {
		return c.fail(err, "load waste types")
	}
	return c.render("wastes", wastes)
}

// WasteAddCommand adds a waste type. Administrators only.
func (c *CLI) WasteAddCommand(ctx context.Context, args []string) int {
	fs := c.flags("waste add")
	var form dashboard.WasteTypeForm
	fs.StringVar(&form.Name, "name", "", "waste type name")
	fs.StringVar(&form.Description, "description", "", "what belongs to it")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	rt, code, ok := c.signedIn(ctx)
	if !ok {
		return code
	}
	created, err := rt.Dashboard.CreateWasteType(ctx, form)
	if err != nil {
		return c.fail(err, "manage waste types")
	}
	return c.say(fmt.Sprintf("Added waste type %q (#%d).", created.Name, created.ID))
}

// WasteDeleteCommand removes a waste type after confirmation.
func (c *CLI) WasteDeleteCommand(ctx context.Context, args []string) int {
	return c.deleteCommand(ctx, "waste type", args, func(ctx context.Context, rt *app.Runtime, id int64) error {
		return rt.Dashboard.DeleteWasteType(ctx, id)
	})
}

// UserDeleteCommand removes a user profile after confirmation.
func (c *CLI) UserDeleteCommand(ctx context.Context, args []string) int {
	return c.deleteCommand(ctx, "user", args, func(ctx context.Context, rt *app.Runtime, id int64) error {
		return rt.Dashboard.DeleteUser(ctx, id)
	})
}
