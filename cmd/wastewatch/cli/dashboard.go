package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wastewatch/wastewatch/internal/dashboard"
	"github.com/wastewatch/wastewatch/internal/shared"
	"github.com/wastewatch/wastewatch/internal/view"
)

// DashboardSummary is the -json form of the dashboard.
type DashboardSummary struct {
	Greeting string       `json:"greeting"`
	Role     shared.Role  `json:"role"`
	Tabs     []string     `json:"tabs"`
	Tab      string       `json:"tab"`
	Title    string       `json:"title"`
	Columns  []string     `json:"columns"`
	Rows     []SummaryRow `json:"rows"`
	Empty    []string     `json:"empty,omitempty"`
	Error    string       `json:"error,omitempty"`
	Notices  []string     `json:"notices,omitempty"`
}

// SummaryRow is one table row of the JSON dashboard.
type SummaryRow struct {
	ID       int64    `json:"id"`
	Cells    []string `json:"cells"`
	Status   string   `json:"status,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Actions  []string `json:"actions,omitempty"`
}

// DashboardCommand loads the viewer's collections and prints one tab.
func (c *CLI) DashboardCommand(ctx context.Context, args []string) int {
	fs := c.flags("dashboard")
	rawTab := fs.String("tab", string(dashboard.TabReports), "reports, users or waste")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	tab, ok := dashboard.ParseTab(*rawTab)
	if !ok {
		c.errorf("dashboard: unknown tab %q", *rawTab)
		return ExitUsage
	}
	rt, code, ok := c.signedIn(ctx)
	if !ok {
		return code
	}
	if err := rt.Dashboard.SetTab(tab); err != nil {
		return c.fail(err, fmt.Sprintf("open the %s tab", tab.Label()))
	}
	if err := rt.Dashboard.Load(ctx); err != nil {
		return c.fail(err, "load the dashboard")
	}
	page, ok := rt.Dashboard.Page()
	if !ok {
		c.errorf(authRequired)
		return ExitUnauthenticated
	}
	if *asJSON {
		if err := json.NewEncoder(c.stdout).Encode(summarize(page)); err != nil {
			c.errorf("dashboard: encode json: %v", err)
			return ExitFailure
		}
		return ExitOK
	}
	return c.render("dashboard", view.DashboardData{Page: page})
}

func summarize(page dashboard.Page) DashboardSummary {
	out := DashboardSummary{
		Greeting: page.Greeting,
		Role:     page.Role,
		Tab:      string(page.ActiveTab),
		Title:    page.Table.Title,
		Columns:  page.Table.Columns,
		Rows:     make([]SummaryRow, 0, len(page.Table.Rows)),
		Empty:    page.Table.Empty,
		Error:    page.Error,
		Notices:  page.Notices,
	}
	for _, tab := range page.Tabs {
		out.Tabs = append(out.Tabs, string(tab))
	}
	for _, row := range page.Table.Rows {
		sr := SummaryRow{ID: row.ID, Cells: row.Cells, Status: string(row.Status), ImageURL: row.ImageURL}
		for _, action := range row.Actions {
			sr.Actions = append(sr.Actions, string(action))
		}
		out.Rows = append(out.Rows, sr)
	}
	return out
}
