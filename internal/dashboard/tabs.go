package dashboard

import (
	"fmt"
	"strings"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/rbac"
	"github.com/wastewatch/wastewatch/internal/shared"
)

// Tab selects the dashboard section.
type Tab string

const (
	TabReports Tab = "reports"
	TabUsers   Tab = "users"
	TabWaste   Tab = "waste"
)

// ParseTab accepts a tab name case-insensitively.
func ParseTab(raw string) (Tab, bool) {
	tab := Tab(strings.ToLower(strings.TrimSpace(raw)))
	switch tab {
	case TabReports, TabUsers, TabWaste:
		return tab, true
	}
	return "", false
}

// Label is the tab button caption.
func (t Tab) Label() string {
	switch t {
	case TabUsers:
		return "Users"
	case TabWaste:
		return "Waste Types"
	}
	return "Reports"
}

// TabsFor lists the tabs open to a role. Only administrators get more than one.
func TabsFor(caps rbac.Capabilities) []Tab {
	tabs := []Tab{TabReports}
	if caps.CanManageUsers {
		tabs = append(tabs, TabUsers)
	}
	if caps.CanManageWasteTypes {
		tabs = append(tabs, TabWaste)
	}
	return tabs
}

// TableFor picks the single table rendered for role on tab. Tabs the role
// cannot open fall back to reports.
func TableFor(role shared.Role, tab Tab) Tab {
	for _, allowed := range TabsFor(rbac.For(role)) {
		if allowed == tab {
			return tab
		}
	}
	return TabReports
}

// Action is a per-row affordance.
type Action string

const (
	ActionViewImage Action = "View Image"
	ActionDelete    Action = "Delete"
)

// Row is one rendered table line.
type Row struct {
	ID             int64
	Cells          []string
	Status         api.ReportStatus
	StatusEditable bool
	ImageURL       string
	Actions        []Action
	Busy           bool
}

// Table is the one table a page renders.
type Table struct {
	Kind    Tab
	Title   string
	Columns []string
	Rows    []Row
	Empty   []string
	Loading bool
	Form    *WasteTypeForm
	Saving  bool
}

// ReportColumns lists the report table header for caps.
func ReportColumns(caps rbac.Capabilities) []string {
	cols := []string{"ID", "Waste Type", "Location", "Description", "Status", "Date"}
	if caps.CanSeeAllReports {
		cols = append(cols, "Reported By")
	}
	return append(cols, "Actions")
}

var (
	userColumns  = []string{"ID", "Username", "Email", "Role", "Phone", "Actions"}
	wasteColumns = []string{"ID", "Name", "Description", "Actions"}
)

func reportRow(r api.Report, caps rbac.Capabilities, busy bool) Row {
	description := r.Description
	if strings.TrimSpace(description) == "" {
		description = "-"
	}
	date := ""
	if !r.CreatedAt.IsZero() {
		date = r.CreatedAt.Local().Format("2006-01-02")
	}
	status := string(r.Status)
	if caps.CanEditStatus {
		status = r.Status.Label()
	}
	cells := []string{fmt.Sprintf("#%d", r.ID), r.WasteType, r.Location, description, status, date}
	if caps.CanSeeAllReports {
		cells = append(cells, r.ReportedBy())
	}
	row := Row{
		ID:             r.ID,
		Cells:          cells,
		Status:         r.Status,
		StatusEditable: caps.CanEditStatus,
		ImageURL:       r.Image,
		Busy:           busy,
	}
	if r.Image != "" {
		row.Actions = append(row.Actions, ActionViewImage)
	}
	if caps.CanDelete {
		row.Actions = append(row.Actions, ActionDelete)
	}
	return row
}

func userRow(p api.UserProfile) Row {
	return Row{
		ID:      p.ID,
		Cells:   []string{fmt.Sprint(p.ID), p.Username, p.Email, string(p.Role), p.PhoneNumber},
		Actions: []Action{ActionDelete},
	}
}

func wasteRow(w api.WasteType) Row {
	return Row{
		ID:      w.ID,
		Cells:   []string{fmt.Sprint(w.ID), w.Name, w.Description},
		Actions: []Action{ActionDelete},
	}
}
