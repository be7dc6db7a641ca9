package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/rbac"
	"github.com/wastewatch/wastewatch/internal/shared"
)

func TestAdminTabsRenderExactlyOneTable(t *testing.T) {
	stub := &stubAPI{
		reports: sampleReports(),
		users:   []api.UserProfile{{ID: 10, Username: "ana", Role: shared.RoleCitizen}},
		wastes:  []api.WasteType{{ID: 4, Name: "Plastic", Description: "Bottles"}},
	}
	c := newController(stub, admin, false)
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.SetTab(TabWaste))
	page, ok := c.Page()
	require.True(t, ok)
	assert.Equal(t, TabWaste, page.Table.Kind)
	assert.Equal(t, "Waste Types Management", page.Table.Title)
	assert.Equal(t, []string{"ID", "Name", "Description", "Actions"}, page.Table.Columns)
	require.NotNil(t, page.Table.Form)

	require.NoError(t, c.SetTab(TabUsers))
	page, _ = c.Page()
	assert.Equal(t, TabUsers, page.Table.Kind)
	assert.Equal(t, "Users Management", page.Table.Title)
	assert.Nil(t, page.Table.Form)
	require.Len(t, page.Table.Rows, 1)
	assert.Equal(t, []string{"10", "ana", "", "citizen", ""}, page.Table.Rows[0].Cells)

	assert.Equal(t, []Tab{TabReports, TabUsers, TabWaste}, page.Tabs)
	assert.Equal(t, "Welcome, Root Admin!", page.Greeting)
}

func TestNonAdminsCannotLeaveReports(t *testing.T) {
	for _, viewer := range []shared.User{citizen, officer} {
		c := newController(&stubAPI{}, viewer, false)
		assert.ErrorIs(t, c.SetTab(TabUsers), shared.ErrForbidden)
		assert.ErrorIs(t, c.SetTab(TabWaste), shared.ErrForbidden)
		page, ok := c.Page()
		require.True(t, ok)
		assert.Equal(t, TabReports, page.Table.Kind)
		assert.Equal(t, []Tab{TabReports}, page.Tabs)
	}
	assert.Equal(t, TabReports, TableFor(shared.RoleOfficer, TabWaste))
	assert.Equal(t, TabWaste, TableFor(shared.RoleAdmin, TabWaste))
}

func TestReportColumnsByRole(t *testing.T) {
	assert.Equal(t, []string{"ID", "Waste Type", "Location", "Description", "Status", "Date", "Actions"},
		ReportColumns(rbac.For(shared.RoleCitizen)))
	assert.Equal(t, []string{"ID", "Waste Type", "Location", "Description", "Status", "Date", "Reported By", "Actions"},
		ReportColumns(rbac.For(shared.RoleOfficer)))
}

func TestReportRows(t *testing.T) {
	reports := []api.Report{
		{ID: 1, UserID: 7, UserDetails: &api.UserSummary{Username: "ana"}, WasteType: "Plastic", Status: api.StatusInProgress, Image: "http://img/1.jpg"},
		{ID: 2, UserID: 8, WasteType: "Glass", Status: api.StatusPending},
	}
	c := newController(&stubAPI{reports: reports}, admin, false)
	require.NoError(t, c.Load(context.Background()))
	page, _ := c.Page()

	rows := page.Table.Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "#1", rows[0].Cells[0])
	assert.Equal(t, "-", rows[0].Cells[3])
	assert.Equal(t, "On Progress", rows[0].Cells[4])
	assert.Equal(t, "ana", rows[0].Cells[6])
	assert.Equal(t, "User 8", rows[1].Cells[6])
	assert.True(t, rows[0].StatusEditable)
	assert.Equal(t, []Action{ActionViewImage, ActionDelete}, rows[0].Actions)
	assert.Equal(t, []Action{ActionDelete}, rows[1].Actions)

	citizenView := newController(&stubAPI{reports: []api.Report{{ID: 3, UserID: 5, Status: api.StatusInProgress}}}, citizen, false)
	require.NoError(t, citizenView.Load(context.Background()))
	page, _ = citizenView.Page()
	require.Len(t, page.Table.Rows, 1)
	row := page.Table.Rows[0]
	assert.False(t, row.StatusEditable)
	assert.Equal(t, "in_progress", row.Cells[4])
	assert.Empty(t, row.Actions)
	assert.Len(t, row.Cells, 6)
}

func TestEmptyStates(t *testing.T) {
	c := newController(&stubAPI{}, citizen, false)
	require.NoError(t, c.Load(context.Background()))
	page, _ := c.Page()
	assert.Equal(t, []string{"No reports found", "Start by creating a new waste report"}, page.Table.Empty)

	c = newController(&stubAPI{}, officer, false)
	require.NoError(t, c.Load(context.Background()))
	page, _ = c.Page()
	assert.Equal(t, []string{"No reports found"}, page.Table.Empty)
}

func TestParseTab(t *testing.T) {
	tab, ok := ParseTab(" Waste ")
	assert.True(t, ok)
	assert.Equal(t, TabWaste, tab)
	_, ok = ParseTab("settings")
	assert.False(t, ok)
	assert.Equal(t, "Waste Types", TabWaste.Label())
}
