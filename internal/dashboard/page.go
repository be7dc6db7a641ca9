package dashboard

import (
	"fmt"

	"github.com/wastewatch/wastewatch/internal/rbac"
	"github.com/wastewatch/wastewatch/internal/shared"
)

// Page is everything the dashboard renders for the current viewer.
type Page struct {
	Greeting  string
	Role      shared.Role
	Error     string
	Notices   []string
	Tabs      []Tab
	ActiveTab Tab
	Table     Table
}

// Page builds the render model. ok is false when nobody is signed in, in
// which case nothing protected may be shown.
func (c *Controller) Page() (Page, bool) {
	st := c.State()
	if st.Viewer == nil {
		return Page{}, false
	}
	caps := st.Capabilities
	page := Page{
		Greeting: fmt.Sprintf("Welcome, %s!", st.Viewer.DisplayName()),
		Role:     st.Viewer.Role,
		Error:    st.Error,
		Tabs:     TabsFor(caps),
	}
	for _, coll := range []Collection{CollectionReports, CollectionUsers, CollectionWasteTypes} {
		if msg, ok := st.FetchErrors[coll]; ok {
			page.Notices = append(page.Notices, msg)
		}
	}
	page.ActiveTab = TableFor(st.Viewer.Role, st.Tab)
	page.Table = buildTable(page.ActiveTab, st, caps)
	return page, true
}

func buildTable(kind Tab, st State, caps rbac.Capabilities) Table {
	switch kind {
	case TabUsers:
		t := Table{Kind: TabUsers, Title: "Users Management", Columns: userColumns}
		for _, p := range st.Users {
			t.Rows = append(t.Rows, userRow(p))
		}
		if len(t.Rows) == 0 {
			t.Empty = []string{"No users found"}
		}
		return t
	case TabWaste:
		form := st.Form
		t := Table{Kind: TabWaste, Title: "Waste Types Management", Columns: wasteColumns, Form: &form, Saving: st.Saving}
		for _, w := range st.WasteTypes {
			t.Rows = append(t.Rows, wasteRow(w))
		}
		if len(t.Rows) == 0 {
			t.Empty = []string{"No waste types found"}
		}
		return t
	}

	t := Table{Kind: TabReports, Title: "Waste Reports", Columns: ReportColumns(caps), Loading: st.Loading}
	busy := make(map[int64]bool, len(st.Updating))
	for _, id := range st.Updating {
		busy[id] = true
	}
	for _, r := range st.Reports {
		t.Rows = append(t.Rows, reportRow(r, caps, busy[r.ID]))
	}
	if len(t.Rows) == 0 {
		t.Empty = []string{"No reports found"}
		if caps.CanSubmitReports {
			t.Empty = append(t.Empty, "Start by creating a new waste report")
		}
	}
	return t
}
