// Package dashboard composes what a signed-in user sees and may do: which
// collections are fetched, which rows are visible, and how successful
// mutations are folded back into the cached lists.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/rbac"
	"github.com/wastewatch/wastewatch/internal/session"
	"github.com/wastewatch/wastewatch/internal/shared"
)

// ErrStale is returned when the session changed while a load was in flight;
// the result was discarded.
var ErrStale = errors.New("dashboard: result discarded after session change")

// Collection names a cached list.
type Collection string

const (
	CollectionReports    Collection = "reports"
	CollectionUsers      Collection = "users"
	CollectionWasteTypes Collection = "waste types"
)

// API is the part of the gateway the dashboard drives.
type API interface {
	ListReports(ctx context.Context) ([]api.Report, error)
	ListProfiles(ctx context.Context) ([]api.UserProfile, error)
	ListWasteTypes(ctx context.Context) ([]api.WasteType, error)
	UpdateReport(ctx context.Context, id int64, patch api.ReportPatch) (api.Report, error)
	DeleteReport(ctx context.Context, id int64) error
	DeleteProfile(ctx context.Context, id int64) error
	DeleteWasteType(ctx context.Context, id int64) error
	CreateWasteType(ctx context.Context, in api.WasteTypeInput) (api.WasteType, error)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Sessions is the session source the controller follows.
type Sessions interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) func()
}

// WasteTypeForm is the add-waste-type form.
type WasteTypeForm struct {
	Name        string `validate:"required"`
	Description string `validate:"required"`
}

// State is a copy of the controller's cached data.
type State struct {
	Viewer       *shared.User
	Capabilities rbac.Capabilities
	Tab          Tab
	Loading      bool
	Reports      []api.Report
	Users        []api.UserProfile
	WasteTypes   []api.WasteType
	FetchErrors  map[Collection]string
	Error        string
	Updating     []int64
	Saving       bool
	Form         WasteTypeForm
}

// Controller holds the dashboard state for one viewer at a time.
type Controller struct {
	api       API
	confirm   Confirmer
	logger    *slog.Logger
	validator *validator.Validate

	mu         sync.Mutex
	generation uint64
	viewer     *shared.User
	tab        Tab
	loading    bool
	reports    []api.Report
	users      []api.UserProfile
	wastes     []api.WasteType
	fetchErrs  map[Collection]string
	banner     string
	updating   map[int64]struct{}
	deleting   map[string]struct{}
	saving     bool
	form       WasteTypeForm
}

// New constructs a Controller. A nil confirmer declines every destructive action.
func New(gateway API, confirm Confirmer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if confirm == nil {
		confirm = ConfirmFunc(func(context.Context, string) bool { return false })
	}
	return &Controller{
		api:       gateway,
		confirm:   confirm,
		logger:    logger,
		validator: validator.New(),
		tab:       TabReports,
		fetchErrs: make(map[Collection]string),
		updating:  make(map[int64]struct{}),
		deleting:  make(map[string]struct{}),
	}
}

// Bind follows sessions until the returned function is called.
func (c *Controller) Bind(sessions Sessions) func() {
	cancel := sessions.Subscribe(c.Observe)
	c.Observe(sessions.Snapshot())
	return cancel
}

// Observe applies a session transition. Signing out drops every cached list;
// a different identity or role invalidates in-flight results.
func (c *Controller) Observe(snap session.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !snap.Authenticated() {
		if c.viewer != nil || c.hasDataLocked() {
			c.logger.Debug("dashboard cleared", slog.String("state", snap.State.String()))
		}
		c.generation++
		c.viewer = nil
		c.resetLocked()
		return
	}
	if c.viewer != nil && c.viewer.ID == snap.User.ID && c.viewer.Role == snap.User.Role {
		u := *snap.User
		c.viewer = &u
		return
	}
	c.generation++
	u := *snap.User
	c.viewer = &u
	c.resetLocked()
}

func (c *Controller) hasDataLocked() bool {
	return len(c.reports) > 0 || len(c.users) > 0 || len(c.wastes) > 0
}

func (c *Controller) resetLocked() {
	c.tab = TabReports
	c.loading = false
	c.reports = nil
	c.users = nil
	c.wastes = nil
	c.fetchErrs = make(map[Collection]string)
	c.banner = ""
	c.updating = make(map[int64]struct{})
	c.deleting = make(map[string]struct{})
	c.saving = false
	c.form = WasteTypeForm{}
}

// SetTab switches sections. Tabs the viewer cannot open are refused.
func (c *Controller) SetTab(tab Tab) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewer == nil {
		return shared.ErrNotAuthenticated
	}
	if TableFor(c.viewer.Role, tab) != tab {
		return shared.ErrForbidden
	}
	c.tab = tab
	return nil
}

// Load fetches the collections the viewer's role calls for. Reports are
// always fetched; administrators also fetch users and waste types. The
// fetches run concurrently and each outcome is applied on its own, so one
// failure leaves the other collections intact.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.viewer == nil {
		c.mu.Unlock()
		return shared.ErrNotAuthenticated
	}
	gen := c.generation
	viewer := *c.viewer
	caps := rbac.For(viewer.Role)
	c.loading = true
	c.banner = ""
	c.mu.Unlock()

	var (
		reports                        []api.Report
		users                          []api.UserProfile
		wastes                         []api.WasteType
		reportsErr, usersErr, wasteErr error
	)
	// Goroutines report failures through the captured errors and never fail
	// the group, so one failed fetch cannot cancel its siblings.
	var g errgroup.Group
	g.Go(func() error {
		reports, reportsErr = c.api.ListReports(ctx)
		return nil
	})
	if caps.CanManageUsers {
		g.Go(func() error {
			users, usersErr = c.api.ListProfiles(ctx)
			return nil
		})
	}
	if caps.CanManageWasteTypes {
		g.Go(func() error {
			wastes, wasteErr = c.api.ListWasteTypes(ctx)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.Debug("dashboard load discarded", slog.Int64("user_id", viewer.ID))
		return ErrStale
	}
	c.loading = false
	if c.applyFetchLocked(CollectionReports, "load reports", reportsErr) {
		c.reports = VisibleReports(reports, viewer)
	}
	if caps.CanManageUsers && c.applyFetchLocked(CollectionUsers, "load users", usersErr) {
		c.users = users
	}
	if caps.CanManageWasteTypes && c.applyFetchLocked(CollectionWasteTypes, "load waste types", wasteErr) {
		c.wastes = wastes
	}
	return nil
}

func (c *Controller) applyFetchLocked(coll Collection, action string, err error) bool {
	if err != nil {
		c.fetchErrs[coll] = api.Describe(err, action)
		c.logger.Warn("dashboard fetch failed", slog.String("collection", string(coll)), slog.Any("error", err))
		return false
	}
	delete(c.fetchErrs, coll)
	return true
}

// VisibleReports applies the visibility rule: officers and administrators
// see every report, citizens only their own, in the original order.
func VisibleReports(reports []api.Report, viewer shared.User) []api.Report {
	if rbac.For(viewer.Role).CanSeeAllReports {
		out := make([]api.Report, len(reports))
		copy(out, reports)
		return out
	}
	out := make([]api.Report, 0, len(reports))
	for _, r := range reports {
		if r.UserID == viewer.ID {
			out = append(out, r)
		}
	}
	return out
}

// State returns a copy of the cached data.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		Tab:         c.tab,
		Loading:     c.loading,
		Reports:     append([]api.Report(nil), c.reports...),
		Users:       append([]api.UserProfile(nil), c.users...),
		WasteTypes:  append([]api.WasteType(nil), c.wastes...),
		FetchErrors: make(map[Collection]string, len(c.fetchErrs)),
		Error:       c.banner,
		Saving:      c.saving,
		Form:        c.form,
	}
	if c.viewer != nil {
		u := *c.viewer
		st.Viewer = &u
		st.Capabilities = rbac.For(u.Role)
	}
	for k, v := range c.fetchErrs {
		st.FetchErrors[k] = v
	}
	for id := range c.updating {
		st.Updating = append(st.Updating, id)
	}
	sort.Slice(st.Updating, func(i, j int) bool { return st.Updating[i] < st.Updating[j] })
	return st
}
