package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/rbac"
	"github.com/wastewatch/wastewatch/internal/shared"
)

// MissingWasteFields is shown when the add-waste-type form is incomplete.
const MissingWasteFields = "Waste type name and description are required."

// SetStatus changes a report's status. Each row has its own in-flight guard,
// so edits on different rows proceed independently. On success the cached
// row keeps its place and only its status changes.
func (c *Controller) SetStatus(ctx context.Context, id int64, status api.ReportStatus) error {
	if !status.Valid() {
		return fmt.Errorf("dashboard: status %q: %w", status, shared.ErrInvalidInput)
	}
	c.mu.Lock()
	if c.viewer == nil {
		c.mu.Unlock()
		return shared.ErrNotAuthenticated
	}
	if !rbac.For(c.viewer.Role).CanEditStatus {
		c.mu.Unlock()
		return shared.ErrForbidden
	}
	if _, busy := c.updating[id]; busy {
		c.mu.Unlock()
		return shared.ErrBusy
	}
	c.updating[id] = struct{}{}
	gen := c.generation
	c.mu.Unlock()

	_, err := c.api.UpdateReport(ctx, id, api.StatusPatch(status))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return err
	}
	delete(c.updating, id)
	if err != nil {
		c.banner = api.Describe(err, "update report status")
		c.logger.Warn("report status update failed", slog.Int64("report_id", id), slog.Any("error", err))
		return err
	}
	for _, r := range c.reports {
		if r.ID == id {
			r.Status = status
			c.reports = Apply(c.reports, Updated(r))
			break
		}
	}
	return nil
}

// DeleteReport removes a report after confirmation. Administrators only.
func (c *Controller) DeleteReport(ctx context.Context, id int64) error {
	return c.remove(ctx, CollectionReports, id, "Are you sure you want to delete this report?", "delete report",
		c.api.DeleteReport, func() { c.reports = Apply(c.reports, Deleted[api.Report](id)) })
}

// DeleteUser removes an account after confirmation. Administrators only.
func (c *Controller) DeleteUser(ctx context.Context, id int64) error {
	return c.remove(ctx, CollectionUsers, id, "Are you sure you want to delete this user?", "delete user",
		c.api.DeleteProfile, func() { c.users = Apply(c.users, Deleted[api.UserProfile](id)) })
}

// DeleteWasteType removes a waste type after confirmation. Administrators only.
func (c *Controller) DeleteWasteType(ctx context.Context, id int64) error {
	return c.remove(ctx, CollectionWasteTypes, id, "Are you sure you want to delete this waste type?", "delete waste type",
		c.api.DeleteWasteType, func() { c.wastes = Apply(c.wastes, Deleted[api.WasteType](id)) })
}

func (c *Controller) remove(ctx context.Context, coll Collection, id int64, prompt, action string,
	call func(context.Context, int64) error, drop func()) error {
	c.mu.Lock()
	if c.viewer == nil {
		c.mu.Unlock()
		return shared.ErrNotAuthenticated
	}
	if !rbac.For(c.viewer.Role).CanDelete {
		c.mu.Unlock()
		return shared.ErrForbidden
	}
	key := fmt.Sprintf("%s/%d", coll, id)
	if _, busy := c.deleting[key]; busy {
		c.mu.Unlock()
		return shared.ErrBusy
	}
	c.mu.Unlock()

	if !c.confirm.Confirm(ctx, prompt) {
		return shared.ErrDeclined
	}

	c.mu.Lock()
	if _, busy := c.deleting[key]; busy {
		c.mu.Unlock()
		return shared.ErrBusy
	}
	c.deleting[key] = struct{}{}
	gen := c.generation
	c.mu.Unlock()

	err := call(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return err
	}
	delete(c.deleting, key)
	if err != nil {
		c.banner = api.Describe(err, action)
		c.logger.Warn("delete failed", slog.String("collection", string(coll)), slog.Int64("id", id), slog.Any("error", err))
		return err
	}
	drop()
	return nil
}

// CreateWasteType validates the form and adds the waste type. Blank fields
// are rejected without a request; a second submission while one is in flight
// returns shared.ErrBusy. On success the new entry is prepended and the form
// cleared; on failure the form keeps its values.
func (c *Controller) CreateWasteType(ctx context.Context, form WasteTypeForm) (api.WasteType, error) {
	c.mu.Lock()
	if c.viewer == nil {
		c.mu.Unlock()
		return api.WasteType{}, shared.ErrNotAuthenticated
	}
	if !rbac.For(c.viewer.Role).CanManageWasteTypes {
		c.mu.Unlock()
		return api.WasteType{}, shared.ErrForbidden
	}
	if c.saving {
		c.mu.Unlock()
		return api.WasteType{}, shared.ErrBusy
	}
	c.form = form
	trimmed := WasteTypeForm{Name: strings.TrimSpace(form.Name), Description: strings.TrimSpace(form.Description)}
	if err := c.validator.Struct(trimmed); err != nil {
		c.banner = MissingWasteFields
		c.mu.Unlock()
		return api.WasteType{}, fmt.Errorf("dashboard: %s: %w", MissingWasteFields, shared.ErrInvalidInput)
	}
	c.saving = true
	c.banner = ""
	gen := c.generation
	c.mu.Unlock()

	created, err := c.api.CreateWasteType(ctx, api.WasteTypeInput{Name: trimmed.Name, Description: trimmed.Description})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return created, err
	}
	c.saving = false
	if err != nil {
		c.banner = api.Describe(err, "create waste type")
		c.logger.Warn("create waste type failed", slog.Any("error", err))
		return api.WasteType{}, err
	}
	c.wastes = Apply(c.wastes, Created(created))
	c.form = WasteTypeForm{}
	return created, nil
}
