package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/app"
	"github.com/wastewatch/wastewatch/internal/submission"
)

// ReportSubmitCommand files a new report as the signed-in citizen.
func (c *CLI) ReportSubmitCommand(ctx context.Context, args []string) int {
	fs := c.flags("report submit")
	var form submission.Form
	fs.StringVar(&form.WasteType, "type", "", "waste type name")
	fs.StringVar(&form.Location, "location", "", "where the waste is")
	fs.StringVar(&form.Description, "description", "", "what was found")
	imagePath := fs.String("image", "", "optional photo to attach")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	rt, code, ok := c.signedIn(ctx)
	if !ok {
		return code
	}
	opts, err := rt.Submission.Prepare(ctx)
	if err != nil {
		return c.fail(err, "submit reports")
	}
	if strings.TrimSpace(form.WasteType) == "" {
		c.errorf("%s", submission.MissingFields)
		c.printWasteChoices(opts)
		return ExitUsage
	}
	if *imagePath != "" {
		f, err := os.Open(*imagePath)
		if err != nil {
			c.errorf("report submit: %v", err)
			return ExitUsage
		}
		defer f.Close()
		form.Image = &api.Attachment{Filename: *imagePath, ContentType: app.ImageContentType(*imagePath), Body: f}
	}
	report, err := rt.Submission.Submit(ctx, form)
	if err != nil {
		return c.fail(err, "submit reports")
	}
	if code := c.say(submission.Submitted); code != ExitOK {
		return code
	}
	return c.render("report", report)
}

func (c *CLI) printWasteChoices(opts submission.Options) {
	if opts.FreeText {
		c.errorf("%s", opts.Hint)
		return
	}
	names := make([]string, 0, len(opts.WasteTypes))
	for _, w := range opts.WasteTypes {
		names = append(names, w.Name)
	}
	c.errorf("Available waste types: %s", strings.Join(names, ", "))
}

// ReportStatusCommand moves a report through the triage workflow.
func (c *CLI) ReportStatusCommand(ctx context.Context, args []string) int {
	fs := c.flags("report status")
	id := fs.Int64("id", 0, "report id")
	raw := fs.String("status", "", "pending, in_progress or resolved")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	status := api.ReportStatus(strings.TrimSpace(*raw))
	if *id <= 0 || !status.Valid() {
		c.errorf("report status: -id and -status (pending, in_progress, resolved) are required")
		return ExitUsage
	}
	rt, code, ok := c.signedIn(ctx)
	if !ok {
		return code
	}
	if err := rt.Dashboard.SetStatus(ctx, *id, status); err != nil {
		return c.fail(err, "update report status")
	}
	return c.say(fmt.Sprintf("Report #%d is now %s.", *id, status.Label()))
}

// ReportDeleteCommand removes a report after confirmation.
func (c *CLI) ReportDeleteCommand(ctx context.Context, args []string) int {
	return c.deleteCommand(ctx, "report", args, func(ctx context.Context, rt *app.Runtime, id int64) error {
		return rt.Dashboard.DeleteReport(ctx, id)
	})
}

// deleteCommand parses -id and -yes and runs remove.
func (c *CLI) deleteCommand(ctx context.Context, noun string, args []string, remove func(context.Context, *app.Runtime, int64) error) int {
	fs := c.flags(noun + " delete")
	id := fs.Int64("id", 0, noun+" id")
	fs.BoolVar(&c.assume, "yes", false, "do not ask for confirmation")
	if code, ok := c.parse(fs, args); !ok {
		return code
	}
	if *id <= 0 {
		c.errorf("%s delete: -id is required", noun)
		return ExitUsage
	}
	rt, code, ok := c.signedIn(ctx)
	if !ok {
		return code
	}
	if err := remove(ctx, rt, *id); err != nil {
		return c.fail(err, "delete "+noun+"s")
	}
	return c.say(fmt.Sprintf("Deleted %s #%d.", noun, *id))
}
