package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"github.com/wastewatch/wastewatch/internal/shared"
)

const reportsPath = "/report/report/"

// ListReports returns the reports visible to the caller.
func (c *Client) ListReports(ctx context.Context) ([]Report, error) {
	data, err := c.get(ctx, reportsPath)
	if err != nil {
		return nil, err
	}
	items, err := shared.DecodeList[Report](data)
	if err != nil {
		return nil, fmt.Errorf("api: reports: %w", err)
	}
	return items, nil
}

// GetReport fetches one report.
func (c *Client) GetReport(ctx context.Context, id int64) (Report, error) {
	data, err := c.get(ctx, itemPath(reportsPath, id))
	if err != nil {
		return Report{}, err
	}
	return decodeInto[Report](data, "report")
}

// CreateReport submits a report as multipart form data, attaching the image
// when one is given.
func (c *Client) CreateReport(ctx context.Context, in ReportInput) (Report, error) {
	body, contentType, err := encodeReportForm(in)
	if err != nil {
		return Report{}, err
	}
	data, err := c.send(ctx, call{method: http.MethodPost, path: reportsPath, body: body, contentType: contentType})
	if err != nil {
		return Report{}, err
	}
	return decodeInto[Report](data, "report")
}

// UpdateReport applies a partial update.
func (c *Client) UpdateReport(ctx context.Context, id int64, patch ReportPatch) (Report, error) {
	data, err := c.sendJSON(ctx, http.MethodPatch, itemPath(reportsPath, id), patch)
	if err != nil {
		return Report{}, err
	}
	return decodeInto[Report](data, "report")
}

// DeleteReport removes a report.
func (c *Client) DeleteReport(ctx context.Context, id int64) error {
	_, err := c.send(ctx, call{method: http.MethodDelete, path: itemPath(reportsPath, id)})
	return err
}

func encodeReportForm(in ReportInput) ([]byte, string, error) {
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"waste_type", in.WasteType},
		{"location", in.Location},
		{"description", in.Description},
		{"status", string(status)},
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("api: report form: %w", err)
		}
	}
	if in.Image != nil && in.Image.Body != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filepath.Base(in.Image.Filename)))
		contentType := in.Image.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := form.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("api: report image: %w", err)
		}
		if _, err := io.Copy(part, in.Image.Body); err != nil {
			return nil, "", fmt.Errorf("api: report image: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("api: report form: %w", err)
	}
	return buf.Bytes(), form.FormDataContentType(), nil
}
