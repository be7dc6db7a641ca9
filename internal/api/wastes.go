package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wastewatch/wastewatch/internal/shared"
)

const wasteTypesPath = "/waste/waste/"

// ListWasteTypes returns the taxonomy.
func (c *Client) ListWasteTypes(ctx context.Context) ([]WasteType, error) {
	data, err := c.get(ctx, wasteTypesPath)
	if err != nil {
		return nil, err
	}
	items, err := shared.DecodeList[WasteType](data)
	if err != nil {
		return nil, fmt.Errorf("api: waste types: %w", err)
	}
	return items, nil
}

// GetWasteType fetches one waste type.
func (c *Client) GetWasteType(ctx context.Context, id int64) (WasteType, error) {
	data, err := c.get(ctx, itemPath(wasteTypesPath, id))
	if err != nil {
		return WasteType{}, err
	}
	return decodeInto[WasteType](data, "waste type")
}

// CreateWasteType adds a waste type.
func (c *Client) CreateWasteType(ctx context.Context, in WasteTypeInput) (WasteType, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, wasteTypesPath, in)
	if err != nil {
		return WasteType{}, err
	}
	return decodeInto[WasteType](data, "waste type")
}

// UpdateWasteType replaces a waste type.
func (c *Client) UpdateWasteType(ctx context.Context, id int64, in WasteTypeInput) (WasteType, error) {
	data, err := c.sendJSON(ctx, http.MethodPut, itemPath(wasteTypesPath, id), in)
	if err != nil {
		return WasteType{}, err
	}
	return decodeInto[WasteType](data, "waste type")
}

// DeleteWasteType removes a waste type.
func (c *Client) DeleteWasteType(ctx context.Context, id int64) error {
	_, err := c.send(ctx, call{method: http.MethodDelete, path: itemPath(wasteTypesPath, id)})
	return err
}
