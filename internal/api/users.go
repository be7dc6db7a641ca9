package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wastewatch/wastewatch/internal/shared"
)

const (
	loginPath    = "/user/login/"
	registerPath = "/user/register/"
	logoutPath   = "/user/logout/"
	profilesPath = "/user/user/"
)

// Login exchanges credentials for tokens. The request carries no bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, loginPath, creds)
	if err != nil {
		return LoginResponse{}, err
	}
	return decodeInto[LoginResponse](data, "login response")
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, reg Registration) (RegisterResponse, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, registerPath, reg)
	if err != nil {
		return RegisterResponse{}, err
	}
	return decodeInto[RegisterResponse](data, "register response")
}

// Logout ends the server-side session, if the backend keeps one.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.send(ctx, call{method: http.MethodPost, path: logoutPath})
	return err
}

// ListProfiles returns every account. Admin only on the backend.
func (c *Client) ListProfiles(ctx context.Context) ([]UserProfile, error) {
	data, err := c.get(ctx, profilesPath)
	if err != nil {
		return nil, err
	}
	items, err := shared.DecodeList[UserProfile](data)
	if err != nil {
		return nil, fmt.Errorf("api: profiles: %w", err)
	}
	return items, nil
}

// GetProfile fetches one account.
func (c *Client) GetProfile(ctx context.Context, id int64) (UserProfile, error) {
	data, err := c.get(ctx, itemPath(profilesPath, id))
	if err != nil {
		return UserProfile{}, err
	}
	return decodeInto[UserProfile](data, "profile")
}

// CreateProfile creates a profile record.
func (c *Client) CreateProfile(ctx context.Context, in ProfileInput) (UserProfile, error) {
	data, err := c.sendJSON(ctx, http.MethodPost, profilesPath, in)
	if err != nil {
		return UserProfile{}, err
	}
	return decodeInto[UserProfile](data, "profile")
}

// UpdateProfile replaces a profile record.
func (c *Client) UpdateProfile(ctx context.Context, id int64, in ProfileInput) (UserProfile, error) {
	data, err := c.sendJSON(ctx, http.MethodPut, itemPath(profilesPath, id), in)
	if err != nil {
		return UserProfile{}, err
	}
	return decodeInto[UserProfile](data, "profile")
}

// DeleteProfile removes an account.
func (c *Client) DeleteProfile(ctx context.Context, id int64) error {
	_, err := c.send(ctx, call{method: http.MethodDelete, path: itemPath(profilesPath, id)})
	return err
}

func itemPath(collection string, id int64) string {
	return fmt.Sprintf("%s%d/", collection, id)
}
