// Package backend is the typed client for the marketplace REST API. All
// durable state (ads, users, permissions, messages) lives behind it; the
// gateway only holds sessions and caches.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bazaar-app/bazaar-gateway/internal/authz"
)

// ErrUnauthorized signals that the backend rejected the bearer token. Callers
// on non-public routes respond by tearing the session down.
var ErrUnauthorized = errors.New("backend: unauthorized")

// ErrRejected wraps a 4xx validation failure so callers can surface the
// backend's message to the user.
var ErrRejected = errors.New("backend: request rejected")

// Client wraps interactions with the marketplace backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Ping checks if the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var ignored json.RawMessage
	return c.do(ctx, http.MethodGet, "/health", "", nil, &ignored)
}

// Login exchanges credentials for a user record and bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var result AuthResult
	payload := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", payload, &result); err != nil {
		return AuthResult{}, err
	}
	return result, nil
}

// Signup registers a new account and returns the issued session.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", req, &result); err != nil {
		return AuthResult{}, err
	}
	return result, nil
}

// Me validates the token and returns the current user.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// AdminPermissions returns the permissions granted to an admin. The backend
// answers with an empty array, never an error, when the admin has none.
func (c *Client) AdminPermissions(ctx context.Context, token, adminID string) ([]authz.Permission, error) {
	var records []permissionRecord
	path := "/permissions/admin/" + url.PathEscape(adminID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &records); err != nil {
		return nil, err
	}
	return toDomainPermissions(records), nil
}

// PermissionCatalog lists every permission the backend defines.
func (c *Client) PermissionCatalog(ctx context.Context, token string) ([]authz.Permission, error) {
	var records []permissionRecord
	if err := c.do(ctx, http.MethodGet, "/permissions", token, nil, &records); err != nil {
		return nil, err
	}
	return toDomainPermissions(records), nil
}

// AssignPermission grants a catalog permission to an admin.
func (c *Client) AssignPermission(ctx context.Context, token, adminID string, permissionID int64) error {
	payload := map[string]any{"adminId": adminID, "permissionId": permissionID}
	return c.do(ctx, http.MethodPost, "/permissions/assign", token, payload, nil)
}

// RevokePermission removes a permission from an admin.
func (c *Client) RevokePermission(ctx context.Context, token, adminID string, permissionID int64) error {
	payload := map[string]any{"adminId": adminID, "permissionId": permissionID}
	return c.do(ctx, http.MethodDelete, "/permissions/revoke", token, payload, nil)
}

// Categories lists the public category tree.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.do(ctx, http.MethodGet, "/categories", "", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Cities lists the supported cities.
func (c *Client) Cities(ctx context.Context) ([]City, error) {
	var cities []City
	if err := c.do(ctx, http.MethodGet, "/cities", "", nil, &cities); err != nil {
		return nil, err
	}
	return cities, nil
}

// AdminUsers lists user accounts for the admin back office.
func (c *Client) AdminUsers(ctx context.Context, token string) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/admin/users", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// AdsByStatus lists ads in the given moderation status.
func (c *Client) AdsByStatus(ctx context.Context, token, status string) ([]Ad, error) {
	var ads []Ad
	path := "/admin/ads?status=" + url.QueryEscape(status)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &ads); err != nil {
		return nil, err
	}
	return ads, nil
}

// SetAdStatus approves or rejects an ad.
func (c *Client) SetAdStatus(ctx context.Context, token, adID, status, reason string) error {
	payload := map[string]string{"status": status}
	if reason != "" {
		payload["reason"] = reason
	}
	path := "/admin/ads/" + url.PathEscape(adID) + "/status"
	return c.do(ctx, http.MethodPatch, path, token, payload, nil)
}

// Reports lists open user reports.
func (c *Client) Reports(ctx context.Context, token string) ([]Report, error) {
	var reports []Report
	if err := c.do(ctx, http.MethodGet, "/admin/reports", token, nil, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// ResolveReport closes a report with the given resolution.
func (c *Client) ResolveReport(ctx context.Context, token, reportID, resolution string) error {
	payload := map[string]string{"resolution": resolution}
	path := "/admin/reports/" + url.PathEscape(reportID)
	return c.do(ctx, http.MethodPatch, path, token, payload, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: %s", ErrRejected, readDetail(resp.Body))
	case resp.StatusCode >= 500:
		return fmt.Errorf("backend: status %d", resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func readDetail(r io.Reader) string {
	var problem struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4096)).Decode(&problem); err == nil {
		if problem.Detail != "" {
			return problem.Detail
		}
		if problem.Message != "" {
			return problem.Message
		}
	}
	return "request rejected"
}
