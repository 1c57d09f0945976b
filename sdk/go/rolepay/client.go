package rolepay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the RolePay status API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// RoleSnapshot mirrors the per-role view exposed by the status API.
type RoleSnapshot struct {
	RoleID          string `json:"role_id"`
	RoleName        string `json:"role_name"`
	ReadyCount      int    `json:"ready_count"`
	NextPaymentTime int64  `json:"next_payment_time,omitempty"`
	Balance         uint64 `json:"balance"`
	ExpiryTime      int64  `json:"expiry_time"`
	Action          string `json:"action"`
	LastCheckedAt   int64  `json:"last_checked_at"`
}

// Settlement is one audited settlement submission.
type Settlement struct {
	ID        string `json:"id"`
	RoleID    string `json:"role_id"`
	RoleName  string `json:"role_name"`
	Action    string `json:"action"`
	Digest    string `json:"digest,omitempty"`
	Affected  int    `json:"affected"`
	Status    string `json:"status"`
	LastError string `json:"last_error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// SettlementFilter narrows the settlement listing.
type SettlementFilter struct {
	RoleID string
	Status string
	Limit  int
	Offset int
}

// Health is the payload returned by the health endpoint.
type Health struct {
	Status      string         `json:"status"`
	Roles       int            `json:"roles"`
	Settlements map[string]any `json:"settlements,omitempty"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("rolepay api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the RolePay status API. When httpClient
// is nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) *Client {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		panic(fmt.Sprintf("invalid base url: %v", err))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}
}

// Roles lists the latest snapshot of every tracked role.
func (c *Client) Roles(ctx context.Context) ([]RoleSnapshot, error) {
	var snapshots []RoleSnapshot
	if err := c.get(ctx, "/api/v1/roles", &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Role fetches the snapshot of a single role by object identifier.
func (c *Client) Role(ctx context.Context, roleID string) (RoleSnapshot, error) {
	var snapshot RoleSnapshot
	endpoint := "/api/v1/roles/" + url.PathEscape(roleID)
	if err := c.get(ctx, endpoint, &snapshot); err != nil {
		return RoleSnapshot{}, err
	}
	return snapshot, nil
}

// Settlements lists audited settlement records, newest first.
func (c *Client) Settlements(ctx context.Context, filter SettlementFilter) ([]Settlement, error) {
	query := url.Values{}
	if filter.RoleID != "" {
		query.Set("role_id", filter.RoleID)
	}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}
	if filter.Offset > 0 {
		query.Set("offset", fmt.Sprintf("%d", filter.Offset))
	}
	endpoint := "/api/v1/settlements"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var settlements []Settlement
	if err := c.get(ctx, endpoint, &settlements); err != nil {
		return nil, err
	}
	return settlements, nil
}

// Health checks daemon liveness and returns settlement statistics.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	if err := c.get(ctx, "/healthz", &health); err != nil {
		return Health{}, err
	}
	return health, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, parsed.Path), RawQuery: parsed.RawQuery}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(data)),
		}
	}

	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
