package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sponte/pkg/api"
)

// Client handles API calls to the sponte controller.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a new client with the given base URL and token.
// Generation calls are synchronous, so the timeout is generous.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("API error (%d): %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// do sends a JSON request and decodes a 2xx body into out. A non-2xx body is
// decoded as api.ErrorResponse when possible.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var e api.ErrorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			apiErr.Message, apiErr.Details = e.Error, e.Details
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &apiErrorWithBody{APIError: apiErr, body: respBody}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// apiErrorWithBody keeps the raw body for endpoints that return a payload
// alongside an error status.
type apiErrorWithBody struct {
	*APIError
	body []byte
}

func (e *apiErrorWithBody) Unwrap() error { return e.APIError }

// MyLocation sends GET /locations/me.
func (c *Client) MyLocation(ctx context.Context) (*api.LocationResponse, error) {
	var loc api.LocationResponse
	if err := c.do(ctx, http.MethodGet, "/locations/me", nil, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// TaskQuery filters ListTasks.
type TaskQuery struct {
	AgentType string
	Status    string
	Limit     int
	Offset    int
}

func (q TaskQuery) encode() string {
	v := url.Values{}
	if q.AgentType != "" {
		v.Set("agent", q.AgentType)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	pageValues(v, q.Limit, q.Offset)
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func pageValues(v url.Values, limit, offset int) {
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
}

// ListTasks sends GET /locations/{id}/tasks.
func (c *Client) ListTasks(ctx context.Context, locationID string, q TaskQuery) ([]api.TaskResponse, error) {
	var resp api.TaskListResponse
	if err := c.do(ctx, http.MethodGet, "/locations/"+locationID+"/tasks"+q.encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// GetTask sends GET /tasks/{id}.
func (c *Client) GetTask(ctx context.Context, taskID string) (*api.TaskResponse, error) {
	var task api.TaskResponse
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Generate sends POST /agents/{agent}/generate. On a generation failure the
// controller still returns the failed task, which is returned with the error.
func (c *Client) Generate(ctx context.Context, agent string, req api.GenerateRequest) (*api.GenerateResponse, error) {
	var resp api.GenerateResponse
	err := c.do(ctx, http.MethodPost, "/agents/"+agent+"/generate", req, &resp)
	if err == nil {
		return &resp, nil
	}
	var withBody *apiErrorWithBody
	if errors.As(err, &withBody) && json.Unmarshal(withBody.body, &resp) == nil && resp.Task.ID != "" {
		return &resp, withBody.APIError
	}
	return nil, err
}

// IsDue sends GET /locations/{id}/agents/{agent}/due.
func (c *Client) IsDue(ctx context.Context, locationID, agent string) (*api.DueResponse, error) {
	var resp api.DueResponse
	if err := c.do(ctx, http.MethodGet, "/locations/"+locationID+"/agents/"+agent+"/due", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListDrafts sends GET /locations/{id}/drafts.
func (c *Client) ListDrafts(ctx context.Context, locationID string, limit, offset int) ([]api.OutputResponse, error) {
	v := url.Values{}
	pageValues(v, limit, offset)
	path := "/locations/" + locationID + "/drafts"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var resp api.OutputListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Outputs, nil
}

// GetOutput sends GET /outputs/{id}.
func (c *Client) GetOutput(ctx context.Context, outputID string) (*api.OutputResponse, error) {
	return c.output(ctx, http.MethodGet, "/outputs/"+outputID, nil)
}

// ApproveOutput sends POST /outputs/{id}/approve.
func (c *Client) ApproveOutput(ctx context.Context, outputID string) (*api.OutputResponse, error) {
	return c.output(ctx, http.MethodPost, "/outputs/"+outputID+"/approve", nil)
}

// RejectOutput sends POST /outputs/{id}/reject.
func (c *Client) RejectOutput(ctx context.Context, outputID, reason string) (*api.OutputResponse, error) {
	return c.output(ctx, http.MethodPost, "/outputs/"+outputID+"/reject", api.RejectOutputRequest{Reason: reason})
}

// EditOutput sends PATCH /outputs/{id}.
func (c *Client) EditOutput(ctx context.Context, outputID string, req api.EditOutputRequest) (*api.OutputResponse, error) {
	return c.output(ctx, http.MethodPatch, "/outputs/"+outputID, req)
}

// PostOutput sends POST /outputs/{id}/post.
func (c *Client) PostOutput(ctx context.Context, outputID string, req api.PostOutputRequest) (*api.OutputResponse, error) {
	return c.output(ctx, http.MethodPost, "/outputs/"+outputID+"/post", req)
}

func (c *Client) output(ctx context.Context, method, path string, body any) (*api.OutputResponse, error) {
	var out api.OutputResponse
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReports sends GET /locations/{id}/reports. An empty reportType lists all.
func (c *Client) ListReports(ctx context.Context, locationID, reportType string, limit, offset int) (*api.ReportListResponse, error) {
	v := url.Values{}
	if reportType != "" {
		v.Set("type", reportType)
	}
	pageValues(v, limit, offset)
	path := "/locations/" + locationID + "/reports"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var resp api.ReportListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LatestReport sends GET /locations/{id}/reports/latest. The controller
// defaults an empty reportType to weekly.
func (c *Client) LatestReport(ctx context.Context, locationID, reportType string) (*api.ReportResponse, error) {
	path := "/locations/" + locationID + "/reports/latest"
	if reportType != "" {
		path += "?" + url.Values{"type": {reportType}}.Encode()
	}
	var r api.ReportResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReport sends POST /reports.
func (c *Client) CreateReport(ctx context.Context, req api.CreateReportRequest) (*api.ReportResponse, error) {
	var r api.ReportResponse
	if err := c.do(ctx, http.MethodPost, "/reports", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GoogleStatus sends GET /oauth/google/status/{id}.
func (c *Client) GoogleStatus(ctx context.Context, locationID string) (*api.OAuthStatusResponse, error) {
	var s api.OAuthStatusResponse
	if err := c.do(ctx, http.MethodGet, "/oauth/google/status/"+locationID, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
