// Package restapi implements service.Service against the task REST API.
package restapi

import (
	"context"
	"net/http"
	"net/url"

	"taskflow/internal/gateway"
	"taskflow/internal/service"
)

const (
	// AuthBase is the path prefix of the auth endpoints.
	AuthBase = "/api/v1/auth"

	// TasksBase is the path prefix of the task endpoints.
	TasksBase = "/api/v1/tasks"
)

// Doer performs a gateway request. *gateway.Client implements it.
type Doer interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

// Client implements service.Service as a stateless translation onto the gateway.
// Gateway errors are returned unchanged.
type Client struct {
	gw Doer
}

// New creates a Client over gw.
func New(gw Doer) *Client {
	return &Client{gw: gw}
}

func seg(s string) string {
	return url.PathEscape(s)
}

func (c *Client) envelope(ctx context.Context, method, path string, body any, params url.Values) (service.Envelope, error) {
	var env service.Envelope
	err := c.gw.Do(ctx, gateway.Request{Method: method, Path: path, Body: body, Params: params}, &env)
	if err != nil {
		return service.Envelope{}, err
	}
	return env, nil
}

// List returns all tasks owned by ownerID.
func (c *Client) List(ctx context.Context, ownerID string) (service.Envelope, error) {
	return c.envelope(ctx, http.MethodGet, TasksBase+"/"+seg(ownerID), nil, nil)
}

// GetByID returns one task.
func (c *Client) GetByID(ctx context.Context, taskID string) (service.Envelope, error) {
	return c.envelope(ctx, http.MethodGet, TasksBase+"/task/"+seg(taskID), nil, nil)
}

// Create creates a task.
func (c *Client) Create(ctx context.Context, input service.TaskInput) (service.Envelope, error) {
	return c.envelope(ctx, http.MethodPost, TasksBase, input, nil)
}

// Update applies a partial update.
func (c *Client) Update(ctx context.Context, taskID string, patch service.TaskPatch) (service.Envelope, error) {
	return c.envelope(ctx, http.MethodPut, TasksBase+"/"+seg(taskID), patch, nil)
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, taskID string) (service.Envelope, error) {
	return c.envelope(ctx, http.MethodDelete, TasksBase+"/"+seg(taskID), nil, nil)
}

// ToggleStatus sets a task's status.
func (c *Client) ToggleStatus(ctx context.Context, taskID string, status service.Status) (service.Envelope, error) {
	body := struct {
		Status service.Status `json:"status"`
	}{status}
	return c.envelope(ctx, http.MethodPut, TasksBase+"/status/"+seg(taskID), body, nil)
}

// ListByCategory returns the owner's tasks in one category.
func (c *Client) ListByCategory(ctx context.Context, ownerID string, category service.Category) (service.Envelope, error) {
	return c.envelope(ctx, http.MethodGet, TasksBase+"/"+seg(ownerID)+"/category/"+seg(string(category)), nil, nil)
}

// ListPending returns the owner's pending tasks.
func (c *Client) ListPending(ctx context.Context, ownerID string) (service.Envelope, error) {
	return c.envelope(ctx, http.MethodGet, TasksBase+"/pending/"+seg(ownerID), nil, nil)
}

// ListCompleted returns the owner's completed tasks.
func (c *Client) ListCompleted(ctx context.Context, ownerID string) (service.Envelope, error) {
	return c.envelope(ctx, http.MethodGet, TasksBase+"/completed/"+seg(ownerID), nil, nil)
}

// Search matches tasks by free text.
func (c *Client) Search(ctx context.Context, query string) (service.Envelope, error) {
	return c.envelope(ctx, http.MethodGet, TasksBase+"/search", nil, url.Values{"query": {query}})
}

func (c *Client) auth(ctx context.Context, op string, body any) (service.AuthResult, error) {
	var res service.AuthResult
	err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: AuthBase + "/" + op, Body: body}, &res)
	if err != nil {
		return service.AuthResult{}, err
	}
	return res, nil
}

// SendOTP asks the service to mail a signup code.
func (c *Client) SendOTP(ctx context.Context, email string) (service.AuthResult, error) {
	return c.auth(ctx, "sendotp", struct {
		Email string `json:"email"`
	}{email})
}

// Signup registers a user.
func (c *Client) Signup(ctx context.Context, input service.SignupInput) (service.AuthResult, error) {
	return c.auth(ctx, "signup", input)
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	return c.auth(ctx, "login", struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password})
}

var _ service.Service = (*Client)(nil)
