// Package gateway is the single chokepoint for outbound HTTP calls.
//
// It attaches the stored bearer credential when one exists, tags every
// request with an id, and turns transport failures and non-2xx responses
// into *service.Error values. It never retries.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"taskflow/internal/service"
)

// RequestIDHeader carries the per-request id.
const RequestIDHeader = "X-Request-ID"

// Request describes one API call.
type Request struct {
	Method string
	// Path is appended to the base URL, e.g. "/api/v1/tasks/u1".
	// Segments must already be escaped.
	Path   string
	Body   any
	Header http.Header
	Params url.Values
}

// Client performs API calls against a base URL.
type Client struct {
	base string
	http *http.Client
	log  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying client. Its transport is wrapped, not replaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.http = &cp
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTimeout bounds each call. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a Client. creds may be nil, in which case no credential is ever attached.
func New(baseURL string, creds oauth2.TokenSource, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url: %s", baseURL)
	}

	c := &Client{
		base: baseURL,
		http: &http.Client{},
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}

	next := c.http.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	c.http.Transport = &bearerTransport{base: next, src: creds, log: c.log}
	return c, nil
}

// Do performs req and decodes a JSON response body into out (if non-nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	u, err := url.Parse(c.base + req.Path)
	if err != nil {
		return &service.Error{Kind: service.KindTransport, Err: err}
	}
	if len(req.Params) > 0 {
		u.RawQuery = req.Params.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return &service.Error{Kind: service.KindValidation, Message: "invalid request body", Err: err}
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return &service.Error{Kind: service.KindTransport, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	id := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, id)

	start := time.Now()
	res, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug("request failed", "id", id, "method", method, "url", u.Redacted(), "err", err)
		if ctx.Err() != nil {
			return &service.Error{Kind: service.KindTransport, Message: "request cancelled", Err: ctx.Err()}
		}
		return &service.Error{Kind: service.KindTransport, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer res.Body.Close()
	c.log.Debug("request", "id", id, "method", method, "url", u.Redacted(),
		"status", res.StatusCode, "elapsed", time.Since(start))

	if err := googleapi.CheckResponse(res); err != nil {
		return classify(err)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return &service.Error{Kind: service.KindTransport, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &service.Error{Kind: service.KindTransport, Err: fmt.Errorf("invalid response: %w", err)}
	}
	return nil
}

// classify maps a non-2xx response to the error taxonomy. The server's
// {"message": ...} is kept when present.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &service.Error{Kind: service.KindTransport, Err: err}
	}

	var kind service.Kind
	switch gerr.Code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		kind = service.KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = service.KindAuth
	case http.StatusNotFound:
		kind = service.KindNotFound
	default:
		kind = service.KindTransport
	}

	return &service.Error{
		Kind:    kind,
		Message: serverMessage(gerr),
		Status:  gerr.Code,
		Err:     fmt.Errorf("request failed with status %d", gerr.Code),
	}
}

func serverMessage(gerr *googleapi.Error) string {
	var reply struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(gerr.Body), &reply); err == nil {
		if reply.Message != "" {
			return reply.Message
		}
		if reply.Error != "" {
			return reply.Error
		}
	}
	// googleapi parses the {"error": {"message": ...}} shape itself.
	return gerr.Message
}

// bearerTransport attaches the stored credential to outgoing requests.
// When no credential is stored the request goes out without one.
type bearerTransport struct {
	base http.RoundTripper
	src  oauth2.TokenSource
	log  *slog.Logger
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.src == nil || req.Header.Get("Authorization") != "" {
		return t.base.RoundTrip(req)
	}
	tok, err := t.src.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		if err != nil {
			t.log.Debug("no credential attached", "err", err)
		}
		return t.base.RoundTrip(req)
	}
	r2 := req.Clone(req.Context())
	tok.SetAuthHeader(r2)
	return t.base.RoundTrip(r2)
}
