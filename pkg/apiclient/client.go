// Package apiclient is the single HTTP transport to the storefront REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/raamul-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/metrics"
	"github.com/google/uuid"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultErrorMessage    = "An error occurred"
	responseBodyReadLimit  = 4 << 20
	HeaderRequestID        = "X-Request-Id"
	HeaderIdempotencyKey   = "Idempotency-Key"
	contentTypeJSON        = "application/json"
	bearerPrefix           = "Bearer "
	routeIDPlaceholder     = ":id"
	maxLiteralRouteSegment = 24
)

var (
	errBaseURLRequired = errors.New("api base url is required")

	// ErrTransport marks failures where no HTTP response was received.
	ErrTransport = errors.New("transport failure")

	literalSegment = regexp.MustCompile(`^[a-z][a-z_-]*$`)
)

// TokenSource yields the bearer token for the current session, or "" when signed out.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// UnauthorizedHandler runs when the API answers 401, before the error is returned.
type UnauthorizedHandler func(ctx context.Context)

// Client issues JSON requests against the API base URL.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	tokens         TokenSource
	onUnauthorized UnauthorizedHandler
	logg           *logger.Logger
	metrics        *metrics.RequestMetrics
	newRequestID   func() string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithTokenSource attaches a bearer token to every request when one is available.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithUnauthorizedHandler registers the session invalidation hook.
func WithUnauthorizedHandler(handler UnauthorizedHandler) Option {
	return func(c *Client) {
		c.onUnauthorized = handler
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

func WithMetrics(m *metrics.RequestMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRequestIDFunc overrides request id generation.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newRequestID = fn
		}
	}
}

// New builds a client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parsing api base url: %w", err)
	}

	client := &Client{
		baseURL:      trimmed,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		logg:         logger.Nop(),
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig builds a client for the configured API.
func NewFromConfig(cfg config.APIConfig, opts ...Option) (*Client, error) {
	return New(cfg.BaseURL, append([]Option{WithTimeout(cfg.RequestTimeout)}, opts...)...)
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends a JSON request and decodes a 2xx body into out. Bodies of POST, PUT and PATCH
// default to an empty object.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var body io.Reader
	if req.Body != nil || hasBody(req.Method) {
		payload := req.Body
		if payload == nil {
			payload = struct{}{}
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode request body")
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.buildURL(req.Path, req.Query), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeJSON)
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	return c.send(ctx, httpReq, req.Path, out)
}

func (c *Client) send(ctx context.Context, httpReq *http.Request, path string, out any) error {
	requestID := c.newRequestID()
	httpReq.Header.Set(HeaderRequestID, requestID)
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", bearerPrefix+token)
		}
	}

	route := RouteLabel(path)
	ctx = c.logg.WithFields(ctx, map[string]any{
		"request_id": requestID,
		"method":     httpReq.Method,
		"route":      route,
	})

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.Observe(httpReq.Method, route, 0, time.Since(started))
		c.logg.Debug(c.logg.WithField(ctx, "error", err.Error()), "api request failed before response")
		return transportError(err, httpReq.Method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	elapsed := time.Since(started)
	c.metrics.Observe(httpReq.Method, route, resp.StatusCode, elapsed)
	c.logg.Debug(c.logg.WithFields(ctx, map[string]any{
		"status":      resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
	}), "api request completed")
	if readErr != nil {
		return transportError(readErr, httpReq.Method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseError(resp.StatusCode, raw)
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return pkgerrors.Wrap(pkgerrors.CodeForStatus(resp.StatusCode), apiErr, apiErr.Message)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s %s response", httpReq.Method, path))
	}
	return nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	target := c.baseURL
	if trimmed := strings.TrimLeft(path, "/"); trimmed != "" {
		target = fmt.Sprintf("%s/%s", c.baseURL, trimmed)
	}
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func transportError(err error, method, path string) error {
	code := pkgerrors.CodeDependency
	var netTimeout interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netTimeout) && netTimeout.Timeout()) {
		code = pkgerrors.CodeTimeout
	}
	return pkgerrors.Wrap(code, fmt.Errorf("%w: %w", ErrTransport, err), fmt.Sprintf("%s %s failed", method, path))
}

// IsTransport reports whether err came from a request that never got an HTTP response.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// RouteLabel collapses identifier segments so metrics stay low-cardinality.
func RouteLabel(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	segments := strings.Split(trimmed, "/")
	for i, segment := range segments {
		if i == 0 {
			continue
		}
		if len(segment) > maxLiteralRouteSegment || !literalSegment.MatchString(segment) {
			segments[i] = routeIDPlaceholder
		}
	}
	return "/" + strings.Join(segments, "/")
}
