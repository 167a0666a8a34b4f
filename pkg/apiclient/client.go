// Package apiclient is the JSON/REST client the storefront uses to reach its
// backend. It attaches the bearer token, unwraps the {"data": ...} envelope
// and separates transport failures from server rejections.
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
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
)

const (
	defaultBaseURL             = "http://localhost:5000/api"
	defaultTimeout             = 10 * time.Second
	errorBodyReadLimit   int64 = 4096
	responseBodyMaxBytes int64 = 8 << 20
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request is sent anonymously.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// Client wraps the storefront REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logg       *logger.Logger
	verbose    bool
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

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithTokenSource attaches an Authorization header when a token is present.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithLogger enables request tracing. verbose logs every call at info level,
// otherwise calls are traced at debug.
func WithLogger(logg *logger.Logger, verbose bool) Option {
	return func(c *Client) {
		c.logg = logg
		c.verbose = verbose
	}
}

// New builds the API client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimSpace(baseURL),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one API call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers map[string]string
}

// Get issues a GET and decodes the unwrapped payload into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post issues a POST with a JSON body and decodes the unwrapped payload into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Do executes req. Errors are typed: CodeTransport when no usable response
// arrived, otherwise the server's own code (or one derived from the status).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "api client not configured")
	}
	endpoint := req.Method + " " + req.Path

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode "+endpoint)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.buildURL(req.Path, req.Query), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build "+endpoint)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token(ctx)); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.trace(ctx, endpoint, 0, time.Since(start), err)
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, endpoint)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		rejection := rejectionFrom(resp.StatusCode, raw, endpoint)
		c.trace(ctx, endpoint, resp.StatusCode, time.Since(start), rejection)
		return rejection
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyMaxBytes))
	if err != nil {
		c.trace(ctx, endpoint, resp.StatusCode, time.Since(start), err)
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "read "+endpoint)
	}
	c.trace(ctx, endpoint, resp.StatusCode, time.Since(start), nil)

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "decode "+endpoint)
	}
	return nil
}

// unwrapData returns the "data" member of a success envelope, or raw itself
// when the server answered with a bare document.
func unwrapData(raw []byte) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	if data, ok := envelope["data"]; ok && len(envelope) == 1 {
		return data
	}
	return raw
}

type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details,omitempty"`
	} `json:"error"`
	Message string `json:"message"`
}

func rejectionFrom(status int, raw []byte, endpoint string) error {
	code := codeForStatus(status)
	message := fmt.Sprintf("%s returned status %d", endpoint, status)
	var details any

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case envelope.Error != nil:
			if envelope.Error.Code != "" {
				code = pkgerrors.Code(envelope.Error.Code)
			}
			if envelope.Error.Message != "" {
				message = envelope.Error.Message
			}
			details = envelope.Error.Details
		case envelope.Message != "":
			message = envelope.Message
		}
	}

	typed := pkgerrors.New(code, message)
	if details != nil {
		typed = typed.WithDetails(details)
	}
	return &RejectionError{Status: status, Endpoint: endpoint, Err: typed}
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	}
	if status >= 500 {
		return pkgerrors.CodeDependency
	}
	return pkgerrors.CodeInternal
}

// RejectionError is returned when the server answered with a non-2xx status.
// It unwraps to the typed *pkgerrors.Error carrying the server's code.
type RejectionError struct {
	Status   int
	Endpoint string
	Err      *pkgerrors.Error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Endpoint, e.Status, e.Err.Error())
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// IsRejection reports whether err is a server rejection rather than a transport failure.
func IsRejection(err error) bool {
	var rejection *RejectionError
	return errors.As(err, &rejection)
}

// StatusOf returns the HTTP status of a rejection, or 0.
func StatusOf(err error) int {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Status
	}
	return 0
}

func (c *Client) trace(ctx context.Context, endpoint string, status int, elapsed time.Duration, err error) {
	if c.logg == nil {
		return
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"endpoint":    endpoint,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
	})
	switch {
	case err != nil && status == 0:
		c.logg.Warn(ctx, "api request failed: "+err.Error())
	case err != nil:
		c.logg.Warn(ctx, "api request rejected")
	case c.verbose:
		c.logg.Info(ctx, "api request")
	default:
		c.logg.Debug(ctx, "api request")
	}
}

func (c *Client) buildURL(path string, query url.Values) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	full := fmt.Sprintf("%s/%s", trimmed, path)
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

// PathEscape is re-exported for callers building resource paths from ids.
func PathEscape(segment string) string {
	return url.PathEscape(segment)
}
