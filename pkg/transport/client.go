package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fbxctl/fbx-go/pkg/log"
)

// Defaults for ClientConfig.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxResponseSize = 4 << 20
	DefaultUserAgent       = "fbx-go"
)

// HeaderAppAuth carries the session token on privileged requests.
const HeaderAppAuth = "X-Fbx-App-Auth"

// Header holds extra request headers.
type Header map[string]string

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the device root, e.g. "http://mafreebox.freebox.fr".
	BaseURL string

	// APIPath is the versioned API path appended to BaseURL, e.g. "/api/v8".
	APIPath string

	// Timeout bounds each request when the context carries no deadline
	// (default: 10s).
	Timeout time.Duration

	// MaxResponseSize caps the bytes read from a response body (default: 4MB).
	MaxResponseSize int64

	// UserAgent is sent on every request.
	UserAgent string

	// HTTPClient overrides the underlying client (default: a fresh http.Client).
	HTTPClient *http.Client

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives a trace event for each request and response.
	ProtocolLogger log.Logger
}

// Client performs JSON requests against one device.
type Client struct {
	config  ClientConfig
	base    *url.URL
	apiPath string
	http    *http.Client
	logger  *slog.Logger
	plog    log.Logger
}

// Request describes one exchange.
type Request struct {
	Method string
	Path   string
	Body   any
	Header Header

	// Root addresses Path from the device root instead of the API path and
	// decodes the body directly, without the response envelope.
	Root bool
}

type envelope struct {
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	ErrorCode ErrorCode       `json:"error_code,omitempty"`
	Msg       string          `json:"msg,omitempty"`
}

// NewClient creates a Client for the device at config.BaseURL.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxResponseSize == 0 {
		config.MaxResponseSize = DefaultMaxResponseSize
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	base, err := parseBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		config:  config,
		base:    base,
		apiPath: normalizePath(config.APIPath),
		http:    httpClient,
		logger:  logger,
		plog:    log.OrNoop(config.ProtocolLogger),
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidURL, raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func normalizePath(p string) string {
	p = strings.TrimSuffix(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// BaseURL returns the device root URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// APIPath returns the versioned API path.
func (c *Client) APIPath() string {
	return c.apiPath
}

// SetAPIPath switches the versioned API path, e.g. after reading /api_version.
func (c *Client) SetAPIPath(p string) {
	c.apiPath = normalizePath(p)
}

// Get performs a GET and decodes the result into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, header Header, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Header: header}, out)
}

// Post performs a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, header Header, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Header: header}, out)
}

// Put performs a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, header Header, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body, Header: header}, out)
}

// Delete performs a DELETE.
func (c *Client) Delete(ctx context.Context, path string, header Header, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Header: header}, out)
}

// Do performs the exchange described by req and decodes the result into out.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	parent := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	target := c.resolve(req)
	op := req.Method + " " + target.Path

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidURL, op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	requestID := uuid.NewString()
	c.traceRequest(requestID, req, target.Path)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.traceError(requestID, op, err)
		if parent.Err() != nil {
			return fmt.Errorf("%s: %w", op, parent.Err())
		}
		return fmt.Errorf("%w: %s: %w", ErrUnreachable, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize))
	if err != nil {
		c.traceError(requestID, op, err)
		if parent.Err() != nil {
			return fmt.Errorf("%s: %w", op, parent.Err())
		}
		return fmt.Errorf("%w: %s: read body: %w", ErrUnreachable, op, err)
	}
	elapsed := time.Since(start)

	if req.Root {
		c.traceResponse(requestID, req.Method, target.Path, resp.StatusCode, nil, "", elapsed)
		return c.decodeRaw(op, resp.StatusCode, data, out)
	}
	return c.decodeEnvelope(requestID, req.Method, target.Path, op, resp.StatusCode, data, elapsed, out)
}

func (c *Client) resolve(req Request) *url.URL {
	u := *c.base
	p := req.Path
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if req.Root {
		u.Path = c.base.Path + p
	} else {
		u.Path = c.base.Path + c.apiPath + p
	}
	return &u
}

func (c *Client) decodeRaw(op string, status int, data []byte, out any) error {
	if status < 200 || status >= 300 {
		return fmt.Errorf("%s: %w", op, &APIError{StatusCode: status})
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}
	return nil
}

func (c *Client) decodeEnvelope(requestID, method, path, op string, status int, data []byte, elapsed time.Duration, out any) error {
	ok2xx := status >= 200 && status < 300

	if len(bytes.TrimSpace(data)) == 0 {
		c.traceResponse(requestID, method, path, status, nil, "", elapsed)
		if ok2xx {
			return nil
		}
		return fmt.Errorf("%s: %w", op, &APIError{StatusCode: status})
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.traceResponse(requestID, method, path, status, nil, "", elapsed)
		if !ok2xx {
			return fmt.Errorf("%s: %w", op, &APIError{StatusCode: status})
		}
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}

	success := env.Success
	c.traceResponse(requestID, method, path, status, &success, string(env.ErrorCode), elapsed)

	if !env.Success || !ok2xx {
		apiErr := &APIError{StatusCode: status, Code: env.ErrorCode, Message: env.Msg}
		c.logger.Debug("device rejected request",
			slog.String("op", op),
			slog.Int("status", status),
			slog.String("error_code", string(env.ErrorCode)))
		return fmt.Errorf("%s: %w", op, apiErr)
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: %s: result: %v", ErrMalformedResponse, op, err)
	}
	return nil
}

func (c *Client) traceRequest(requestID string, req Request, path string) {
	_, authenticated := req.Header[HeaderAppAuth]
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		RequestID: requestID,
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Exchange: &log.ExchangeEvent{
			Method:        req.Method,
			Path:          path,
			Authenticated: authenticated,
		},
	})
}

func (c *Client) traceResponse(requestID, method, path string, status int, success *bool, code string, elapsed time.Duration) {
	c.logger.Debug("http exchange",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("elapsed", elapsed))
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		RequestID: requestID,
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Exchange: &log.ExchangeEvent{
			Method:     method,
			Path:       path,
			StatusCode: status,
			Success:    success,
			ErrorCode:  code,
			Duration:   &elapsed,
		},
	})
}

func (c *Client) traceError(requestID, op string, err error) {
	c.logger.Debug("http exchange failed", slog.String("op", op), slog.Any("error", err))
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		RequestID: requestID,
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: op,
		},
	})
}
