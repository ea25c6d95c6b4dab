package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fbxctl/fbx-go/pkg/transport"
	"github.com/fbxctl/fbx-go/pkg/version"
)

// HeaderAppAuth is the session header name.
const HeaderAppAuth = transport.HeaderAppAuth

// AuthHeader returns the header set for a privileged request.
func AuthHeader(sessionToken string) transport.Header {
	return transport.Header{HeaderAppAuth: sessionToken}
}

// Client wraps a transport.Client with typed login calls.
type Client struct {
	t *transport.Client
}

// NewClient creates a Client over t.
func NewClient(t *transport.Client) *Client {
	return &Client{t: t}
}

// Transport returns the underlying transport, for privileged domain calls.
func (c *Client) Transport() *transport.Client {
	return c.t
}

// APIVersion reads the unauthenticated device description at /api_version.
func (c *Client) APIVersion(ctx context.Context) (*version.Info, error) {
	var info version.Info
	req := transport.Request{Method: http.MethodGet, Path: "/api_version", Root: true}
	if err := c.t.Do(ctx, req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Authorize registers an application. The device shows the request on its
// own screen until a human accepts or rejects it.
func (c *Client) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	var res AuthorizeResult
	if err := c.t.Post(ctx, "/login/authorize", req, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AuthorizationStatus polls the registration identified by trackID.
func (c *Client) AuthorizationStatus(ctx context.Context, trackID int) (*AuthorizationProgress, error) {
	var res AuthorizationProgress
	if err := c.t.Get(ctx, fmt.Sprintf("/login/authorize/%d", trackID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Login returns the login status. The session header is attached only when
// sessionToken is non-empty.
func (c *Client) Login(ctx context.Context, sessionToken string) (*LoginResult, error) {
	var header transport.Header
	if sessionToken != "" {
		header = AuthHeader(sessionToken)
	}
	var res LoginResult
	if err := c.t.Get(ctx, "/login", header, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// StartSession opens a session.
func (c *Client) StartSession(ctx context.Context, req SessionStartRequest) (*SessionStartResult, error) {
	var res SessionStartResult
	if err := c.t.Post(ctx, "/login/session", req, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout closes the session identified by sessionToken.
func (c *Client) Logout(ctx context.Context, sessionToken string) error {
	return c.t.Post(ctx, "/login/logout/", struct{}{}, AuthHeader(sessionToken), nil)
}
