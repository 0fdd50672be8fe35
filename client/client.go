// Package client drives the BFF from outside a browser: the session routes,
// the admin elevation routes and the operator proxies.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/layer-3/agora-gate/core"
)

// StatusError is returned for any non-2xx answer from the BFF
type StatusError = core.StatusError

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	return core.StatusOf(err)
}

const maxRedirects = 10

// Client calls the BFF with a cookie jar, sending the Origin a browser would
type Client struct {
	baseURL string
	origin  string
	http    *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the http.Client. Its Jar and CheckRedirect are kept if set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the BFF at baseURL using jar for session cookies
func New(baseURL string, jar http.CookieJar, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid BFF url %q", baseURL)
	}

	c := &Client{
		baseURL: u.String(),
		origin:  u.Scheme + "://" + u.Host,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	if c.http.CheckRedirect == nil {
		c.http.CheckRedirect = c.sameOriginRedirect
	}
	return c, nil
}

// sameOriginRedirect stops at any redirect that leaves the BFF origin, so the
// jar never hands session cookies to another host
func (c *Client) sameOriginRedirect(req *http.Request, via []*http.Request) error {
	if req.URL.Scheme+"://"+req.URL.Host != c.origin {
		return http.ErrUseLastResponse
	}
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return nil
}

// Me reports the cookie-derived session
func (c *Client) Me(ctx context.Context) (core.SessionInfo, error) {
	var info core.SessionInfo
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &info)
	return info, err
}

// Challenge requests a login challenge for address
func (c *Client) Challenge(ctx context.Context, address string) (*core.Challenge, error) {
	var ch core.Challenge
	if err := c.do(ctx, http.MethodPost, "/api/auth/challenge", map[string]string{"address": address}, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// Verify submits the login signature. On success the jar holds the session cookies.
func (c *Client) Verify(ctx context.Context, address, signature string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/verify", map[string]string{
		"address":   address,
		"signature": signature,
	}, nil)
}

// Logout clears the session cookies
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", map[string]any{}, nil)
}

// AdminStatus reports whether the elevation cookie is present
func (c *Client) AdminStatus(ctx context.Context) (bool, error) {
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.do(ctx, http.MethodGet, "/api/admin/access/status", nil, &out)
	return out.OK, err
}

// AdminChallenge requests an elevation challenge
func (c *Client) AdminChallenge(ctx context.Context) (*core.Challenge, error) {
	var ch core.Challenge
	if err := c.do(ctx, http.MethodPost, "/api/admin/access/challenge", map[string]any{}, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// AdminVerify submits the elevation signature
func (c *Client) AdminVerify(ctx context.Context, signature string) error {
	return c.do(ctx, http.MethodPost, "/api/admin/access/verify", map[string]string{"signature": signature}, nil)
}

// AdminGet reads an operator-only BFF route, e.g. /api/admin/metrics
func (c *Client) AdminGet(ctx context.Context, path string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", c.origin)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(text)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(text, out); err != nil {
		return fmt.Errorf("%s %s returned invalid JSON: %w", method, path, err)
	}
	return nil
}
