package gredi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Gateway issues authenticated requests against the DAM REST API. When a
// request comes back 401 it re-authenticates exactly once and retries exactly
// once; a second 401 is final. That single bounded retry is the only retry
// the client performs anywhere.
type Gateway struct {
	session *SessionManager
	client  *http.Client
}

// NewGateway wraps the session manager's HTTP client so requests pick up the
// session cookie jar installed at login.
func NewGateway(session *SessionManager) *Gateway {
	return &Gateway{session: session, client: session.httpClient}
}

// Get issues an authenticated GET and returns the response body.
func (g *Gateway) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	data, _, err := g.do(ctx, http.MethodGet, path, query, nil, "application/json")
	return data, err
}

// Download issues an authenticated GET and returns the body together with the
// response headers, so callers can read Content-Disposition.
func (g *Gateway) Download(ctx context.Context, path string) ([]byte, http.Header, error) {
	return g.do(ctx, http.MethodGet, path, nil, nil, "application/json")
}

// Post issues an authenticated POST with the given body and content type.
func (g *Gateway) Post(ctx context.Context, path string, body []byte, contentType string) ([]byte, error) {
	data, _, err := g.do(ctx, http.MethodPost, path, nil, body, contentType)
	return data, err
}

func (g *Gateway) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) ([]byte, http.Header, error) {
	if !g.session.IsAuthenticated() {
		if err := g.session.Authenticate(ctx); err != nil {
			return nil, nil, err
		}
	}

	endpoint := g.buildURL(path, query)

	data, header, status, err := g.attempt(ctx, method, endpoint, body, contentType)
	if err != nil {
		return nil, nil, err
	}

	if status == http.StatusUnauthorized {
		// Session expired mid-operation: one fresh login, one more attempt.
		slog.Warn("session expired, re-authenticating", "url", endpoint)
		if err := g.session.Authenticate(ctx); err != nil {
			return nil, nil, err
		}
		data, header, status, err = g.attempt(ctx, method, endpoint, body, contentType)
		if err != nil {
			return nil, nil, err
		}
	}

	if status < 200 || status > 299 {
		slog.Error("remote call failed", "url", endpoint, "status", status)
		return nil, nil, &RemoteError{StatusCode: status, URL: endpoint, Message: excerpt(data)}
	}
	return data, header, nil
}

func (g *Gateway) attempt(ctx context.Context, method, endpoint string, body []byte, contentType string) ([]byte, http.Header, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		slog.Error("remote call failed", "url", endpoint, "error", err)
		return nil, nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read response: %w", err)
	}
	return data, resp.Header, resp.StatusCode, nil
}

func (g *Gateway) buildURL(path string, query url.Values) string {
	endpoint := strings.TrimRight(g.session.cfg.APIURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

// excerpt bounds a response body for inclusion in error messages.
func excerpt(data []byte) string {
	const max = 200
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
