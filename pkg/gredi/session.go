package gredi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const sessionCookieName = "JSESSIONID"

// sessionTTL is how long a session cookie is trusted before the next request
// re-authenticates proactively. The remote expires sessions server-side; this
// bound just avoids sending requests with a cookie that is certainly stale.
const sessionTTL = 30 * time.Minute

// SessionManager holds the DAM credentials and the current session cookie.
// One SessionManager serves one logical session; it is not safe for use by
// multiple concurrent sessions and is never persisted across processes.
type SessionManager struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	token      string
	issuedAt   time.Time
	customerID string
}

// NewSessionManager creates a SessionManager for the given config. A nil
// httpClient gets a default client with a 30s timeout. The session cookie jar
// is installed on the client after a successful login, so the same client
// must be shared with the request gateway.
func NewSessionManager(cfg Config, httpClient *http.Client) *SessionManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &SessionManager{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Authenticate performs the login POST and installs the returned session
// cookie. Credential rejections (400/403) surface as *InvalidCredentialsError;
// any other failure is logged and returned as a generic remote error.
func (s *SessionManager) Authenticate(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"customer": s.cfg.CustomerPath,
		"username": s.cfg.Username,
		"password": s.cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("marshal login body: %w", err)
	}

	endpoint := s.endpoint("sessions/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("login request failed", "url", endpoint, "error", err)
		return fmt.Errorf("send login request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		token, err := extractSessionToken(resp.Header.Get("Set-Cookie"))
		if err != nil {
			return fmt.Errorf("parse session cookie: %w", err)
		}
		if err := s.installCookie(token); err != nil {
			return err
		}
		s.token = token
		s.issuedAt = s.now()
		slog.Debug("authenticated", "customer", s.cfg.CustomerPath)
		return nil

	case http.StatusBadRequest, http.StatusForbidden:
		data, _ := io.ReadAll(resp.Body)
		var remote struct {
			Code        string `json:"error"`
			Description string `json:"error_description"`
		}
		if err := json.Unmarshal(data, &remote); err != nil || remote.Code == "" && remote.Description == "" {
			remote.Code = fmt.Sprintf("HTTP %d", resp.StatusCode)
			remote.Description = "Invalid credentials"
		}
		return &InvalidCredentialsError{Code: remote.Code, Description: remote.Description}

	default:
		data, _ := io.ReadAll(resp.Body)
		slog.Error("login failed", "url", endpoint, "status", resp.StatusCode, "body", string(data))
		return &RemoteError{StatusCode: resp.StatusCode, URL: endpoint, Message: "login failed"}
	}
}

// IsAuthenticated reports whether a session cookie is held and has not
// outlived the session TTL.
func (s *SessionManager) IsAuthenticated() bool {
	return s.token != "" && s.now().Sub(s.issuedAt) < sessionTTL
}

// CookieJar returns the jar holding the session cookie, or nil before the
// first successful login.
func (s *SessionManager) CookieJar() http.CookieJar {
	return s.httpClient.Jar
}

// CustomerID returns the configured customer id, resolving it from the
// customer path on first call. The result is cached for the process lifetime.
func (s *SessionManager) CustomerID(ctx context.Context) (string, error) {
	if s.cfg.CustomerID != "" {
		return s.cfg.CustomerID, nil
	}
	if s.customerID != "" {
		return s.customerID, nil
	}

	if !s.IsAuthenticated() {
		if err := s.Authenticate(ctx); err != nil {
			return "", err
		}
	}

	endpoint := s.endpoint("customerIds/" + url.PathEscape(s.cfg.CustomerPath))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create customer id request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("customer id lookup failed", "url", endpoint, "error", err)
		return "", fmt.Errorf("send customer id request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read customer id response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("customer id lookup failed", "url", endpoint, "status", resp.StatusCode)
		return "", &RemoteError{StatusCode: resp.StatusCode, URL: endpoint, Message: "customer id lookup failed"}
	}

	var payload struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("parse customer id response: %w", err)
	}
	if payload.ID.String() == "" {
		return "", fmt.Errorf("customer id missing for path %q", s.cfg.CustomerPath)
	}

	s.customerID = payload.ID.String()
	return s.customerID, nil
}

// installCookie scopes the session cookie to the API host and hands the jar
// to the shared HTTP client.
func (s *SessionManager) installCookie(token string) error {
	u, err := url.Parse(s.cfg.APIURL)
	if err != nil {
		return fmt.Errorf("parse api url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}
	jar.SetCookies(u, []*http.Cookie{{
		Name:  sessionCookieName,
		Value: token,
		Path:  "/",
	}})
	s.httpClient.Jar = jar
	return nil
}

func (s *SessionManager) endpoint(path string) string {
	return strings.TrimRight(s.cfg.APIURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// extractSessionToken pulls the cookie value out of a Set-Cookie header:
// the substring between the first "=" and the next ";".
func extractSessionToken(setCookie string) (string, error) {
	eq := strings.Index(setCookie, "=")
	if eq < 0 {
		return "", fmt.Errorf("no session cookie in login response")
	}
	value := setCookie[eq+1:]
	if semi := strings.Index(value, ";"); semi >= 0 {
		value = value[:semi]
	}
	if value == "" {
		return "", fmt.Errorf("empty session cookie in login response")
	}
	return value, nil
}
