package gredi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthenticateInstallsSessionCookie(t *testing.T) {
	var loginBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&loginBody); err != nil {
			t.Errorf("decode login body: %v", err)
		}
		w.Header().Set("Set-Cookie", "JSESSIONID=sess-abc123; Path=/; HttpOnly")
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := Config{APIURL: srv.URL, CustomerPath: "acme", Username: "user", Password: "pass"}
	s := NewSessionManager(cfg, srv.Client())

	if err := s.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}

	if s.token != "sess-abc123" {
		t.Errorf("expected token sess-abc123, got %q", s.token)
	}
	if !s.IsAuthenticated() {
		t.Error("expected session to be authenticated")
	}
	if s.CookieJar() == nil {
		t.Error("expected cookie jar to be installed")
	}
	if loginBody["customer"] != "acme" || loginBody["username"] != "user" || loginBody["password"] != "pass" {
		t.Errorf("unexpected login body: %v", loginBody)
	}
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Bad credentials",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewSessionManager(Config{APIURL: srv.URL, CustomerPath: "acme"}, srv.Client())
	err := s.Authenticate(context.Background())

	var credErr *InvalidCredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected InvalidCredentialsError, got %v", err)
	}
	if credErr.Error() != "Bad credentials (invalid_grant)." {
		t.Errorf("unexpected error message: %q", credErr.Error())
	}
	if s.IsAuthenticated() {
		t.Error("expected session to stay unauthenticated")
	}
}

func TestAuthenticateInvalidCredentialsFallbackMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewSessionManager(Config{APIURL: srv.URL}, srv.Client())
	err := s.Authenticate(context.Background())

	var credErr *InvalidCredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected InvalidCredentialsError, got %v", err)
	}
	if credErr.Error() != "Invalid credentials (HTTP 400)." {
		t.Errorf("unexpected error message: %q", credErr.Error())
	}
}

func TestAuthenticateServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewSessionManager(Config{APIURL: srv.URL}, srv.Client())
	err := s.Authenticate(context.Background())

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", remoteErr.StatusCode)
	}
}

func TestSessionExpiry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "JSESSIONID=sess-1; Path=/")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	now := time.Now()
	s := NewSessionManager(Config{APIURL: srv.URL}, srv.Client())
	s.now = func() time.Time { return now }

	if err := s.Authenticate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.IsAuthenticated() {
		t.Fatal("expected fresh session to be authenticated")
	}

	now = now.Add(29 * time.Minute)
	if !s.IsAuthenticated() {
		t.Error("expected session to survive 29 minutes")
	}

	now = now.Add(2 * time.Minute)
	if s.IsAuthenticated() {
		t.Error("expected session to expire after the TTL")
	}
}

func TestCustomerIDResolvedOnceAndCached(t *testing.T) {
	lookups := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Set-Cookie", "JSESSIONID=sess-1; Path=/")
	})
	mux.HandleFunc("GET /customerIds/acme", func(w http.ResponseWriter, r *http.Request) {
		lookups++
		json.NewEncoder(w).Encode(map[string]any{"id": 4242})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewSessionManager(Config{APIURL: srv.URL, CustomerPath: "acme"}, srv.Client())

	for i := 0; i < 3; i++ {
		id, err := s.CustomerID(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if id != "4242" {
			t.Errorf("expected customer id 4242, got %q", id)
		}
	}
	if lookups != 1 {
		t.Errorf("expected 1 customer id lookup, got %d", lookups)
	}
}

func TestCustomerIDConfiguredSkipsLookup(t *testing.T) {
	s := NewSessionManager(Config{APIURL: "http://unused.invalid", CustomerID: "7"}, nil)
	id, err := s.CustomerID(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id != "7" {
		t.Errorf("expected configured customer id 7, got %q", id)
	}
}

func TestExtractSessionToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"JSESSIONID=abc123; Path=/; HttpOnly", "abc123", false},
		{"JSESSIONID=abc123", "abc123", false},
		{"no-equals-sign", "", true},
		{"JSESSIONID=; Path=/", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := extractSessionToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Errorf("extractSessionToken(%q): expected error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Errorf("extractSessionToken(%q): %v", tc.header, err)
			continue
		}
		if got != tc.want {
			t.Errorf("extractSessionToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
