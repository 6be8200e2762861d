package tidal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	ihttp "github.com/handiism/tidal-downloader/internal/http"
)

func newAuthServer(t *testing.T, tokenHandler http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/device_authorization", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("device authorization used %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("client_id"); got != "test-client" {
			t.Errorf("client_id = %q, want %q", got, "test-client")
		}
		fmt.Fprint(w, `{
			"deviceCode": "device-123",
			"userCode": "ABCDE",
			"verificationUriComplete": "link.tidal.com/ABCDE",
			"expiresIn": 300,
			"interval": 1
		}`)
	})
	mux.HandleFunc("/token", tokenHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestSession(server *httptest.Server) *AuthSession {
	session := NewAuthSession(ihttp.NewClient(), "test-client")
	session.authBase = server.URL
	session.apiBase = server.URL
	return session
}

func TestAuthSession_BeginHandshake(t *testing.T) {
	server := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {})
	session := newTestSession(server)

	if session.State() != StateIdle {
		t.Errorf("initial state = %v, want StateIdle", session.State())
	}

	handshake, err := session.BeginHandshake(context.Background())
	if err != nil {
		t.Fatalf("BeginHandshake failed: %v", err)
	}

	if handshake.DeviceCode != "device-123" {
		t.Errorf("DeviceCode = %q, want %q", handshake.DeviceCode, "device-123")
	}
	if handshake.UserCode != "ABCDE" {
		t.Errorf("UserCode = %q, want %q", handshake.UserCode, "ABCDE")
	}
	if handshake.Link() != "https://link.tidal.com/ABCDE" {
		t.Errorf("Link() = %q, want verification link", handshake.Link())
	}
	if handshake.Interval != time.Second {
		t.Errorf("Interval = %v, want 1s", handshake.Interval)
	}
	if session.State() != StateAwaitingUser {
		t.Errorf("state = %v, want StateAwaitingUser", session.State())
	}
}

func TestAuthSession_BeginHandshakeMalformed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/device_authorization", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"expiresIn": 300}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	session := newTestSession(server)
	if _, err := session.BeginHandshake(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestAuthSession_PollPendingThenAuthorized(t *testing.T) {
	var polls atomic.Int32
	server := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("device_code"); got != "device-123" {
			t.Errorf("device_code = %q, want %q", got, "device-123")
		}
		if got := r.PostForm.Get("grant_type"); got != deviceGrantType {
			t.Errorf("grant_type = %q, want device-code grant", got)
		}

		if polls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": "authorization_pending"}`)
			return
		}
		fmt.Fprint(w, `{
			"access_token": "access-token",
			"refresh_token": "refresh-token",
			"expires_in": 86400,
			"user": {"userId": 42, "countryCode": "US"}
		}`)
	})

	session := newTestSession(server)
	if _, err := session.BeginHandshake(context.Background()); err != nil {
		t.Fatalf("BeginHandshake failed: %v", err)
	}

	creds, err := session.PollUntilAuthorized(context.Background(), 30*time.Second)
	if err != nil {
		t.Fatalf("PollUntilAuthorized failed: %v", err)
	}

	if creds.AccessToken != "access-token" {
		t.Errorf("AccessToken = %q, want %q", creds.AccessToken, "access-token")
	}
	if creds.RefreshToken != "refresh-token" {
		t.Errorf("RefreshToken = %q, want %q", creds.RefreshToken, "refresh-token")
	}
	if creds.CountryCode != "US" {
		t.Errorf("CountryCode = %q, want %q", creds.CountryCode, "US")
	}
	if creds.UserID != "42" {
		t.Errorf("UserID = %q, want %q", creds.UserID, "42")
	}
	if !creds.ExpiresAt.After(time.Now()) {
		t.Error("ExpiresAt should be in the future")
	}
	if session.State() != StateAuthorized {
		t.Errorf("state = %v, want StateAuthorized", session.State())
	}
	if got := polls.Load(); got != 3 {
		t.Errorf("token endpoint polled %d times, want 3", got)
	}
}

func TestAuthSession_PollDenied(t *testing.T) {
	server := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "access_denied"}`)
	})

	session := newTestSession(server)
	if _, err := session.BeginHandshake(context.Background()); err != nil {
		t.Fatalf("BeginHandshake failed: %v", err)
	}

	_, err := session.PollUntilAuthorized(context.Background(), 30*time.Second)
	if !errors.Is(err, ErrAuthDenied) {
		t.Errorf("err = %v, want ErrAuthDenied", err)
	}
	if session.State() != StateDenied {
		t.Errorf("state = %v, want StateDenied", session.State())
	}
}

func TestAuthSession_PollExpired(t *testing.T) {
	server := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "expired_token"}`)
	})

	session := newTestSession(server)
	if _, err := session.BeginHandshake(context.Background()); err != nil {
		t.Fatalf("BeginHandshake failed: %v", err)
	}

	_, err := session.PollUntilAuthorized(context.Background(), 30*time.Second)
	if !errors.Is(err, ErrAuthExpired) {
		t.Errorf("err = %v, want ErrAuthExpired", err)
	}
	if session.State() != StateExpired {
		t.Errorf("state = %v, want StateExpired", session.State())
	}
}

func TestAuthSession_PollTimeout(t *testing.T) {
	server := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "authorization_pending"}`)
	})

	session := newTestSession(server)
	if _, err := session.BeginHandshake(context.Background()); err != nil {
		t.Fatalf("BeginHandshake failed: %v", err)
	}

	start := time.Now()
	_, err := session.PollUntilAuthorized(context.Background(), 100*time.Millisecond)
	if !errors.Is(err, ErrAuthTimeout) {
		t.Errorf("err = %v, want ErrAuthTimeout", err)
	}
	if session.State() != StateTimedOut {
		t.Errorf("state = %v, want StateTimedOut", session.State())
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v, polling loop is not honoring the deadline", elapsed)
	}
}

func TestAuthSession_ValidateSession(t *testing.T) {
	var sawBearer atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer access-token" {
			sawBearer.Store(true)
		}
		fmt.Fprint(w, `{"sessionId": "abc"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	session := newTestSession(server)
	if err := session.ValidateSession(context.Background(), "access-token"); err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if !sawBearer.Load() {
		t.Error("session endpoint did not receive the bearer token")
	}
}
