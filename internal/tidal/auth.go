package tidal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	ihttp "github.com/handiism/tidal-downloader/internal/http"
	"github.com/handiism/tidal-downloader/internal/tidal/dto"
)

const (
	// DefaultClientID is the device client ID the official TV app uses.
	DefaultClientID = "zU4XHVVkc2tDPo4t"

	// DefaultLoginTimeout bounds the authorization polling loop.
	DefaultLoginTimeout = 300 * time.Second

	defaultAuthBase = "https://auth.tidal.com/v1/oauth2"
	defaultAPIBase  = "https://api.tidal.com/v1"

	oauthScope      = "r_usr+w_usr+w_sub"
	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

// AuthState is the state of the device-code authorization machine.
type AuthState int

const (
	// StateIdle means no handshake has been started.
	StateIdle AuthState = iota

	// StateAwaitingUser means a device code was issued and the session is
	// polling the token endpoint while the user authorizes out-of-band.
	StateAwaitingUser

	// StateAuthorized is the terminal success state.
	StateAuthorized

	// StateDenied, StateExpired and StateTimedOut are terminal failures.
	StateDenied
	StateExpired
	StateTimedOut
)

// Credentials is the immutable result of a successful authorization.
// The handshake is the only writer; downstream components receive it
// by read-only reference.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	CountryCode  string
	UserID       string
	ExpiresAt    time.Time
}

// Handshake describes an issued device code. The user code must be shown
// to the user exactly once, together with the verification link.
type Handshake struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	Interval        time.Duration
	ExpiresAt       time.Time
}

// Link returns the URL the user opens to authorize the device.
func (h *Handshake) Link() string {
	if h.VerificationURI != "" {
		return "https://" + h.VerificationURI
	}
	return "https://link.tidal.com/" + h.UserCode
}

// AuthSession drives the device-code handshake against the Tidal auth
// endpoints. It holds no credentials itself: PollUntilAuthorized returns
// a fresh Credentials value on success.
type AuthSession struct {
	client   *ihttp.Client
	clientID string
	authBase string
	apiBase  string

	state     AuthState
	handshake *Handshake
}

// NewAuthSession creates an auth session for the given OAuth client ID.
func NewAuthSession(client *ihttp.Client, clientID string) *AuthSession {
	if clientID == "" {
		clientID = DefaultClientID
	}
	return &AuthSession{
		client:   client,
		clientID: clientID,
		authBase: defaultAuthBase,
		apiBase:  defaultAPIBase,
	}
}

// State returns the current state of the authorization machine.
func (s *AuthSession) State() AuthState {
	return s.state
}

// BeginHandshake requests a device code and user code from the
// device-authorization endpoint and moves the session to StateAwaitingUser.
func (s *AuthSession) BeginHandshake(ctx context.Context) (*Handshake, error) {
	form := url.Values{}
	form.Set("client_id", s.clientID)
	form.Set("scope", oauthScope)

	status, body, err := s.client.PostForm(ctx, s.authBase+"/device_authorization", form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)
	}
	if status != 200 {
		return nil, fmt.Errorf("%w: device authorization returned HTTP %d", ErrEndpointUnreachable, status)
	}

	var auth dto.DeviceAuthorization
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if auth.DeviceCode == "" || auth.UserCode == "" {
		return nil, fmt.Errorf("%w: device authorization lacks device or user code", ErrMalformedResponse)
	}

	interval := time.Duration(auth.Interval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	s.handshake = &Handshake{
		DeviceCode:      auth.DeviceCode,
		UserCode:        auth.UserCode,
		VerificationURI: auth.VerificationURIComplete,
		Interval:        interval,
		ExpiresAt:       time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second),
	}
	s.state = StateAwaitingUser

	return s.handshake, nil
}

// PollUntilAuthorized exchanges the device code at the handshake interval
// until the user authorizes, denies, the code expires, or timeout elapses.
// The wait between polls is a context-aware suspension, not a blocking
// sleep, so a cancelled context ends the loop immediately.
func (s *AuthSession) PollUntilAuthorized(ctx context.Context, timeout time.Duration) (*Credentials, error) {
	if s.handshake == nil {
		return nil, fmt.Errorf("%w: no handshake in progress", ErrAuthExpired)
	}
	if timeout <= 0 {
		timeout = DefaultLoginTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	form := url.Values{}
	form.Set("client_id", s.clientID)
	form.Set("device_code", s.handshake.DeviceCode)
	form.Set("grant_type", deviceGrantType)
	form.Set("scope", oauthScope)

	for {
		creds, err := s.exchange(ctx, form)
		if err != nil {
			if ctx.Err() != nil {
				s.state = StateTimedOut
				return nil, ErrAuthTimeout
			}
			return nil, err
		}
		if creds != nil {
			s.state = StateAuthorized
			return creds, nil
		}

		// Still pending; wait one interval before the next attempt.
		select {
		case <-ctx.Done():
			s.state = StateTimedOut
			return nil, ErrAuthTimeout
		case <-time.After(s.handshake.Interval):
		}
	}
}

// exchange performs one token-exchange attempt. It returns credentials on
// success, (nil, nil) on a "still pending" answer, or a terminal error.
func (s *AuthSession) exchange(ctx context.Context, form url.Values) (*Credentials, error) {
	status, body, err := s.client.PostForm(ctx, s.authBase+"/token", form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)
	}

	var token dto.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if status == 200 && token.AccessToken != "" {
		if token.User.CountryCode == "" || token.User.UserID == 0 {
			return nil, fmt.Errorf("%w: token response lacks user info", ErrMalformedResponse)
		}
		return &Credentials{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			CountryCode:  token.User.CountryCode,
			UserID:       strconv.FormatInt(token.User.UserID, 10),
			ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
		}, nil
	}

	switch token.Error {
	case "authorization_pending", "slow_down":
		return nil, nil
	case "access_denied":
		s.state = StateDenied
		return nil, ErrAuthDenied
	case "expired_token":
		s.state = StateExpired
		return nil, ErrAuthExpired
	default:
		return nil, fmt.Errorf("%w: token endpoint returned HTTP %d (%s)", ErrMalformedResponse, status, token.Error)
	}
}

// ValidateSession checks a bearer token against the session endpoint.
func (s *AuthSession) ValidateSession(ctx context.Context, accessToken string) error {
	if _, err := s.client.WithBearer(accessToken).Get(ctx, s.apiBase+"/sessions"); err != nil {
		return fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)
	}
	return nil
}
