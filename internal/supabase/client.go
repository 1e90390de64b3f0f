// Package supabase implements the client for the hosted auth backend. It
// speaks the GoTrue REST API, keeps the current session, refreshes access
// tokens before they expire, and publishes auth state changes on an event
// channel that exactly one consumer (the session manager) drains.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"suitable-focus/internal/logging"
	"suitable-focus/internal/models"
)

// refreshMargin is how far ahead of access-token expiry a refresh is
// attempted.
const refreshMargin = 30 * time.Second

// eventBuffer bounds the event channel. Events are emitted in order; the
// buffer only decouples emission from the consumer's processing.
const eventBuffer = 16

// Client talks to the auth backend. Construct with New, release with Close.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     logging.Logger

	autoRefresh bool

	mu         sync.Mutex
	session    *models.Session
	events     chan Event
	closed     bool
	refreshT   *time.Timer
	refreshGen int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (10s timeout).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithoutAutoRefresh disables the background token refresh. Intended for
// tests that need full control over the session lifecycle.
func WithoutAutoRefresh() Option {
	return func(c *Client) { c.autoRefresh = false }
}

// New creates a client for the auth backend at baseURL, authenticating
// requests with the project's anon key.
func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		anonKey:     anonKey,
		http:        &http.Client{Timeout: 10 * time.Second},
		log:         logging.Nop(),
		autoRefresh: true,
		events:      make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the auth event stream. The channel is closed by Close.
//
// The consumer must drain the channel promptly from a dedicated goroutine:
// the stream carries a small buffer to absorb bursts, and an event that
// arrives while the buffer is full is dropped (with a warning) rather than
// blocking the client. A dropped event can desynchronize the consumer's
// view of the session, so do not run blocking work between receives.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close cancels the refresh timer and closes the event stream. The client
// must not be used afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.stopRefreshLocked()
	close(c.events)
}

// GetSession returns the current session, refreshing it first when the
// access token has expired. (nil, nil) means no restorable session exists.
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil, nil
	}

	if time.Until(session.ExpiresAt) > 0 {
		return copySession(session), nil
	}

	if session.RefreshToken == "" {
		return nil, nil
	}
	return c.refreshSession(ctx)
}

// SignInWithPassword exchanges credentials for a session. On success the
// session is adopted, a refresh is scheduled, and EventSignedIn is emitted.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}},
		map[string]string{"email": email, "password": password}, "", &resp)
	if err != nil {
		return nil, err
	}

	session := resp.toSession()
	c.adoptSession(session, EventSignedIn)
	return copySession(session), nil
}

// SignUp registers a new account. metadata becomes the user's profile data
// (e.g. display name); redirectTo is the deep link the confirmation email
// returns through. When the backend requires email confirmation the returned
// session is nil and no event is emitted; a backend configured for immediate
// sign-in returns a session, which is adopted as EventSignedIn.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any, redirectTo string) (*models.Session, error) {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}

	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", query, body, "", &resp); err != nil {
		return nil, err
	}

	// Confirmation-required projects answer with the user record only.
	if resp.AccessToken == "" {
		return nil, nil
	}

	session := resp.toSession()
	c.adoptSession(session, EventSignedIn)
	return copySession(session), nil
}

// SignOut revokes the session on the backend and always clears the local
// one, emitting EventSignedOut. The returned error reports a failed backend
// call; local state is already clean by then.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := ""
	if c.session != nil {
		token = c.session.AccessToken
	}
	c.mu.Unlock()

	var err error
	if token != "" {
		err = c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, token, nil)
	}

	c.clearSession()
	return err
}

// ResetPasswordForEmail asks the backend to send a password-recovery email
// that re-enters the app through redirectTo. Session state is unchanged.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/recover", query,
		map[string]string{"email": email}, "", nil)
}

// UserAttributes are the fields UpdateUser can change. Zero values are left
// untouched.
type UserAttributes struct {
	Password string
	Data     map[string]any
}

// UpdateUser changes the signed-in user's password and/or profile data and
// refreshes the local user snapshot, emitting EventUserUpdated.
func (c *Client) UpdateUser(ctx context.Context, attrs UserAttributes) (*models.User, error) {
	c.mu.Lock()
	token := ""
	if c.session != nil {
		token = c.session.AccessToken
	}
	c.mu.Unlock()

	if token == "" {
		return nil, models.ErrNoSession
	}

	body := map[string]any{}
	if attrs.Password != "" {
		body["password"] = attrs.Password
	}
	if len(attrs.Data) > 0 {
		body["data"] = attrs.Data
	}

	var resp userResponse
	if err := c.do(ctx, http.MethodPut, "/auth/v1/user", nil, body, token, &resp); err != nil {
		return nil, err
	}

	user := resp.toUser()

	c.mu.Lock()
	if c.session != nil {
		c.session.User = user
	}
	session := c.session
	c.emitLocked(Event{Type: EventUserUpdated, Session: copySession(session)})
	c.mu.Unlock()

	return user, nil
}

// ResendType selects which kind of email Resend triggers.
type ResendType string

const (
	ResendSignup   ResendType = "signup"
	ResendRecovery ResendType = "recovery"
)

// Resend asks the backend to send the confirmation or recovery email again.
func (c *Client) Resend(ctx context.Context, typ ResendType, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/resend", query,
		map[string]string{"type": string(typ), "email": email}, "", nil)
}

// refreshSession trades the refresh token for a new session and emits
// EventTokenRefreshed.
func (c *Client) refreshSession(ctx context.Context) (*models.Session, error) {
	c.mu.Lock()
	refreshToken := ""
	if c.session != nil {
		refreshToken = c.session.RefreshToken
	}
	c.mu.Unlock()

	if refreshToken == "" {
		return nil, models.ErrNoSession
	}

	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"refresh_token"}},
		map[string]string{"refresh_token": refreshToken}, "", &resp)
	if err != nil {
		return nil, err
	}

	session := resp.toSession()
	c.adoptSession(session, EventTokenRefreshed)
	return copySession(session), nil
}

// adoptSession installs a session, schedules its refresh, and emits the
// given event.
func (c *Client) adoptSession(session *models.Session, event EventType) {
	session.LastActivityAt = time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = session
	if c.autoRefresh {
		c.scheduleRefreshLocked(session.ExpiresAt)
	}
	c.emitLocked(Event{Type: event, Session: copySession(session)})
}

// clearSession drops the session and emits EventSignedOut.
func (c *Client) clearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = nil
	c.stopRefreshLocked()
	c.emitLocked(Event{Type: EventSignedOut})
}

// scheduleRefreshLocked arms the refresh timer for just before expiry. Any
// previously armed timer is replaced; the generation counter invalidates
// late fires from replaced timers. Caller must hold c.mu.
func (c *Client) scheduleRefreshLocked(expiresAt time.Time) {
	c.stopRefreshLocked()

	delay := time.Until(expiresAt) - refreshMargin
	if delay < time.Second {
		delay = time.Second
	}

	c.refreshGen++
	gen := c.refreshGen
	c.refreshT = time.AfterFunc(delay, func() {
		c.mu.Lock()
		stale := c.closed || gen != c.refreshGen
		c.mu.Unlock()
		if stale {
			return
		}

		if _, err := c.refreshSession(context.Background()); err != nil {
			c.log.Warn(context.Background(), "token refresh failed", "error", err)
		}
	})
}

func (c *Client) stopRefreshLocked() {
	if c.refreshT != nil {
		c.refreshT.Stop()
		c.refreshT = nil
	}
	c.refreshGen++
}

// emitLocked publishes an event in order. Caller must hold c.mu, which is
// what guarantees delivery order matches state-change order. A full buffer
// drops the event rather than deadlocking the client; the consumer is
// expected to keep draining.
func (c *Client) emitLocked(event Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		c.log.Warn(context.Background(), "auth event dropped, consumer not draining",
			"event", string(event.Type))
	}
}

// do performs one API request. Transport failures come back as wrapped
// errors; HTTP error statuses come back as *APIError with a structured code.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errBody apiErrorBody
		if unmarshalErr := json.Unmarshal(data, &errBody); unmarshalErr != nil {
			return &APIError{Status: resp.StatusCode, Code: ErrCodeUnknown, Message: string(data)}
		}
		return errBody.toAPIError(resp.StatusCode)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
