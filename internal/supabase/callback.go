package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"suitable-focus/internal/models"
)

// Callback is the decoded result of an email-flow deep link
// (e.g. suitable://auth/callback#access_token=...&type=signup).
type Callback struct {
	Type    EventType
	Session *models.Session
}

// ParseCallback decodes a deep-link URI produced by the backend's email
// flows. scheme is the application's URI scheme ("suitable"). The token
// payload arrives in the fragment (the backend's convention) but query
// parameters are accepted too. The callback type decides the local state
// transition: recovery links map to EventPasswordRecovery, everything else
// (signup confirmation, magic link) to EventSignedIn.
func ParseCallback(scheme, rawURL string) (*Callback, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid callback url: %w", err)
	}

	if u.Scheme != scheme {
		return nil, fmt.Errorf("unexpected callback scheme %q", u.Scheme)
	}
	if u.Host != "auth" {
		return nil, fmt.Errorf("unexpected callback host %q", u.Host)
	}

	params, err := url.ParseQuery(u.Fragment)
	if err != nil || params.Get("access_token") == "" {
		params = u.Query()
	}

	if code := params.Get("error_code"); code != "" {
		return nil, &APIError{Code: code, Message: params.Get("error_description")}
	}

	accessToken := params.Get("access_token")
	if accessToken == "" {
		return nil, fmt.Errorf("callback carries no access token")
	}

	session := &models.Session{
		AccessToken:  accessToken,
		RefreshToken: params.Get("refresh_token"),
	}
	if exp, ok := tokenExpiry(accessToken); ok {
		session.ExpiresAt = exp
	} else {
		session.ExpiresAt = time.Now().Add(time.Hour)
	}

	eventType := EventSignedIn
	if params.Get("type") == "recovery" {
		eventType = EventPasswordRecovery
	}

	return &Callback{Type: eventType, Session: session}, nil
}

// ImportSession adopts a session delivered out-of-band through a deep link
// and emits the event carried by the callback. Deep links carry tokens but
// no user record, so the user snapshot is fetched first; a session without
// an identity is never adopted.
func (c *Client) ImportSession(ctx context.Context, cb *Callback) error {
	if cb.Session.User == nil {
		var resp userResponse
		if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, cb.Session.AccessToken, &resp); err != nil {
			return err
		}
		cb.Session.User = resp.toUser()
	}
	c.adoptSession(cb.Session, cb.Type)
	return nil
}
