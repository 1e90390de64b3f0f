package supabase

import (
	"time"

	"suitable-focus/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// sessionResponse is the token/signup response shape on the wire.
type sessionResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

// userResponse is the user record shape on the wire.
type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (r *sessionResponse) toSession() *models.Session {
	session := &models.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.expiry(),
	}
	if r.User != nil {
		session.User = r.User.toUser()
	}
	return session
}

// expiry resolves the access-token expiry, preferring the explicit fields
// and falling back to the token's own exp claim.
func (r *sessionResponse) expiry() time.Time {
	if r.ExpiresAt > 0 {
		return time.Unix(r.ExpiresAt, 0)
	}
	if r.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	if exp, ok := tokenExpiry(r.AccessToken); ok {
		return exp
	}
	// No expiry information at all; force an early refresh.
	return time.Now().Add(time.Minute)
}

func (r *userResponse) toUser() *models.User {
	user := &models.User{
		ID:        r.ID,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
	}
	if name, ok := r.UserMetadata["name"].(string); ok {
		user.DisplayName = name
	}
	if avatar, ok := r.UserMetadata["avatar_url"].(string); ok {
		user.AvatarURL = avatar
	}
	return user
}

// tokenExpiry reads the exp claim out of an access token. The signature is
// not verified; only the backend can do that, and all we need locally is the
// refresh deadline.
func tokenExpiry(accessToken string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// copySession returns a shallow copy so callers can't mutate the client's
// session through a returned pointer. User records are treated as immutable
// snapshots.
func copySession(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
