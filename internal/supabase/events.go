package supabase

import "suitable-focus/internal/models"

// EventType names an auth state change reported by the backend. The values
// match the event names on the wire.
type EventType string

const (
	EventSignedIn         EventType = "SIGNED_IN"
	EventSignedOut        EventType = "SIGNED_OUT"
	EventTokenRefreshed   EventType = "TOKEN_REFRESHED"
	EventUserUpdated      EventType = "USER_UPDATED"
	EventPasswordRecovery EventType = "PASSWORD_RECOVERY"
)

// Event is one entry in the client's auth event stream. Session is nil for
// EventSignedOut.
type Event struct {
	Type    EventType
	Session *models.Session
}
