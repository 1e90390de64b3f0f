package session

import (
	"errors"

	"suitable-focus/internal/models"
	"suitable-focus/internal/supabase"
)

// ErrOperationInFlight rejects a mutating auth call made while a previous
// one is still running. The caller decides whether to retry; the manager
// never queues or races two calls.
var ErrOperationInFlight = errors.New("another authentication operation is already in progress")

// Category is the user-facing classification of an auth failure.
type Category string

const (
	InvalidCredentials Category = "invalid_credentials"
	EmailNotConfirmed  Category = "email_not_confirmed"
	RateLimited        Category = "rate_limited"
	AlreadyRegistered  Category = "already_registered"
	WeakPassword       Category = "weak_password"
	InvalidEmailFormat Category = "invalid_email_format"
	UserNotFound       Category = "user_not_found"
	NotSignedIn        Category = "not_signed_in"
	NetworkError       Category = "network_error"
	Unknown            Category = "unknown"
)

// AuthError is the typed result of a failed auth operation. Every failure
// carries exactly one category and one human-readable message; backend
// errors never propagate past the manager in raw form.
type AuthError struct {
	Category Category
	Message  string
	Err      error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// messages maps each category to the copy shown to the user.
var messages = map[Category]string{
	InvalidCredentials: "Invalid email or password. Please try again.",
	EmailNotConfirmed:  "Please verify your email address before signing in.",
	RateLimited:        "Too many failed attempts. Please try again later.",
	AlreadyRegistered:  "An account with this email already exists.",
	WeakPassword:       "Password does not meet the security requirements. Please choose a stronger password.",
	InvalidEmailFormat: "Please enter a valid email address.",
	UserNotFound:       "No account found with this email address.",
	NotSignedIn:        "You are not signed in. Please sign in and try again.",
	NetworkError:       "Network error. Please check your connection and try again.",
	Unknown:            "Something went wrong. Please try again.",
}

// classify converts a backend error into an AuthError. Classification works
// on the structured error code from the integration layer, never on message
// text. Anything that is not a structured API error is treated as a
// transport failure.
func classify(err error) *AuthError {
	if err == nil {
		return nil
	}

	if errors.Is(err, models.ErrNoSession) {
		return &AuthError{Category: NotSignedIn, Message: messages[NotSignedIn], Err: err}
	}

	category := NetworkError

	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case supabase.ErrCodeInvalidCredentials:
			category = InvalidCredentials
		case supabase.ErrCodeEmailNotConfirmed:
			category = EmailNotConfirmed
		case supabase.ErrCodeRateLimited:
			category = RateLimited
		case supabase.ErrCodeUserAlreadyExists:
			category = AlreadyRegistered
		case supabase.ErrCodeWeakPassword:
			category = WeakPassword
		case supabase.ErrCodeValidationFailed:
			category = InvalidEmailFormat
		case supabase.ErrCodeUserNotFound:
			category = UserNotFound
		default:
			category = Unknown
		}
	}

	return &AuthError{Category: category, Message: messages[category], Err: err}
}
