package supabase

import "fmt"

// Error codes returned by the auth API. These are the structured codes the
// rest of the application classifies on; nobody should ever match on message
// text.
const (
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeEmailNotConfirmed  = "email_not_confirmed"
	ErrCodeRateLimited        = "over_request_rate_limit"
	ErrCodeUserAlreadyExists  = "user_already_exists"
	ErrCodeWeakPassword       = "weak_password"
	ErrCodeValidationFailed   = "validation_failed"
	ErrCodeUserNotFound       = "user_not_found"
	ErrCodeSessionNotFound    = "session_not_found"
	ErrCodeBadJWT             = "bad_jwt"
	ErrCodeUnknown            = "unknown_error"
)

// APIError is a structured error returned by the auth backend. A request
// that never produced a response (timeout, refused connection) is not an
// APIError; it surfaces as the transport error itself.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// apiErrorBody covers the error shapes GoTrue has shipped over time.
type apiErrorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b *apiErrorBody) toAPIError(status int) *APIError {
	code := b.ErrorCode
	if code == "" {
		code = b.ErrorField
	}
	if code == "" {
		code = ErrCodeUnknown
	}

	message := b.Msg
	if message == "" {
		message = b.ErrorDescription
	}

	return &APIError{Status: status, Code: code, Message: message}
}
