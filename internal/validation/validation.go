// Package validation holds the field validators used by the sign-in, sign-up
// and password-recovery forms. The functions are pure: no IO, no clock, no
// mutation of their input, and exactly one failure reason is reported: the
// first check that fails wins.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Code identifies a validation failure independently of its display message.
type Code string

const (
	CodeEmpty                Code = "empty"
	CodeContainsSpace        Code = "contains_space"
	CodeInvalidFormat        Code = "invalid_format"
	CodeLeadingTrailingSpace Code = "leading_trailing_space"
	CodeTooShort             Code = "too_short"
	CodeTooCommon            Code = "too_common"
)

// FieldError describes why a single form field failed validation.
type FieldError struct {
	Code    Code
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Email validation regex: local-part@domain.tld
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// commonPasswords is the blacklist of passwords rejected regardless of
// length. Membership is checked case-insensitively.
var commonPasswords = map[string]struct{}{
	"123456": {}, "password": {}, "123456789": {}, "12345678": {}, "12345": {},
	"qwerty": {}, "abc123": {}, "password123": {}, "123123": {}, "admin": {},
	"letmein": {}, "welcome": {}, "monkey": {}, "dragon": {}, "master": {},
	"football": {}, "baseball": {}, "sunshine": {}, "princess": {}, "jordan": {},
	"shadow": {}, "michael": {}, "jennifer": {}, "hunter": {}, "joshua": {},
	"maggie": {}, "mustang": {}, "2000": {}, "amanda": {}, "summer": {},
	"hockey": {}, "tiger": {}, "soccer": {}, "chris": {}, "michelle": {},
	"andrew": {}, "love": {}, "angela": {}, "team": {}, "star": {},
	"computer": {}, "jordan23": {},
}

// ValidateEmail checks an email address and returns nil when it is valid.
//
// Check order matters: empty, then embedded spaces, then overall format.
func ValidateEmail(email string) *FieldError {
	if strings.TrimSpace(email) == "" {
		return &FieldError{Code: CodeEmpty, Message: "Email cannot be empty"}
	}

	if strings.Contains(email, " ") {
		return &FieldError{Code: CodeContainsSpace, Message: "Email cannot contain spaces"}
	}

	if !emailRegex.MatchString(email) {
		return &FieldError{
			Code:    CodeInvalidFormat,
			Message: "Please enter a valid email address (username@domain.tld format)",
		}
	}

	return nil
}

// ValidatePassword checks a password and returns nil when it is valid.
//
// Check order matters: empty, then leading/trailing spaces, then minimum
// length, then the common-password blacklist.
func ValidatePassword(password string) *FieldError {
	trimmed := strings.TrimSpace(password)

	if trimmed == "" {
		return &FieldError{Code: CodeEmpty, Message: "Password cannot be empty"}
	}

	if password != trimmed {
		return &FieldError{
			Code:    CodeLeadingTrailingSpace,
			Message: "Password cannot have spaces at the beginning or end",
		}
	}

	// Characters, not bytes: a multi-byte password is as long as the user
	// sees it.
	if utf8.RuneCountInString(trimmed) < 8 {
		return &FieldError{
			Code:    CodeTooShort,
			Message: "Password must be at least 8 characters long",
		}
	}

	if _, found := commonPasswords[strings.ToLower(password)]; found {
		return &FieldError{
			Code:    CodeTooCommon,
			Message: "Password is too common. Please choose a more secure password",
		}
	}

	return nil
}
