package session

import (
	"errors"
	"regexp"
	"strings"
)

const (
	msgLoginFailed        = "login failed"
	msgRegistrationFailed = "registration failed"
	msgPersistFailed      = "could not save session"
	minPasswordLength     = 6
	defaultUsername       = "user"
)

// ErrNoSession is returned by operations that need a token when none is held.
var ErrNoSession = errors.New("not logged in")

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError is a form error caught before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Error is a failed login or registration. Message is what the user sees:
// the server's text when it sent one, otherwise a generic line.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidateLogin checks the login form.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return &ValidationError{Field: "email", Message: "email and password are required"}
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return &ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateRegistration checks the registration form, including the
// password confirmation.
func ValidateRegistration(email, password, confirm string) error {
	if err := validateSignup(email, password); err != nil {
		return err
	}
	if password != confirm {
		return &ValidationError{Field: "confirmPassword", Message: "passwords do not match"}
	}
	return nil
}

func validateSignup(email, password string) error {
	if err := ValidateLogin(email, password); err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Message: "password must be at least 6 characters"}
	}
	return nil
}
