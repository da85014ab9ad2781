package catalog

import (
	"errors"

	"librarycatalog/services/client/internal/apiclient"
)

// ErrSuperseded is returned by a fetch whose response arrived after a newer
// fetch was issued. Its result is discarded.
var ErrSuperseded = errors.New("catalog: fetch superseded by a newer query")

const (
	msgFetchFailed  = "could not load books"
	msgDeleteFailed = "could not delete book"
	msgBookFailed   = "could not load book"
	msgAddFailed    = "could not add book"
)

// ValidationError is an add-book form error caught before any request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Error is a failed catalog call with the message shown to the user.
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

func wrap(fallback string, err error) *Error {
	msg := apiclient.ServerMessage(err)
	if msg == "" {
		msg = fallback
	}
	return &Error{Message: msg, Err: err}
}
