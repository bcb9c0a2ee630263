package collab

import "errors"

// Kind classifies a collaboration error. Connection-level authentication
// failures terminate the handshake; every other kind is reported to the
// requesting connection only.
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindAuthorization
	KindNotFound
	KindConflict
	KindTransport
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func ErrAuthentication(msg string) error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func ErrAuthorization(msg string) error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func ErrNotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func ErrConflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func ErrTransport(msg string, err error) error {
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

// KindOf returns the Kind carried by err, or 0 for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool      { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool      { return KindOf(err) == KindConflict }
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }
