package rank

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures surfaced by the ranking core.
type ErrorKind string

const (
	// KindInvalidInput is a caller bug: empty or duplicate candidates, an
	// unknown choice. Not retried.
	KindInvalidInput ErrorKind = "INVALID_INPUT"

	// KindStaleAnswer marks an answer whose fingerprint does not match the
	// current comparison. The state machine reports it as a no-op, never as
	// an error, but the kind exists so logs and metrics can name it.
	KindStaleAnswer ErrorKind = "STALE_ANSWER"

	// KindStorageConflict means the version check failed twice in a row.
	// Transient; the caller may retry later.
	KindStorageConflict ErrorKind = "STORAGE_CONFLICT"

	// KindStorage is any other store failure. The previously persisted state
	// is intact and the operation may be retried.
	KindStorage ErrorKind = "STORAGE"

	// KindSourceUnavailable means candidates could not be fetched.
	KindSourceUnavailable ErrorKind = "SOURCE_UNAVAILABLE"

	// KindNoActiveSession means the operation needs a session that does not
	// exist or is no longer collecting.
	KindNoActiveSession ErrorKind = "NO_ACTIVE_SESSION"

	// KindDelivery means the prompt could not be handed to the gateway. The
	// state is persisted; resume re-presents the same comparison.
	KindDelivery ErrorKind = "DELIVERY"
)

// Retryable reports whether retrying the same request later can succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindStorageConflict, KindStorage, KindSourceUnavailable, KindDelivery:
		return true
	default:
		return false
	}
}

// Error is the typed error returned by the ranking core.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Message is a human-readable description.
	Message string

	// UserID identifies the affected user, if known.
	UserID string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.UserID != "" {
		msg = fmt.Sprintf("%s (user=%s)", msg, e.UserID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with no cause.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error for userID caused by err.
func WrapError(kind ErrorKind, userID, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, UserID: userID, Err: err}
}

// KindOf extracts the kind of err. Returns "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
