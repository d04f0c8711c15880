package services

import (
	"errors"
	"fmt"

	"knowledgehub/internal/db"
)

type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindInvalidInput
	KindTransientStoreFailure
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalidInput:
		return "invalid_input"
	case KindTransientStoreFailure:
		return "transient_store_failure"
	}
	return "unknown"
}

// Error is returned by every service operation that fails for a reason the
// caller can act on.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Msg: "authentication required"}
	ErrForbidden    = &Error{Kind: KindForbidden, Msg: "not allowed"}
	ErrNotAuthor    = &Error{Kind: KindForbidden, Msg: "only the post author can do this"}
	ErrNotModerator = &Error{Kind: KindForbidden, Msg: "moderator role required"}

	ErrPostNotFound         = &Error{Kind: KindNotFound, Msg: "post not found"}
	ErrCommentNotFound      = &Error{Kind: KindNotFound, Msg: "comment not found"}
	ErrNotificationNotFound = &Error{Kind: KindNotFound, Msg: "notification not found"}

	ErrAnswerNotOnPost = &Error{Kind: KindConflict, Msg: "answer does not belong to this post"}
	ErrNotAccepted     = &Error{Kind: KindConflict, Msg: "answer is not accepted"}
	ErrSlugConflict    = &Error{Kind: KindConflict, Msg: "could not allocate a unique slug"}

	ErrRateLimited = &Error{Kind: KindRateLimited, Msg: "vote rate limit exceeded"}

	ErrInvalidTarget = &Error{Kind: KindInvalidInput, Msg: "invalid vote target type"}
	ErrInvalidStatus = &Error{Kind: KindInvalidInput, Msg: "invalid post status"}
	ErrEmptyTitle    = &Error{Kind: KindInvalidInput, Msg: "title is required"}
	ErrEmptyContent  = &Error{Kind: KindInvalidInput, Msg: "content is required"}
)

// KindOf returns the kind of err, or 0 when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

func transientError(msg string, err error) *Error {
	return &Error{Kind: KindTransientStoreFailure, Msg: msg, Err: err}
}

// storeError classifies an error coming out of db.Transaction. Service errors
// pass through; a unique violation that survived every retry is a conflict;
// anything else is a transient store failure.
func storeError(msg string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if db.IsUniqueViolation(err) {
		return &Error{Kind: KindConflict, Msg: msg, Err: err}
	}
	return transientError(msg, err)
}
