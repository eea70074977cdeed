package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can render a response without
// matching on individual errors.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error with the same code, or a bare kind sentinel
// (ErrValidation, ErrNotFound, ...) with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	if t.Code == "" {
		return t.Kind == e.Kind
	}
	return t.Code == e.Code
}

// Kind sentinels, usable with errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
)

var (
	ErrClientNotFound       = &Error{Kind: KindNotFound, Code: "client_not_found", Message: "api client not found"}
	ErrRefreshTokenNotFound = &Error{Kind: KindNotFound, Code: "refresh_token_not_found", Message: "refresh token not found"}
	ErrDebateNotFound       = &Error{Kind: KindNotFound, Code: "debate_not_found", Message: "debate not found"}
	ErrUserNotFound         = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}
	ErrOptionNotFound       = &Error{Kind: KindNotFound, Code: "option_not_found", Message: "option does not exist"}

	ErrUnknownGrantType    = &Error{Kind: KindValidation, Code: "unknown_grant_type", Message: "unknown grant type"}
	ErrClientSecretMissing = &Error{Kind: KindValidation, Code: "client_secret_missing", Message: "client secret missing"}
	ErrInvalidID           = &Error{Kind: KindValidation, Code: "invalid_id", Message: "invalid identifier"}
	ErrInvalidState        = &Error{Kind: KindValidation, Code: "invalid_state", Message: "invalid debate state"}
	ErrTitleRequired       = &Error{Kind: KindValidation, Code: "title_required", Message: "title is required"}
	ErrReasonRequired      = &Error{Kind: KindValidation, Code: "reason_required", Message: "option reason is required"}
	ErrNotAPoll            = &Error{Kind: KindValidation, Code: "not_a_poll", Message: "debate is not a poll"}

	ErrAlreadyVoted      = &Error{Kind: KindConflict, Code: "already_voted", Message: "user has already voted"}
	ErrIllegalTransition = &Error{Kind: KindConflict, Code: "illegal_transition", Message: "illegal state transition"}
	ErrVersionConflict   = &Error{Kind: KindConflict, Code: "version_conflict", Message: "debate was modified concurrently"}

	ErrInvalidToken        = &Error{Kind: KindUnauthorized, Code: "invalid_token", Message: "invalid token"}
	ErrClientSecretInvalid = &Error{Kind: KindUnauthorized, Code: "client_secret_invalid", Message: "client secret does not match"}
)

// Wrap attaches context (usually the ids involved) to a domain error while
// keeping it matchable with errors.Is.
func Wrap(base *Error, format string, args ...any) error {
	return &Error{
		Kind:    base.Kind,
		Code:    base.Code,
		Message: base.Message,
		Err:     fmt.Errorf(format, args...),
	}
}

// KindOf reports the kind of err, KindInternal for anything that is not a
// domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
