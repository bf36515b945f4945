// Package coreerr defines the error-kind contract shared by every core
// component. Every failing path surfaces exactly one Kind; none is
// swallowed or silently downgraded.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies a core error so HTTP adapters can pick a status code
// without inspecting error strings.
type Kind int

const (
	// KindInternal covers unexpected failures (database errors, I/O
	// failures not otherwise classified). Maps to 500.
	KindInternal Kind = iota
	// KindUnauthorized means the caller presented no or an invalid
	// credential. Maps to 401.
	KindUnauthorized
	// KindForbiddenRole means the caller's role is not in the
	// operation's whitelist. Maps to 403.
	KindForbiddenRole
	// KindForbiddenTier means the caller's allowed tiers do not satisfy
	// the operation's tier requirement. Maps to 403.
	KindForbiddenTier
	// KindForbiddenScope means the caller lacks a required scope. Maps
	// to 403.
	KindForbiddenScope
	// KindInvalidRequest means the request body/params failed validation.
	// Maps to 400.
	KindInvalidRequest
	// KindNotFound means the entity does not exist, or exists but is
	// owned by another principal (existence is never leaked). Maps to
	// 404.
	KindNotFound
	// KindConflict means a uniqueness or state-machine invariant was
	// violated. Maps to 409.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbiddenRole:
		return "forbidden_role"
	case KindForbiddenTier:
		return "forbidden_tier"
	case KindForbiddenScope:
		return "forbidden_scope"
	case KindInvalidRequest:
		return "invalid_request"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the concrete error type returned by every core operation that
// can fail. Detail is a human-readable message; for filesystem failures
// during export it carries the OS error text.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind.String(), e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind with a detail message.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap builds an Error of the given kind, preserving cause for Unwrap.
func Wrap(kind Kind, cause error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

// Unauthorized is a convenience constructor for KindUnauthorized.
func Unauthorized(detail string) *Error { return New(KindUnauthorized, detail) }

// ForbiddenRole is a convenience constructor for KindForbiddenRole.
func ForbiddenRole(detail string) *Error { return New(KindForbiddenRole, detail) }

// ForbiddenTier is a convenience constructor for KindForbiddenTier.
func ForbiddenTier(detail string) *Error { return New(KindForbiddenTier, detail) }

// ForbiddenScope is a convenience constructor for KindForbiddenScope.
func ForbiddenScope(detail string) *Error { return New(KindForbiddenScope, detail) }

// Invalid is a convenience constructor for KindInvalidRequest.
func Invalid(detail string) *Error { return New(KindInvalidRequest, detail) }

// NotFound is a convenience constructor for KindNotFound.
func NotFound(detail string) *Error { return New(KindNotFound, detail) }

// Conflict is a convenience constructor for KindConflict.
func Conflict(detail string) *Error { return New(KindConflict, detail) }

// Internal is a convenience constructor for KindInternal.
func Internal(detail string) *Error { return New(KindInternal, detail) }

// KindOf extracts the Kind from err, defaulting to KindInternal if err is
// not (or does not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the HTTP-like status code an external
// wire-layer collaborator should return for it.
func HTTPStatus(k Kind) int {
	switch k {
	case KindUnauthorized:
		return 401
	case KindForbiddenRole, KindForbiddenTier, KindForbiddenScope:
		return 403
	case KindInvalidRequest:
		return 400
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	default:
		return 500
	}
}
