package rest

import (
	"errors"
	"fmt"
)

// Kind classifies an API failure for the dispatch boundary.
type Kind int

const (
	// KindTransport covers network failures and 5xx responses.
	KindTransport Kind = iota
	// KindAuth covers missing, expired or rejected credentials.
	KindAuth
	// KindValidation covers requests the server (or a local pre-check)
	// rejected as malformed or incomplete.
	KindValidation
	// KindNotFound covers valid queries with no matching record.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "transport"
	}
}

// Error is the typed failure returned by the client. Mensaje carries the
// server's human-readable message when the envelope provided one.
type Error struct {
	Kind    Kind
	Status  int
	Mensaje string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Mensaje
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("api %s (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("api %s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an API error of the given kind.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

// IsAuth reports an authentication failure. These are never retried
// here; re-authentication is a higher-level concern.
func IsAuth(err error) bool { return IsKind(err, KindAuth) }

// IsNotFound reports a valid query that matched nothing.
func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }

// IsValidation reports a request rejected as malformed or incomplete.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// Message extracts the server-provided message from err, or the generic
// fallback when none is available.
func Message(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Mensaje != "" {
		return ae.Mensaje
	}
	return fallback
}
