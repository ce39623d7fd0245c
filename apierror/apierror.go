// Package apierror classifies failures returned by the postboard client
// packages so callers can branch on a kind instead of parsing messages.
package apierror

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Kind is the classification of a failure surfaced to callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUnauthorized
	KindValidation
	KindNetwork
	KindServerFault
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindUnauthorized:
		return "Unauthorized"
	case KindValidation:
		return "ValidationFailed"
	case KindNetwork:
		return "NetworkUnavailable"
	case KindServerFault:
		return "ServerFault"
	default:
		return "Unknown"
	}
}

// Classified is implemented by errors that carry a Kind.
type Classified interface {
	error
	Kind() Kind
}

// KindOf walks the error chain and returns the first Kind it finds.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var c Classified
	if errors.As(err, &c) {
		return c.Kind()
	}
	return KindUnknown
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Canceled reports whether err is the result of context cancellation or a
// deadline.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// StatusCoder is implemented by errors that originate from an HTTP response.
type StatusCoder interface {
	StatusCode() int
}

// StatusOf returns the HTTP status carried by err, or 0 when there is none.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}
