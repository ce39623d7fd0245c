package schema

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/briangreenhill/postboard/apierror"
)

// ErrInvalidArgument matches validation errors raised for caller-supplied
// arguments (ids, inputs) rather than for remote payloads.
var ErrInvalidArgument = errors.New("invalid argument")

// Issue names one field and the constraint it violated.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// ValidationError lists every issue found while validating a value.
type ValidationError struct {
	Entity   string
	Issues   []Issue
	argument bool
}

var _ apierror.Classified = (*ValidationError)(nil)

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.String())
	}
	prefix := "invalid " + e.Entity
	if e.argument {
		prefix = "invalid argument"
		if e.Entity != "" {
			prefix += " for " + e.Entity
		}
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

// Kind implements apierror.Classified.
func (e *ValidationError) Kind() apierror.Kind { return apierror.KindValidation }

// Is lets errors.Is(err, ErrInvalidArgument) match argument failures.
func (e *ValidationError) Is(target error) bool {
	return e.argument && target == ErrInvalidArgument
}

// Fields returns the offending field paths in report order.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		out = append(out, is.Field)
	}
	return out
}

// Has reports whether field is among the offending fields.
func (e *ValidationError) Has(field string) bool {
	for _, is := range e.Issues {
		if is.Field == field {
			return true
		}
	}
	return false
}

// InvalidArgument builds an argument validation failure for a single field.
func InvalidArgument(entity, field, message string) error {
	return &ValidationError{
		Entity:   entity,
		Issues:   []Issue{{Field: field, Message: message}},
		argument: true,
	}
}

// RequirePositiveID rejects ids that the server could never have assigned.
func RequirePositiveID(entity, field string, id int) error {
	if id <= 0 {
		return InvalidArgument(entity, field, "must be a positive integer")
	}
	return nil
}

func newIssues(entity string, issues []Issue, argument bool) error {
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Entity: entity, Issues: issues, argument: argument}
}
