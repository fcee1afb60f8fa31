package timeline

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is; the concrete error is a *RuleError
// whose message is meant for the caller.
var (
	// ErrNotFound: the referenced timeline, event, or event type does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument: the draft violates a naming or uniqueness rule.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrFailedPrecondition: the operation conflicts with the current document,
	// such as deleting an event type that events still use.
	ErrFailedPrecondition = errors.New("failed precondition")
)

// RuleError carries a caller-facing message and the kind of failure.
type RuleError struct {
	Kind    error
	Message string
}

func (e *RuleError) Error() string { return e.Message }

func (e *RuleError) Unwrap() error { return e.Kind }

func notFound(format string, args ...any) error {
	return &RuleError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidArgument(format string, args ...any) error {
	return &RuleError{Kind: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func failedPrecondition(format string, args ...any) error {
	return &RuleError{Kind: ErrFailedPrecondition, Message: fmt.Sprintf(format, args...)}
}

func timelineNotFound(id string) error {
	return notFound("Timeline with id %s not found", id)
}
