package compose

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAction is matched by every *InvalidActionError.
	ErrInvalidAction = errors.New("invalid action")

	// ErrReferenceUnavailable is returned by a MessageStore when the
	// reference message does not exist.
	ErrReferenceUnavailable = errors.New("reference message unavailable")
)

// InvalidActionError is returned when an operation is invoked with an
// action it has no meaning for.
type InvalidActionError struct {
	Op     string
	Action Action
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("%s: %s is not a valid action", e.Op, e.Action)
}

func (e *InvalidActionError) Is(target error) bool {
	return target == ErrInvalidAction
}

// MalformedAddressError reports an address token that could not be parsed.
// It is recovered by dropping the token.
type MalformedAddressError struct {
	Token string
	Err   error
}

func (e *MalformedAddressError) Error() string {
	return fmt.Sprintf("malformed address %q: %v", e.Token, e.Err)
}

func (e *MalformedAddressError) Unwrap() error {
	return e.Err
}
