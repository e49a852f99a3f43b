package types

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds. Every operation either completes or fails synchronously
// with one of these; a failed operation leaves the live container, its
// snapshot and the identity state untouched.
var (
	ErrNotWritable            = errors.New("tree is write protected")
	ErrTypeMismatch           = errors.New("value does not match type")
	ErrIdentitySchemaConflict = errors.New("identifier attribute conflicts with collection")
	ErrIdentityMisplacement   = errors.New("child stored under key different from its identifier")
	ErrMissingIdentifier      = errors.New("no identifier available")
	ErrInvalidArgument        = errors.New("invalid argument")
)

// ValidationError is one sub-failure of a Validate call, located by the
// escaped path of the offending value relative to the validated root.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("at %s: %s", e.Path, e.Message)
}

// validationFailure folds sub-errors into one ErrTypeMismatch error listing
// every sub-error path, or nil when there are none.
func validationFailure(typ Type, errs []*ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.String()
	}
	return fmt.Errorf("%w %s: %s", ErrTypeMismatch, typ.Describe(), strings.Join(parts, "; "))
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
