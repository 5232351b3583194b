package overload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFunction is returned when no overload of a name exists in the
	// scope being searched.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrArity is returned when overloads of a name exist but none takes the
	// number of arguments passed.
	ErrArity = errors.New("wrong number of parameters")

	// ErrTypeMismatch matches every *TypeMismatchError via errors.Is.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrClassification is the cause of a mismatch whose argument carries no
	// usable type information, such as an instance of an unregistered class.
	ErrClassification = errors.New("argument has no registered type")

	// ErrConflict is returned at bind time when an overload with the same
	// name, arity and key tuple is already registered.
	ErrConflict = errors.New("overload already registered")

	// ErrArityLimit is returned at bind time for overloads with more
	// parameters than the table accepts.
	ErrArityLimit = errors.New("too many parameters")

	ErrInvalidKey   = errors.New("invalid signature key")
	ErrInvalidClass = errors.New("invalid class")
	ErrUnknownClass = errors.New("unknown class")
)

// LookupError reports a call whose name or arity has no overloads at all.
type LookupError struct {
	Function string
	ArgCount int
	Err      error
}

func (e *LookupError) Error() string {
	if errors.Is(e.Err, ErrUnknownFunction) {
		return fmt.Sprintf("the index '%s' does not exist", e.Function)
	}
	return fmt.Sprintf("wrong number of parameters (%d) for '%s'", e.ArgCount, e.Function)
}

func (e *LookupError) Unwrap() error { return e.Err }

// TypeMismatchError is the diagnostic for a call no overload accepts.
type TypeMismatchError struct {
	Function string
	// Position is the 1-based index of the first argument that could not be
	// matched.
	Position int
	Got      ValueKind
	// Expected lists the type names accepted at Position by the overloads
	// that match the arguments before it, without duplicates, in
	// registration order. The set is filtered by that prefix: an overload
	// whose earlier parameters did not match contributes nothing, so past
	// position 1 this is not every type the bucket accepts there.
	Expected []string
	// Tried is the candidate list walked before giving up.
	Tried CandidateList
	// Cause is ErrClassification when the argument could not be classified.
	Cause error
}

// Context is the message prefix naming the call site.
func (e *TypeMismatchError) Context() string {
	return fmt.Sprintf("parameter %d of '%s' has wrong type %s", e.Position, e.Function, e.Got)
}

func (e *TypeMismatchError) Error() string {
	return e.Context() + ": expected type " + strings.Join(e.Expected, "|")
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

func (e *TypeMismatchError) Unwrap() error { return e.Cause }
