package constraint_network

import (
	"errors"
	"fmt"

	"github.com/jtomasevic/incscore/pkg/tuple"
)

var (
	ErrInvalidJoiner         = errors.New("invalid joiner")
	ErrArityOverflow         = errors.New("tuple arity overflow")
	ErrNonRemovableCollector = errors.New("collector does not support removal")
	ErrInvalidOperation      = errors.New("invalid operation")
	ErrFactNotFound          = errors.New("fact not found")
	ErrFactAlreadyInserted   = errors.New("fact already inserted")
	ErrNoConstraints         = errors.New("no constraints")
	ErrUnexpectedPanic       = errors.New("unexpected panic during propagation")

	// ErrConsistency matches every *ConsistencyError with errors.Is.
	ErrConsistency = errors.New("internal consistency violation")
)

// BuildError is a configuration error found while compiling constraints
// into a network. It is fatal: nothing is propagated.
type BuildError struct {
	Constraint string
	Op         string
	Err        error
}

func (e *BuildError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("constraint %q: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("constraint %q: %s: %v", e.Constraint, e.Op, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// ConsistencyError means a node received a lifecycle call that violates the
// tuple protocol (retracting an unknown tuple, inserting twice, undoing a
// collector addition that never happened, ...). The network that raised it
// can no longer be trusted.
type ConsistencyError struct {
	Node  string
	Op    string
	Tuple string
	Msg   string
}

func (e *ConsistencyError) Error() string {
	if e.Tuple == "" {
		return fmt.Sprintf("%s %s: %s", e.Node, e.Op, e.Msg)
	}
	return fmt.Sprintf("%s %s %s: %s", e.Node, e.Op, e.Tuple, e.Msg)
}

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }

// fail aborts propagation; Network recovers it at its public boundary.
func fail(node, op string, t *tuple.Tuple, format string, args ...any) {
	e := &ConsistencyError{Node: node, Op: op, Msg: fmt.Sprintf(format, args...)}
	if t != nil {
		e.Tuple = t.String()
	}
	panic(e)
}

// recoverInto turns a panic raised during propagation into an error.
// User functions (predicates, mappers, collectors) may panic too; those are
// wrapped with ErrUnexpectedPanic.
func recoverInto(err *error) {
	r := recover()
	if r == nil {
		return
	}
	switch v := r.(type) {
	case *ConsistencyError:
		*err = v
	case error:
		*err = fmt.Errorf("%w: %w", ErrUnexpectedPanic, v)
	default:
		*err = fmt.Errorf("%w: %v", ErrUnexpectedPanic, v)
	}
}
