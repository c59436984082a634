package execution

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota + 1
	KindInvalidArgument
	KindNotSupported
)

var (
	ErrInternal        = errors.New("internal error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("not supported")
)

func (k ErrorKind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindInvalidArgument:
		return "invalid argument"
	case KindNotSupported:
		return "not supported"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInternal:
		return ErrInternal
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindNotSupported:
		return ErrNotSupported
	}
	return nil
}

// Error describes a failure of a single operation on a single plan node.
// errors.Is(err, ErrInternal) and friends match on the Kind.
type Error struct {
	Kind ErrorKind
	Node string
	Op   string
	Err  error
}

func NewError(kind ErrorKind, node, op, format string, args ...interface{}) error {
	return &Error{
		Kind: kind,
		Node: node,
		Op:   op,
		Err:  errors.Errorf(format, args...),
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s: %s", e.Kind, e.Node, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the kind of the first *Error found in the chain, or 0 if there is none.
func KindOf(err error) ErrorKind {
	var execErr *Error
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return 0
}
