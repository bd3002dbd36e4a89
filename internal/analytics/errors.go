package analytics

import (
	"errors"
	"fmt"
)

// Kind classifies analytics failures
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindInsufficientData
	KindDivisionByZero
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindInsufficientData:
		return "insufficient data"
	case KindDivisionByZero:
		return "division by zero"
	default:
		return "unknown"
	}
}

// Error is returned by every analytics operation. It matches the sentinel of
// its kind with errors.Is.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Is reports whether target is the sentinel for the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Kind == e.Kind
}

var (
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
	ErrDivisionByZero   = &Error{Kind: KindDivisionByZero}
)

// NewError builds an analytics error for op.
func NewError(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of an analytics error anywhere in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
