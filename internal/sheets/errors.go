package sheets

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies failures reported by a Source.
type Kind int

const (
	// KindFailure covers generic I/O, auth, and API failures.
	KindFailure Kind = iota
	// KindNotFound reports a missing spreadsheet or sheet.
	KindNotFound
	// KindTimeout reports a call that exceeded its deadline.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	default:
		return "failure"
	}
}

var (
	// ErrNotFound matches errors of KindNotFound via errors.Is.
	ErrNotFound = errors.New("sheets: not found")
	// ErrTimeout matches errors of KindTimeout via errors.Is.
	ErrTimeout = errors.New("sheets: timeout")
	// ErrFailure matches errors of KindFailure via errors.Is.
	ErrFailure = errors.New("sheets: remote failure")
)

// Error wraps a failed Source call with its kind and operation name.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sheets %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("sheets %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers compare against ErrNotFound, ErrTimeout and ErrFailure.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrFailure:
		return e.Kind == KindFailure
	}
	return false
}

// Code is picked up by the router when deriving err_code for handler logs.
func (e *Error) Code() string {
	return "sheets_" + e.Kind.String()
}

// KindOf reports the kind of err; unknown errors are treated as failures.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindFailure
}

func wrap(op string, kind Kind, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}
