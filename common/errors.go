package common

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine errors by kind. The facade and the logger
// branch on codes, never on message text.
type ErrorCode int

const (
	// NotOpen indicates an operation that requires a current database.
	NotOpen ErrorCode = iota
	// NotFound indicates a missing table, column or index.
	NotFound
	// AlreadyExists indicates a duplicate table, column or index.
	AlreadyExists
	// TypeMismatch indicates an incompatible value for a column or operand.
	TypeMismatch
	// ConstraintViolation indicates NOT NULL, UNIQUE or PRIMARY KEY failure.
	ConstraintViolation
	// StorageIO indicates an open, read, write or rename failure.
	StorageIO
	// Evaluation indicates an arithmetic or conversion fault inside the
	// expression evaluator.
	Evaluation
	// Internal indicates an invariant violation.
	Internal
)

func (c ErrorCode) String() string {
	switch c {
	case NotOpen:
		return "NotOpen"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case TypeMismatch:
		return "TypeMismatch"
	case ConstraintViolation:
		return "ConstraintViolation"
	case StorageIO:
		return "StorageIO"
	case Evaluation:
		return "Evaluation"
	case Internal:
		return "Internal"
	}
	return "unknown"
}

// Error wraps an ErrorCode with a detailed message. It is the engine's
// only error type; subsystems wrap OS errors into StorageIO at the
// boundary where they occur.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Msg)
}

// Errorf builds an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) error {
	return Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WrapIO converts an OS-level failure into a StorageIO error, keeping the
// operation name in the message. Returns nil for nil.
func WrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return Error{Code: StorageIO, Msg: fmt.Sprintf("%s: %v", op, err)}
}

// CodeOf extracts the ErrorCode from err. ok is false for foreign errors.
func CodeOf(err error) (ErrorCode, bool) {
	var e Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
