package reconcile

import "fmt"

type ErrorCode string

const (
	CodeOutOfRange       ErrorCode = "OutOfRange"
	CodeExceedsAvailable ErrorCode = "ExceedsAvailable"
	CodeNoStock          ErrorCode = "NoStock"
)

// ValidationError is returned before any write is attempted. The caller can
// always recover by adjusting the requested quantity.
type ValidationError struct {
	Code      ErrorCode
	Material  string
	Requested int
	Available int
}

var (
	ErrOutOfRange       = &ValidationError{Code: CodeOutOfRange}
	ErrExceedsAvailable = &ValidationError{Code: CodeExceedsAvailable}
	ErrNoStock          = &ValidationError{Code: CodeNoStock}
)

func (e *ValidationError) Error() string {
	switch e.Code {
	case CodeNoStock:
		return fmt.Sprintf("no stock left for %q", e.Material)
	case CodeExceedsAvailable:
		return fmt.Sprintf("requested %d of %q exceeds available %d", e.Requested, e.Material, e.Available)
	case CodeOutOfRange:
		return fmt.Sprintf("supply of %d for %q is out of range (remaining %d)", e.Requested, e.Material, e.Available)
	}
	return string(e.Code)
}

// Is matches on the code, so errors.Is(err, ErrOutOfRange) works for any
// OutOfRange failure. NoStock also matches ExceedsAvailable.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return e.Code == CodeNoStock && t.Code == CodeExceedsAvailable
}
