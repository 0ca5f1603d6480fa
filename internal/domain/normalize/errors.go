package normalize

import (
	"errors"
	"fmt"
)

// Row errors. A row failing with either is dropped and the run continues.
var (
	ErrParse    = errors.New("malformed teammate list")
	ErrCoercion = errors.New("invalid numeric column")
)

// ErrRejected marks a well formed row that failed the admission filter.
var ErrRejected = errors.New("row not admitted")

// RowError attaches the source line to a row error.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
