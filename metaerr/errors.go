package metaerr

import (
	"errors"
	"fmt"
)

var (
	// a line did not have the positional or numeric shape its label promises
	ErrMalformed = errors.New("malformed field")
	// declared similar count disagrees with the number of listed ASINs
	ErrSimilarCount = errors.New("similar count mismatch")
	// block does not describe exactly one product
	ErrBlockShape = errors.New("block must describe exactly one product")
	// run stopped by on_parse_error=abort or the error limit
	ErrAborted = errors.New("load aborted")
)

// ParseError fails the block that contains Line. Field names the label (or "block"
// for shape checks).
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func NewParseError(line int, field string, err error) *ParseError {
	return &ParseError{Line: line, Field: field, Err: err}
}

func (e *ParseError) Error() string {
	if len(e.Field) > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Err.Error())
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Err.Error())
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParse reports whether err (or anything it wraps) is a block parse failure.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
