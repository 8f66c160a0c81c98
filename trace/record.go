package trace

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned for a trace line that cannot be parsed.
var ErrMalformed = errors.New("malformed trace record")

// Record is one parsed trace line.
type Record struct {
	Op      Op
	Address uint64
	Size    uint64

	// Line is the 1-based line number in the source, or 0 if the record
	// was not read from a file.
	Line int
}

// String formats the record the way verbose output shows it.
func (r Record) String() string {
	return fmt.Sprintf("%s %x,%d", r.Op.Token(), r.Address, r.Size)
}

// ParseError describes a trace line that could not be parsed.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d (%q): %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
