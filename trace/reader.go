package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// maxLineLength bounds a single trace line.
const maxLineLength = 1 << 20

// Policy decides what happens to a malformed record.
type Policy string

const (
	// PolicyAbort stops reading at the first malformed record.
	PolicyAbort Policy = "abort"
	// PolicySkip logs and drops malformed records and keeps reading.
	PolicySkip Policy = "skip"
)

// ParsePolicy converts a policy name. The empty string means PolicyAbort.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case PolicyAbort, "":
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown malformed-record policy %q (want %q or %q)",
			name, PolicyAbort, PolicySkip)
	}
}

// ReaderOption is a functional option for configuring a Reader.
type ReaderOption func(*Reader)

// WithPolicy sets how malformed records are handled.
func WithPolicy(policy Policy) ReaderOption {
	return func(r *Reader) {
		r.policy = policy
	}
}

// WithLogger sets the logger used to report skipped records.
func WithLogger(logger logrus.FieldLogger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// Reader streams data records from a trace in file order. Instruction
// fetches and blank lines are consumed silently.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	policy  Policy
	logger  logrus.FieldLogger

	line      int
	skipped   uint64
	malformed uint64
	err       error
}

// NewReader creates a Reader over src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	r := &Reader{
		scanner: scanner,
		policy:  PolicyAbort,
		logger:  logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Open opens a trace file. The caller must Close the returned Reader.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	r := NewReader(f, opts...)
	r.closer = f

	return r, nil
}

// Next returns the next data record. It returns io.EOF when the trace is
// exhausted. Under PolicyAbort a malformed line yields a *ParseError and
// every later call returns the same error.
func (r *Reader) Next() (Record, error) {
	if r.err != nil {
		return Record{}, r.err
	}

	for r.scanner.Scan() {
		r.line++

		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		rec, err := ParseLine(text)
		if err != nil {
			perr := &ParseError{Line: r.line, Text: text, Err: err}
			if r.policy == PolicySkip {
				r.malformed++
				r.logger.WithFields(logrus.Fields{
					"line": r.line,
					"text": text,
				}).Warnf("skipping malformed trace record: %v", err)
				continue
			}

			r.err = perr
			return Record{}, perr
		}

		if rec.Op == OpInstructionFetch {
			r.skipped++
			continue
		}

		rec.Line = r.line
		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		r.err = fmt.Errorf("failed to read trace: %w", err)
		return Record{}, r.err
	}

	r.err = io.EOF
	return Record{}, io.EOF
}

// Lines returns the number of lines consumed so far.
func (r *Reader) Lines() int {
	return r.line
}

// Skipped returns the number of instruction fetches consumed so far.
func (r *Reader) Skipped() uint64 {
	return r.skipped
}

// Malformed returns the number of malformed records dropped under
// PolicySkip.
func (r *Reader) Malformed() uint64 {
	return r.malformed
}

// Close closes the underlying file if the Reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}

	err := r.closer.Close()
	r.closer = nil

	return err
}

// ReadAll reads every remaining data record.
func ReadAll(r *Reader) ([]Record, error) {
	var records []Record

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}

		if err != nil {
			return records, err
		}

		records = append(records, rec)
	}
}
