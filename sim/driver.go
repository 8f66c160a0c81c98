// Package sim drives a cache model over a memory reference trace.
package sim

import (
	"errors"
	"fmt"
	"io"
	"strings"

	akitasim "github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/trace"
)

var (
	// ErrUnsupportedOp is returned when a record that is not a data access
	// reaches the driver.
	ErrUnsupportedOp = errors.New("operation is not a data access")

	// ErrDivergence is returned when cross-checking finds the cache and the
	// reference model disagreeing on an access.
	ErrDivergence = errors.New("cache and reference model diverged")
)

// HookPosAccess triggers after each trace record is fully resolved. The
// hook item is an AccessRecord.
var HookPosAccess = &akitasim.HookPos{Name: "Access"}

// AccessRecord describes how one trace record was resolved.
type AccessRecord struct {
	// Seq is the 1-based index of the record among data accesses.
	Seq      uint64
	Op       trace.Op
	Address  uint64
	Size     uint64
	Line     int
	SetIndex uint64
	Tag      uint64
	// Outcomes has one entry for loads and stores and two for modifies.
	Outcomes []cache.Outcome
}

// String formats the record as a verbose trace line, e.g. "M 20,1 miss hit".
func (r AccessRecord) String() string {
	words := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		words[i] = o.String()
	}

	return fmt.Sprintf("%s %x,%d %s", r.Op.Token(), r.Address, r.Size,
		strings.Join(words, " "))
}

// RecordSource supplies trace records in order and io.EOF at the end.
type RecordSource interface {
	Next() (trace.Record, error)
}

// DriverOption is a functional option for configuring the Driver.
type DriverOption func(*Driver)

// WithHook registers a hook that observes every resolved access.
func WithHook(hook akitasim.Hook) DriverOption {
	return func(d *Driver) {
		d.AcceptHook(hook)
	}
}

// WithCrossCheck replays every access through the reference model and
// fails the run on the first disagreement.
func WithCrossCheck() DriverOption {
	return func(d *Driver) {
		d.crossCheck = true
	}
}

// WithLogger sets the logger for per-access debug output.
func WithLogger(logger *logrus.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// Driver owns one cache and its statistics for the length of a run. It is
// not safe for concurrent use.
type Driver struct {
	*akitasim.HookableBase

	cache      *cache.Cache
	decoder    *cache.Decoder
	stats      Statistics
	crossCheck bool
	reference  *cache.Reference
	logger     *logrus.Logger
	seq        uint64
}

// NewDriver creates a driver with an empty cache of the given geometry.
func NewDriver(g cache.Geometry, opts ...DriverOption) (*Driver, error) {
	c, err := cache.New(g)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		HookableBase: akitasim.NewHookableBase(),
		cache:        c,
		decoder:      c.Decoder(),
		logger:       logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.crossCheck {
		d.reference, err = cache.NewReference(g)
		if err != nil {
			return nil, fmt.Errorf("cannot cross-check: %w", err)
		}
	}

	return d, nil
}

// Cache returns the cache the driver owns.
func (d *Driver) Cache() *cache.Cache {
	return d.cache
}

// Stats returns the statistics so far.
func (d *Driver) Stats() Statistics {
	return d.stats.Snapshot()
}

// Step resolves one data record. A modify is a load followed by a store to
// the same address, so it performs two accesses.
func (d *Driver) Step(rec trace.Record) (AccessRecord, error) {
	n := rec.Op.Accesses()
	if n == 0 {
		return AccessRecord{}, fmt.Errorf("%w: %s", ErrUnsupportedOp, rec.Op)
	}

	addr := d.decoder.Decode(rec.Address)
	outcomes := make([]cache.Outcome, 0, n)

	for i := 0; i < n; i++ {
		outcome, err := d.access(rec.Address, addr)
		if err != nil {
			return AccessRecord{}, err
		}
		outcomes = append(outcomes, outcome)
	}

	d.seq++
	record := AccessRecord{
		Seq:      d.seq,
		Op:       rec.Op,
		Address:  rec.Address,
		Size:     rec.Size,
		Line:     rec.Line,
		SetIndex: addr.SetIndex,
		Tag:      addr.Tag,
		Outcomes: outcomes,
	}

	if d.logger.IsLevelEnabled(logrus.DebugLevel) {
		d.logger.WithFields(logrus.Fields{
			"seq":     record.Seq,
			"op":      rec.Op.String(),
			"addr":    fmt.Sprintf("%#x", rec.Address),
			"set":     addr.SetIndex,
			"tag":     fmt.Sprintf("%#x", addr.Tag),
			"outcome": outcomes,
		}).Debug(record.String())
	}

	d.InvokeHook(akitasim.HookCtx{
		Domain: d,
		Pos:    HookPosAccess,
		Item:   record,
	})

	return record, nil
}

func (d *Driver) access(rawAddr uint64, addr cache.Address) (cache.Outcome, error) {
	result, err := d.cache.Access(addr.SetIndex, addr.Tag)
	if err != nil {
		return 0, err
	}

	if d.reference != nil {
		want := d.reference.Access(rawAddr)
		if want != result.Outcome {
			return 0, fmt.Errorf("%w: address %#x: cache says %q, reference says %q",
				ErrDivergence, rawAddr, result.Outcome, want)
		}
	}

	d.stats.Record(result.Outcome)

	return result.Outcome, nil
}

// Run resolves every record from src in order and returns the final
// statistics. It stops at the first error.
func (d *Driver) Run(src RecordSource) (Statistics, error) {
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return d.Stats(), nil
		}

		if err != nil {
			return d.Stats(), err
		}

		if _, err := d.Step(rec); err != nil {
			if rec.Line > 0 {
				err = fmt.Errorf("trace line %d: %w", rec.Line, err)
			}
			return d.Stats(), err
		}
	}
}

// RunRecords resolves a slice of records in order.
func (d *Driver) RunRecords(records []trace.Record) (Statistics, error) {
	return d.Run(&sliceSource{records: records})
}

// Reset starts a new run: it empties the cache, zeroes the statistics and
// restarts sequence numbering. Within a run, statistics only grow; Run and
// RunRecords continue the current run rather than starting a new one.
func (d *Driver) Reset() {
	d.cache.Reset()
	if d.reference != nil {
		d.reference.Reset()
	}
	d.stats = Statistics{}
	d.seq = 0
}

type sliceSource struct {
	records []trace.Record
	next    int
}

func (s *sliceSource) Next() (trace.Record, error) {
	if s.next >= len(s.records) {
		return trace.Record{}, io.EOF
	}

	rec := s.records[s.next]
	s.next++

	return rec, nil
}
