package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/xid"
	akitasim "github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/sim"
)

var csvHeader = []string{"seq", "line", "op", "address", "size", "set", "tag", "outcome"}

// CSVWriter stores access records in a CSV file. Rows are buffered and
// written in batches.
type CSVWriter struct {
	path       string
	file       *os.File
	writer     *csv.Writer
	rows       []sim.AccessRecord
	bufferSize int
	err        error
	closed     bool
}

// NewCSVWriter creates the CSV file at path. An empty path picks a unique
// name in the working directory. An existing file is not overwritten.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if path == "" {
		path = "cachesim_audit_" + xid.New().String() + ".csv"
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit CSV: %w", err)
	}

	w := &CSVWriter{
		path:       path,
		file:       file,
		writer:     csv.NewWriter(file),
		bufferSize: 1000,
	}

	if err := w.writer.Write(csvHeader); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to write audit CSV header: %w", err)
	}

	atexit.Register(func() { _ = w.Close() })

	return w, nil
}

// Path returns the file being written.
func (w *CSVWriter) Path() string {
	return w.path
}

// Func buffers the access.
func (w *CSVWriter) Func(ctx akitasim.HookCtx) {
	rec, ok := accessRecord(ctx)
	if !ok || w.closed {
		return
	}

	w.rows = append(w.rows, rec)
	if len(w.rows) >= w.bufferSize {
		w.Flush()
	}
}

// Flush writes the buffered rows. The first write error is kept and
// returned by Close.
func (w *CSVWriter) Flush() {
	if w.closed || w.err != nil {
		w.rows = nil
		return
	}

	for _, rec := range w.rows {
		if err := w.writer.Write(csvRow(rec)); err != nil {
			w.err = err
			break
		}
	}
	w.rows = nil

	w.writer.Flush()
	if err := w.writer.Error(); err != nil && w.err == nil {
		w.err = err
	}
}

// Close flushes and closes the file. It is safe to call more than once.
func (w *CSVWriter) Close() error {
	if !w.closed {
		w.Flush()
		w.closed = true

		if err := w.file.Close(); err != nil && w.err == nil {
			w.err = err
		}
	}

	if w.err != nil {
		return fmt.Errorf("failed to write audit CSV %s: %w", w.path, w.err)
	}

	return nil
}

func csvRow(rec sim.AccessRecord) []string {
	words := make([]string, len(rec.Outcomes))
	for i, o := range rec.Outcomes {
		words[i] = o.String()
	}

	return []string{
		strconv.FormatUint(rec.Seq, 10),
		strconv.Itoa(rec.Line),
		rec.Op.Token(),
		fmt.Sprintf("%#x", rec.Address),
		strconv.FormatUint(rec.Size, 10),
		strconv.FormatUint(rec.SetIndex, 10),
		fmt.Sprintf("%#x", rec.Tag),
		strings.Join(words, " "),
	}
}
