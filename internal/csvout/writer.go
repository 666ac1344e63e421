// Package csvout writes flattened rows as comma-separated lines.
//
// Cells arrive already rendered (strings and booleans quoted, numbers bare), so
// the writer only joins them; encoding/csv would re-quote the quoted cells.
package csvout

import (
	"bufio"
	"io"
)

// Delimiter separates cells on a line.
const Delimiter = ','

// Writer appends one line per row to an underlying stream.
type Writer struct {
	bw    *bufio.Writer
	rows  int
	bytes int64
}

// NewWriter wraps w with a buffered row writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, 64*1024)}
}

// WriteRow writes cells in ordinal order followed by a newline. A row is as
// long as its own cell list; it is never padded to the global column count.
func (w *Writer) WriteRow(cells []string) error {
	for i, c := range cells {
		if i > 0 {
			if err := w.bw.WriteByte(Delimiter); err != nil {
				return err
			}
			w.bytes++
		}
		n, err := w.bw.WriteString(c)
		w.bytes += int64(n)
		if err != nil {
			return err
		}
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	w.bytes++
	w.rows++
	return nil
}

// Flush writes any buffered data to the underlying stream.
func (w *Writer) Flush() error { return w.bw.Flush() }

// Rows returns the number of lines written.
func (w *Writer) Rows() int { return w.rows }

// Bytes returns the number of bytes written, buffered or not.
func (w *Writer) Bytes() int64 { return w.bytes }
