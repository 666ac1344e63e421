// Package flatten turns materialized records into flat rows.
//
// Nested objects are merged into the row of their parent without key
// prefixes. Array fields are deferred until every other field of the owning
// object was visited; each array element after the first starts a new row from
// a snapshot of the row taken just before the array began.
package flatten

import (
	"strings"

	eng "github.com/reoring/jsontab/internal/engine"
)

// RowWriter receives finished rows.
type RowWriter interface {
	WriteRow(cells []string) error
}

// Options tune column discovery.
type Options struct {
	// ExtendColumns appends columns first seen after the first row instead of
	// dropping their values.
	ExtendColumns bool
}

// Dropped counts values discarded because their column was unknown once the
// header was frozen.
type Dropped struct {
	Key      string
	Count    int
	FirstRow int
}

// Flattener owns the column list, the current row and the row counter of one
// conversion.
type Flattener struct {
	out     RowWriter
	opt     Options
	cols    *ColumnSet
	row     *Row
	rows    int
	dropped []Dropped
	dropIdx map[string]int
}

// New creates a Flattener writing rows to out.
func New(out RowWriter, opt Options) *Flattener {
	return &Flattener{out: out, opt: opt, cols: NewColumnSet(), dropIdx: make(map[string]int)}
}

// Record flattens one top-level array element of the member named key and
// writes every row it produces.
func (f *Flattener) Record(key string, n *eng.Node) error {
	f.rows++
	f.row = NewRow()
	if err := f.value(key, n); err != nil {
		return err
	}
	return f.emit()
}

// Rows returns the number of rows started so far.
func (f *Flattener) Rows() int { return f.rows }

// Columns returns the discovered columns in ordinal order.
func (f *Flattener) Columns() *ColumnSet { return f.cols }

// Dropped lists fields whose values were discarded, in order of first drop.
func (f *Flattener) Dropped() []Dropped {
	out := make([]Dropped, len(f.dropped))
	copy(out, f.dropped)
	return out
}

func (f *Flattener) value(key string, n *eng.Node) error {
	switch n.Kind {
	case eng.NodeObject:
		return f.object(n)
	case eng.NodeArray:
		return f.array(key, n)
	case eng.NodeNull:
		return nil
	default:
		f.scalar(key, n)
		return nil
	}
}

func (f *Flattener) object(n *eng.Node) error {
	var arrays []eng.Field
	for _, fld := range n.Fields {
		if fld.Value.Kind == eng.NodeArray {
			arrays = append(arrays, fld)
			continue
		}
		if err := f.value(fld.Key, fld.Value); err != nil {
			return err
		}
	}
	for _, fld := range arrays {
		if err := f.array(fld.Key, fld.Value); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flattener) array(key string, n *eng.Node) error {
	if len(n.Items) == 0 {
		return nil
	}
	base := f.row.Snapshot()
	for i, item := range n.Items {
		if i > 0 {
			if err := f.emit(); err != nil {
				return err
			}
			f.row = base.Snapshot()
			f.rows++
		}
		if err := f.value(key, item); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flattener) scalar(key string, n *eng.Node) {
	v, numeric := Render(n)
	occ := f.row.occurrence(key)
	if ord, ok := f.cols.Lookup(key, occ); ok {
		f.row.Set(ord, v)
		f.cols.Observe(ord, numeric)
		return
	}
	if f.rows == 1 || f.opt.ExtendColumns {
		ord := f.cols.Add(key, typeOf(numeric))
		f.row.Set(ord, v)
		return
	}
	f.drop(key)
}

func (f *Flattener) drop(key string) {
	if i, ok := f.dropIdx[key]; ok {
		f.dropped[i].Count++
		return
	}
	f.dropIdx[key] = len(f.dropped)
	f.dropped = append(f.dropped, Dropped{Key: key, Count: 1, FirstRow: f.rows})
}

func (f *Flattener) emit() error { return f.out.WriteRow(f.row.Cells()) }

var quoteEscaper = strings.NewReplacer(`"`, `""`)

// Render returns the cell text of a scalar node and whether it is numeric.
// Numbers keep their literal text; booleans and strings are quoted.
func Render(n *eng.Node) (string, bool) {
	switch n.Kind {
	case eng.NodeNumber:
		return n.Text, true
	case eng.NodeBool:
		if n.Bool {
			return `"TRUE"`, false
		}
		return `"FALSE"`, false
	default:
		return `"` + quoteEscaper.Replace(n.Text) + `"`, false
	}
}
