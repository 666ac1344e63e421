package flatten

import (
	"strconv"

	"github.com/reoring/jsontab/metadata"
)

// Column is a discovered output column. Ordinal is the position of first
// appearance and never changes.
type Column struct {
	Name    string
	Key     string // field key the column was discovered under
	Ordinal int
	Type    metadata.Type
}

// ColumnSet is the append-only list of columns of one conversion.
type ColumnSet struct {
	cols   []Column
	byName map[string]int
	byKey  map[string][]int
}

// NewColumnSet returns an empty set.
func NewColumnSet() *ColumnSet {
	return &ColumnSet{byName: make(map[string]int), byKey: make(map[string][]int)}
}

// Len returns the number of columns.
func (s *ColumnSet) Len() int { return len(s.cols) }

// Lookup returns the ordinal of the n-th (0-based) column registered for key.
func (s *ColumnSet) Lookup(key string, n int) (int, bool) {
	ords := s.byKey[key]
	if n < len(ords) {
		return ords[n], true
	}
	return 0, false
}

// Add registers a new column for key seeded with type t and returns its
// ordinal. The display name is key, or key followed by " 2", " 3", ... when
// that name is already taken.
func (s *ColumnSet) Add(key string, t metadata.Type) int {
	name := key
	if _, taken := s.byName[name]; taken {
		for n := 2; ; n++ {
			name = key + " " + strconv.Itoa(n)
			if _, taken = s.byName[name]; !taken {
				break
			}
		}
	}
	ord := len(s.cols)
	s.cols = append(s.cols, Column{Name: name, Key: key, Ordinal: ord, Type: t})
	s.byName[name] = ord
	s.byKey[key] = append(s.byKey[key], ord)
	return ord
}

// Observe records a value written to column ord. A non-numeric value
// permanently turns a Number column into a String column.
func (s *ColumnSet) Observe(ord int, numeric bool) {
	c := &s.cols[ord]
	switch {
	case c.Type == metadata.TypeUnset:
		c.Type = typeOf(numeric)
	case !numeric && c.Type == metadata.TypeNumber:
		c.Type = metadata.TypeString
	}
}

// Columns returns a copy of the columns in ordinal order.
func (s *ColumnSet) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Fields projects the columns for metadata.Build.
func (s *ColumnSet) Fields() []metadata.Field {
	out := make([]metadata.Field, len(s.cols))
	for i, c := range s.cols {
		out[i] = metadata.Field{Name: c.Name, Type: c.Type}
	}
	return out
}

func typeOf(numeric bool) metadata.Type {
	if numeric {
		return metadata.TypeNumber
	}
	return metadata.TypeString
}
