package flatten

// Row is a sparse list of rendered cells indexed by column ordinal. It also
// counts how often each field key occurred so repeated keys map onto their
// disambiguated columns.
type Row struct {
	cells []string
	seen  map[string]int
}

// NewRow returns an empty row.
func NewRow() *Row { return &Row{seen: make(map[string]int)} }

// Set writes v at ordinal ord, padding skipped cells with empty strings.
func (r *Row) Set(ord int, v string) {
	for len(r.cells) <= ord {
		r.cells = append(r.cells, "")
	}
	r.cells[ord] = v
}

// Cells returns the row's cells. The row is only as long as its highest
// written ordinal.
func (r *Row) Cells() []string { return r.cells }

// Len returns the number of cells.
func (r *Row) Len() int { return len(r.cells) }

// occurrence returns how many times key was seen before in this row and
// counts the current one.
func (r *Row) occurrence(key string) int {
	n := r.seen[key]
	r.seen[key] = n + 1
	return n
}

// Snapshot returns a deep copy; later writes to either row do not leak into
// the other.
func (r *Row) Snapshot() *Row {
	cp := &Row{cells: make([]string, len(r.cells)), seen: make(map[string]int, len(r.seen))}
	copy(cp.cells, r.cells)
	for k, v := range r.seen {
		cp.seen[k] = v
	}
	return cp
}
