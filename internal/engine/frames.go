package engine

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

// Frames tracks the container stack of a decoder that reports object keys and
// string values with the same token type. Token sources call Open/Close on
// delimiters, Key for every string and Value after any other scalar.
type Frames struct {
	stack []frame
}

// Open pushes a container. A container is itself a value of its parent.
func (f *Frames) Open(object bool) {
	f.Value()
	if object {
		f.stack = append(f.stack, frame{kind: kindObject, expectingKey: true})
		return
	}
	f.stack = append(f.stack, frame{kind: kindArray})
}

// Close pops the innermost container.
func (f *Frames) Close() {
	if n := len(f.stack); n > 0 {
		f.stack = f.stack[:n-1]
	}
}

// Key reports whether the string just read is an object key. Otherwise it is
// recorded as a value.
func (f *Frames) Key() bool {
	if n := len(f.stack); n > 0 {
		top := &f.stack[n-1]
		if top.kind == kindObject && top.expectingKey {
			top.expectingKey = false
			return true
		}
	}
	f.Value()
	return false
}

// Value records that a member value was read in the innermost container.
func (f *Frames) Value() {
	if n := len(f.stack); n > 0 {
		top := &f.stack[n-1]
		if top.kind == kindObject && !top.expectingKey {
			top.expectingKey = true
		}
	}
}

// Depth returns the number of open containers.
func (f *Frames) Depth() int { return len(f.stack) }
