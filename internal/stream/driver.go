package stream

import (
	"errors"
	"io"

	eng "github.com/reoring/jsontab/internal/engine"
)

var (
	// ErrRootNotObject reports a document whose first token is not begin-object.
	ErrRootNotObject = errors.New("document root is not an object")
	// ErrTrailingData reports tokens after the root object closed.
	ErrTrailingData = errors.New("unexpected data after document root")
)

// Element is one item of an array-valued root member. Source yields exactly
// the tokens of the item.
type Element struct {
	Member string
	Index  int
	Source *PreloadedSource
}

type state int

const (
	stateStart state = iota
	stateRoot
	stateArray
	stateDone
)

// Driver walks a document whose root is an object and yields the elements of
// every array-valued member in document order. Other members are skipped
// without being materialized. Only the current position and nesting are kept.
type Driver struct {
	src    eng.TokenSource
	state  state
	member string
	index  int
	arrays int
	last   *PreloadedSource
}

// NewDriver creates a streaming driver over src.
func NewDriver(src eng.TokenSource) *Driver { return &Driver{src: src} }

// Open consumes the root begin-object token.
func (d *Driver) Open() error {
	if d.state != stateStart {
		return nil
	}
	tok, err := d.src.NextToken()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrRootNotObject
		}
		return err
	}
	if tok.Kind != eng.KindBeginObject {
		return ErrRootNotObject
	}
	d.state = stateRoot
	return nil
}

// Next returns the next array element. It returns io.EOF after the root object
// closed. The previous element's source is drained first, so callers may stop
// reading an element early.
func (d *Driver) Next() (Element, error) {
	if err := d.Open(); err != nil {
		return Element{}, err
	}
	if d.last != nil {
		if err := d.last.Drain(); err != nil {
			return Element{}, err
		}
		d.last = nil
	}
	for {
		switch d.state {
		case stateDone:
			return Element{}, io.EOF
		case stateArray:
			tok, err := d.next()
			if err != nil {
				return Element{}, err
			}
			if tok.Kind == eng.KindEndArray {
				d.state = stateRoot
				continue
			}
			el := Element{Member: d.member, Index: d.index, Source: NewPreloadedSource(d.src, tok)}
			d.index++
			d.last = el.Source
			return el, nil
		default:
			if err := d.advanceRoot(); err != nil {
				return Element{}, err
			}
		}
	}
}

// advanceRoot reads one root member, entering it when it is an array.
func (d *Driver) advanceRoot() error {
	tok, err := d.next()
	if err != nil {
		return err
	}
	switch tok.Kind {
	case eng.KindEndObject:
		d.state = stateDone
		return d.expectEOF()
	case eng.KindKey:
	default:
		return eng.UnexpectedToken(tok, "key")
	}
	member := tok.String
	vt, err := d.next()
	if err != nil {
		return err
	}
	if vt.Kind == eng.KindBeginArray {
		d.state = stateArray
		d.member = member
		d.index = 0
		d.arrays++
		return nil
	}
	if vt.Kind == eng.KindKey || vt.Kind == eng.KindEndObject || vt.Kind == eng.KindEndArray {
		return eng.UnexpectedToken(vt, "value")
	}
	return NewPreloadedSource(d.src, vt).Drain()
}

func (d *Driver) expectEOF() error {
	_, err := d.src.NextToken()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	return ErrTrailingData
}

func (d *Driver) next() (eng.Token, error) {
	tok, err := d.src.NextToken()
	if errors.Is(err, io.EOF) {
		return eng.Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}

// Arrays returns how many array-valued root members were entered so far.
func (d *Driver) Arrays() int { return d.arrays }
