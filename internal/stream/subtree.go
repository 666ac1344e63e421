package stream

import (
	"io"

	eng "github.com/reoring/jsontab/internal/engine"
)

// PreloadedSource is a subtree source that first returns a preloaded token
// (typically the first token of an array element) and then continues to stream
// the remaining tokens of the same subtree from the underlying source. It stops
// after the subtree end is reached, returning io.EOF afterwards.
type PreloadedSource struct {
	inner     eng.TokenSource
	first     eng.Token
	depth     int
	done      bool
	firstSeen bool
}

// NewPreloadedSource constructs a subtree source that will return first before
// consuming further tokens from inner. The subtree boundary is determined by
// matching container begin/end pairs starting from first.
func NewPreloadedSource(inner eng.TokenSource, first eng.Token) *PreloadedSource {
	return &PreloadedSource{inner: inner, first: first}
}

func (p *PreloadedSource) NextToken() (eng.Token, error) {
	if p.done {
		return eng.Token{}, io.EOF
	}
	tok := p.first
	if p.firstSeen {
		var err error
		tok, err = p.inner.NextToken()
		if err != nil {
			if err == io.EOF {
				return eng.Token{}, io.ErrUnexpectedEOF
			}
			return eng.Token{}, err
		}
	}
	p.firstSeen = true

	switch tok.Kind {
	case eng.KindBeginObject, eng.KindBeginArray:
		p.depth++
	case eng.KindEndObject, eng.KindEndArray:
		p.depth--
	}
	if p.depth <= 0 {
		// a scalar first token or the matching end closes the subtree
		p.done = true
	}
	return tok, nil
}

// Drain consumes whatever is left of the subtree so the underlying source is
// positioned right after it.
func (p *PreloadedSource) Drain() error {
	for !p.done {
		if _, err := p.NextToken(); err != nil {
			return err
		}
	}
	return nil
}

// Done reports whether the subtree end was reached.
func (p *PreloadedSource) Done() bool { return p.done }

func (p *PreloadedSource) Location() int64 { return p.inner.Location() }
