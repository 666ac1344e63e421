// Package json provides an engine.TokenSource backed by encoding/json.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	eng "github.com/reoring/jsontab/internal/engine"
)

type jsonSource struct {
	dec        *json.Decoder
	frames     eng.Frames
	lastOffset int64
}

// NewReader wraps an io.Reader into an engine.TokenSource for JSON.
func NewReader(r io.Reader) eng.TokenSource {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &jsonSource{dec: dec, lastOffset: -1}
}

// NewBytes wraps a byte slice into an engine.TokenSource for JSON.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

func (s *jsonSource) NextToken() (eng.Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return eng.Token{}, io.EOF
		}
		return eng.Token{}, err
	}
	s.lastOffset = s.dec.InputOffset()

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			s.frames.Open(true)
			return s.token(eng.KindBeginObject), nil
		case '}':
			s.frames.Close()
			return s.token(eng.KindEndObject), nil
		case '[':
			s.frames.Open(false)
			return s.token(eng.KindBeginArray), nil
		default:
			s.frames.Close()
			return s.token(eng.KindEndArray), nil
		}
	case string:
		t := s.token(eng.KindString)
		if s.frames.Key() {
			t.Kind = eng.KindKey
		}
		t.String = v
		return t, nil
	case bool:
		s.frames.Value()
		t := s.token(eng.KindBool)
		t.Bool = v
		return t, nil
	case json.Number:
		s.frames.Value()
		t := s.token(eng.KindNumber)
		t.Number = string(v)
		return t, nil
	case float64:
		s.frames.Value()
		t := s.token(eng.KindNumber)
		t.Number = strconv.FormatFloat(v, 'g', -1, 64)
		return t, nil
	}
	s.frames.Value()
	return s.token(eng.KindNull), nil
}

func (s *jsonSource) token(k eng.Kind) eng.Token { return eng.Token{Kind: k, Offset: s.lastOffset} }

func (s *jsonSource) Location() int64 { return s.lastOffset }
