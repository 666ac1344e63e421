package engine

import (
	"errors"
	"fmt"
	"io"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

var kindNames = [...]string{
	KindBeginObject: "begin-object",
	KindEndObject:   "end-object",
	KindBeginArray:  "begin-array",
	KindEndArray:    "end-array",
	KindKey:         "key",
	KindString:      "string",
	KindNumber:      "number",
	KindBool:        "bool",
	KindNull:        "null",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsScalar reports whether k is a single-token value.
func (k Kind) IsScalar() bool {
	switch k {
	case KindString, KindNumber, KindBool, KindNull:
		return true
	}
	return false
}

// Token represents a streaming token with approximate input offset.
type Token struct {
	Kind   Kind
	String string
	Number string // literal text, never reformatted
	Bool   bool
	Offset int64
}

// TokenSource is a minimal interface required by the engine.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// ErrUnexpectedToken is wrapped by errors reporting a token that is not valid
// at its position.
var ErrUnexpectedToken = errors.New("unexpected token")

// UnexpectedToken builds an error for tok found where want was expected.
func UnexpectedToken(tok Token, want string) error {
	return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedToken, tok.Kind, want)
}

// NodeKind classifies a materialized node.
type NodeKind int

const (
	NodeObject NodeKind = iota
	NodeArray
	NodeString
	NodeNumber
	NodeBool
	NodeNull
)

// Field is one member of an object node. Fields keep document order and may
// repeat a key.
type Field struct {
	Key   string
	Value *Node
}

// Node is an ordered in-memory tree for one subtree of the input.
type Node struct {
	Kind   NodeKind
	Fields []Field // NodeObject
	Items  []*Node // NodeArray
	Text   string  // NodeString value or NodeNumber literal
	Bool   bool
}

// DecodeNode materializes the next value of src. The source must yield exactly
// one complete value; a premature end reports io.ErrUnexpectedEOF.
func DecodeNode(src TokenSource) (*Node, error) {
	tok, err := next(src)
	if err != nil {
		return nil, err
	}
	return decodeValue(src, tok)
}

// DecodeNodeFrom materializes a value whose first token was already consumed.
func DecodeNodeFrom(src TokenSource, first Token) (*Node, error) {
	return decodeValue(src, first)
}

func next(src TokenSource) (Token, error) {
	tok, err := src.NextToken()
	if errors.Is(err, io.EOF) {
		return Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}

func decodeValue(src TokenSource, tok Token) (*Node, error) {
	switch tok.Kind {
	case KindBeginObject:
		return decodeObject(src)
	case KindBeginArray:
		return decodeArray(src)
	case KindString:
		return &Node{Kind: NodeString, Text: tok.String}, nil
	case KindNumber:
		return &Node{Kind: NodeNumber, Text: tok.Number}, nil
	case KindBool:
		return &Node{Kind: NodeBool, Bool: tok.Bool}, nil
	case KindNull:
		return &Node{Kind: NodeNull}, nil
	default:
		return nil, UnexpectedToken(tok, "value")
	}
}

func decodeObject(src TokenSource) (*Node, error) {
	n := &Node{Kind: NodeObject}
	for {
		tok, err := next(src)
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndObject {
			return n, nil
		}
		if tok.Kind != KindKey {
			return nil, UnexpectedToken(tok, "key")
		}
		vt, err := next(src)
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(src, vt)
		if err != nil {
			return nil, err
		}
		n.Fields = append(n.Fields, Field{Key: tok.String, Value: v})
	}
}

func decodeArray(src TokenSource) (*Node, error) {
	n := &Node{Kind: NodeArray}
	for {
		tok, err := next(src)
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEndArray {
			return n, nil
		}
		v, err := decodeValue(src, tok)
		if err != nil {
			return nil, err
		}
		n.Items = append(n.Items, v)
	}
}
