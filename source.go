package jsontab

import (
	"io"
	"sort"
	"sync"

	eng "github.com/reoring/jsontab/internal/engine"
	jsonsrc "github.com/reoring/jsontab/source/json"
)

// TokenKind enumerates JSON token kinds. Values match the internal engine kinds.
type TokenKind int

const (
	TokenBeginObject TokenKind = iota
	TokenEndObject
	TokenBeginArray
	TokenEndArray
	TokenKey
	TokenString
	TokenNumber
	TokenBool
	TokenNull
)

// Token describes a token in the input stream. Offset records the byte position
// when known (-1 otherwise).
type Token struct {
	Kind   TokenKind
	String string // Stored for key/string tokens.
	Number string // Literal number text.
	Bool   bool
	Offset int64
}

// Source is a forward-only pull parser over a structured document.
type Source interface {
	NextToken() (Token, error)
	Location() int64 // byte offset; -1 if unknown
}

// JSONDriver turns a byte stream into a Source. Drivers are registered by name
// and selected per conversion through Options.Driver.
type JSONDriver interface {
	NewReader(r io.Reader) Source
	Name() string
}

// EncodingJSON is the name of the built-in encoding/json driver.
const EncodingJSON = "encoding/json"

var (
	jsonDriverMu  sync.RWMutex
	jsonDrivers   = map[string]JSONDriver{EncodingJSON: defaultJSONDriver{}}
	defaultDriver = EncodingJSON
)

// RegisterJSONDriver makes d selectable by its name; nil values are ignored.
func RegisterJSONDriver(d JSONDriver) {
	if d == nil {
		return
	}
	jsonDriverMu.Lock()
	jsonDrivers[d.Name()] = d
	jsonDriverMu.Unlock()
}

// SetDefaultJSONDriver selects the driver used when Options.Driver is empty.
// Unknown names are ignored.
func SetDefaultJSONDriver(name string) {
	jsonDriverMu.Lock()
	if _, ok := jsonDrivers[name]; ok {
		defaultDriver = name
	}
	jsonDriverMu.Unlock()
}

// LookupJSONDriver returns the named driver, or the default one for "".
func LookupJSONDriver(name string) (JSONDriver, bool) {
	jsonDriverMu.RLock()
	defer jsonDriverMu.RUnlock()
	if name == "" {
		name = defaultDriver
	}
	d, ok := jsonDrivers[name]
	return d, ok
}

// JSONDriverNames lists the registered drivers in name order.
func JSONDriverNames() []string {
	jsonDriverMu.RLock()
	names := make([]string, 0, len(jsonDrivers))
	for n := range jsonDrivers {
		names = append(names, n)
	}
	jsonDriverMu.RUnlock()
	sort.Strings(names)
	return names
}

// defaultJSONDriver wraps the encoding/json implementation.
type defaultJSONDriver struct{}

func (defaultJSONDriver) NewReader(r io.Reader) Source {
	return &engineSourceAdapter{inner: jsonsrc.NewReader(r)}
}
func (defaultJSONDriver) Name() string { return EncodingJSON }

// JSONReader wraps an io.Reader as a Source using the default driver.
func JSONReader(r io.Reader) Source {
	d, _ := LookupJSONDriver("")
	return d.NewReader(r)
}

// SourceFromEngine wraps an engine.TokenSource as a jsontab.Source.
func SourceFromEngine(inner eng.TokenSource) Source {
	return &engineSourceAdapter{inner: inner}
}

type engineSourceAdapter struct {
	inner eng.TokenSource
}

func (s *engineSourceAdapter) NextToken() (Token, error) {
	t, err := s.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: TokenKind(t.Kind), String: t.String, Number: t.Number, Bool: t.Bool, Offset: t.Offset}, nil
}
func (s *engineSourceAdapter) Location() int64 { return s.inner.Location() }

// ---- Source -> engine.TokenSource adapter ----

type tokenSourceAdapter struct{ inner Source }

func (a *tokenSourceAdapter) NextToken() (eng.Token, error) {
	t, err := a.inner.NextToken()
	if err != nil {
		return eng.Token{}, err
	}
	return eng.Token{Kind: eng.Kind(t.Kind), String: t.String, Number: t.Number, Bool: t.Bool, Offset: t.Offset}, nil
}

func (a *tokenSourceAdapter) Location() int64 { return a.inner.Location() }

// engineTokenSource exposes the engine view of a Source, unwrapping
// engine-backed sources.
func engineTokenSource(s Source) eng.TokenSource {
	if ea, ok := s.(*engineSourceAdapter); ok {
		return ea.inner
	}
	return &tokenSourceAdapter{inner: s}
}
