package engine

import (
	"strconv"
	"strings"
)

// Enforcement wrapper for TokenSource applying duplicate key handling, max
// depth checks and max bytes truncation in a streaming fashion.

// DuplicateStrictness controls duplicate key handling.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// Issue codes produced by the enforcement wrapper.
const (
	CodeDuplicateKey = "duplicate_key"
	CodeMaxDepth     = "max_depth"
	CodeTruncated    = "truncated"
)

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
	Offset  int64
	// Params holds the values of the message placeholders ("key", "limit").
	Params map[string]string
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

// EnforceOptions controls runtime enforcement behavior.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	MaxBytes    int64
	// IssueSink receives non-fatal issues (duplicate keys in warn mode).
	IssueSink func(SimpleIssue)
}

// Enabled reports whether any check is active.
func (o EnforceOptions) Enabled() bool {
	return o.OnDuplicate != DupIgnore || o.MaxDepth > 0 || o.MaxBytes > 0
}

// WrapWithEnforcement returns a TokenSource that enforces duplicate key policy,
// maximum nesting depth, and maximum consumed bytes. It returns inner unchanged
// when no check is enabled.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	if !opt.Enabled() {
		return inner
	}
	return &enforcingTokenSource{inner: inner, opt: opt}
}

type scope struct {
	kind       containerKind
	keys       map[string]struct{}
	path       string
	nextIndex  int
	pendingKey string
}

type enforcingTokenSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []scope
}

func (e *enforcingTokenSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	path := e.pathFor(tok)

	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		s := scope{kind: kindArray, path: path}
		if tok.Kind == KindBeginObject {
			s.kind = kindObject
			if e.opt.OnDuplicate != DupIgnore {
				s.keys = make(map[string]struct{})
			}
		}
		e.stack = append(e.stack, s)
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			limit := strconv.Itoa(e.opt.MaxDepth)
			return Token{}, e.fail(CodeMaxDepth, path, "max depth "+limit+" exceeded", limit)
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	case KindKey:
		if n := len(e.stack); n > 0 && e.stack[n-1].keys != nil {
			top := &e.stack[n-1]
			if _, ok := top.keys[tok.String]; ok {
				si := SimpleIssue{
					Code:    CodeDuplicateKey,
					Path:    path,
					Message: "key '" + tok.String + "' duplicated",
					Offset:  e.Location(),
					Params:  map[string]string{"key": tok.String},
				}
				if e.opt.OnDuplicate == DupError {
					return Token{}, IssueError{si}
				}
				if e.opt.IssueSink != nil {
					e.opt.IssueSink(si)
				}
			}
			top.keys[tok.String] = struct{}{}
		}
	}

	if e.opt.MaxBytes > 0 {
		if off := e.Location(); off > e.opt.MaxBytes {
			limit := strconv.FormatInt(e.opt.MaxBytes, 10)
			return Token{}, e.fail(CodeTruncated, path, "max bytes "+limit+" exceeded", limit)
		}
	}
	return tok, nil
}

func (e *enforcingTokenSource) fail(code, path, msg, limit string) error {
	return IssueError{SimpleIssue{Code: code, Path: path, Message: msg, Offset: e.Location(), Params: map[string]string{"limit": limit}}}
}

// pathFor returns the JSON Pointer of tok and advances array indexes.
func (e *enforcingTokenSource) pathFor(tok Token) string {
	if len(e.stack) == 0 {
		return "/"
	}
	top := &e.stack[len(e.stack)-1]
	switch tok.Kind {
	case KindKey:
		top.pendingKey = tok.String
		return joinJSONPointer(top.path, tok.String)
	case KindEndObject, KindEndArray:
		return top.path
	}
	if top.kind == kindArray {
		p := joinJSONPointer(top.path, strconv.Itoa(top.nextIndex))
		top.nextIndex++
		return p
	}
	return joinJSONPointer(top.path, top.pendingKey)
}

var jsonPointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func joinJSONPointer(base, token string) string {
	if base == "/" {
		base = ""
	}
	return base + "/" + jsonPointerEscaper.Replace(token)
}

func (e *enforcingTokenSource) Location() int64 { return e.inner.Location() }
