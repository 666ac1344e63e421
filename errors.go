package jsontab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/jsontab/i18n"
	eng "github.com/reoring/jsontab/internal/engine"
	"github.com/reoring/jsontab/internal/stream"
)

// Error and warning codes (exported consts for IDE completion and type safety by convention)
const (
	CodeFormat = "format_error"
	CodeIO     = "io_error"
	CodeSchema = "schema_error"
	// Warnings and causes
	CodeNoArray       = "no_array"
	CodeRootNotObject = "root_not_object"
	CodeDuplicateKey  = eng.CodeDuplicateKey
	CodeMaxDepth      = eng.CodeMaxDepth
	CodeTruncated     = eng.CodeTruncated
	CodeDroppedField  = "dropped_field"
)

// Error is the single failure returned by a conversion.
type Error struct {
	Code    string // CodeFormat, CodeIO or CodeSchema.
	Op      string // Step that failed: "open", "decode", "create", "write", "schema".
	Path    string // File path for I/O failures; JSON Pointer of the element for format failures.
	Offset  int64  // Byte offset in the input source (-1 when unknown).
	Message string
	Cause   error
}

// Sentinels matched by errors.Is against any *Error of the same code.
var (
	ErrFormat = &Error{Code: CodeFormat}
	ErrIO     = &Error{Code: CodeIO}
	ErrSchema = &Error{Code: CodeSchema}
)

var (
	// ErrNoArray is the cause of a format error for a root object without any
	// array-valued member.
	ErrNoArray = errors.New("jsontab: document root has no array member")
	// ErrRootNotObject is the cause of a format error for a document whose root
	// is not an object.
	ErrRootNotObject = stream.ErrRootNotObject
	// ErrInvalidOptions reports options or input parameters that cannot be used.
	ErrInvalidOptions = errors.New("jsontab: invalid options")
)

func (e *Error) Error() string {
	b := &strings.Builder{}
	b.WriteString("jsontab: ")
	b.WriteString(e.Code)
	if e.Op != "" {
		fmt.Fprintf(b, " (%s)", e.Op)
	}
	if e.Path != "" {
		fmt.Fprintf(b, " at %s", e.Path)
	}
	if e.Offset >= 0 && e.Code == CodeFormat {
		fmt.Fprintf(b, " offset %d", e.Offset)
	}
	msg := e.Message
	if msg == "" {
		msg = i18n.T(e.Code, nil)
	}
	b.WriteString(": ")
	b.WriteString(msg)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel of e's code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Cause == nil && t.Message == "" && t.Code == e.Code
}

// AsError extracts an *Error from err using errors.As internally.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func formatError(op, path string, offset int64, cause error) *Error {
	return &Error{Code: CodeFormat, Op: op, Path: path, Offset: offset, Cause: cause}
}

func ioError(op, path string, cause error) *Error {
	return &Error{Code: CodeIO, Op: op, Path: path, Offset: -1, Cause: cause}
}

// Issue represents a single non-fatal finding of a conversion.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Offset  int64 // Byte offset in the input source (-1 when unknown).
	// Params carries structured parameters (e.g., {"key":"z","count":3}) for
	// i18n and observability.
	Params map[string]any
}

// Issues is a collection of findings that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. duplicate_key at /items/0
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
