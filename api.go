package jsontab

import (
	"context"
	"fmt"
	"time"

	"github.com/reoring/jsontab/metadata"
)

// Input locates the document to convert and the directory receiving the
// artifact.
type Input struct {
	Path      string // Input document; .gz, .zst, .sz and .lz4 are decompressed.
	OutputDir string // Artifact directory (os.TempDir() when empty).
	Encoding  string // Charset label such as "windows-1252" (UTF-8 when empty).
}

// Result describes a finished conversion. The caller owns ArtifactPath and is
// responsible for moving or deleting it.
type Result struct {
	JobID        string
	ArtifactPath string
	// Schema is Document rendered as JSON.
	Schema   []byte
	Document *metadata.Document
	Elements int // Array elements read from the root object.
	Rows     int // Lines written to the artifact.
	Columns  int
	// Checksum is the xxhash64 of the uncompressed artifact bytes.
	Checksum uint64
	Duration time.Duration
	Warnings Issues
}

// ChecksumHex renders Checksum as 16 hex digits.
func (r Result) ChecksumHex() string { return fmt.Sprintf("%016x", r.Checksum) }

// Converter turns one input document into a delimited artifact and its schema
// document.
type Converter interface {
	Run(ctx context.Context, in Input) (Result, error)
}

// Engine is the Converter of this package. It holds no per-conversion state
// and is safe for concurrent use; each Run owns its columns, rows and files.
type Engine struct {
	opt Options
}

var _ Converter = (*Engine)(nil)

// New returns an Engine using opt for every conversion.
func New(opt Options) *Engine { return &Engine{opt: opt} }

// Options returns the options the Engine was created with.
func (e *Engine) Options() Options { return e.opt }

// Convert runs a single conversion with the first of opts (zero Options when
// none is given).
func Convert(ctx context.Context, in Input, opts ...Options) (Result, error) {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	return New(opt).Run(ctx, in)
}
