package jsontab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/reoring/jsontab/compress"
	"github.com/reoring/jsontab/i18n"
	"github.com/reoring/jsontab/internal/csvout"
	eng "github.com/reoring/jsontab/internal/engine"
	"github.com/reoring/jsontab/internal/flatten"
	"github.com/reoring/jsontab/internal/stream"
	"github.com/reoring/jsontab/metadata"
)

// Run converts in with a single streaming pass. The context is only consulted
// before the pass starts; once reading began the conversion runs to
// completion or fails with an *Error, and a failed conversion leaves no
// artifact behind.
func (e *Engine) Run(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := e.opt.validate(); err != nil {
		return Result{}, err
	}
	dec, err := charset(in.Encoding)
	if err != nil {
		return Result{}, err
	}

	c := &conversion{
		opt:   e.opt,
		in:    in,
		dec:   dec,
		jobID: uuid.NewString(),
	}
	c.log = e.opt.logger().With(slog.String("job", c.jobID), slog.String("input", in.Path))
	c.log.Info("conversion started", slog.String("driver", driverName(e.opt.Driver)))

	start := time.Now()
	res, err := c.run()
	if err != nil {
		c.log.Error("conversion failed", slog.Any("error", err))
		return Result{}, err
	}
	res.Duration = time.Since(start)
	c.log.Info("conversion finished",
		slog.Int("elements", res.Elements),
		slog.Int("rows", res.Rows),
		slog.Int("columns", res.Columns),
		slog.String("artifact", res.ArtifactPath),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

type conversion struct {
	opt      Options
	in       Input
	dec      transform.Transformer
	jobID    string
	log      *slog.Logger
	input    *inputReader
	src      eng.TokenSource
	warnings Issues
}

func (c *conversion) run() (Result, error) {
	f, err := os.Open(c.in.Path)
	if err != nil {
		return Result{}, ioError("open", c.in.Path, err)
	}
	defer f.Close()

	zr, err := compress.NewReader(compress.FromPath(c.in.Path), f)
	if err != nil {
		return Result{}, ioError("open", c.in.Path, err)
	}
	defer zr.Close()

	c.input = &inputReader{r: transform.NewReader(zr, c.dec)}

	drv, _ := LookupJSONDriver(c.opt.Driver)
	c.src = eng.WrapWithEnforcement(engineTokenSource(drv.NewReader(c.input)), c.opt.enforcement(c.issue))
	d := stream.NewDriver(c.src)
	if err := d.Open(); err != nil {
		return Result{}, c.decodeError(err, "")
	}

	art, err := createArtifact(c.in.OutputDir, c.opt.prefix(), c.jobID, c.opt.Compression)
	if err != nil {
		return Result{}, ioError("create", c.in.OutputDir, err)
	}
	res, err := c.pass(d, art)
	if err != nil {
		art.discard()
		return Result{}, err
	}
	return res, nil
}

func (c *conversion) pass(d *stream.Driver, art *artifact) (Result, error) {
	fl := flatten.New(art, flatten.Options{ExtendColumns: c.opt.ExtendColumns})
	elements := 0
	for {
		el, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, c.decodeError(err, "")
		}
		at := elementPointer(el.Member, el.Index)
		node, err := eng.DecodeNode(el.Source)
		if err != nil {
			return Result{}, c.decodeError(err, at)
		}
		if err := fl.Record(el.Member, node); err != nil {
			return Result{}, ioError("write", art.path, err)
		}
		elements++
	}
	if d.Arrays() == 0 {
		e := formatError("decode", "", c.src.Location(), ErrNoArray)
		e.Message = i18n.T(CodeNoArray, nil)
		return Result{}, e
	}
	if err := art.commit(); err != nil {
		return Result{}, ioError("write", art.path, err)
	}

	for _, dr := range fl.Dropped() {
		c.dropped(dr)
	}

	doc := metadata.Build(fl.Columns().Fields())
	schema, err := doc.JSON()
	if err != nil {
		return Result{}, &Error{Code: CodeSchema, Op: "schema", Offset: -1, Cause: err}
	}
	return Result{
		JobID:        c.jobID,
		ArtifactPath: art.path,
		Schema:       schema,
		Document:     doc,
		Elements:     elements,
		Rows:         art.rows.Rows(),
		Columns:      fl.Columns().Len(),
		Checksum:     art.hash.Sum64(),
		Warnings:     c.warnings,
	}, nil
}

// decodeError classifies a failure of the token stream. Read failures of the
// underlying input win over the syntax error they caused.
func (c *conversion) decodeError(err error, at string) error {
	if c.input.err != nil {
		return ioError("read", c.in.Path, c.input.err)
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return &Error{Code: CodeFormat, Op: "decode", Path: ie.Path, Offset: ie.Offset, Message: i18n.T(ie.Code, ie.Params), Cause: err}
	}
	e := formatError("decode", at, c.src.Location(), err)
	if errors.Is(err, ErrRootNotObject) {
		e.Message = i18n.T(CodeRootNotObject, nil)
	}
	return e
}

func (c *conversion) issue(si eng.SimpleIssue) {
	params := make(map[string]any, len(si.Params))
	for k, v := range si.Params {
		params[k] = v
	}
	c.warnings = AppendIssues(c.warnings, Issue{
		Path:    si.Path,
		Code:    si.Code,
		Message: i18n.T(si.Code, si.Params),
		Offset:  si.Offset,
		Params:  params,
	})
	c.log.Warn("input issue", slog.String("code", si.Code), slog.String("path", si.Path), slog.Int64("offset", si.Offset))
}

func (c *conversion) dropped(d flatten.Dropped) {
	msg := i18n.T(CodeDroppedField, map[string]string{
		"key":   d.Key,
		"row":   strconv.Itoa(d.FirstRow),
		"count": strconv.Itoa(d.Count),
	})
	c.warnings = AppendIssues(c.warnings, Issue{
		Code:    CodeDroppedField,
		Message: msg,
		Offset:  -1,
		Params:  map[string]any{"key": d.Key, "count": d.Count, "firstRow": d.FirstRow},
	})
	c.log.Warn("field dropped", slog.String("key", d.Key), slog.Int("count", d.Count), slog.Int("firstRow", d.FirstRow))
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func elementPointer(member string, index int) string {
	return "/" + pointerEscaper.Replace(member) + "/" + strconv.Itoa(index)
}

func driverName(name string) string {
	if d, ok := LookupJSONDriver(name); ok {
		return d.Name()
	}
	return name
}

// charset resolves an encoding label to the input decoder. A leading byte
// order mark is skipped; for labels other than UTF-8 it also overrides the
// label.
func charset(label string) (transform.Transformer, error) {
	if strings.TrimSpace(label) == "" {
		return unicode.UTF8BOM.NewDecoder(), nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrInvalidOptions, label)
	}
	if enc == unicode.UTF8 {
		return unicode.UTF8BOM.NewDecoder(), nil
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}

// inputReader remembers the first read failure so that it can be told apart
// from malformed input.
type inputReader struct {
	r   io.Reader
	err error
}

func (r *inputReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && r.err == nil {
		r.err = err
	}
	return n, err
}

// artifact is the CSV output of one conversion: rows -> (encoder, checksum) -> file.
type artifact struct {
	path string
	file *os.File
	enc  io.WriteCloser
	hash *xxhash.Digest
	rows *csvout.Writer
}

func createArtifact(dir, prefix, id string, kind compress.Kind) (*artifact, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, prefix+"-"+id+".csv"+kind.Ext())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := compress.NewWriter(kind, f)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	h := xxhash.New()
	return &artifact{
		path: path,
		file: f,
		enc:  enc,
		hash: h,
		rows: csvout.NewWriter(io.MultiWriter(enc, h)),
	}, nil
}

func (a *artifact) WriteRow(cells []string) error { return a.rows.WriteRow(cells) }

// commit flushes every layer and closes the file.
func (a *artifact) commit() error {
	if err := a.rows.Flush(); err != nil {
		_ = a.file.Close()
		return err
	}
	if err := a.enc.Close(); err != nil {
		_ = a.file.Close()
		return err
	}
	return a.file.Close()
}

// discard closes and removes a partially written artifact.
func (a *artifact) discard() {
	_ = a.enc.Close()
	_ = a.file.Close()
	_ = os.Remove(a.path)
}
