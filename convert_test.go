package jsontab_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"

	"github.com/reoring/jsontab"
	"github.com/reoring/jsontab/compress"
	"github.com/reoring/jsontab/i18n"
	_ "github.com/reoring/jsontab/source"
	drvgojson "github.com/reoring/jsontab/source/gojson"
)

var drivers = []string{jsontab.EncodingJSON, drvgojson.Name}

func writeInput(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return p
}

func convert(t *testing.T, js string, opt jsontab.Options) (jsontab.Result, []string) {
	t.Helper()
	out := t.TempDir()
	res, err := jsontab.Convert(context.Background(), jsontab.Input{Path: writeInput(t, "in.json", []byte(js)), OutputDir: out}, opt)
	if err != nil {
		t.Fatalf("convert %s: %v", js, err)
	}
	if filepath.Dir(res.ArtifactPath) != out {
		t.Fatalf("artifact %s not in %s", res.ArtifactPath, out)
	}
	b, err := os.ReadFile(res.ArtifactPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(b) == 0 {
		return res, nil
	}
	return res, strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no artifact, found %d file(s) in %s", len(entries), dir)
	}
}

func TestConvert_ArrayExpansion(t *testing.T) {
	for _, drv := range drivers {
		t.Run(drv, func(t *testing.T) {
			res, lines := convert(t, `{"items":[{"a":1,"tags":["x","y"],"b":2}]}`, jsontab.Options{Driver: drv})
			want := []string{`1,2,"x"`, `1,2,"y"`}
			if strings.Join(lines, "\n") != strings.Join(want, "\n") {
				t.Fatalf("unexpected rows %q", lines)
			}
			if got := strings.Join(res.Document.Names(), "|"); got != "a|b|tags" {
				t.Fatalf("unexpected columns %s", got)
			}
			if res.Rows != 2 || res.Elements != 1 || res.Columns != 3 {
				t.Fatalf("unexpected stats %+v", res)
			}
		})
	}
}

func TestConvert_OneLinePerElement(t *testing.T) {
	for _, drv := range drivers {
		t.Run(drv, func(t *testing.T) {
			js := `{"meta":{"count":5},"data":[{"n":1,"s":"a"},{"n":2,"s":"b"},{"n":3},{"s":"d"},{"n":5.5,"s":"e","x":null}]}`
			res, lines := convert(t, js, jsontab.Options{Driver: drv})
			if len(lines) != 5 || res.Elements != 5 || res.Rows != 5 {
				t.Fatalf("want 5 lines, got %d (%+v)", len(lines), res)
			}
			if lines[2] != "3" || lines[3] != `,"d"` || lines[4] != `5.5,"e"` {
				t.Fatalf("unexpected rows %q", lines)
			}
		})
	}
}

func TestConvert_SchemaDocument(t *testing.T) {
	res, _ := convert(t, `{"rows":[{"id":1,"child":{"id":"x","he said \"hi\"":true}}]}`, jsontab.Options{})
	want := `{"version":"1.0","columns":[` +
		`{"name":"id","id":"id","type":"Number","analyticalType":"measure","aggregationFunction":"NONE"},` +
		`{"name":"id 2","id":"id_2","type":"String","analyticalType":"dimension"},` +
		`{"name":"he said hi","id":"he_said_hi","type":"String","analyticalType":"dimension"}]}`
	if string(res.Schema) != want {
		t.Fatalf("unexpected schema\n got: %s\nwant: %s", res.Schema, want)
	}
}

func TestConvert_StableAcrossRuns(t *testing.T) {
	js := `{"a":[{"k":{"k":{"k":1}},"l":[{"k":2},{"k":3}]},{"k":"s"}]}`
	r1, l1 := convert(t, js, jsontab.Options{})
	r2, l2 := convert(t, js, jsontab.Options{})
	if !bytes.Equal(r1.Schema, r2.Schema) || strings.Join(l1, "\n") != strings.Join(l2, "\n") {
		t.Fatalf("runs differ:\n%s\n%s", r1.Schema, r2.Schema)
	}
	if r1.Checksum != r2.Checksum || r1.ArtifactPath == r2.ArtifactPath || r1.JobID == r2.JobID {
		t.Fatalf("unexpected identity: %+v %+v", r1, r2)
	}
}

func TestConvert_EmptyArray(t *testing.T) {
	res, lines := convert(t, `{"items":[]}`, jsontab.Options{})
	if len(lines) != 0 || res.Rows != 0 {
		t.Fatalf("expected empty artifact, got %q", lines)
	}
	if string(res.Schema) != `{"version":"1.0","columns":[]}` {
		t.Fatalf("unexpected schema %s", res.Schema)
	}
}

func TestConvert_MalformedInputLeavesNoArtifact(t *testing.T) {
	cases := []struct {
		name  string
		input string
		cause error
	}{
		{"root is array", `[{"a":1}]`, jsontab.ErrRootNotObject},
		{"root is scalar", `"x"`, jsontab.ErrRootNotObject},
		{"empty document", ``, jsontab.ErrRootNotObject},
		{"no array member", `{"a":1,"b":{"c":[1]}}`, jsontab.ErrNoArray},
		{"truncated element", `{"items":[{"a":1},{"a":`, io.ErrUnexpectedEOF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := t.TempDir()
			in := jsontab.Input{Path: writeInput(t, "in.json", []byte(tc.input)), OutputDir: out}
			_, err := jsontab.Convert(context.Background(), in, jsontab.Options{Driver: jsontab.EncodingJSON})
			if !errors.Is(err, jsontab.ErrFormat) {
				t.Fatalf("want format error, got %v", err)
			}
			if !errors.Is(err, tc.cause) {
				t.Fatalf("want cause %v, got %v", tc.cause, err)
			}
			if errors.Is(err, jsontab.ErrIO) {
				t.Fatalf("format error must not match ErrIO")
			}
			assertEmptyDir(t, out)
		})
	}
}

func TestConvert_SyntaxErrorCarriesElementPath(t *testing.T) {
	out := t.TempDir()
	in := jsontab.Input{Path: writeInput(t, "in.json", []byte(`{"items":[{"a":1},{"a":}]}`)), OutputDir: out}
	_, err := jsontab.Convert(context.Background(), in, jsontab.Options{Driver: jsontab.EncodingJSON})
	e, ok := jsontab.AsError(err)
	if !ok || e.Code != jsontab.CodeFormat {
		t.Fatalf("want *Error with format code, got %v", err)
	}
	if e.Path != "/items/1" {
		t.Fatalf("want path /items/1, got %q", e.Path)
	}
	assertEmptyDir(t, out)
}

func TestConvert_IOErrors(t *testing.T) {
	_, err := jsontab.Convert(context.Background(), jsontab.Input{Path: filepath.Join(t.TempDir(), "missing.json")})
	if !errors.Is(err, jsontab.ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want io error wrapping ErrNotExist, got %v", err)
	}

	in := jsontab.Input{
		Path:      writeInput(t, "in.json", []byte(`{"a":[1]}`)),
		OutputDir: filepath.Join(t.TempDir(), "does", "not", "exist"),
	}
	_, err = jsontab.Convert(context.Background(), in)
	if e, ok := jsontab.AsError(err); !ok || e.Code != jsontab.CodeIO || e.Op != "create" {
		t.Fatalf("want create io error, got %v", err)
	}
}

func TestConvert_CompressedInputAndArtifact(t *testing.T) {
	var gz bytes.Buffer
	w, err := compress.NewWriter(compress.Gzip, &gz)
	if err != nil {
		t.Fatalf("gzip writer: %v", err)
	}
	if _, err := w.Write([]byte(`{"items":[{"a":1,"b":"x"},{"a":2,"b":"y"}]}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, k := range []compress.Kind{compress.None, compress.Zstd, compress.S2, compress.LZ4, compress.Gzip} {
		t.Run(k.String(), func(t *testing.T) {
			in := jsontab.Input{Path: writeInput(t, "in.json.gz", gz.Bytes()), OutputDir: t.TempDir()}
			res, err := jsontab.Convert(context.Background(), in, jsontab.Options{Compression: k})
			if err != nil {
				t.Fatalf("convert: %v", err)
			}
			if !strings.HasSuffix(res.ArtifactPath, ".csv"+k.Ext()) || !strings.HasPrefix(filepath.Base(res.ArtifactPath), "jsontab-"+res.JobID) {
				t.Fatalf("unexpected artifact name %s", res.ArtifactPath)
			}
			f, err := os.Open(res.ArtifactPath)
			if err != nil {
				t.Fatalf("open artifact: %v", err)
			}
			defer f.Close()
			r, err := compress.NewReader(compress.FromPath(res.ArtifactPath), f)
			if err != nil {
				t.Fatalf("reader: %v", err)
			}
			csv, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(csv) != "1,\"x\"\n2,\"y\"\n" {
				t.Fatalf("unexpected csv %q", csv)
			}
			if res.Checksum != xxhash.Sum64(csv) || len(res.ChecksumHex()) != 16 {
				t.Fatalf("checksum mismatch")
			}
		})
	}
}

func TestConvert_InputEncoding(t *testing.T) {
	in := jsontab.Input{
		Path:      writeInput(t, "latin1.json", []byte("{\"items\":[{\"name\":\"caf\xe9\"}]}")),
		OutputDir: t.TempDir(),
		Encoding:  "windows-1252",
	}
	res, err := jsontab.Convert(context.Background(), in)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	b, _ := os.ReadFile(res.ArtifactPath)
	if string(b) != "\"café\"\n" {
		t.Fatalf("unexpected csv %q", b)
	}

	for _, label := range []string{"", "utf-8", "windows-1252"} {
		bom := jsontab.Input{
			Path:      writeInput(t, "bom.json", []byte("\xef\xbb\xbf{\"items\":[{\"name\":\"caf\xc3\xa9\"}]}")),
			OutputDir: t.TempDir(),
			Encoding:  label,
		}
		res, err := jsontab.Convert(context.Background(), bom)
		if err != nil {
			t.Fatalf("%q: convert with byte order mark: %v", label, err)
		}
		b, _ := os.ReadFile(res.ArtifactPath)
		if string(b) != "\"café\"\n" {
			t.Fatalf("%q: unexpected csv %q", label, b)
		}
	}

	in.Encoding = "klingon"
	if _, err := jsontab.Convert(context.Background(), in); !errors.Is(err, jsontab.ErrInvalidOptions) {
		t.Fatalf("want invalid options, got %v", err)
	}
}

func TestConvert_DroppedFieldsAreReported(t *testing.T) {
	js := `{"items":[{"a":1},{"a":2,"z":3},{"z":4}]}`
	res, lines := convert(t, js, jsontab.Options{})
	if strings.Join(lines, "|") != "1|2|" {
		t.Fatalf("unexpected rows %q", lines)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != jsontab.CodeDroppedField {
		t.Fatalf("unexpected warnings %+v", res.Warnings)
	}
	if p := res.Warnings[0].Params; p["key"] != "z" || p["count"] != 2 || p["firstRow"] != 2 {
		t.Fatalf("unexpected params %+v", p)
	}

	res, lines = convert(t, js, jsontab.Options{ExtendColumns: true})
	if strings.Join(lines, "|") != "1|2,3|,4" || len(res.Warnings) != 0 {
		t.Fatalf("unexpected extended result %q %+v", lines, res.Warnings)
	}
	if got := strings.Join(res.Document.Names(), "|"); got != "a|z" {
		t.Fatalf("unexpected columns %s", got)
	}
}

func TestConvert_DuplicateKeys(t *testing.T) {
	js := `{"items":[{"a":1,"a":2}]}`
	res, lines := convert(t, js, jsontab.Options{})
	if len(lines) != 1 || lines[0] != "1,2" || len(res.Warnings) != 0 {
		t.Fatalf("ignore mode: %q %+v", lines, res.Warnings)
	}

	res, _ = convert(t, js, jsontab.Options{OnDuplicateKey: jsontab.SeverityWarn})
	if len(res.Warnings) != 1 || res.Warnings[0].Code != jsontab.CodeDuplicateKey || res.Warnings[0].Path != "/items/0/a" {
		t.Fatalf("warn mode: %+v", res.Warnings)
	}

	out := t.TempDir()
	in := jsontab.Input{Path: writeInput(t, "in.json", []byte(js)), OutputDir: out}
	_, err := jsontab.Convert(context.Background(), in, jsontab.Options{OnDuplicateKey: jsontab.SeverityError})
	e, ok := jsontab.AsError(err)
	if !ok || e.Code != jsontab.CodeFormat || e.Path != "/items/0/a" {
		t.Fatalf("error mode: %v", err)
	}
	assertEmptyDir(t, out)
}

func TestConvert_Limits(t *testing.T) {
	in := jsontab.Input{Path: writeInput(t, "in.json", []byte(`{"items":[{"a":{"b":{"c":1}}}]}`)), OutputDir: t.TempDir()}
	_, err := jsontab.Convert(context.Background(), in, jsontab.Options{MaxDepth: 3})
	if e, ok := jsontab.AsError(err); !ok || e.Code != jsontab.CodeFormat || e.Path != "/items/0/a" {
		t.Fatalf("max depth: %v", err)
	}

	big := `{"items":[` + strings.Repeat(`{"a":"xxxxxxxxxx"},`, 100) + `{"a":"y"}]}`
	in.Path = writeInput(t, "big.json", []byte(big))
	_, err = jsontab.Convert(context.Background(), in, jsontab.Options{MaxBytes: 256})
	if !errors.Is(err, jsontab.ErrFormat) || !strings.Contains(err.Error(), "max bytes") {
		t.Fatalf("max bytes: %v", err)
	}
}

func TestConvert_MessagesFollowLanguage(t *testing.T) {
	i18n.SetLanguage("ja")
	t.Cleanup(func() { i18n.SetLanguage("en") })

	res, _ := convert(t, `{"items":[{"a":1,"a":2}]}`, jsontab.Options{OnDuplicateKey: jsontab.SeverityWarn})
	if len(res.Warnings) != 1 || res.Warnings[0].Message != "キー a が重複しています" {
		t.Fatalf("duplicate warning: %+v", res.Warnings)
	}
	if res.Warnings[0].Params["key"] != "a" {
		t.Fatalf("duplicate params: %+v", res.Warnings[0].Params)
	}

	cases := []struct {
		js   string
		opt  jsontab.Options
		want string
	}{
		{`{"items":[{"a":{"b":{"c":1}}}]}`, jsontab.Options{MaxDepth: 3}, "ネストが 3 を超えています"},
		{`{"a":1}`, jsontab.Options{}, "ルートに配列のメンバーがありません"},
		{`[1]`, jsontab.Options{}, "ルートがオブジェクトではありません"},
	}
	for _, tc := range cases {
		in := jsontab.Input{Path: writeInput(t, "in.json", []byte(tc.js)), OutputDir: t.TempDir()}
		_, err := jsontab.Convert(context.Background(), in, tc.opt)
		e, ok := jsontab.AsError(err)
		if !ok || e.Message != tc.want {
			t.Fatalf("%s: want message %q, got %v", tc.js, tc.want, err)
		}
	}

	i18n.SetLanguage("en")
	res, _ = convert(t, `{"items":[{"a":1,"a":2}]}`, jsontab.Options{OnDuplicateKey: jsontab.SeverityWarn})
	if res.Warnings[0].Message != "duplicate key a" {
		t.Fatalf("english duplicate warning: %q", res.Warnings[0].Message)
	}
}

func TestConvert_InvalidOptionsAndContext(t *testing.T) {
	in := jsontab.Input{Path: writeInput(t, "in.json", []byte(`{"a":[1]}`)), OutputDir: t.TempDir()}
	for _, opt := range []jsontab.Options{
		{Driver: "nope"},
		{Compression: "brotli"},
		{MaxDepth: -1},
		{ArtifactPrefix: "a/b"},
	} {
		if _, err := jsontab.Convert(context.Background(), in, opt); !errors.Is(err, jsontab.ErrInvalidOptions) {
			t.Fatalf("%+v: want invalid options, got %v", opt, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := jsontab.Convert(ctx, in); !errors.Is(err, context.Canceled) {
		t.Fatalf("want canceled, got %v", err)
	}
	assertEmptyDir(t, in.OutputDir)
}

func TestConvert_ArtifactPrefix(t *testing.T) {
	res, _ := convert(t, `{"a":[1]}`, jsontab.Options{ArtifactPrefix: "orders"})
	if !strings.HasPrefix(filepath.Base(res.ArtifactPath), "orders-") {
		t.Fatalf("unexpected artifact %s", res.ArtifactPath)
	}
}
