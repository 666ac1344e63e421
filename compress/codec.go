// Package compress provides streaming codecs for conversion inputs and
// artifacts.
//
// Inputs are decoded by file extension; artifacts are encoded with the Kind
// selected in the conversion options.
package compress

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Kind identifies a compression format.
type Kind string

const (
	None Kind = "none"
	Gzip Kind = "gzip"
	Zstd Kind = "zstd"
	S2   Kind = "s2"
	LZ4  Kind = "lz4"
)

var extensions = map[Kind]string{
	None: "",
	Gzip: ".gz",
	Zstd: ".zst",
	S2:   ".sz",
	LZ4:  ".lz4",
}

// ParseKind maps a user supplied name to a Kind. The empty string means None.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return None, nil
	case None, Gzip, Zstd, S2, LZ4:
		return k, nil
	case "gz":
		return Gzip, nil
	case "zst":
		return Zstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q", s)
	}
}

// Ext returns the file extension appended to artifacts of this kind.
func (k Kind) Ext() string { return extensions[k] }

func (k Kind) String() string { return string(k) }

// FromPath infers the compression of a file from its extension.
func FromPath(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	for k, e := range extensions {
		if e != "" && e == ext {
			return k
		}
	}
	return None
}

// NewWriter wraps w with an encoder of the given kind. Closing the returned
// writer flushes the encoder but does not close w.
func NewWriter(k Kind, w io.Writer) (io.WriteCloser, error) {
	switch k {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w)
	case S2:
		return s2.NewWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("invalid output compression: %s", k)
	}
}

// NewReader wraps r with a decoder of the given kind. Closing the returned
// reader releases decoder resources but does not close r.
func NewReader(k Kind, r io.Reader) (io.ReadCloser, error) {
	switch k {
	case None, "":
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("invalid input compression: %s", k)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
