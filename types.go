package jsontab

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/reoring/jsontab/compress"
	eng "github.com/reoring/jsontab/internal/engine"
)

// Severity expresses how duplicate object keys are reported.
type Severity int

const (
	SeverityIgnore Severity = iota // Accept silently; later occurrences get their own columns.
	SeverityWarn                   // Accept and record an Issue in Result.Warnings.
	SeverityError                  // Fail the conversion with a format error.
)

var severityNames = map[string]Severity{"ignore": SeverityIgnore, "warn": SeverityWarn, "error": SeverityError}

// ParseSeverity maps "ignore", "warn" or "error" to a Severity. The empty
// string means SeverityIgnore.
func ParseSeverity(s string) (Severity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SeverityIgnore, nil
	}
	if v, ok := severityNames[s]; ok {
		return v, nil
	}
	return SeverityIgnore, fmt.Errorf("%w: unknown severity %q", ErrInvalidOptions, s)
}

func (s Severity) String() string {
	for k, v := range severityNames {
		if v == s {
			return k
		}
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

func (s Severity) strictness() eng.DuplicateStrictness {
	switch s {
	case SeverityWarn:
		return eng.DupWarn
	case SeverityError:
		return eng.DupError
	default:
		return eng.DupIgnore
	}
}

// DefaultArtifactPrefix prefixes generated artifact file names.
const DefaultArtifactPrefix = "jsontab"

// Options bundles conversion settings.
type Options struct {
	// Driver names the JSON token source ("" selects the registered default).
	Driver string
	// Compression encodes the artifact; its extension is appended to the name.
	Compression compress.Kind
	// ExtendColumns appends columns first seen after the first row. By default
	// the header is frozen after the first row and later unknown fields are
	// reported as dropped.
	ExtendColumns bool
	// MaxDepth limits nesting of the input document (0 = unlimited).
	MaxDepth int
	// MaxBytes limits consumed input bytes after decompression (0 = unlimited).
	MaxBytes int64
	// OnDuplicateKey controls duplicate keys inside one object.
	OnDuplicateKey Severity
	// ArtifactPrefix overrides DefaultArtifactPrefix.
	ArtifactPrefix string
	// Logger receives progress and failure logs (slog.Default() when nil).
	Logger *slog.Logger
}

func (o Options) validate() error {
	if _, ok := LookupJSONDriver(o.Driver); !ok {
		return fmt.Errorf("%w: unknown JSON driver %q", ErrInvalidOptions, o.Driver)
	}
	if _, err := compress.ParseKind(string(o.Compression)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if o.MaxDepth < 0 || o.MaxBytes < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidOptions)
	}
	if strings.ContainsAny(o.ArtifactPrefix, `/\`) {
		return fmt.Errorf("%w: artifact prefix %q contains a path separator", ErrInvalidOptions, o.ArtifactPrefix)
	}
	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) prefix() string {
	if o.ArtifactPrefix != "" {
		return o.ArtifactPrefix
	}
	return DefaultArtifactPrefix
}

func (o Options) enforcement(sink func(eng.SimpleIssue)) eng.EnforceOptions {
	return eng.EnforceOptions{
		OnDuplicate: o.OnDuplicateKey.strictness(),
		MaxDepth:    o.MaxDepth,
		MaxBytes:    o.MaxBytes,
		IssueSink:   sink,
	}
}
