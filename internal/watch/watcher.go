// Package watch converts JSON documents dropped into a directory.
//
// Create and write events are debounced per file; conversions run one at a
// time in arrival order. The schema document of each conversion is written
// next to its artifact as <artifact>.schema.json.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reoring/jsontab"
	"github.com/reoring/jsontab/compress"
)

// SchemaSuffix is appended to the artifact path for the schema document.
const SchemaSuffix = ".schema.json"

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Outcome reports one conversion triggered by the watcher.
type Outcome struct {
	Input      string
	Result     jsontab.Result
	SchemaPath string
	Err        error
}

// Options tune a Watcher.
type Options struct {
	Debounce time.Duration
	// Input builds the conversion input for a changed file (Path only when nil).
	Input func(path string) jsontab.Input
	// OnOutcome is called after every conversion, from the conversion goroutine.
	OnOutcome func(Outcome)
	Logger    *slog.Logger
}

// Watcher feeds files of one directory to a Converter.
type Watcher struct {
	dir   string
	conv  jsontab.Converter
	opt   Options
	log   *slog.Logger
	ready chan struct{}
}

// New creates a Watcher for dir.
func New(dir string, conv jsontab.Converter, opt Options) *Watcher {
	if opt.Debounce <= 0 {
		opt.Debounce = DefaultDebounce
	}
	if opt.Input == nil {
		opt.Input = func(path string) jsontab.Input { return jsontab.Input{Path: path} }
	}
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{dir: dir, conv: conv, opt: opt, log: log.With("dir", dir), ready: make(chan struct{})}
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run watches until ctx is done or the event stream ends. A conversion in
// progress is allowed to finish before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	close(w.ready)
	w.log.Info("watching directory", "debounce", w.opt.Debounce)
	return w.loop(ctx, fw.Events, fw.Errors)
}

// loop debounces events into the conversion worker. The worker is stopped
// and awaited on every return path.
func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	ctx, cancel := context.WithCancel(ctx)
	fire := make(chan string, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx, fire)
	}()

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !Eligible(event.Name) {
				continue
			}
			path := event.Name
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(w.opt.Debounce, func() {
				select {
				case fire <- path:
				case <-ctx.Done():
				}
			})
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) worker(ctx context.Context, fire <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-fire:
			out := w.convert(ctx, path)
			if w.opt.OnOutcome != nil {
				w.opt.OnOutcome(out)
			}
		}
	}
}

func (w *Watcher) convert(ctx context.Context, path string) Outcome {
	out := Outcome{Input: path}
	log := w.log.With("input", path)
	res, err := w.conv.Run(ctx, w.opt.Input(path))
	if err != nil {
		log.Error("conversion failed", "error", err)
		out.Err = err
		return out
	}
	out.Result = res
	out.SchemaPath = res.ArtifactPath + SchemaSuffix
	if err := os.WriteFile(out.SchemaPath, res.Schema, 0o644); err != nil {
		log.Error("writing schema failed", "error", err)
		out.Err = fmt.Errorf("watch: write schema: %w", err)
		return out
	}
	log.Info("converted", "artifact", res.ArtifactPath, "rows", res.Rows, "columns", res.Columns)
	return out
}

// Eligible reports whether a file name looks like a convertible document:
// *.json, optionally compressed, excluding schema documents.
func Eligible(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, SchemaSuffix) {
		return false
	}
	if k := compress.FromPath(base); k != compress.None {
		base = strings.TrimSuffix(base, k.Ext())
	}
	return strings.HasSuffix(base, ".json")
}
