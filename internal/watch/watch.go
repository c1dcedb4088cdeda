// Package watch validates CSV files dropped into a directory.
//
// Each *.csv file that appears in the watched directory is validated against
// one model once it has been quiet for the debounce interval. Clean files
// move to Validated/. Files with any invalid record move to Rejected/ next
// to a "<name> - errors.csv" log in the usual error-log layout.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/scan"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

// Destination directories, created inside the watched directory.
const (
	ValidatedDir = "Validated"
	RejectedDir  = "Rejected"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Options tune a Watcher.
type Options struct {
	Debounce    time.Duration
	StrictDates bool
	MaxErrors   int // cap on issues written per error log; 0 means no cap

	// OnResult, when set, is called after every processed file.
	OnResult func(Result)
}

// Result describes one processed file.
type Result struct {
	File     string // original path
	Dest     string // where the file was moved
	ErrorLog string // empty for clean files
	Valid    bool
	Summary  scan.Summary
	Err      error // set when the file could not be processed at all
}

// Watcher routes dropped files. Run it once.
type Watcher struct {
	dir    string
	model  *schema.Model
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Watcher for dir. A nil logger uses slog.Default().
func New(dir string, m *schema.Model, opts Options, logger *slog.Logger) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:    dir,
		model:  m,
		opts:   opts,
		logger: logger.With("dir", dir, "model", m.Name()),
		timers: make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Files already in the directory are
// processed first. Pending debounced files are dropped on shutdown; files
// being validated are allowed to finish.
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{ValidatedDir, RejectedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0o755); err != nil {
			return fmt.Errorf("create %s directory: %w", sub, err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	existing, err := w.pending()
	if err != nil {
		return err
	}
	for _, path := range existing {
		w.schedule(ctx, path)
	}
	w.logger.Info("watching for csv files", "existing", len(existing), "debounce", w.opts.Debounce)

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isCSV(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		if w.stopped || ctx.Err() != nil {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		res := w.Process(ctx, path)
		if w.opts.OnResult != nil {
			w.opts.OnResult(res)
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.stopped = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// pending lists the CSV files already waiting in the directory.
func (w *Watcher) pending() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && isCSV(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	return paths, nil
}

// Process validates one file and moves it to Validated/ or Rejected/.
// Files that vanished before processing are reported with Err set and left
// alone.
func (w *Watcher) Process(ctx context.Context, path string) Result {
	res := Result{File: path}
	name := filepath.Base(path)
	logger := w.logger.With("file", name)

	if _, err := os.Stat(path); err != nil {
		res.Err = err
		logger.Warn("file disappeared before validation", "error", err)
		return res
	}

	logPath := filepath.Join(w.dir, RejectedDir, ErrorLogName(name))
	sum, err := w.validate(ctx, path, logPath)
	res.Summary = sum
	if err != nil && !errors.Is(err, scan.ErrHeader) {
		os.Remove(logPath)
		res.Err = err
		logger.Error("validation failed", "error", err)
		return res
	}

	res.Valid = err == nil && sum.Invalid == 0
	destDir := ValidatedDir
	if res.Valid {
		os.Remove(logPath)
	} else {
		destDir = RejectedDir
		res.ErrorLog = logPath
	}

	res.Dest = filepath.Join(w.dir, destDir, name)
	if err := os.Rename(path, res.Dest); err != nil {
		res.Err = fmt.Errorf("move %s: %w", name, err)
		res.Dest = ""
		logger.Error("could not move file", "error", err)
		return res
	}

	logger.Info("file processed",
		"valid", res.Valid,
		"dest", destDir,
		"processed", sum.Processed,
		"invalid", sum.Invalid,
	)
	return res
}

// validate scans path into an error log at logPath. A header mismatch is
// written to the log and returned wrapped in scan.ErrHeader.
func (w *Watcher) validate(ctx context.Context, path, logPath string) (scan.Summary, error) {
	rd, err := csvio.Open(path, csvio.ReaderOptions{})
	if err != nil {
		return scan.Summary{}, err
	}
	defer rd.Close()

	issues, err := scan.CreateIssueLog(logPath)
	if err != nil {
		return scan.Summary{}, err
	}

	if _, herr := scan.CheckHeader(rd, w.model); herr != nil {
		if errors.Is(herr, scan.ErrHeader) {
			err = issues.Report(scan.HeaderIssue(herr))
		}
		return scan.Summary{}, errors.Join(herr, err, issues.Close())
	}

	sc := scan.New(
		schema.NewRecordValidator(w.model, schema.ValidateOptions{StrictDates: w.opts.StrictDates}),
		scan.Options{MaxErrors: w.opts.MaxErrors},
		w.logger,
	)
	sum, err := sc.Run(ctx, rd, scan.Handlers{Issues: issues})
	return sum, errors.Join(err, issues.Close())
}

// ErrorLogName returns the error log file name for a dropped file.
func ErrorLogName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + " - errors.csv"
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
