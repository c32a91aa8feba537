// Package watch triggers metadata reloads when source documents change on
// disk. A Watcher monitors the configured root directories recursively,
// filters events down to document files, and folds each burst of events
// into one callback.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the settle window for bursts of file events; editors
// produce several events per save.
const DefaultDebounce = 100 * time.Millisecond

// DefaultPatterns matches the document formats the loader reads.
func DefaultPatterns() []string {
	return []string{"*.json", "*.xml", "*.yaml", "*.yml"}
}

// Config controls what a Watcher looks at.
type Config struct {
	// Roots are directories watched recursively. Empty means ".".
	Roots []string
	// Patterns are base-name globs a changed file must match. Empty means
	// DefaultPatterns.
	Patterns []string
	// Ignored are extra base-name globs to skip. Hidden entries and build
	// output are always skipped.
	Ignored []string
	// Debounce overrides the settle window.
	Debounce time.Duration
}

// Watcher feeds fsnotify events through a debouncer into one onChange
// callback per batch of changed documents.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce *Debouncer
	cfg      Config
	onChange func([]string) error
	log      *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a watcher. The callback receives the sorted batch of changed
// file paths; its error is logged, not propagated, so one bad reload does
// not stop watching.
func New(cfg Config, onChange func([]string) error, log *zap.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("watch: onChange callback is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if len(cfg.Roots) == 0 {
		cfg.Roots = []string{"."}
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = DefaultPatterns()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	w := &Watcher{
		fs:       fsw,
		cfg:      cfg,
		onChange: onChange,
		log:      log,
		stop:     make(chan struct{}),
	}
	w.debounce = NewDebouncer(cfg.Debounce, func(files []string) {
		if err := w.onChange(files); err != nil {
			w.log.Error("reload failed", zap.Strings("files", files), zap.Error(err))
		}
	})
	return w, nil
}

// Start registers the root directories and begins delivering events.
func (w *Watcher) Start() error {
	for _, root := range w.cfg.Roots {
		if err := w.addTree(root); err != nil {
			return err
		}
	}
	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop halts event delivery. Safe to call more than once.
func (w *Watcher) Stop() error {
	select {
	case <-w.stop:
		return nil
	default:
		close(w.stop)
	}
	w.wg.Wait()
	w.debounce.Stop()
	return w.fs.Close()
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}
	// new directories join the watch so documents created inside them are
	// seen without a restart
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fs.Add(event.Name); err != nil {
				w.log.Warn("cannot watch directory",
					zap.String("dir", event.Name), zap.Error(err))
			}
			return
		}
	}
	relevant := event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename)
	if !relevant || !w.matches(event.Name) {
		return
	}
	w.log.Debug("document changed",
		zap.String("file", event.Name), zap.String("op", event.Op.String()))
	w.debounce.Add(event.Name)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.log.Debug("watching directory", zap.String("dir", path))
		return nil
	})
}

// ignored skips hidden entries, build output, and the configured globs.
func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "build" || part == "node_modules" {
			return true
		}
	}
	for _, pattern := range w.cfg.Ignored {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// matches reports whether a changed file is one of the watched documents.
func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.cfg.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// Debouncer folds a burst of file names into one callback once no new
// name has arrived for a full window.
type Debouncer struct {
	window   time.Duration
	callback func([]string)

	mu    sync.Mutex
	timer *time.Timer
	files map[string]struct{}
}

func NewDebouncer(window time.Duration, callback func([]string)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
		files:    make(map[string]struct{}),
	}
}

// Add records a changed file and restarts the settle window.
func (d *Debouncer) Add(file string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush hands the batch to the callback outside the lock; the callback is
// free to Add again.
func (d *Debouncer) flush() {
	d.mu.Lock()
	if len(d.files) == 0 {
		d.mu.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for f := range d.files {
		files = append(files, f)
	}
	d.files = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(files)
	d.callback(files)
}

// Stop cancels any pending flush.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
