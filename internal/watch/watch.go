// Package watch regenerates Maps of Content for notes that Smart Connections
// indexes while atlas is running.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/atlas/internal/apperr"
	"github.com/starford/atlas/internal/catalog"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Catalog is the part of the similarity catalog the watcher polls.
type Catalog interface {
	Load(ctx context.Context) (catalog.SyncStats, error)
	Notes(ctx context.Context) ([]string, error)
}

// Handler processes one newly indexed note.
type Handler func(ctx context.Context, path string) error

// Watcher reacts to changes in the Smart Connections data directory.
type Watcher struct {
	cat      Catalog
	dir      string
	handle   Handler
	skip     []string
	debounce time.Duration
	logger   *slog.Logger
	known    map[string]struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSkipPrefix ignores notes under the vault-relative prefix, typically the
// output directory so generated notes do not trigger further runs.
func WithSkipPrefix(prefix string) Option {
	return func(w *Watcher) {
		prefix = strings.Trim(filepath.ToSlash(prefix), "/")
		if prefix != "" && prefix != "." {
			w.skip = append(w.skip, strings.ToLower(prefix)+"/")
		}
	}
}

// WithDebounce sets the settle delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a Watcher over dir, the absolute path of the .ajson directory.
func New(cat Catalog, dir string, handle Handler, opts ...Option) *Watcher {
	w := &Watcher{
		cat:      cat,
		dir:      dir,
		handle:   handle,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run records the currently known notes, then processes notes that appear
// later until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Prime(ctx); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watcher: started", slog.String("dir", w.dir), slog.Int("known", len(w.known)))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-fire:
			w.Scan(ctx)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if isDir(ev.Name) {
					if err := addDirsRecursive(fw, ev.Name); err != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name), slog.String("error", err.Error()))
					}
					continue
				}
			}
			if !strings.HasSuffix(ev.Name, ".ajson") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// Prime loads the catalog and remembers every note it holds.
func (w *Watcher) Prime(ctx context.Context) error {
	if _, err := w.cat.Load(ctx); err != nil {
		return fmt.Errorf("watcher: load catalog: %w", err)
	}
	notes, err := w.cat.Notes(ctx)
	if err != nil {
		return err
	}
	w.known = make(map[string]struct{}, len(notes))
	for _, n := range notes {
		w.known[n] = struct{}{}
	}
	return nil
}

// Scan reloads the catalog and hands every note not seen before to the
// handler, in lexical order. It returns the paths handled.
func (w *Watcher) Scan(ctx context.Context) []string {
	if _, err := w.cat.Load(ctx); err != nil {
		w.logger.Warn("watcher: load failed", slog.String("error", err.Error()))
		return nil
	}
	notes, err := w.cat.Notes(ctx)
	if err != nil {
		w.logger.Warn("watcher: list notes failed", slog.String("error", err.Error()))
		return nil
	}
	if w.known == nil {
		w.known = make(map[string]struct{})
	}

	current := make(map[string]struct{}, len(notes))
	var fresh []string
	for _, n := range notes {
		current[n] = struct{}{}
		if _, ok := w.known[n]; !ok && !w.skipped(n) {
			fresh = append(fresh, n)
		}
	}
	w.known = current
	sort.Strings(fresh)

	for _, n := range fresh {
		if ctx.Err() != nil {
			break
		}
		w.logger.Info("watcher: new note", slog.String("path", n))
		if err := w.handle(ctx, n); err != nil {
			if apperr.UserFacing(err) {
				w.logger.Info("watcher: note skipped", slog.String("path", n), slog.String("reason", err.Error()))
			} else {
				w.logger.Warn("watcher: handler failed", slog.String("path", n), slog.String("error", err.Error()))
			}
		}
	}
	return fresh
}

func (w *Watcher) skipped(p string) bool {
	lower := strings.ToLower(p)
	for _, prefix := range w.skip {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
