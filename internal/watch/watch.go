// Package watch keeps a comparison CSV up to date with a folder of
// quotation files.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"toolcost/internal"
	"toolcost/internal/pipeline"
)

type Watcher struct {
	dir      string
	out      string
	maxFiles int
	debounce time.Duration
	logger   *zap.Logger
}

func New(dir, out string, maxFiles int, debounce time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{dir: absPath(dir), out: absPath(out), maxFiles: maxFiles, debounce: debounce, logger: logger}
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// samePath reports whether a and b name the same file, however each was
// spelled.
func samePath(a, b string) bool {
	if absPath(a) == absPath(b) {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// Run compares once, then again after every burst of CSV changes, until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory", zap.String("dir", w.dir), zap.String("out", w.out))
	w.refresh()

	var fire <-chan time.Time
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			w.refresh()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
		return false
	}
	if samePath(event.Name, w.out) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func (w *Watcher) refresh() {
	view, err := CompareDir(w.dir, w.out, w.maxFiles, w.logger)
	switch {
	case errors.Is(err, pipeline.ErrTooFewFiles):
		w.logger.Info("waiting for more quotation files", zap.String("dir", w.dir))
	case err != nil:
		w.logger.Error("comparison failed", zap.Error(err))
	default:
		w.logger.Info("comparison written",
			zap.String("out", w.out),
			zap.Strings("files", view.Filenames))
	}
}

// CompareDir compares the first maxFiles CSV files of dir by name and
// writes the CSV export to out. out itself is never an input.
func CompareDir(dir, out string, maxFiles int, logger *zap.Logger) (internal.ComparisonView, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return internal.ComparisonView{}, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		if samePath(filepath.Join(dir, e.Name()), out) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	session := pipeline.NewSession(maxFiles, "watch", logger)
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		u := pipeline.FileUpload(path, name, info.Size())
		u.Source = internal.SourceWatchDir
		session.Add(u)
	}

	view, err := session.Compare()
	if err != nil {
		return internal.ComparisonView{}, err
	}

	f, err := os.Create(out)
	if err != nil {
		return internal.ComparisonView{}, err
	}
	if err := pipeline.WriteViewCSV(f, view); err != nil {
		_ = f.Close()
		return internal.ComparisonView{}, err
	}
	return view, f.Close()
}
