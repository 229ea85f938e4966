package dictionary

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bastiangx/wordcheck/internal/logger"
	"github.com/fsnotify/fsnotify"
)

var watchLog = logger.New("watch")

// Watcher reports which languages' sources changed on disk. Editors and
// build tools often replace files instead of writing them, so the parent
// directory is watched and events are matched by name. Bursts of events for
// the same language are collapsed into one callback after the debounce delay.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	onChange func(lang string)

	// dir -> file name ("" for chunk dirs) -> languages
	targets map[string]map[string][]string

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher watches the given sources. onChange runs on a timer goroutine.
func NewWatcher(sources []Source, debounce time.Duration, onChange func(lang string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{
		fs:       fsw,
		debounce: debounce,
		onChange: onChange,
		targets:  make(map[string]map[string][]string),
		pending:  make(map[string]*time.Timer),
	}
	for _, src := range sources {
		dir, name := src.WatchPaths()
		if w.targets[dir] == nil {
			if err := fsw.Add(dir); err != nil {
				fsw.Close()
				return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			w.targets[dir] = make(map[string][]string)
		}
		w.targets[dir][name] = append(w.targets[dir][name], src.Lang)
		watchLog.Debugf("Watching %s for %s", filepath.Join(dir, name), src.Lang)
	}
	return w, nil
}

// Run dispatches events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			for _, lang := range w.match(event.Name) {
				w.schedule(lang)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			watchLog.Warnf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) match(path string) []string {
	dir, name := filepath.Split(filepath.Clean(path))
	files, ok := w.targets[filepath.Clean(dir)]
	if !ok {
		return nil
	}
	langs := files[name]
	if strings.HasPrefix(name, "dict_") && strings.HasSuffix(name, ".bin") {
		langs = append(langs[:len(langs):len(langs)], files[""]...)
	}
	return langs
}

func (w *Watcher) schedule(lang string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[lang]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[lang] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, lang)
		w.mu.Unlock()
		watchLog.Infof("Dictionary source for %s changed", lang)
		w.onChange(lang)
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for lang, t := range w.pending {
		t.Stop()
		delete(w.pending, lang)
	}
	w.mu.Unlock()
	w.fs.Close()
}
