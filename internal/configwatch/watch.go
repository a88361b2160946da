// Package configwatch watches the on-disk config file and turns write
// events into reload decisions, routed through gateway.ReloadConfig.
package configwatch

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nextlevelbuilder/drost/internal/config"
	"github.com/nextlevelbuilder/drost/internal/gateway"
)

// Watcher watches a config file's directory (not the file itself --
// editors that write-then-rename drop a direct file watch) and reloads
// on writes affecting that file.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	current  *config.Config
	apply    func(path string) error
	onResult func(gateway.ReloadResult)
	onError  func(error)

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// New builds a Watcher for the config file at path. current is the
// already-loaded config that future reloads diff against and get
// merged into. apply is called once per safely-reloadable field path;
// onResult (if set) receives each reload's outcome.
func New(path string, current *config.Config, apply func(path string) error, onResult func(gateway.ReloadResult), onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		path:     path,
		current:  current,
		apply:    apply,
		onResult: onResult,
		onError:  onError,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in the background. Safe to call once.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.touchesConfigFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) touchesConfigFile(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return strings.HasSuffix(name, filepath.Base(w.path))
	}
	wantAbs, err := filepath.Abs(w.path)
	if err != nil {
		return false
	}
	return abs == wantAbs
}

func (w *Watcher) reload() {
	next, err := config.Load(w.path)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	changed := config.Diff(w.current, next)
	if len(changed) == 0 {
		return
	}

	// Merge first so apply callbacks observe the new values; a field
	// that fails to apply still reports apply_failed via the result.
	w.current.ReplaceFrom(next)
	result := gateway.ReloadConfig(changed, w.apply)

	if w.onResult != nil {
		w.onResult(result)
	}
}

// Stop stops the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	if started {
		<-w.doneCh
	}
	return w.fsw.Close()
}
