package raid

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/logging"
)

// Watcher reloads a file-backed Directory when its file changes,
// publishing DirectoryReloaded on success.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     *Directory
	bus     *event.Bus
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// NewWatcher creates a watcher for a file-backed directory.
func NewWatcher(dir *Directory, bus *event.Bus) (*Watcher, error) {
	if dir.Path() == "" {
		return nil, errors.New("raid: cannot watch an in-memory directory")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the parent directory: editors often replace the file
	// instead of writing it in place.
	if err := w.Add(filepath.Dir(dir.Path())); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		watcher: w,
		dir:     dir,
		bus:     bus,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. Start is
// idempotent.
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

	log := logging.For("gym-watcher")
	target := filepath.Clean(w.dir.Path())

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if err := w.dir.Reload(); err != nil {
				log.Warn().Err(err).Msg("gym file changed but reload failed, keeping previous directory")
				continue
			}
			log.Info().Int("gyms", w.dir.Len()).Msg("gym directory reloaded")
			if w.bus != nil {
				w.bus.Publish(event.Event{
					Type: event.DirectoryReloaded,
					Data: event.Reload{Path: w.dir.Path(), Gyms: w.dir.Len()},
				})
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}

// Stop ends watching and waits for the background goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.mu.Unlock()

	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
}
