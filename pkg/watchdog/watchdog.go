package watchdog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type WatchDogFactory struct {
	logger *zap.Logger
}

type filterFun func(string) bool

// Event names the file that changed and the tag of the watched directory it belongs to.
type Event struct {
	Tag  string
	Path string
}

type WatchDog struct {
	watchCtx   context.Context
	notifyChan chan<- Event
	filter     filterFun
	logger     *zap.Logger

	// states
	watcher *fsnotify.Watcher
	dirs    map[string]string // absolute dir -> tag
	mu      sync.Mutex
}

func NewWatchDogFactory(logger *zap.Logger) *WatchDogFactory {
	return &WatchDogFactory{
		logger: logger,
	}
}

// create a new WatchDog to monitor file creation and write events
//
// - `watchCtx` is the context to control the lifecycle of the watcher. After the context is done, the watcher will stop watching.
//
// - `notifyChan` receives an Event per accepted change. It is closed when the watcher stops.
//
// - `filter` is a function to filter the events. If it returns false, the event will be ignored. If set to nil, all events will be sent.
func (w *WatchDogFactory) New(watchCtx context.Context, notifyChan chan<- Event, filter filterFun) (*WatchDog, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	watchDog := &WatchDog{
		watchCtx:   watchCtx,
		notifyChan: notifyChan, // send only channel
		filter:     filter,
		logger:     w.logger,
		watcher:    watcher,
		dirs:       make(map[string]string),
	}

	go watchDog.watch()

	return watchDog, nil
}

// add a directory to the watch list, events under it carry tag
func (w *WatchDog) AddDir(dir string, tag string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path of %s: %w", dir, err)
	}
	// check if the directory exists
	if _, err := os.Stat(absDir); err != nil {
		return fmt.Errorf("directory %s is not watchable: %w", absDir, err)
	}
	if err := w.watcher.Add(absDir); err != nil {
		return fmt.Errorf("failed to add %s to watcher: %w", absDir, err)
	}
	w.mu.Lock()
	w.dirs[absDir] = tag
	w.mu.Unlock()
	w.logger.Debug("Added directory to watch list", zap.String("dir", dir))
	return nil
}

func (w *WatchDog) watch() {
	defer w.watcher.Close()
	defer close(w.notifyChan)
	for {
		select {
		case <-w.watchCtx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Debug("fsnotify channel closed")
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Debug("fsnotify error channel closed")
				return
			}
			w.logger.Error("fsnotify error", zap.Error(err))
		}
	}
}

func (w *WatchDog) handleEvent(event fsnotify.Event) {
	w.logger.Debug("fsnotify event", zap.String("event", event.String()))
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if w.filter != nil && !w.filter(event.Name) {
		w.logger.Debug("File ignored by filter", zap.String("file", event.Name))
		return
	}
	w.mu.Lock()
	tag := w.dirs[filepath.Dir(event.Name)]
	w.mu.Unlock()
	select {
	case w.notifyChan <- Event{Tag: tag, Path: event.Name}:
	case <-w.watchCtx.Done():
	}
}
