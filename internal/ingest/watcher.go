// This file implements a file system watcher for the inbox directory. It uses
// OS-level file system events to pick up dropped documents without polling.

package ingest

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docrlabs/docr-go/internal/jobs"
)

// WatcherService watches the inbox directory and submits documents that
// appear there. Events are debounced so a file still being copied in is not
// submitted half-written.
type WatcherService struct {
	ctx           jobs.JobContext
	watcher       *fsnotify.Watcher
	changedPaths  map[string]bool
	mu            sync.Mutex
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewWatcherService creates a new inbox watcher service.
func NewWatcherService(ctx jobs.JobContext) *WatcherService {
	return &WatcherService{
		ctx:           ctx,
		changedPaths:  make(map[string]bool),
		debounceDelay: 2 * time.Second, // Wait 2 seconds after last change before submitting
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching the inbox directory for new documents.
func (w *WatcherService) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	inbox := w.ctx.Config().Storage.InboxDir
	if err := watcher.Add(inbox); err != nil {
		watcher.Close()
		return err
	}

	go w.watchLoop()
	log.Printf("Watching inbox directory: %s", inbox)
	return nil
}

// Stop shuts down the watcher.
func (w *WatcherService) Stop() error {
	close(w.stopChan)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *WatcherService) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Inbox watcher error: %v", err)
		case <-w.stopChan:
			return
		}
	}
}

func (w *WatcherService) handleEvent(event fsnotify.Event) {
	// Only files appearing in the inbox matter; writes to a file being
	// copied in just reset the debounce timer.
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if !IsSupportedDocument(filepath.Base(event.Name)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.changedPaths[event.Name] = true

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.submitPending)
}

func (w *WatcherService) submitPending() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.changedPaths))
	for p := range w.changedPaths {
		paths = append(paths, p)
	}
	w.changedPaths = make(map[string]bool)
	w.mu.Unlock()

	for _, path := range paths {
		// The event may be our own staging rename; the file is gone then.
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := SubmitFile(w.ctx, path); err != nil {
			log.Printf("Inbox watcher: %v", err)
		}
	}
}
