// Package watcher watches the persisted authorization file and triggers hot
// reloads. It supports cross-platform fsnotify event handling, including
// atomic replace (write-to-temp then rename) which surfaces as Rename or
// Remove events on some platforms.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const (
	// replaceCheckDelay is a short delay to allow atomic replace (rename) to settle
	// before deciding whether a Remove event indicates a real deletion.
	replaceCheckDelay = 50 * time.Millisecond
	reloadDebounce    = 150 * time.Millisecond
)

// Watcher watches a single authorization file for changes. The parent
// directory is watched rather than the file itself so replacements are
// observed even when the original inode disappears.
type Watcher struct {
	tokenFile string
	onChange  func(data []byte)
	watcher   *fsnotify.Watcher

	reloadMu    sync.Mutex
	reloadTimer *time.Timer
	lastHash    string
}

// NewWatcher creates a watcher for the given authorization file. onChange is
// invoked with the new file content whenever the content actually changes.
func NewWatcher(tokenFile string, onChange func(data []byte)) (*Watcher, error) {
	fsw, errNewWatcher := fsnotify.NewWatcher()
	if errNewWatcher != nil {
		return nil, errNewWatcher
	}
	abs, errAbs := filepath.Abs(tokenFile)
	if errAbs != nil {
		_ = fsw.Close()
		return nil, errAbs
	}
	return &Watcher{
		tokenFile: abs,
		onChange:  onChange,
		watcher:   fsw,
	}, nil
}

// Start begins watching the authorization file. The current content, when
// present, seeds change detection so startup does not fire a spurious reload.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.tokenFile)
	if err := w.watcher.Add(dir); err != nil {
		log.Errorf("failed to watch directory %s: %v", dir, err)
		return err
	}
	log.Debugf("watching authorization file: %s", w.tokenFile)

	if data, err := os.ReadFile(w.tokenFile); err == nil && len(data) > 0 {
		w.reloadMu.Lock()
		w.lastHash = contentHash(data)
		w.reloadMu.Unlock()
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the file watcher.
func (w *Watcher) Stop() error {
	w.reloadMu.Lock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
		w.reloadTimer = nil
	}
	w.reloadMu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case errWatch, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("file watcher error: %v", errWatch)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.tokenFile {
		return
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		// Editors replace the file atomically, which shows up as
		// Remove/Rename followed by Create. Wait briefly and only treat the
		// event as a deletion if the file is still gone.
		time.Sleep(replaceCheckDelay)
		if _, err := os.Stat(w.tokenFile); err != nil {
			log.Debugf("authorization file removed: %s", filepath.Base(w.tokenFile))
			return
		}
		w.scheduleReload()
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		log.Debugf("file system event detected: %s %s", event.Op.String(), event.Name)
		w.scheduleReload()
	}
}

// scheduleReload debounces bursts of events (editors fire several per save)
// into a single reload.
func (w *Watcher) scheduleReload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
	}
	w.reloadTimer = time.AfterFunc(reloadDebounce, func() {
		w.reloadMu.Lock()
		w.reloadTimer = nil
		w.reloadMu.Unlock()
		w.reloadIfChanged()
	})
}

func (w *Watcher) reloadIfChanged() {
	data, err := os.ReadFile(w.tokenFile)
	if err != nil {
		log.Debugf("authorization file not readable, keeping current state: %v", err)
		return
	}
	if len(data) == 0 {
		log.Debug("ignoring empty authorization file")
		return
	}

	newHash := contentHash(data)
	w.reloadMu.Lock()
	unchanged := w.lastHash == newHash
	if !unchanged {
		w.lastHash = newHash
	}
	w.reloadMu.Unlock()
	if unchanged {
		log.Debugf("authorization file unchanged (hash match), skipping reload: %s", filepath.Base(w.tokenFile))
		return
	}

	log.Infof("authorization file changed: %s, reloading", filepath.Base(w.tokenFile))
	w.onChange(data)
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
