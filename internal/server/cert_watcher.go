package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"careerflow/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// CertWatcher watches certificate files on disk and reports changes after a
// debounce window. Atomic replacements (write to a temp file, rename over
// the original) are caught by watching the parent directory as well, and
// spurious events are filtered by comparing modification times.
type CertWatcher struct {
	mu sync.RWMutex

	certFile string
	keyFile  string
	caFile   string

	// Modification times keyed by path, guarded by mu
	modTimes map[string]time.Time

	fs       *fsnotify.Watcher
	debounce time.Duration
	timer    *time.Timer

	// quit is created fresh on every Start so the watcher can be
	// stopped and started again
	quit       chan struct{}
	changeChan chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
}

// NewCertWatcher creates a watcher over the given certificate files. Empty
// paths are skipped, but at least one file must be given. A zero debounce
// delay defaults to one second.
func NewCertWatcher(certFile, keyFile, caFile string, debounce time.Duration, onChange func(), logger *errors.Logger) (*CertWatcher, error) {
	if certFile == "" && keyFile == "" && caFile == "" {
		return nil, fmt.Errorf("no certificate files to watch")
	}
	if debounce == 0 {
		debounce = time.Second
	}

	return &CertWatcher{
		certFile:   certFile,
		keyFile:    keyFile,
		caFile:     caFile,
		modTimes:   make(map[string]time.Time),
		debounce:   debounce,
		changeChan: make(chan struct{}, 1), // Buffered so a pending check never blocks the timer
		onChange:   onChange,
		logger:     logger,
	}, nil
}

// watchedFiles returns the non-empty certificate paths in a stable order
func (cw *CertWatcher) watchedFiles() []string {
	files := make([]string, 0, 3)
	for _, f := range []string{cw.certFile, cw.keyFile, cw.caFile} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// Start creates the underlying fsnotify watcher and launches the event loop
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	cw.fs = fsw

	if err := cw.seedModTimes(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			cw.logger.LogError(closeErr, "Failed to close fsnotify watcher during startup cleanup")
		}
		return fmt.Errorf("recording baseline modification times: %w", err)
	}

	files := cw.watchedFiles()
	for _, file := range files {
		if err := cw.watchFile(file); err != nil {
			cw.logger.Warn("Failed to add certificate file to watcher", "file", file, "error", err)
		}
	}

	cw.quit = make(chan struct{})
	cw.running = true
	go cw.run(cw.quit)

	cw.logger.Info("Certificate file watcher started",
		"files", files,
		"debounce_delay", cw.debounce)
	return nil
}

// Stop halts the event loop and closes the underlying watcher. Stopping a
// watcher that never started is a no-op, and a stopped watcher may be
// started again.
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return nil
	}
	cw.running = false
	close(cw.quit)

	if cw.timer != nil {
		cw.timer.Stop()
		cw.timer = nil
	}

	if err := cw.fs.Close(); err != nil {
		cw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	cw.logger.Info("Certificate file watcher stopped")
	return nil
}

// watchFile registers a file and its directory with the file system watcher.
// The directory watch catches atomic writes, where the inode the file watch
// is bound to never changes.
func (cw *CertWatcher) watchFile(file string) error {
	if err := cw.fs.Add(file); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("adding watch for %s: %w", file, err)
		}
		// File missing for now; watching the directory picks it up on create
		dir := filepath.Dir(file)
		if err := cw.fs.Add(dir); err != nil {
			return fmt.Errorf("adding watch for directory %s: %w", dir, err)
		}
		cw.logger.Info("Watching directory for certificate file",
			"file", file, "directory", dir)
		return nil
	}

	dir := filepath.Dir(file)
	if err := cw.fs.Add(dir); err != nil {
		cw.logger.Warn("Failed to watch directory for atomic writes",
			"directory", dir, "error", err)
	}
	return nil
}

// seedModTimes records the current modification time of every watched file.
// Caller must hold mu.
func (cw *CertWatcher) seedModTimes() error {
	for _, file := range cw.watchedFiles() {
		stat, err := os.Stat(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", file, err)
		}
		cw.modTimes[file] = stat.ModTime()
	}
	return nil
}

// fileChanged reports whether a file was modified or deleted since the last
// check, updating the stored modification time as a side effect
func (cw *CertWatcher) fileChanged(file string) bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	stat, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			if _, tracked := cw.modTimes[file]; tracked {
				delete(cw.modTimes, file)
				return true
			}
		}
		return false
	}

	last, tracked := cw.modTimes[file]
	if !tracked || stat.ModTime().After(last) {
		cw.modTimes[file] = stat.ModTime()
		return true
	}
	return false
}

// run consumes watcher events until Stop is called or the fsnotify channels
// close underneath it. The stop channel is passed in rather than read from
// the struct so a restart cannot race the previous run's goroutine.
func (cw *CertWatcher) run(stop <-chan struct{}) {
	events, errs := cw.fs.Events, cw.fs.Errors
	for {
		select {
		case <-stop:
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if cw.eventNeedsCheck(event) {
				cw.scheduleCheck()
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			cw.logger.LogError(err, "File watcher error")

		case <-cw.changeChan:
			cw.confirmAndNotify()
		}
	}
}

// confirmAndNotify runs once the debounce window closes, confirming events
// against mod times before invoking the callback. Every file is checked,
// not just the first hit, so stored mod times stay fresh even when several
// certificates rotate at once.
func (cw *CertWatcher) confirmAndNotify() {
	changed := false
	for _, file := range cw.watchedFiles() {
		if cw.fileChanged(file) {
			changed = true
		}
	}
	if !changed {
		return
	}
	cw.logger.Info("Certificate files changed, triggering reload")
	cw.onChange()
}

// eventNeedsCheck filters events down to writes, creates and renames that
// could concern one of the watched files. Directory watches deliver events
// for unrelated siblings, so the name is matched before the op.
func (cw *CertWatcher) eventNeedsCheck(event fsnotify.Event) bool {
	concernsWatched := slices.ContainsFunc(cw.watchedFiles(), func(file string) bool {
		return event.Name == file || filepath.Base(event.Name) == filepath.Base(file)
	})
	if !concernsWatched {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleCheck arms the debounce timer; bursts of events within the window
// collapse into a single confirmation
func (cw *CertWatcher) scheduleCheck() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.timer != nil {
		cw.timer.Reset(cw.debounce)
		return
	}
	cw.timer = time.AfterFunc(cw.debounce, cw.signalCheck)
}

// signalCheck marks a confirmation as pending. The buffered channel makes
// the signal idempotent, so a timer firing twice costs nothing.
func (cw *CertWatcher) signalCheck() {
	select {
	case cw.changeChan <- struct{}{}:
	default:
	}
}

// IsRunning reports whether the event loop is active
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.running
}

// GetWatchedFiles lists the certificate paths under watch
func (cw *CertWatcher) GetWatchedFiles() []string {
	return cw.watchedFiles()
}
