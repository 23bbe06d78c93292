package session

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CoordinatorConfig holds tuning for the reload coordinator.
type CoordinatorConfig struct {
	// Debounce is how long to wait after the last change notification
	// before reloading. Bursts of notifications inside the window coalesce
	// into a single reload.
	Debounce time.Duration

	// Logger for coordinator activity.
	Logger *log.Logger
}

// DefaultCoordinatorConfig returns sensible defaults.
func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		Debounce: time.Second,
		Logger:   log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// reloadState is the coordinator's position in the
// Idle -> PendingDebounce -> (Deferred | Reloading) -> Idle cycle.
type reloadState int

const (
	stateIdle reloadState = iota
	statePendingDebounce
	stateDeferred
	stateReloading
)

// Coordinator watches a branch's CSV files for external changes and
// drives reloads. It debounces notification bursts, defers reloads while
// an edit is in progress and suppresses notifications caused by this
// process's own saves, using per-path modification timestamps.
//
// All notification handling runs on one goroutine; the reload callback is
// never invoked concurrently with itself.
type Coordinator struct {
	cfg     *CoordinatorConfig
	watcher *fsnotify.Watcher // nil when live refresh is disabled
	paths   []string
	reload  func()

	mu      sync.Mutex
	known   map[string]time.Time // last mtime accounted for, per path
	pending map[string]bool      // paths with an unprocessed notification
	editing bool
	state   reloadState

	kicks chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewCoordinator starts watching baseFolder for changes to the given file
// paths and calls reload when an external change settles. If the watch
// cannot be established the coordinator still works in degraded mode:
// no live refresh, but edit tracking and own-write bookkeeping stay
// functional so an explicit reload path keeps everything consistent.
func NewCoordinator(baseFolder string, paths []string, reload func(), cfg *CoordinatorConfig) *Coordinator {
	if cfg == nil {
		cfg = DefaultCoordinatorConfig()
	}

	c := &Coordinator{
		cfg:     cfg,
		paths:   paths,
		reload:  reload,
		known:   make(map[string]time.Time),
		pending: make(map[string]bool),
		kicks:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(baseFolder)
		if err != nil {
			watcher.Close()
		}
	}
	if err != nil {
		// Non-fatal: the session still works as load-on-demand.
		cfg.Logger.Printf("Live refresh disabled (%v)", err)
	} else {
		c.watcher = watcher
	}

	c.wg.Add(1)
	go c.run()

	return c
}

// Watching reports whether live refresh is active.
func (c *Coordinator) Watching() bool {
	return c.watcher != nil
}

// Stop shuts the coordinator down and waits for the event loop to exit.
func (c *Coordinator) Stop() {
	close(c.done)
	if c.watcher != nil {
		c.watcher.Close()
	}
	c.wg.Wait()
}

// BeginEdit marks an edit session as active. While active, settled
// changes are deferred instead of reloaded.
func (c *Coordinator) BeginEdit() {
	c.mu.Lock()
	c.editing = true
	c.mu.Unlock()
}

// EndEdit marks the edit session as finished. A reload deferred during
// the edit runs promptly afterwards.
func (c *Coordinator) EndEdit() {
	c.mu.Lock()
	c.editing = false
	deferred := c.state == stateDeferred
	c.mu.Unlock()

	if deferred {
		select {
		case c.kicks <- struct{}{}:
		default:
		}
	}
}

// MarkOwnWrite records the modification timestamp produced by one of this
// process's own saves, so the resulting notification is not mistaken for
// an external change.
func (c *Coordinator) MarkOwnWrite(path string, mtime time.Time) {
	c.mu.Lock()
	c.known[path] = mtime
	c.mu.Unlock()
}

// run is the notification loop. Watcher events, debounce expiry and
// end-of-edit kicks are all handled here, one at a time.
func (c *Coordinator) run() {
	defer c.wg.Done()

	var events chan fsnotify.Event
	var errors chan error
	if c.watcher != nil {
		events = c.watcher.Events
		errors = c.watcher.Errors
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-c.done:
			return

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			path, ok := c.watchedPath(event.Name)
			if !ok {
				continue
			}
			if c.noteChange(path) {
				resetTimer(timer, c.cfg.Debounce)
			}

		case err, ok := <-errors:
			if !ok {
				errors = nil
				continue
			}
			c.cfg.Logger.Printf("Watcher error: %v", err)

		case <-timer.C:
			c.settle()

		case <-c.kicks:
			c.mu.Lock()
			deferred := c.state == stateDeferred && !c.editing
			c.mu.Unlock()
			if deferred {
				c.settle()
			}
		}
	}
}

// watchedPath maps a notification path to one of the watched file paths,
// comparing case-insensitively the way the shared folder's origin
// filesystem does.
func (c *Coordinator) watchedPath(name string) (string, bool) {
	for _, p := range c.paths {
		if strings.EqualFold(filepath.Clean(name), filepath.Clean(p)) {
			return p, true
		}
	}
	return "", false
}

// noteChange records one notification. It returns true when the debounce
// window should (re)start. A stat failure or an mtime we already know
// about means the notification is ignored; the next one will retry.
func (c *Coordinator) noteChange(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if known, ok := c.known[path]; ok && known.Equal(info.ModTime()) {
		// Our own save, or a change we already reloaded.
		return false
	}

	c.pending[path] = true
	c.state = statePendingDebounce
	return true
}

// settle runs when the debounce window expires or a deferred reload is
// released. It re-checks every pending path against the known timestamps
// before reloading: an own-save notification that raced ahead of
// MarkOwnWrite is caught here, well inside the debounce interval.
func (c *Coordinator) settle() {
	c.mu.Lock()

	if c.editing {
		c.state = stateDeferred
		c.mu.Unlock()
		return
	}

	changed := false
	for path := range c.pending {
		delete(c.pending, path)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if known, ok := c.known[path]; ok && known.Equal(info.ModTime()) {
			continue
		}
		c.known[path] = info.ModTime()
		changed = true
	}

	if !changed {
		c.state = stateIdle
		c.mu.Unlock()
		return
	}

	c.state = stateReloading
	c.mu.Unlock()

	c.reload()

	c.mu.Lock()
	if c.state == stateReloading {
		c.state = stateIdle
	}
	c.mu.Unlock()
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
