package board

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// WatchCallback receives ("created"|"modified"|"deleted", filePath).
type WatchCallback func(eventType, filePath string)

// WatchInfo describes one active watch for status reporting.
type WatchInfo struct {
	Path        string
	Pattern     string
	Description string
	Active      bool
}

type watchEntry struct {
	info     WatchInfo
	watcher  *fsnotify.Watcher
	callback WatchCallback
	done     chan struct{}
}

// COO binds filesystem events to coordinator callbacks. The OS calls
// back into the process; there is no polling loop. When the watcher
// backend fails to start, the watch is registered inactive and
// everything else keeps working.
type COO struct {
	workspace string
	store     *store.Store

	mu      sync.Mutex
	watches map[string]*watchEntry
}

func NewCOO(workspace string, st *store.Store) *COO {
	return &COO{
		workspace: workspace,
		store:     st,
		watches:   make(map[string]*watchEntry),
	}
}

// Watch registers a directory watch filtered by a glob over base names.
// Reports whether event delivery is active for this watch.
func (c *COO) Watch(path, pattern, description string, callback WatchCallback) bool {
	if pattern == "" {
		pattern = "*"
	}
	resolved := c.resolvePath(path)
	if description == "" {
		description = "Watch " + path + " (" + pattern + ")"
	}

	c.mu.Lock()
	if existing, ok := c.watches[resolved]; ok {
		c.mu.Unlock()
		return existing.info.Active
	}

	entry := &watchEntry{
		info: WatchInfo{
			Path:        resolved,
			Pattern:     pattern,
			Description: description,
		},
		callback: callback,
		done:     make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(resolved)
	}
	if err != nil {
		slog.Warn("coo.watch_degraded", "path", resolved, "error", err)
		if watcher != nil {
			watcher.Close()
		}
	} else {
		entry.watcher = watcher
		entry.info.Active = true
		go entry.run()
	}
	c.watches[resolved] = entry
	c.mu.Unlock()

	if c.store != nil {
		c.store.Audit("coo", "file_watch",
			map[string]any{"path": resolved, "pattern": pattern},
			store.AuditAllowed, description)
	}
	return entry.info.Active
}

// Unwatch stops watching a directory; reports whether it was watched.
func (c *COO) Unwatch(path string) bool {
	resolved := c.resolvePath(path)
	c.mu.Lock()
	entry, ok := c.watches[resolved]
	delete(c.watches, resolved)
	c.mu.Unlock()
	if ok {
		entry.stop()
	}
	return ok
}

// ListWatches returns active watches for status reporting.
func (c *COO) ListWatches() []WatchInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WatchInfo, 0, len(c.watches))
	for _, e := range c.watches {
		out = append(out, e.info)
	}
	return out
}

// StopAll shuts down every watcher.
func (c *COO) StopAll() {
	c.mu.Lock()
	entries := make([]*watchEntry, 0, len(c.watches))
	for _, e := range c.watches {
		entries = append(entries, e)
	}
	c.watches = make(map[string]*watchEntry)
	c.mu.Unlock()
	for _, e := range entries {
		e.stop()
	}
}

func (c *COO) resolvePath(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.workspace, path)
	}
	resolved, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return resolved
}

func (e *watchEntry) run() {
	for {
		select {
		case <-e.done:
			return
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			kind := eventKind(event.Op)
			if kind == "" {
				continue
			}
			if matched, _ := filepath.Match(e.info.Pattern, filepath.Base(event.Name)); !matched {
				continue
			}
			e.callback(kind, event.Name)
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("coo.watch_error", "path", e.info.Path, "error", err)
		}
	}
}

func (e *watchEntry) stop() {
	if e.watcher == nil {
		return
	}
	close(e.done)
	e.watcher.Close()
}

func eventKind(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "created"
	case op.Has(fsnotify.Write):
		return "modified"
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return "deleted"
	default:
		return ""
	}
}
