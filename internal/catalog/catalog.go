// Package catalog tracks the SQLite log databases available in a directory.
package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Catalog is the set of *.db files in one directory plus the name used
// when a request does not pick one.
type Catalog struct {
	dir         string
	defaultName string

	mu    sync.RWMutex
	names []string
}

func New(dir, defaultName string) *Catalog {
	return &Catalog{dir: dir, defaultName: defaultName}
}

func (c *Catalog) Dir() string {
	return c.dir
}

func (c *Catalog) DefaultName() string {
	return c.defaultName
}

// Refresh rescans the directory. A missing directory is an empty catalog.
func (c *Catalog) Refresh() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !isDBFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	c.mu.Lock()
	c.names = names
	c.mu.Unlock()
	return nil
}

// List returns the known database file names, sorted.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Resolve maps a db_path request value to a file path and its effective
// name. Empty or unknown names resolve to the default database.
func (c *Catalog) Resolve(name string) (path, effective string) {
	name = filepath.Base(strings.TrimSpace(name))
	if name != "" && isDBFile(name) && c.contains(name) {
		return filepath.Join(c.dir, name), name
	}
	return filepath.Join(c.dir, c.defaultName), c.defaultName
}

func (c *Catalog) contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := sort.SearchStrings(c.names, name)
	return i < len(c.names) && c.names[i] == name
}

// Watch keeps the catalog current until stopCh is closed. Filesystem
// events trigger a rescan; a slow ticker covers missed events.
func (c *Catalog) Watch(stopCh <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	if err := watcher.Add(c.dir); err != nil {
		return err
	}
	if err := c.Refresh(); err != nil {
		return err
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDBFile(filepath.Base(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.rescan()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("catalog watcher error")
		case <-ticker.C:
			c.rescan()
		}
	}
}

func (c *Catalog) rescan() {
	if err := c.Refresh(); err != nil {
		log.WithError(err).WithField("dir", c.dir).Warn("catalog rescan failed")
	}
}

func isDBFile(name string) bool {
	return strings.HasSuffix(name, ".db")
}
