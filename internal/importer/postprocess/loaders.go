package postprocess

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// StaticLoader serves Go processors registered under fixed paths.
type StaticLoader struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewStaticLoader returns an empty StaticLoader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{processors: make(map[string]Processor)}
}

// Register makes p loadable at path.
func (l *StaticLoader) Register(path string, p Processor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.processors[path] = p
}

// Paths returns the registered paths in sorted order.
func (l *StaticLoader) Paths() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	paths := make([]string, 0, len(l.processors))
	for p := range l.processors {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Load returns the processor registered at path.
func (l *StaticLoader) Load(path string) (Processor, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.processors[path]
	if !ok {
		return nil, fmt.Errorf("%w: nothing registered at %s", ErrNotProcessor, path)
	}
	return p, nil
}

// Scan implements Scanner over the registered paths below root.
func (l *StaticLoader) Scan(root string) ([]string, error) {
	var out []string
	for _, p := range l.Paths() {
		if root == "" || p == root || strings.HasPrefix(p, strings.TrimSuffix(root, "/")+"/") {
			out = append(out, p)
		}
	}
	return out, nil
}

// ExtLoader dispatches to a Loader chosen by file extension.
type ExtLoader map[string]Loader

// Load loads path with the loader registered for its extension.
func (l ExtLoader) Load(path string) (Processor, error) {
	loader, ok := l[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: no loader for %s", ErrNotProcessor, path)
	}
	return loader.Load(path)
}
