package postprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Scanner lists candidate processor resources below a root directory.
type Scanner interface {
	Scan(root string) ([]string, error)
}

// Loader loads the processor stored at path.
type Loader interface {
	Load(path string) (Processor, error)
}

// FileScanner walks a filesystem for files with one of a set of extensions.
type FileScanner struct {
	fs   afero.Fs
	exts []string
}

// NewFileScanner constructs a FileScanner matching any of exts (".lua").
//
// Precondition: fs must be non-nil and exts non-empty.
func NewFileScanner(fs afero.Fs, exts ...string) *FileScanner {
	if len(exts) == 0 {
		panic("postprocess: FileScanner needs at least one extension")
	}
	return &FileScanner{fs: fs, exts: exts}
}

// Scan returns matching files below root in lexical walk order. A missing
// root yields no candidates.
func (s *FileScanner) Scan(root string) ([]string, error) {
	if _, err := s.fs.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}
	var paths []string
	err := afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		for _, ext := range s.exts {
			if strings.EqualFold(filepath.Ext(path), ext) {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s for post-processors: %w", root, err)
	}
	return paths, nil
}

// Registry discovers processors under a root directory.
//
// Registry holds no state between calls; every discovery rescans and reloads
// the candidates.
type Registry struct {
	root    string
	scanner Scanner
	loader  Loader
	logger  *zap.Logger
}

// NewRegistry constructs a Registry.
//
// Precondition: scanner, loader and logger must be non-nil.
// Postcondition: returns a non-nil Registry.
func NewRegistry(root string, scanner Scanner, loader Loader, logger *zap.Logger) *Registry {
	return &Registry{root: root, scanner: scanner, loader: loader, logger: logger}
}

// Discover returns the processors handling stage in scan order. Resources
// that fail to load or are not processors are logged and skipped.
//
// Postcondition: every returned handle's processor handles stage.
func (r *Registry) Discover(stage Stage) []Handle {
	paths, err := r.scanner.Scan(r.root)
	if err != nil {
		r.logger.Warn("post-processor scan failed",
			zap.String("root", r.root),
			zap.Error(err),
		)
		return nil
	}

	var handles []Handle
	for _, path := range paths {
		p, err := r.loader.Load(path)
		if err != nil {
			r.logger.Warn("skipping post-processor candidate",
				zap.String("path", path),
				zap.Stringer("stage", stage),
				zap.Error(err),
			)
			continue
		}
		if !p.Handles(stage) {
			continue
		}
		handles = append(handles, Handle{Path: path, Processor: p})
	}
	return handles
}

// Paths returns the paths of the processors handling stage in scan order.
func (r *Registry) Paths(stage Stage) []string {
	handles := r.Discover(stage)
	paths := make([]string, len(handles))
	for i, h := range handles {
		paths[i] = h.Path
	}
	return paths
}

// Lookup loads the processor at path for stage.
//
// Postcondition: returns a processor handling stage, or an error wrapping
// ErrStageMismatch or the load failure.
func (r *Registry) Lookup(stage Stage, path string) (Processor, error) {
	p, err := r.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading post-processor %s: %w", path, err)
	}
	if !p.Handles(stage) {
		return nil, fmt.Errorf("%w: %s does not handle %s", ErrStageMismatch, path, stage)
	}
	return p, nil
}
