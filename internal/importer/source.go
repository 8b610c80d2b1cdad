package importer

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/cory-johannsen/ldtk-importer/internal/ldtk"
)

// Source loads LDtk documents.
//
// Postcondition: Load returns a validated Document or a non-nil error.
type Source interface {
	Load(path string) (*ldtk.Document, error)
}

// FileSource loads LDtk documents from a filesystem.
type FileSource struct {
	fs afero.Fs
}

// NewFileSource constructs a FileSource reading from fs.
//
// Precondition: fs must be non-nil.
func NewFileSource(fs afero.Fs) *FileSource {
	return &FileSource{fs: fs}
}

// Load reads, parses and validates the document at path. Read failures wrap
// ErrIO; malformed JSON and inconsistent documents wrap ErrParse.
func (s *FileSource) Load(path string) (*ldtk.Document, error) {
	doc, err := ldtk.LoadDocument(s.fs, path)
	switch {
	case errors.Is(err, ldtk.ErrUnreadable):
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return doc, nil
}
