package scene

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// Writer persists scenes to a filesystem.
type Writer struct {
	fs      afero.Fs
	encoder Encoder
}

// NewWriter constructs a Writer.
//
// Precondition: fs must be non-nil.
// Postcondition: returns a non-nil Writer.
func NewWriter(fs afero.Fs, encoder Encoder) *Writer {
	return &Writer{fs: fs, encoder: encoder}
}

// Fs returns the filesystem the writer persists to.
func (w *Writer) Fs() afero.Fs { return w.fs }

// Write encodes s and stores it at path, creating parent directories.
//
// Postcondition: the scene file exists at path, or a non-nil error is returned.
func (w *Writer) Write(s *Scene, path string) error {
	data, err := w.encoder.Encode(s, path)
	if err != nil {
		return err
	}
	if err := w.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(w.fs, path, data, 0644); err != nil {
		return fmt.Errorf("writing scene %s: %w", path, err)
	}
	return nil
}

// CopyArtifact copies the file at from to to, creating parent directories
// and replacing any existing file.
//
// Postcondition: to holds the bytes of from, or a non-nil error is returned.
func (w *Writer) CopyArtifact(from, to string) error {
	if filepath.Clean(from) == filepath.Clean(to) {
		return nil
	}
	src, err := w.fs.Open(from)
	if err != nil {
		return fmt.Errorf("opening %s: %w", from, err)
	}
	defer src.Close()

	if err := w.fs.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", to, err)
	}
	dst, err := w.fs.Create(to)
	if err != nil {
		return fmt.Errorf("creating %s: %w", to, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copying %s to %s: %w", from, to, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", to, err)
	}
	return nil
}
