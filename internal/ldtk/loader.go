package ldtk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// ErrUnreadable is returned by LoadDocument when the file cannot be read.
var ErrUnreadable = errors.New("ldtk file unreadable")

// LoadDocument reads and validates the LDtk world file at path on fs.
//
// Precondition: fs must be non-nil.
// Postcondition: Returns a validated Document, or an error wrapping
// ErrUnreadable when the file cannot be read.
func LoadDocument(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	doc, err := LoadDocumentFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading ldtk file %s: %w", path, err)
	}
	return doc, nil
}

// LoadDocumentFromBytes parses and validates an LDtk world from JSON bytes.
//
// Precondition: data must be LDtk project JSON.
// Postcondition: Returns a validated Document or a non-nil error.
func LoadDocumentFromBytes(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing ldtk JSON: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validating ldtk document: %w", err)
	}
	return &doc, nil
}

// Validate checks identifier uniqueness and cross references.
//
// Postcondition: Returns nil if the document is consistent, or an error
// describing all violations.
func (d *Document) Validate() error {
	var errs []string

	errs = append(errs, duplicates("tileset", len(d.Defs.Tilesets), func(i int) string { return d.Defs.Tilesets[i].Identifier })...)
	errs = append(errs, duplicates("entity", len(d.Defs.Entities), func(i int) string { return d.Defs.Entities[i].Identifier })...)
	errs = append(errs, duplicates("layer", len(d.Defs.Layers), func(i int) string { return d.Defs.Layers[i].Identifier })...)
	errs = append(errs, duplicates("level", len(d.Levels), func(i int) string { return d.Levels[i].Identifier })...)

	for _, lvl := range d.Levels {
		for _, li := range lvl.LayerInstances {
			if _, ok := d.LayerDefByUID(li.LayerDefUID); !ok {
				errs = append(errs, fmt.Sprintf("level %q: layer %q references unknown layer definition %d", lvl.Identifier, li.Identifier, li.LayerDefUID))
			}
			if li.TilesetDefUID != nil {
				if _, ok := d.TilesetByUID(*li.TilesetDefUID); !ok {
					errs = append(errs, fmt.Sprintf("level %q: layer %q references unknown tileset %d", lvl.Identifier, li.Identifier, *li.TilesetDefUID))
				}
			}
			for _, ei := range li.EntityInstances {
				if _, ok := d.Entity(ei.Identifier); !ok {
					errs = append(errs, fmt.Sprintf("level %q: entity instance %q references unknown entity %q", lvl.Identifier, ei.IID, ei.Identifier))
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func duplicates(kind string, n int, identifier func(int) string) []string {
	var errs []string
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		id := identifier(i)
		if id == "" {
			errs = append(errs, fmt.Sprintf("%s #%d has an empty identifier", kind, i))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Sprintf("duplicate %s identifier %q", kind, id))
		}
		seen[id] = true
	}
	return errs
}
