// Package importer converts LDtk worlds into Godot scenes.
package importer

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ldtk-importer/internal/importer/options"
)

// Importer is the host-facing surface: it lists the options of a source file
// and imports it.
type Importer struct {
	source   Source
	schema   SchemaBuilder
	pipeline *Pipeline
	logger   *zap.Logger
}

// New constructs an Importer.
//
// Precondition: all arguments must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, schema SchemaBuilder, pipeline *Pipeline, logger *zap.Logger) *Importer {
	return &Importer{source: source, schema: schema, pipeline: pipeline, logger: logger}
}

// Options returns the option schema of the LDtk file at sourcePath.
//
// Postcondition: returns the schema, or an *ImportError in PhaseLoad.
func (imp *Importer) Options(sourcePath string) ([]options.Descriptor, error) {
	doc, err := imp.source.Load(sourcePath)
	if err != nil {
		return nil, newImportError(PhaseLoad, err)
	}
	return imp.schema.Build(doc, sourcePath), nil
}

// Import loads sourcePath and runs the import pipeline.
//
// Postcondition: returns OK and the generated files on success. On failure
// the code classifies the error and the files are those written before the
// failure.
func (imp *Importer) Import(ctx context.Context, sourcePath, savePath string, values map[string]any) (Code, []string, error) {
	doc, err := imp.source.Load(sourcePath)
	if err != nil {
		ierr := newImportError(PhaseLoad, err)
		imp.logger.Error("loading source failed", zap.String("source", sourcePath), zap.Error(ierr))
		return CodeOf(ierr), nil, ierr
	}
	files, err := imp.pipeline.Run(ctx, doc, sourcePath, savePath, values)
	return CodeOf(err), files.Paths(), err
}
