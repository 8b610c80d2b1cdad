package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/cory-johannsen/ldtk-importer/internal/importer/options"
	"github.com/cory-johannsen/ldtk-importer/internal/importer/postprocess"
	"github.com/cory-johannsen/ldtk-importer/internal/ldtk"
	"github.com/cory-johannsen/ldtk-importer/internal/scene"
)

// importMu serializes imports process-wide. Generated artifacts of one world
// may be instanced by another, so two imports never interleave.
var importMu sync.Mutex

// SchemaBuilder derives the option schema of a document.
type SchemaBuilder interface {
	Build(doc *ldtk.Document, sourcePath string) []options.Descriptor
}

// ProcessorLookup resolves a selected post-processor for a stage.
type ProcessorLookup interface {
	Lookup(stage postprocess.Stage, path string) (postprocess.Processor, error)
}

// SceneWriter persists generated scenes.
type SceneWriter interface {
	Fs() afero.Fs
	Write(s *scene.Scene, path string) error
	CopyArtifact(from, to string) error
}

var processorKeys = map[postprocess.Stage]options.Key{
	postprocess.World:  options.WorldPostProcessor,
	postprocess.Level:  options.LevelPostProcessor,
	postprocess.Entity: options.EntityPostProcessor,
}

// Pipeline runs the PreImport, Import, PostImport and Finalize phases of an
// import.
type Pipeline struct {
	schema     SchemaBuilder
	processors ProcessorLookup
	writer     SceneWriter
	logger     *zap.Logger
}

// NewPipeline constructs a Pipeline.
//
// Precondition: all arguments must be non-nil.
// Postcondition: returns a non-nil Pipeline.
func NewPipeline(schema SchemaBuilder, processors ProcessorLookup, writer SceneWriter, logger *zap.Logger) *Pipeline {
	return &Pipeline{schema: schema, processors: processors, writer: writer, logger: logger}
}

// Run imports doc, read from sourcePath, using the option values supplied
// by the host. The working world scene is written to "<savePath>.tscn".
//
// Precondition: doc must be non-nil.
// Postcondition: on success every generated file is listed in the returned
// set and the world scene exists at World/WorldScenes. On failure the error
// is an *ImportError naming the failed phase, and the returned set lists the
// files written before the failure. A PreImport failure writes nothing.
func (p *Pipeline) Run(ctx context.Context, doc *ldtk.Document, sourcePath, savePath string, values map[string]any) (*GeneratedFileSet, error) {
	importMu.Lock()
	defer importMu.Unlock()

	ic := newContext(doc, sourcePath, savePath)
	log := p.logger.With(zap.String("source", sourcePath))
	log.Info("import started", zap.String("save_path", savePath))
	start := time.Now()

	steps := []struct {
		phase Phase
		done  State
		run   func(context.Context, *Context, map[string]any) error
	}{
		{PhasePreImport, PreImportDone, p.preImport},
		{PhaseImport, ImportDone, p.importScenes},
		{PhasePostImport, PostImportDone, p.postImport},
		{PhaseFinalize, Complete, p.finalize},
	}
	for _, step := range steps {
		t0 := time.Now()
		err := ctx.Err()
		if err == nil {
			err = step.run(ctx, ic, values)
		}
		if err != nil {
			ic.State = Failed
			ierr := newImportError(step.phase, err)
			log.Error("import failed",
				zap.String("phase", string(step.phase)),
				zap.Int("files_written", ic.Files.Len()),
				zap.Error(ierr))
			return ic.Files, ierr
		}
		ic.State = step.done
		log.Info("phase complete",
			zap.String("phase", string(step.phase)),
			zap.Duration("duration", time.Since(t0)))
	}

	log.Info("import complete",
		zap.Int("files", ic.Files.Len()),
		zap.Duration("duration", time.Since(start)))
	return ic.Files, nil
}

// preImport resolves options and prepares the output location. It writes no
// scene files.
func (p *Pipeline) preImport(_ context.Context, ic *Context, values map[string]any) error {
	if ic.Document == nil {
		return fmt.Errorf("%w: no document", ErrValidation)
	}
	if err := ic.Document.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	schema := p.schema.Build(ic.Document, ic.SourcePath)
	resolved, err := options.Resolve(schema, values)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := checkOutputPaths(schema, resolved); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	ic.Options = resolved
	p.logger.Debug("options resolved",
		zap.String("source", ic.SourcePath),
		zap.Strings("supplied", resolved.Supplied()))

	dir := filepath.Dir(ic.WorkingScenePath())
	if err := p.writer.Fs().MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrIO, dir, err)
	}
	return nil
}

// checkOutputPaths rejects two file options resolving to the same path.
func checkOutputPaths(schema []options.Descriptor, r *options.Resolved) error {
	owner := make(map[string]string)
	var errs []string
	for _, d := range schema {
		if d.Hint.Kind != options.HintFile {
			continue
		}
		path := filepath.Clean(r.String(d.Key))
		if prev, ok := owner[path]; ok {
			errs = append(errs, fmt.Sprintf("options %q and %q both write %q", prev, d.Name(), path))
			continue
		}
		owner[path] = d.Name()
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// importScenes generates tileset, entity, level and world scenes in that
// order so that every instanced scene exists before its instancer.
func (p *Pipeline) importScenes(ctx context.Context, ic *Context, _ map[string]any) error {
	b := sceneBuilder{doc: ic.Document, opts: ic.Options}

	for _, ts := range ic.Document.SortedTilesets() {
		path := ic.Options.String(options.TilesetResource(ts.Identifier))
		if err := p.write(ic, b.tileset(ts), path, true); err != nil {
			return err
		}
	}
	for _, e := range ic.Document.SortedEntities() {
		path := ic.Options.String(options.EntityScene(e.Identifier))
		s := b.entity(e)
		if err := p.write(ic, s, path, true); err != nil {
			return err
		}
		ic.addArtifact(postprocess.Entity, artifact{identifier: e.Identifier, path: path, scene: s})
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, lvl := range ic.Document.SortedLevels() {
		path := ic.Options.String(options.LevelScene(lvl.Identifier))
		s := b.level(lvl)
		if err := p.write(ic, s, path, true); err != nil {
			return err
		}
		ic.addArtifact(postprocess.Level, artifact{identifier: lvl.Identifier, path: path, scene: s})
	}

	base := strings.TrimSuffix(filepath.Base(ic.SourcePath), filepath.Ext(ic.SourcePath))
	world := b.world(base)
	if err := p.write(ic, world, ic.WorkingScenePath(), false); err != nil {
		return err
	}
	ic.addArtifact(postprocess.World, artifact{identifier: base, path: ic.WorkingScenePath(), scene: world})
	return nil
}

func (p *Pipeline) write(ic *Context, s *scene.Scene, path string, record bool) error {
	if err := p.writer.Write(s, path); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if record {
		ic.Files.Add(path)
	}
	return nil
}

// postImport applies the selected post-processor of each stage to every
// artifact of that stage and rewrites the artifacts. A processor that cannot
// be loaded is skipped.
func (p *Pipeline) postImport(ctx context.Context, ic *Context, _ map[string]any) error {
	for _, stage := range postprocess.Stages {
		selected := ic.Options.String(processorKeys[stage])
		if selected == "" {
			continue
		}
		proc, err := p.processors.Lookup(stage, selected)
		if err != nil {
			p.logger.Warn("skipping post-processor",
				zap.String("stage", stage.String()),
				zap.String("path", selected),
				zap.Error(fmt.Errorf("%w: %w", ErrProcessorLoad, err)))
			continue
		}

		arts := ic.artifacts[stage]
		sort.SliceStable(arts, func(i, j int) bool { return arts[i].identifier < arts[j].identifier })
		for _, a := range arts {
			if err := ctx.Err(); err != nil {
				return err
			}
			t0 := time.Now()
			if err := proc.Apply(stage, a.scene); err != nil {
				return fmt.Errorf("%w: %s on %s %q: %w", ErrProcessor, selected, stage, a.identifier, err)
			}
			if err := p.writer.Write(a.scene, a.path); err != nil {
				return fmt.Errorf("%w: %w", ErrIO, err)
			}
			p.logger.Debug("post-processed",
				zap.String("stage", stage.String()),
				zap.String("identifier", a.identifier),
				zap.Duration("duration", time.Since(t0)))
		}
	}
	return nil
}

// finalize copies the working world scene to World/WorldScenes.
func (p *Pipeline) finalize(_ context.Context, ic *Context, _ map[string]any) error {
	dest := ic.Options.String(options.WorldScenes)
	if err := p.writer.CopyArtifact(ic.WorkingScenePath(), dest); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	ic.Files.Add(dest)
	return nil
}
