package options

import (
	"path/filepath"
	"strings"

	"github.com/cory-johannsen/ldtk-importer/internal/importer/postprocess"
	"github.com/cory-johannsen/ldtk-importer/internal/ldtk"
)

const sceneFilter = "*.tscn;Godot Scene"

// ProcessorSource lists the post-processor paths available for a stage.
type ProcessorSource interface {
	Paths(stage postprocess.Stage) []string
}

// Builder derives option schemas.
type Builder struct {
	processors ProcessorSource
}

// NewBuilder constructs a Builder.
//
// Precondition: processors must be non-nil.
// Postcondition: returns a non-nil Builder.
func NewBuilder(processors ProcessorSource) *Builder {
	return &Builder{processors: processors}
}

// Build returns the option schema for doc stored at sourcePath: the General,
// World, Tileset, Entity and Level groups in that order, with per-identifier
// options sorted by identifier.
//
// Precondition: doc must be a validated document.
// Postcondition: identical inputs and processor discovery yield identical
// descriptor lists. Build does not modify doc and is safe for concurrent use.
func (b *Builder) Build(doc *ldtk.Document, sourcePath string) []Descriptor {
	l := layout(sourcePath)

	var out []Descriptor
	out = append(out, b.general()...)
	out = append(out, b.world(l)...)
	out = append(out, b.tileset(doc, l)...)
	out = append(out, b.entity(doc, l)...)
	out = append(out, b.level(doc, l)...)
	return out
}

// Layout is the default output location of an LDtk file's artifacts.
type Layout struct {
	// Dir is <dir of source>/<base name of source>.
	Dir string
	// Base is the source file name without extension.
	Base string
}

func layout(sourcePath string) Layout {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	return Layout{Dir: filepath.Join(filepath.Dir(sourcePath), base), Base: base}
}

// DefaultPath returns <dir>/<base>/<category>/<identifier>.tscn.
func (l Layout) DefaultPath(category Category, identifier string) string {
	return filepath.Join(l.Dir, string(category), identifier+"."+SaveExtension)
}

func (b *Builder) general() []Descriptor {
	return []Descriptor{{
		Key:         Prefix,
		Default:     DefaultPrefix,
		Hint:        Hint{Kind: HintString},
		Description: "the prefix of all imported node name and meta.",
	}}
}

func (b *Builder) processorOption(key Key, stage postprocess.Stage) Descriptor {
	paths := b.processors.Paths(stage)
	def := ""
	if len(paths) > 0 {
		def = paths[0]
	}
	return Descriptor{
		Key:         key,
		Default:     def,
		Hint:        Hint{Kind: HintEnum, Data: strings.Join(paths, ",")},
		Description: "post-processor applied to every " + stage.String() + " scene.",
	}
}

func (b *Builder) world(l Layout) []Descriptor {
	return []Descriptor{
		b.processorOption(WorldPostProcessor, postprocess.World),
		{
			Key:         WorldScenes,
			Default:     filepath.Join(l.Dir, l.Base+"."+SaveExtension),
			Hint:        Hint{Kind: HintFile, Data: sceneFilter},
			Description: "path of the world scene.",
		},
	}
}

func (b *Builder) tileset(doc *ldtk.Document, l Layout) []Descriptor {
	out := []Descriptor{
		boolOption(TilesetAddMeta, true, "If true, will add the original LDtk tileset definition to meta with key:${Prefix}_tilesetDefinition."),
		boolOption(TilesetImportCustomData, true, "If true, will add custom data for each tile using LDtk tile custom data."),
	}
	for _, ts := range doc.SortedTilesets() {
		out = append(out, fileOption(TilesetResource(ts.Identifier), l.DefaultPath(Tileset, ts.Identifier)))
	}
	return out
}

func (b *Builder) entity(doc *ldtk.Document, l Layout) []Descriptor {
	out := []Descriptor{
		b.processorOption(EntityPostProcessor, postprocess.Entity),
		boolOption(EntityAddDefToMeta, true, "If true, will add the original LDtk entity definition to meta with key:${Prefix}_entityDefinition."),
		boolOption(EntityAddInstToMeta, true, "If true, will add the original LDtk entity instance to meta with key:${Prefix}_entityInstance."),
	}
	for _, e := range doc.SortedEntities() {
		out = append(out, fileOption(EntityScene(e.Identifier), l.DefaultPath(Entity, e.Identifier)))
	}
	return out
}

func (b *Builder) level(doc *ldtk.Document, l Layout) []Descriptor {
	out := []Descriptor{
		b.processorOption(LevelPostProcessor, postprocess.Level),
		boolOption(LevelAddLevelToMeta, true, "If true, will add the original LDtk level data to level node's meta with key:${Prefix}_level."),
		boolOption(LevelAddLayerToMeta, true, "If true, will add the original LDtk layer instance to layer node's meta with key:${Prefix}_layerInstance."),
		boolOption(LevelAddLayerDefMeta, true, "If true, will add the original LDtk layer definition to layer node's meta with key:${Prefix}_layerDefinition."),
		boolOption(LevelImportIntGrid, false, "If true, will import IntGrid values as a child node."),
	}
	for _, lvl := range doc.SortedLevels() {
		out = append(out, fileOption(LevelScene(lvl.Identifier), l.DefaultPath(Level, lvl.Identifier)))
	}
	return out
}

func boolOption(key Key, def bool, description string) Descriptor {
	return Descriptor{Key: key, Default: def, Hint: Hint{Kind: HintBool}, Description: description}
}

func fileOption(key Key, def string) Descriptor {
	return Descriptor{Key: key, Default: def, Hint: Hint{Kind: HintFile, Data: sceneFilter}}
}
