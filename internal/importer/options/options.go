// Package options derives the import option schema of an LDtk world and
// resolves user-supplied values against it.
package options

import (
	"fmt"
	"strings"
)

// SaveExtension is the extension of every generated scene.
const SaveExtension = "tscn"

// DefaultPrefix is the default of General/prefix.
const DefaultPrefix = "LDTK"

// Category groups related options.
type Category string

// Option categories in schema order.
const (
	General Category = "General"
	World   Category = "World"
	Tileset Category = "Tileset"
	Entity  Category = "Entity"
	Level   Category = "Level"
)

var categories = []Category{General, World, Tileset, Entity, Level}

// Key identifies an option. Its flat host form is "<Category>/<Name>".
type Key struct {
	Category Category
	Name     string
}

func (k Key) String() string { return string(k.Category) + "/" + k.Name }

// ParseKey splits a flat option name into a Key.
func ParseKey(s string) (Key, error) {
	cat, name, ok := strings.Cut(s, "/")
	if !ok || name == "" {
		return Key{}, fmt.Errorf("option %q is not of the form <Category>/<name>", s)
	}
	for _, c := range categories {
		if string(c) == cat {
			return Key{Category: c, Name: name}, nil
		}
	}
	return Key{}, fmt.Errorf("option %q has unknown category %q", s, cat)
}

// Fixed option keys.
var (
	Prefix = Key{General, "prefix"}

	WorldPostProcessor = Key{World, "post_processor"}
	WorldScenes        = Key{World, "WorldScenes"}

	TilesetAddMeta          = Key{Tileset, "add_tileset_definition_to_meta"}
	TilesetImportCustomData = Key{Tileset, "import_LDTK_tile_custom_data"}

	EntityPostProcessor  = Key{Entity, "post_processor"}
	EntityAddDefToMeta   = Key{Entity, "add_entity_definition_to_meta"}
	EntityAddInstToMeta  = Key{Entity, "add_entity_instance_to_meta"}
	LevelPostProcessor   = Key{Level, "post_processor"}
	LevelAddLevelToMeta  = Key{Level, "add_level_instance_to_meta"}
	LevelAddLayerToMeta  = Key{Level, "add_layer_instance_to_meta"}
	LevelAddLayerDefMeta = Key{Level, "add_layer_definition_to_meta"}
	LevelImportIntGrid   = Key{Level, "import_IntGrid"}
)

// Per-identifier option name prefixes.
const (
	tilesetResources = "Resources/"
	entityScenes     = "Scenes/"
	levelScenes      = "Scenes/"
)

// TilesetResource is the key of the output path of a tileset.
func TilesetResource(identifier string) Key { return Key{Tileset, tilesetResources + identifier} }

// EntityScene is the key of the output path of an entity.
func EntityScene(identifier string) Key { return Key{Entity, entityScenes + identifier} }

// LevelScene is the key of the output path of a level.
func LevelScene(identifier string) Key { return Key{Level, levelScenes + identifier} }

// Identifier returns the definition identifier a per-identifier key refers
// to.
func (k Key) Identifier() (string, bool) {
	switch k.Category {
	case Tileset:
		return cutPrefix(k.Name, tilesetResources)
	case Entity:
		return cutPrefix(k.Name, entityScenes)
	case Level:
		return cutPrefix(k.Name, levelScenes)
	}
	return "", false
}

func cutPrefix(s, prefix string) (string, bool) {
	id, ok := strings.CutPrefix(s, prefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// HintKind tells the host how to present an option.
type HintKind int

// Hint kinds.
const (
	HintString HintKind = iota
	HintBool
	HintFile
	HintEnum
)

func (h HintKind) String() string {
	switch h {
	case HintBool:
		return "Bool"
	case HintFile:
		return "File"
	case HintEnum:
		return "Enum"
	default:
		return "String"
	}
}

// Hint is the presentation hint of an option. For Enum, Data is the
// comma-separated value domain; for File, a file filter.
type Hint struct {
	Kind HintKind
	Data string
}

// Descriptor describes one option.
type Descriptor struct {
	Key         Key
	Default     any
	Hint        Hint
	Description string
}

// Name returns the flat host form of the descriptor's key.
func (d Descriptor) Name() string { return d.Key.String() }

// Domain returns the allowed values of an Enum option.
func (d Descriptor) Domain() []string {
	if d.Hint.Kind != HintEnum || d.Hint.Data == "" {
		return nil
	}
	return strings.Split(d.Hint.Data, ",")
}
