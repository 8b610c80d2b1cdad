package importer

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cory-johannsen/ldtk-importer/internal/importer/options"
	"github.com/cory-johannsen/ldtk-importer/internal/ldtk"
	"github.com/cory-johannsen/ldtk-importer/internal/scene"
)

// Metadata kinds, stored under "<prefix>_<kind>".
const (
	metaTilesetDefinition = "tilesetDefinition"
	metaEntityDefinition  = "entityDefinition"
	metaEntityInstance    = "entityInstance"
	metaLevel             = "level"
	metaLayerInstance     = "layerInstance"
	metaLayerDefinition   = "layerDefinition"
)

// sceneBuilder turns LDtk definitions into scenes according to resolved
// options.
type sceneBuilder struct {
	doc  *ldtk.Document
	opts *options.Resolved
}

func (b sceneBuilder) rootName(identifier string) string {
	return NodeName(b.opts.Prefix() + "_" + identifier)
}

func (b sceneBuilder) meta(s *scene.Scene, path, kind string, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	s.Meta.Set(path, b.opts.MetaKey(kind), raw)
}

func (b sceneBuilder) tileset(ts ldtk.TilesetDef) *scene.Scene {
	root := scene.NewNode(b.rootName(ts.Identifier), "Node")
	if ts.RelPath != nil {
		root.Set("texture_path", scene.String(*ts.RelPath))
	}
	root.Set("tile_size", scene.Vector2i(ts.TileGridSize, ts.TileGridSize))
	root.Set("grid_size", scene.Vector2i(ts.CWid, ts.CHei))
	root.Set("separation", scene.Vector2i(ts.Spacing, ts.Spacing))
	root.Set("margins", scene.Vector2i(ts.Padding, ts.Padding))

	if b.opts.Bool(options.TilesetImportCustomData) && len(ts.CustomData) > 0 {
		keys := make([]int, 0, len(ts.CustomData))
		values := make(map[int]string, len(ts.CustomData))
		for _, cd := range ts.CustomData {
			if _, dup := values[cd.TileID]; !dup {
				keys = append(keys, cd.TileID)
			}
			values[cd.TileID] = cd.Data
		}
		sort.Ints(keys)
		root.Set("tile_custom_data", scene.Dictionary(keys, values))
	}

	s := scene.New(root)
	if b.opts.Bool(options.TilesetAddMeta) {
		b.meta(s, scene.RootPath, metaTilesetDefinition, ts.Raw)
	}
	return s
}

func (b sceneBuilder) entity(e ldtk.EntityDef) *scene.Scene {
	root := scene.NewNode(b.rootName(e.Identifier), "Node2D")
	root.Set("size", scene.Vector2(float64(e.Width), float64(e.Height)))
	root.Set("pivot", scene.Vector2(e.PivotX, e.PivotY))
	if e.Color != "" {
		root.Set("modulate", scene.Color(e.Color, 1))
	}

	s := scene.New(root)
	if b.opts.Bool(options.EntityAddDefToMeta) {
		b.meta(s, scene.RootPath, metaEntityDefinition, e.Raw)
	}
	return s
}

// level builds a level scene. LDtk lists layers top-most first; they are
// added bottom-most first so later children draw on top.
func (b sceneBuilder) level(lvl ldtk.Level) *scene.Scene {
	root := scene.NewNode(b.rootName(lvl.Identifier), "Node2D")
	s := scene.New(root)
	if b.opts.Bool(options.LevelAddLevelToMeta) {
		b.meta(s, scene.RootPath, metaLevel, lvl.Raw)
	}
	for i := len(lvl.LayerInstances) - 1; i >= 0; i-- {
		b.layer(s, lvl.LayerInstances[i])
	}
	return s
}

func (b sceneBuilder) layer(s *scene.Scene, li ldtk.LayerInstance) {
	typ := "TileMap"
	if li.Type == ldtk.LayerEntities {
		typ = "Node2D"
	}
	node := scene.NewNode(NodeName(li.Identifier), typ)
	s.Root.AddChild(node)
	path := scene.ChildPath(scene.RootPath, node.Name)

	if li.PxTotalOffsetX != 0 || li.PxTotalOffsetY != 0 {
		node.Set("position", scene.Vector2(float64(li.PxTotalOffsetX), float64(li.PxTotalOffsetY)))
	}
	if !li.Visible {
		node.Set("visible", scene.Bool(false))
	}
	if li.Opacity < 1 {
		node.Set("modulate", scene.Color("#FFFFFF", li.Opacity))
	}

	if b.opts.Bool(options.LevelAddLayerToMeta) {
		b.meta(s, path, metaLayerInstance, li.Raw)
	}
	if b.opts.Bool(options.LevelAddLayerDefMeta) {
		if def, ok := b.doc.LayerDefByUID(li.LayerDefUID); ok {
			b.meta(s, path, metaLayerDefinition, def.Raw)
		}
	}

	switch li.Type {
	case ldtk.LayerEntities:
		for i, ei := range li.EntityInstances {
			child := scene.NewInstance(NodeName(fmt.Sprintf("%s_%d", ei.Identifier, i)), b.opts.String(options.EntityScene(ei.Identifier)))
			child.Set("position", scene.Vector2(float64(ei.Px[0]), float64(ei.Px[1])))
			node.AddChild(child)
			if b.opts.Bool(options.EntityAddInstToMeta) {
				b.meta(s, scene.ChildPath(path, child.Name), metaEntityInstance, ei.Raw)
			}
		}
	default:
		b.tiles(node, li)
		if li.Type == ldtk.LayerIntGrid && b.opts.Bool(options.LevelImportIntGrid) && len(li.IntGridCSV) > 0 {
			grid := scene.NewNode("IntGrid", "Node2D")
			grid.Set("grid_size", scene.Vector2i(li.CWid, li.CHei))
			grid.Set("cell_size", scene.Vector2i(li.GridSize, li.GridSize))
			grid.Set("values", scene.PackedInt32Array(li.IntGridCSV))
			node.AddChild(grid)
		}
	}
}

// tiles attaches the layer's tiles as a flat array of
// (cell x, cell y, atlas x, atlas y, flip) tuples.
func (b sceneBuilder) tiles(node *scene.Node, li ldtk.LayerInstance) {
	tiles := li.Tiles()
	if len(tiles) == 0 || li.TilesetDefUID == nil || li.GridSize <= 0 {
		return
	}
	ts, ok := b.doc.TilesetByUID(*li.TilesetDefUID)
	if !ok || ts.TileGridSize <= 0 {
		return
	}

	data := make([]int, 0, len(tiles)*5)
	for _, t := range tiles {
		data = append(data,
			t.Px[0]/li.GridSize, t.Px[1]/li.GridSize,
			t.Src[0]/ts.TileGridSize, t.Src[1]/ts.TileGridSize,
			t.F)
	}
	node.SetResource("tileset", b.opts.String(options.TilesetResource(ts.Identifier)))
	node.Set("cell_size", scene.Vector2i(li.GridSize, li.GridSize))
	node.Set("tile_data", scene.PackedInt32Array(data))
}

// world builds the world scene, instancing every level at its world
// position.
func (b sceneBuilder) world(base string) *scene.Scene {
	root := scene.NewNode(b.rootName(base), "Node2D")
	for _, lvl := range b.doc.SortedLevels() {
		child := scene.NewInstance(NodeName(lvl.Identifier), b.opts.String(options.LevelScene(lvl.Identifier)))
		child.Set("position", scene.Vector2(float64(lvl.WorldX), float64(lvl.WorldY)))
		root.AddChild(child)
	}
	return scene.New(root)
}
