// Package testutil provides test helpers for building LDtk worlds and
// inspecting imported output.
package testutil

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cory-johannsen/ldtk-importer/internal/ldtk"
)

// Layer definition uids used by every generated world.
const (
	EntitiesLayerUID   = 1
	CollisionsLayerUID = 2
	GroundLayerUID     = 3
)

type levelSpec struct {
	id       string
	worldX   int
	worldY   int
	entities []string
}

// World builds LDtk project JSON for tests. Definitions keep the order they
// were added in, so tests can check that importers sort them.
type World struct {
	tilesets []string
	entities []string
	levels   []levelSpec
}

// NewWorld returns an empty World.
func NewWorld() *World { return &World{} }

// Tileset adds a 4x2 tileset definition with one custom data entry.
func (w *World) Tileset(id string) *World {
	w.tilesets = append(w.tilesets, id)
	return w
}

// Entity adds a 16x16 entity definition.
func (w *World) Entity(id string) *World {
	w.entities = append(w.entities, id)
	return w
}

// Level adds a 64x32 level placing one instance of each named entity.
func (w *World) Level(id string, worldX, worldY int, entities ...string) *World {
	w.levels = append(w.levels, levelSpec{id: id, worldX: worldX, worldY: worldY, entities: entities})
	return w
}

// JSON renders the world as LDtk project JSON.
func (w *World) JSON() []byte {
	var tilesetUID any
	if len(w.tilesets) > 0 {
		tilesetUID = 10
	}

	tilesets := make([]map[string]any, 0, len(w.tilesets))
	for i, id := range w.tilesets {
		tilesets = append(tilesets, map[string]any{
			"identifier":   id,
			"uid":          10 + i,
			"relPath":      fmt.Sprintf("atlas/%s.png", id),
			"pxWid":        64,
			"pxHei":        32,
			"tileGridSize": 16,
			"spacing":      0,
			"padding":      0,
			"__cWid":       4,
			"__cHei":       2,
			"customData":   []map[string]any{{"tileId": 1, "data": "solid"}},
		})
	}

	entityUIDs := make(map[string]int, len(w.entities))
	entities := make([]map[string]any, 0, len(w.entities))
	for i, id := range w.entities {
		entityUIDs[id] = 20 + i
		entities = append(entities, map[string]any{
			"identifier": id,
			"uid":        20 + i,
			"width":      16,
			"height":     16,
			"color":      "#94D9B3",
			"pivotX":     0.5,
			"pivotY":     1,
			"tilesetId":  nil,
			"tags":       []string{},
		})
	}

	levels := make([]map[string]any, 0, len(w.levels))
	for i, ls := range w.levels {
		uid := 100 + i
		var instances []map[string]any
		for j, e := range ls.entities {
			instances = append(instances, map[string]any{
				"__identifier": e,
				"__grid":       []int{j, 1},
				"__pivot":      []float64{0.5, 1},
				"iid":          fmt.Sprintf("%s-%s-%d", ls.id, e, j),
				"width":        16,
				"height":       16,
				"defUid":       entityUIDs[e],
				"px":           []int{j*16 + 8, 32},
			})
		}
		if instances == nil {
			instances = []map[string]any{}
		}
		var tiles []map[string]any
		if tilesetUID != nil {
			tiles = []map[string]any{{"px": []int{0, 16}, "src": []int{16, 0}, "f": 0, "t": 1}}
		} else {
			tiles = []map[string]any{}
		}
		levels = append(levels, map[string]any{
			"identifier": ls.id,
			"iid":        "iid-" + ls.id,
			"uid":        uid,
			"worldX":     ls.worldX,
			"worldY":     ls.worldY,
			"pxWid":      64,
			"pxHei":      32,
			"__bgColor":  "#40465B",
			"layerInstances": []map[string]any{
				layerInstance("Entities", ldtk.LayerEntities, EntitiesLayerUID, uid, nil, nil, []map[string]any{}, []map[string]any{}, instances),
				layerInstance("Collisions", ldtk.LayerIntGrid, CollisionsLayerUID, uid, tilesetUID, []int{1, 1, 1, 1, 0, 0, 0, 1}, tiles, []map[string]any{}, []map[string]any{}),
				layerInstance("Ground", ldtk.LayerTiles, GroundLayerUID, uid, tilesetUID, []int{}, []map[string]any{}, tiles, []map[string]any{}),
			},
		})
	}

	doc := map[string]any{
		"jsonVersion": "1.5.3",
		"iid":         "world-iid",
		"worldLayout": "Free",
		"defs": map[string]any{
			"layers": []map[string]any{
				{"identifier": "Entities", "uid": EntitiesLayerUID, "type": ldtk.LayerEntities, "gridSize": 16, "tilesetDefUid": nil, "intGridValues": []any{}},
				{"identifier": "Collisions", "uid": CollisionsLayerUID, "type": ldtk.LayerIntGrid, "gridSize": 16, "tilesetDefUid": tilesetUID,
					"intGridValues": []map[string]any{{"value": 1, "identifier": "wall", "color": "#000000"}}},
				{"identifier": "Ground", "uid": GroundLayerUID, "type": ldtk.LayerTiles, "gridSize": 16, "tilesetDefUid": tilesetUID, "intGridValues": []any{}},
			},
			"entities": entities,
			"tilesets": tilesets,
		},
		"levels": levels,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshalling world: %v", err))
	}
	return data
}

func layerInstance(id, typ string, defUID, levelUID int, tilesetUID any, csv []int, auto, grid, entities []map[string]any) map[string]any {
	if csv == nil {
		csv = []int{}
	}
	return map[string]any{
		"__identifier":     id,
		"__type":           typ,
		"__cWid":           4,
		"__cHei":           2,
		"__gridSize":       16,
		"__opacity":        1,
		"__pxTotalOffsetX": 0,
		"__pxTotalOffsetY": 0,
		"__tilesetDefUid":  tilesetUID,
		"__tilesetRelPath": nil,
		"iid":              fmt.Sprintf("%d-%s", levelUID, id),
		"layerDefUid":      defUID,
		"levelId":          levelUID,
		"visible":          true,
		"intGridCsv":       csv,
		"autoLayerTiles":   auto,
		"gridTiles":        grid,
		"entityInstances":  entities,
	}
}

// Document parses the world, failing the test on error.
func (w *World) Document(t testing.TB) *ldtk.Document {
	t.Helper()
	doc, err := ldtk.LoadDocumentFromBytes(w.JSON())
	if err != nil {
		t.Fatalf("testutil: loading generated world: %v", err)
	}
	return doc
}

// Standard returns the world most tests use: tileset Terrain, entities
// Player and Coin, and levels Level_1 and Level_0 listed out of order.
func Standard() *World {
	return NewWorld().
		Tileset("Terrain").
		Entity("Player").
		Entity("Coin").
		Level("Level_1", 64, 0, "Coin").
		Level("Level_0", 0, 0, "Player", "Coin")
}
