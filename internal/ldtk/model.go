// Package ldtk holds the read-only in-memory form of an LDtk world document.
//
// Every definition and instance keeps the exact JSON fragment it was decoded
// from in its Raw field so that importers can attach the original data to the
// nodes they generate.
package ldtk

import (
	"encoding/json"
	"sort"
)

// Layer types as written by LDtk in the "type" and "__type" fields.
const (
	LayerEntities  = "Entities"
	LayerIntGrid   = "IntGrid"
	LayerTiles     = "Tiles"
	LayerAutoLayer = "AutoLayer"
)

// Document is a parsed LDtk world.
type Document struct {
	JSONVersion string  `json:"jsonVersion"`
	IID         string  `json:"iid"`
	WorldLayout string  `json:"worldLayout"`
	Defs        Defs    `json:"defs"`
	Levels      []Level `json:"levels"`
}

// Defs holds the reusable definitions shared by all levels.
type Defs struct {
	Layers   []LayerDef   `json:"layers"`
	Entities []EntityDef  `json:"entities"`
	Tilesets []TilesetDef `json:"tilesets"`
}

// LayerDef is the schema of a layer.
type LayerDef struct {
	Identifier    string         `json:"identifier"`
	UID           int            `json:"uid"`
	Type          string         `json:"type"`
	GridSize      int            `json:"gridSize"`
	TilesetDefUID *int           `json:"tilesetDefUid"`
	IntGridValues []IntGridValue `json:"intGridValues"`

	Raw json.RawMessage `json:"-"`
}

// IntGridValue names one integer value of an IntGrid layer.
type IntGridValue struct {
	Value      int    `json:"value"`
	Identifier string `json:"identifier"`
	Color      string `json:"color"`
}

// EntityDef is a reusable entity type.
type EntityDef struct {
	Identifier string   `json:"identifier"`
	UID        int      `json:"uid"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Color      string   `json:"color"`
	PivotX     float64  `json:"pivotX"`
	PivotY     float64  `json:"pivotY"`
	TilesetID  *int     `json:"tilesetId"`
	Tags       []string `json:"tags"`

	Raw json.RawMessage `json:"-"`
}

// TilesetDef is a reusable image grid.
type TilesetDef struct {
	Identifier   string           `json:"identifier"`
	UID          int              `json:"uid"`
	RelPath      *string          `json:"relPath"`
	PxWid        int              `json:"pxWid"`
	PxHei        int              `json:"pxHei"`
	TileGridSize int              `json:"tileGridSize"`
	Spacing      int              `json:"spacing"`
	Padding      int              `json:"padding"`
	CWid         int              `json:"__cWid"`
	CHei         int              `json:"__cHei"`
	CustomData   []TileCustomData `json:"customData"`

	Raw json.RawMessage `json:"-"`
}

// TileCustomData is the free-form user string attached to a single tile.
type TileCustomData struct {
	TileID int    `json:"tileId"`
	Data   string `json:"data"`
}

// Level is one map of the world.
type Level struct {
	Identifier     string          `json:"identifier"`
	IID            string          `json:"iid"`
	UID            int             `json:"uid"`
	WorldX         int             `json:"worldX"`
	WorldY         int             `json:"worldY"`
	PxWid          int             `json:"pxWid"`
	PxHei          int             `json:"pxHei"`
	BgColor        string          `json:"__bgColor"`
	LayerInstances []LayerInstance `json:"layerInstances"`

	Raw json.RawMessage `json:"-"`
}

// LayerInstance is the content of one layer inside a level. LDtk lists them
// top-most first.
type LayerInstance struct {
	Identifier      string           `json:"__identifier"`
	Type            string           `json:"__type"`
	CWid            int              `json:"__cWid"`
	CHei            int              `json:"__cHei"`
	GridSize        int              `json:"__gridSize"`
	Opacity         float64          `json:"__opacity"`
	PxTotalOffsetX  int              `json:"__pxTotalOffsetX"`
	PxTotalOffsetY  int              `json:"__pxTotalOffsetY"`
	TilesetDefUID   *int             `json:"__tilesetDefUid"`
	TilesetRelPath  *string          `json:"__tilesetRelPath"`
	IID             string           `json:"iid"`
	LayerDefUID     int              `json:"layerDefUid"`
	LevelID         int              `json:"levelId"`
	Visible         bool             `json:"visible"`
	IntGridCSV      []int            `json:"intGridCsv"`
	AutoLayerTiles  []Tile           `json:"autoLayerTiles"`
	GridTiles       []Tile           `json:"gridTiles"`
	EntityInstances []EntityInstance `json:"entityInstances"`

	Raw json.RawMessage `json:"-"`
}

// Tiles returns the tiles to draw for the layer regardless of how they were
// authored.
func (li LayerInstance) Tiles() []Tile {
	if li.Type == LayerTiles {
		return li.GridTiles
	}
	return li.AutoLayerTiles
}

// Tile is a single placed tile.
type Tile struct {
	Px  [2]int `json:"px"`
	Src [2]int `json:"src"`
	F   int    `json:"f"`
	T   int    `json:"t"`
}

// EntityInstance is one placed entity.
type EntityInstance struct {
	Identifier string     `json:"__identifier"`
	Grid       [2]int     `json:"__grid"`
	Pivot      [2]float64 `json:"__pivot"`
	IID        string     `json:"iid"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	DefUID     int        `json:"defUid"`
	Px         [2]int     `json:"px"`

	Raw json.RawMessage `json:"-"`
}

func (d *LayerDef) UnmarshalJSON(data []byte) error {
	type plain LayerDef
	if err := json.Unmarshal(data, (*plain)(d)); err != nil {
		return err
	}
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (d *EntityDef) UnmarshalJSON(data []byte) error {
	type plain EntityDef
	if err := json.Unmarshal(data, (*plain)(d)); err != nil {
		return err
	}
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (d *TilesetDef) UnmarshalJSON(data []byte) error {
	type plain TilesetDef
	if err := json.Unmarshal(data, (*plain)(d)); err != nil {
		return err
	}
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (l *Level) UnmarshalJSON(data []byte) error {
	type plain Level
	if err := json.Unmarshal(data, (*plain)(l)); err != nil {
		return err
	}
	l.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (li *LayerInstance) UnmarshalJSON(data []byte) error {
	type plain LayerInstance
	if err := json.Unmarshal(data, (*plain)(li)); err != nil {
		return err
	}
	li.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (e *EntityInstance) UnmarshalJSON(data []byte) error {
	type plain EntityInstance
	if err := json.Unmarshal(data, (*plain)(e)); err != nil {
		return err
	}
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// SortedTilesets returns the tileset definitions ordered by identifier.
func (d *Document) SortedTilesets() []TilesetDef {
	out := append([]TilesetDef(nil), d.Defs.Tilesets...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// SortedEntities returns the entity definitions ordered by identifier.
func (d *Document) SortedEntities() []EntityDef {
	out := append([]EntityDef(nil), d.Defs.Entities...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// SortedLevels returns the levels ordered by identifier.
func (d *Document) SortedLevels() []Level {
	out := append([]Level(nil), d.Levels...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out
}

// TilesetByUID returns the tileset definition with the given uid.
func (d *Document) TilesetByUID(uid int) (TilesetDef, bool) {
	for _, ts := range d.Defs.Tilesets {
		if ts.UID == uid {
			return ts, true
		}
	}
	return TilesetDef{}, false
}

// Entity returns the entity definition with the given identifier.
func (d *Document) Entity(identifier string) (EntityDef, bool) {
	for _, e := range d.Defs.Entities {
		if e.Identifier == identifier {
			return e, true
		}
	}
	return EntityDef{}, false
}

// LayerDefByUID returns the layer definition with the given uid.
func (d *Document) LayerDefByUID(uid int) (LayerDef, bool) {
	for _, l := range d.Defs.Layers {
		if l.UID == uid {
			return l, true
		}
	}
	return LayerDef{}, false
}
