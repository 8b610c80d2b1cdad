package options_test

import (
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/ldtk-importer/internal/importer/options"
	"github.com/cory-johannsen/ldtk-importer/internal/importer/postprocess"
	"github.com/cory-johannsen/ldtk-importer/internal/testutil"
)

type fakeProcessors map[postprocess.Stage][]string

func (f fakeProcessors) Paths(stage postprocess.Stage) []string { return f[stage] }

func names(descs []options.Descriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name()
	}
	return out
}

func find(t *testing.T, descs []options.Descriptor, name string) options.Descriptor {
	t.Helper()
	for _, d := range descs {
		if d.Name() == name {
			return d
		}
	}
	t.Fatalf("option %q not found", name)
	return options.Descriptor{}
}

func TestBuilder_Build_GroupOrderAndSorting(t *testing.T) {
	doc := testutil.Standard().Document(t)
	descs := options.NewBuilder(fakeProcessors{}).Build(doc, "/game/maps/world.ldtk")

	assert.Equal(t, []string{
		"General/prefix",
		"World/post_processor",
		"World/WorldScenes",
		"Tileset/add_tileset_definition_to_meta",
		"Tileset/import_LDTK_tile_custom_data",
		"Tileset/Resources/Terrain",
		"Entity/post_processor",
		"Entity/add_entity_definition_to_meta",
		"Entity/add_entity_instance_to_meta",
		"Entity/Scenes/Coin",
		"Entity/Scenes/Player",
		"Level/post_processor",
		"Level/add_level_instance_to_meta",
		"Level/add_layer_instance_to_meta",
		"Level/add_layer_definition_to_meta",
		"Level/import_IntGrid",
		"Level/Scenes/Level_0",
		"Level/Scenes/Level_1",
	}, names(descs))
}

func TestBuilder_Build_Defaults(t *testing.T) {
	doc := testutil.Standard().Document(t)
	descs := options.NewBuilder(fakeProcessors{}).Build(doc, "/game/maps/world.ldtk")

	assert.Equal(t, "LDTK", find(t, descs, "General/prefix").Default)
	assert.Equal(t, filepath.FromSlash("/game/maps/world/world.tscn"), find(t, descs, "World/WorldScenes").Default)
	assert.Equal(t, filepath.FromSlash("/game/maps/world/Tileset/Terrain.tscn"), find(t, descs, "Tileset/Resources/Terrain").Default)
	assert.Equal(t, filepath.FromSlash("/game/maps/world/Entity/Coin.tscn"), find(t, descs, "Entity/Scenes/Coin").Default)
	assert.Equal(t, filepath.FromSlash("/game/maps/world/Level/Level_1.tscn"), find(t, descs, "Level/Scenes/Level_1").Default)
	assert.Equal(t, false, find(t, descs, "Level/import_IntGrid").Default)
	assert.Equal(t, true, find(t, descs, "Level/add_level_instance_to_meta").Default)

	file := find(t, descs, "Entity/Scenes/Player")
	assert.Equal(t, options.HintFile, file.Hint.Kind)
	assert.Equal(t, "*.tscn;Godot Scene", file.Hint.Data)
}

func TestBuilder_Build_ProcessorOptions(t *testing.T) {
	doc := testutil.Standard().Document(t)
	procs := fakeProcessors{
		postprocess.World: {"/p/world_a.lua", "/p/world_b.lua"},
		postprocess.Level: {"/p/level.lua"},
	}
	descs := options.NewBuilder(procs).Build(doc, "/game/world.ldtk")

	world := find(t, descs, "World/post_processor")
	assert.Equal(t, "/p/world_a.lua", world.Default)
	assert.Equal(t, options.HintEnum, world.Hint.Kind)
	assert.Equal(t, []string{"/p/world_a.lua", "/p/world_b.lua"}, world.Domain())

	assert.Equal(t, "/p/level.lua", find(t, descs, "Level/post_processor").Default)

	entity := find(t, descs, "Entity/post_processor")
	assert.Equal(t, "", entity.Default)
	assert.Empty(t, entity.Domain())
}

func TestBuilder_Build_CoinBeforePlayerSingleTerrain(t *testing.T) {
	doc := testutil.NewWorld().Entity("Player").Entity("Coin").Tileset("Terrain").Document(t)
	descs := options.NewBuilder(fakeProcessors{}).Build(doc, "/w.ldtk")

	var entities, tilesets []string
	for _, d := range descs {
		if id, ok := d.Key.Identifier(); ok {
			switch d.Key.Category {
			case options.Entity:
				entities = append(entities, id)
			case options.Tileset:
				tilesets = append(tilesets, id)
			}
		}
	}
	assert.Equal(t, []string{"Coin", "Player"}, entities)
	assert.Equal(t, []string{"Terrain"}, tilesets)
}

func TestBuilder_Build_ConcurrentCallsAgree(t *testing.T) {
	doc := testutil.Standard().Document(t)
	b := options.NewBuilder(fakeProcessors{postprocess.Entity: {"/p/e.lua"}})
	want := b.Build(doc, "/w.ldtk")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, b.Build(doc, "/w.ldtk"))
		}()
	}
	wg.Wait()
}

func TestProperty_BuildIsDeterministicAndSorted(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		w := testutil.NewWorld()
		ids := rapid.SliceOfDistinct(rapid.StringMatching(`[A-Z][a-z_]{0,6}`), rapid.ID[string]).Draw(rt, "ids")
		for _, id := range ids {
			w.Entity(id).Tileset(id).Level(id, 0, 0)
		}
		doc := w.Document(t)
		b := options.NewBuilder(fakeProcessors{})

		first := b.Build(doc, "/maps/w.ldtk")
		second := b.Build(doc, "/maps/w.ldtk")
		if !reflect.DeepEqual(first, second) {
			rt.Fatalf("schema differs between calls")
		}

		last := map[options.Category]string{}
		for _, d := range first {
			id, ok := d.Key.Identifier()
			if !ok {
				continue
			}
			if prev, seen := last[d.Key.Category]; seen && prev >= id {
				rt.Fatalf("%s options not sorted: %q after %q", d.Key.Category, id, prev)
			}
			last[d.Key.Category] = id
		}
	})
}

func TestParseKey(t *testing.T) {
	k, err := options.ParseKey("Entity/Scenes/Coin")
	require.NoError(t, err)
	assert.Equal(t, options.EntityScene("Coin"), k)
	id, ok := k.Identifier()
	assert.True(t, ok)
	assert.Equal(t, "Coin", id)

	_, ok = options.LevelImportIntGrid.Identifier()
	assert.False(t, ok)

	_, err = options.ParseKey("prefix")
	assert.Error(t, err)
	_, err = options.ParseKey("Render/quality")
	assert.Error(t, err)
}

func TestResolve_DefaultsAndOverrides(t *testing.T) {
	doc := testutil.Standard().Document(t)
	schema := options.NewBuilder(fakeProcessors{}).Build(doc, "/w.ldtk")

	r, err := options.Resolve(schema, map[string]any{
		"General/prefix":       "GAME",
		"Level/import_IntGrid": true,
		"Entity/Scenes/Coin":   "/custom/coin.tscn",
		"importer/version":     "ignored",
		"Render/quality":       "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "GAME", r.Prefix())
	assert.Equal(t, "GAME_level", r.MetaKey("level"))
	assert.True(t, r.Bool(options.LevelImportIntGrid))
	assert.True(t, r.Bool(options.EntityAddDefToMeta), "missing keys fall back to defaults")
	assert.Equal(t, "/custom/coin.tscn", r.String(options.EntityScene("Coin")))
	assert.Equal(t, filepath.FromSlash("/w/Entity/Player.tscn"), r.String(options.EntityScene("Player")))
	assert.Equal(t, []string{"Entity/Scenes/Coin", "General/prefix", "Level/import_IntGrid"}, r.Supplied())

	_, ok := r.Value(options.EntityScene("Ghost"))
	assert.False(t, ok)
}

func TestResolve_Violations(t *testing.T) {
	doc := testutil.Standard().Document(t)
	schema := options.NewBuilder(fakeProcessors{}).Build(doc, "/w.ldtk")

	_, err := options.Resolve(schema, map[string]any{
		"Entity/Scenes/Ghost":     "/ghost.tscn",
		"Tileset/Resources/Water": "/water.tscn",
		"Level/import_IntGrid":    "yes",
		"Level/Scenes/Level_0":    "",
		"General/prefix":          "",
		"World/not_an_option":     "x",
		"Entity/post_processor":   false,
	})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `option "Entity/Scenes/Ghost" references unknown entity "Ghost"`)
	assert.Contains(t, msg, `option "Tileset/Resources/Water" references unknown tileset "Water"`)
	assert.Contains(t, msg, `option "Level/import_IntGrid" must be a bool`)
	assert.Contains(t, msg, `option "Level/Scenes/Level_0" must not be empty`)
	assert.Contains(t, msg, `option "General/prefix" must not be empty`)
	assert.Contains(t, msg, `unknown option "World/not_an_option"`)
	assert.Contains(t, msg, `option "Entity/post_processor" must be a string`)
}

func TestResolve_ProcessorMustBeDiscovered(t *testing.T) {
	doc := testutil.Standard().Document(t)
	schema := options.NewBuilder(fakeProcessors{
		postprocess.Level: {"/p/level.lua", "/p/other.lua"},
	}).Build(doc, "/w.ldtk")

	r, err := options.Resolve(schema, map[string]any{"Level/post_processor": "/p/other.lua"})
	require.NoError(t, err)
	assert.Equal(t, "/p/other.lua", r.String(options.LevelPostProcessor))

	r, err = options.Resolve(schema, map[string]any{"Level/post_processor": ""})
	require.NoError(t, err, "an empty selection disables the stage")
	assert.Empty(t, r.String(options.LevelPostProcessor))

	_, err = options.Resolve(schema, map[string]any{
		"Level/post_processor": "/elsewhere/level.lua",
		"World/post_processor": "/p/level.lua",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `option "Level/post_processor" must be one of [/p/level.lua, /p/other.lua], got "/elsewhere/level.lua"`)
	assert.Contains(t, err.Error(), `option "World/post_processor" must be one of [], got "/p/level.lua"`)
}
