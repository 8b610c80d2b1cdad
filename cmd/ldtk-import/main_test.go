package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/ldtk-importer/internal/importer"
	"github.com/cory-johannsen/ldtk-importer/internal/testutil"
)

const levelProcessor = `
function handles(stage) return stage == "Level" end
function apply(stage, node) node.properties.z_index = "2" end
`

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/game/maps/world.ldtk", testutil.Standard().JSON(), 0644))
	require.NoError(t, afero.WriteFile(fs, "/game/processors/level.lua", []byte(levelProcessor), 0644))
	return fs
}

func run(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	out, _, err := runLogged(t, fs, append([]string{"--log-level", "error"}, args...)...)
	return out, err
}

func runLogged(t *testing.T, fs afero.Fs, args ...string) (string, string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := newRootCmd(fs, &out, &logs)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), logs.String(), err
}

func TestOptionsCommand(t *testing.T) {
	fs := newFs(t)
	out, err := run(t, fs, "--processors", "/game/processors", "options", "/game/maps/world.ldtk")
	require.NoError(t, err)

	var entries []optionEntry
	require.NoError(t, yaml.Unmarshal([]byte(out), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "General/prefix", entries[0].Name)

	byName := make(map[string]optionEntry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, []string{"/game/processors/level.lua"}, byName["Level/post_processor"].Values)
	assert.Equal(t, "Enum", byName["Level/post_processor"].Hint)
	assert.Equal(t, "*.tscn;Godot Scene", byName["Entity/Scenes/Coin"].Filter)
	assert.Equal(t, false, byName["Level/import_IntGrid"].Default)
}

func TestImportCommand(t *testing.T) {
	fs := newFs(t)
	require.NoError(t, afero.WriteFile(fs, "/game/options.yaml", []byte(`
General/prefix: GAME
Level/import_IntGrid: true
World/WorldScenes: /game/scenes/world.tscn
`), 0644))

	out, err := run(t, fs,
		"--processors", "/game/processors",
		"--project", "/game",
		"import", "/game/maps/world.ldtk", "--options", "/game/options.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote   /game/scenes/world.tscn")
	assert.Contains(t, out, "import complete: 6 file(s)")

	level := testutil.ReadFile(t, fs, "/game/maps/world/Level/Level_0.tscn")
	assert.Contains(t, level, `[node name="GAME_Level_0" type="Node2D"]`)
	assert.Contains(t, level, "z_index = 2")
	assert.Contains(t, level, `path="res://maps/world/Entity/Player.tscn"`)
	assert.Contains(t, level, `[node name="IntGrid"`)

	exists, err := afero.Exists(fs, "/game/maps/.import/world.tscn")
	require.NoError(t, err)
	assert.True(t, exists, "working scene is written next to the source by default")
}

func TestImportCommand_ValidationError(t *testing.T) {
	fs := newFs(t)
	require.NoError(t, afero.WriteFile(fs, "/game/options.yaml", []byte("Entity/Scenes/Ghost: /ghost.tscn\n"), 0644))

	_, err := run(t, fs, "import", "/game/maps/world.ldtk", "--options", "/game/options.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, importer.ErrValidation))
	assert.Equal(t, int(importer.CodeValidation), exitCode(err))
	assert.Empty(t, testutil.Files(t, fs, "/game/maps/world"))
}

func TestImportCommand_MissingSource(t *testing.T) {
	_, err := run(t, afero.NewMemMapFs(), "import", "/nope.ldtk")
	require.Error(t, err)
	assert.Equal(t, int(importer.CodeIO), exitCode(err))
}

func TestProcessorsCommand(t *testing.T) {
	fs := newFs(t)
	out, err := run(t, fs, "--processors", "/game/processors", "processors", "Level")
	require.NoError(t, err)
	assert.Equal(t, "/game/processors/level.lua\n", out)

	out, err = run(t, fs, "--processors", "/game/processors", "processors", "World")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, fs, "processors", "Tileset")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	fs := newFs(t)
	require.NoError(t, afero.WriteFile(fs, "/etc/ldtk.yaml", []byte(`
processors:
  root: /game/processors
logging:
  level: error
`), 0644))
	out, err := run(t, fs, "--config", "/etc/ldtk.yaml", "processors", "Level")
	require.NoError(t, err)
	assert.Equal(t, "/game/processors/level.lua\n", out)

	_, err = run(t, fs, "--config", "/etc/missing.yaml", "processors", "Level")
	assert.Error(t, err)
}

func TestImportCommand_LogsPhases(t *testing.T) {
	fs := newFs(t)
	_, logs, err := runLogged(t, fs, "--log-level", "info", "import", "/game/maps/world.ldtk")
	require.NoError(t, err)
	assert.Contains(t, logs, "import started")
	assert.Contains(t, logs, `"phase": "PostImport"`)
	assert.Contains(t, logs, "import complete")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("plain")))
	assert.Equal(t, int(importer.CodeProcessor), exitCode(importer.ErrProcessor))
}
