package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Processors: ProcessorsConfig{
			Root:             "/project/processors",
			Extension:        ".lua",
			InstructionLimit: 500000,
		},
		Output: OutputConfig{
			SceneExtension: "tscn",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
logging:
  level: debug
  format: json
processors:
  root: /game/processors
  instruction_limit: 2000
output:
  project_root: /game
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/game/processors", cfg.Processors.Root)
	assert.Equal(t, ".lua", cfg.Processors.Extension, "unset keys keep their defaults")
	assert.Equal(t, 2000, cfg.Processors.InstructionLimit)
	assert.Equal(t, "tscn", cfg.Output.SceneExtension)
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "", cfg.Processors.Root)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LDTK_PROCESSORS_ROOT", "/env/processors")
	t.Setenv("LDTK_LOGGING_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/processors", cfg.Processors.Root)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadFromViper(t *testing.T) {
	v := NewViper()
	v.Set("output.scene_extension", "tres")
	_, err := LoadFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.scene_extension")
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateProcessorExtension(t *testing.T) {
	for _, ext := range []string{"", "lua", "."} {
		cfg := validConfig()
		cfg.Processors.Extension = ext
		assert.Error(t, cfg.Validate(), "extension %q should be rejected", ext)
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	cfg.Processors.InstructionLimit = -1
	cfg.Output.SceneExtension = "scn"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "processors.instruction_limit")
	assert.Contains(t, err.Error(), "output.scene_extension")
}

func TestOutputLocalize(t *testing.T) {
	o := OutputConfig{ProjectRoot: filepath.FromSlash("/game")}
	assert.Equal(t, "res://maps/world/Level/Level_0.tscn", o.Localize(filepath.FromSlash("/game/maps/world/Level/Level_0.tscn")))
	assert.Equal(t, filepath.FromSlash("/elsewhere/a.tscn"), o.Localize(filepath.FromSlash("/elsewhere/a.tscn")))
	assert.Equal(t, filepath.FromSlash("/gamer/a.tscn"), o.Localize(filepath.FromSlash("/gamer/a.tscn")))

	assert.Equal(t, "/x.tscn", OutputConfig{}.Localize("/x.tscn"))
}

// Property-based tests

func TestPropertyInstructionLimitNonNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(-1000, 1000000).Draw(t, "limit")
		cfg := validConfig()
		cfg.Processors.InstructionLimit = limit
		err := cfg.Validate()
		if limit >= 0 && err != nil {
			t.Fatalf("valid limit %d rejected: %v", limit, err)
		}
		if limit < 0 && err == nil {
			t.Fatalf("invalid limit %d accepted", limit)
		}
	})
}

func TestPropertyLocalizeStaysUnderRes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 1, 5).Draw(t, "parts")
		o := OutputConfig{ProjectRoot: filepath.FromSlash("/project")}
		path := filepath.Join(append([]string{o.ProjectRoot}, parts...)...)
		got := o.Localize(path)
		assert.Equal(t, "res://"+filepath.ToSlash(filepath.Join(parts...)), got)
	})
}
