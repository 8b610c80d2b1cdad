package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/ldtk-importer/internal/config"
	"github.com/cory-johannsen/ldtk-importer/internal/importer"
	"github.com/cory-johannsen/ldtk-importer/internal/importer/options"
	"github.com/cory-johannsen/ldtk-importer/internal/importer/postprocess"
	"github.com/cory-johannsen/ldtk-importer/internal/observability"
	"github.com/cory-johannsen/ldtk-importer/internal/scene"
	"github.com/cory-johannsen/ldtk-importer/internal/scripting"
)

// Version information (set at build time)
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(afero.NewOsFs(), os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps an importer error to a non-zero process exit status.
func exitCode(err error) int {
	if code := importer.CodeOf(err); code != importer.OK && code != importer.CodeUnknown {
		return int(code)
	}
	return 1
}

// app holds the state shared by every subcommand.
type app struct {
	fs      afero.Fs
	out     io.Writer
	errOut  io.Writer
	v       *viper.Viper
	cfgPath string
}

// env is the wired importer for one command invocation.
type env struct {
	logger   *zap.Logger
	scripts  *scripting.Manager
	registry *postprocess.Registry
	importer *importer.Importer
}

func (e *env) close() {
	e.scripts.Close()
	_ = e.logger.Sync()
}

func newRootCmd(fs afero.Fs, out, errOut io.Writer) *cobra.Command {
	a := &app{fs: fs, out: out, errOut: errOut, v: config.NewViper()}
	a.v.SetFs(fs)

	root := &cobra.Command{
		Use:           "ldtk-import",
		Short:         "Import LDtk worlds as Godot scenes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to a YAML configuration file")
	flags.String("processors", "", "directory scanned for post-processor scripts")
	flags.String("project", "", "Godot project root; scene paths under it are written as res:// paths")
	flags.String("log-level", "", "minimum log level: debug, info, warn, error")
	for key, flag := range map[string]string{
		"processors.root":     "processors",
		"output.project_root": "project",
		"logging.level":       "log-level",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}

	root.AddCommand(a.optionsCmd(), a.importCmd(), a.processorsCmd())
	return root
}

// setup loads configuration and wires the importer.
func (a *app) setup() (*env, error) {
	if a.cfgPath != "" {
		a.v.SetConfigFile(a.cfgPath)
		if err := a.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	cfg, err := config.LoadFromViper(a.v)
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLoggerTo(cfg.Logging, zapcore.AddSync(a.errOut))
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	scripts := scripting.NewManager(logger)
	ext := strings.ToLower(cfg.Processors.Extension)
	var scanner postprocess.Scanner = postprocess.NewStaticLoader()
	if cfg.Processors.Root != "" {
		scanner = postprocess.NewFileScanner(a.fs, ext)
	}
	loader := postprocess.ExtLoader{ext: postprocess.NewLuaLoader(a.fs, scripts, cfg.Processors.InstructionLimit, logger)}
	registry := postprocess.NewRegistry(cfg.Processors.Root, scanner, loader, logger)

	builder := options.NewBuilder(registry)
	writer := scene.NewWriter(a.fs, scene.Encoder{Localize: cfg.Output.Localize})
	pipeline := importer.NewPipeline(builder, registry, writer, logger)

	return &env{
		logger:   logger,
		scripts:  scripts,
		registry: registry,
		importer: importer.New(importer.NewFileSource(a.fs), builder, pipeline, logger),
	}, nil
}

// optionEntry is the YAML form of an option descriptor.
type optionEntry struct {
	Name        string   `yaml:"name"`
	Default     any      `yaml:"default"`
	Hint        string   `yaml:"hint"`
	Filter      string   `yaml:"filter,omitempty"`
	Values      []string `yaml:"values,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

func (a *app) optionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options <file.ldtk>",
		Short: "Print the import options of an LDtk world as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup()
			if err != nil {
				return err
			}
			defer e.close()

			schema, err := e.importer.Options(args[0])
			if err != nil {
				return err
			}
			entries := make([]optionEntry, len(schema))
			for i, d := range schema {
				entries[i] = optionEntry{
					Name:        d.Name(),
					Default:     d.Default,
					Hint:        d.Hint.Kind.String(),
					Values:      d.Domain(),
					Description: d.Description,
				}
				if d.Hint.Kind == options.HintFile {
					entries[i].Filter = d.Hint.Data
				}
			}

			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(entries); err != nil {
				return fmt.Errorf("encoding options: %w", err)
			}
			return enc.Close()
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	var optionsPath, savePath string
	cmd := &cobra.Command{
		Use:   "import <file.ldtk>",
		Short: "Import an LDtk world",
		Long: `Import an LDtk world, writing tileset, entity, level and world scenes.

Option values are read from a YAML mapping of option names to values, as
printed by the options command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			values, err := a.readValues(optionsPath)
			if err != nil {
				return err
			}
			if savePath == "" {
				savePath = defaultSavePath(source)
			}

			e, err := a.setup()
			if err != nil {
				return err
			}
			defer e.close()

			start := time.Now()
			code, files, err := e.importer.Import(cmd.Context(), source, savePath, values)
			if err != nil {
				return fmt.Errorf("import %s: %s: %w", source, code, err)
			}
			for _, f := range files {
				fmt.Fprintf(a.out, "wrote   %s\n", f)
			}
			fmt.Fprintf(a.out, "import complete: %d file(s) in %s\n", len(files), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&optionsPath, "options", "", "YAML file of option values")
	cmd.Flags().StringVar(&savePath, "save", "", "working path of the world scene, without extension (default <dir>/.import/<name>)")
	return cmd
}

func (a *app) readValues(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading options file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: parsing options file %s: %w", importer.ErrValidation, path, err)
	}
	return values, nil
}

func defaultSavePath(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), ".import", base)
}

func (a *app) processorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "processors <World|Level|Entity>",
		Short: "List the post-processors available for a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := postprocess.ParseStage(args[0])
			if err != nil {
				return err
			}
			e, err := a.setup()
			if err != nil {
				return err
			}
			defer e.close()

			for _, h := range e.registry.Discover(stage) {
				fmt.Fprintln(a.out, h.Path)
			}
			return nil
		},
	}
}
