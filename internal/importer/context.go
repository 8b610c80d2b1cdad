package importer

import (
	"github.com/cory-johannsen/ldtk-importer/internal/importer/options"
	"github.com/cory-johannsen/ldtk-importer/internal/importer/postprocess"
	"github.com/cory-johannsen/ldtk-importer/internal/ldtk"
	"github.com/cory-johannsen/ldtk-importer/internal/scene"
)

// State tracks how far an import has progressed.
type State int

// Import states. Every run ends in Complete or Failed.
const (
	NotStarted State = iota
	PreImportDone
	ImportDone
	PostImportDone
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case PreImportDone:
		return "PreImportDone"
	case ImportDone:
		return "ImportDone"
	case PostImportDone:
		return "PostImportDone"
	case Complete:
		return "Complete"
	default:
		return "Failed"
	}
}

// GeneratedFileSet is the append-only list of files written by one import,
// in the order they were first written.
type GeneratedFileSet struct {
	paths []string
	seen  map[string]bool
}

// Add records path. Recording a path twice keeps its first position.
func (g *GeneratedFileSet) Add(path string) {
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	if g.seen[path] {
		return
	}
	g.seen[path] = true
	g.paths = append(g.paths, path)
}

// Paths returns a copy of the recorded paths.
func (g *GeneratedFileSet) Paths() []string {
	return append([]string(nil), g.paths...)
}

// Len returns the number of recorded paths.
func (g *GeneratedFileSet) Len() int { return len(g.paths) }

// artifact is a generated scene eligible for post-processing.
type artifact struct {
	identifier string
	path       string
	scene      *scene.Scene
}

// Context is the state of a single import run.
type Context struct {
	Document   *ldtk.Document
	SourcePath string
	SavePath   string
	Options    *options.Resolved
	Files      *GeneratedFileSet
	State      State

	artifacts map[postprocess.Stage][]artifact
}

func newContext(doc *ldtk.Document, sourcePath, savePath string) *Context {
	return &Context{
		Document:   doc,
		SourcePath: sourcePath,
		SavePath:   savePath,
		Files:      &GeneratedFileSet{},
		artifacts:  make(map[postprocess.Stage][]artifact),
	}
}

// WorkingScenePath is where the world scene is written before Finalize
// copies it to World/WorldScenes.
func (c *Context) WorkingScenePath() string {
	return c.SavePath + "." + options.SaveExtension
}

func (c *Context) addArtifact(stage postprocess.Stage, a artifact) {
	c.artifacts[stage] = append(c.artifacts[stage], a)
}
