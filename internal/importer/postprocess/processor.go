// Package postprocess discovers and loads post-processors: plugins that
// mutate generated scenes for one or more import stages.
package postprocess

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/ldtk-importer/internal/scene"
)

// Stage is the kind of generated artifact a post-processor is applied to.
type Stage int

// Stages, in the order the importer runs them.
const (
	World Stage = iota + 1
	Level
	Entity
)

// Stages lists every stage.
var Stages = []Stage{World, Level, Entity}

func (s Stage) String() string {
	switch s {
	case World:
		return "World"
	case Level:
		return "Level"
	case Entity:
		return "Entity"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// ParseStage converts a stage name into a Stage.
func ParseStage(name string) (Stage, error) {
	for _, s := range Stages {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q (supported: World, Level, Entity)", name)
}

var (
	// ErrNotProcessor is returned when a resource does not implement the
	// post-processor contract.
	ErrNotProcessor = errors.New("resource is not a post-processor")
	// ErrStageMismatch is returned when a processor does not handle the
	// requested stage.
	ErrStageMismatch = errors.New("post-processor does not handle stage")
)

// Processor is a post-processor plugin.
type Processor interface {
	// Handles reports whether the processor applies to stage.
	Handles(stage Stage) bool
	// Apply mutates s, a generated artifact of the given stage, in place.
	Apply(stage Stage, s *scene.Scene) error
}

// Func adapts a Go function into a Processor handling the listed stages.
type Func struct {
	Stages []Stage
	Fn     func(stage Stage, s *scene.Scene) error
}

// Handles reports whether stage is listed.
func (f Func) Handles(stage Stage) bool {
	for _, s := range f.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Apply calls Fn.
func (f Func) Apply(stage Stage, s *scene.Scene) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(stage, s)
}

// Handle is a discovered processor and the path it was loaded from.
type Handle struct {
	Path      string
	Processor Processor
}
