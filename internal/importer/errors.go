package importer

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. An ImportError wraps exactly one of these.
var (
	ErrParse      = errors.New("parse error")
	ErrValidation = errors.New("validation error")
	ErrIO         = errors.New("i/o error")
	// ErrProcessorLoad marks a post-processor that could not be loaded. It is
	// logged and skipped, never returned from Run.
	ErrProcessorLoad = errors.New("post-processor load error")
	ErrProcessor     = errors.New("post-processor error")
	// ErrAborted matches any ImportError that skipped later phases.
	ErrAborted = errors.New("import aborted")
)

// Phase names a step of an import.
type Phase string

// Import phases in execution order. PhaseLoad precedes the pipeline proper.
const (
	PhaseLoad       Phase = "Load"
	PhasePreImport  Phase = "PreImport"
	PhaseImport     Phase = "Import"
	PhasePostImport Phase = "PostImport"
	PhaseFinalize   Phase = "Finalize"
)

var pipelinePhases = []Phase{PhasePreImport, PhaseImport, PhasePostImport, PhaseFinalize}

// phasesAfter returns the pipeline phases following p.
func phasesAfter(p Phase) []Phase {
	for i, q := range pipelinePhases {
		if q == p {
			return append([]Phase(nil), pipelinePhases[i+1:]...)
		}
	}
	if p == PhaseLoad {
		return append([]Phase(nil), pipelinePhases...)
	}
	return nil
}

// ImportError reports the phase an import failed in and the phases it
// consequently skipped.
type ImportError struct {
	Phase   Phase
	Skipped []Phase
	Err     error
}

func newImportError(phase Phase, err error) *ImportError {
	return &ImportError{Phase: phase, Skipped: phasesAfter(phase), Err: err}
}

func (e *ImportError) Error() string {
	if len(e.Skipped) == 0 {
		return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
	}
	names := make([]string, len(e.Skipped))
	for i, p := range e.Skipped {
		names[i] = string(p)
	}
	return fmt.Sprintf("%s failed: %v (skipped %s)", e.Phase, e.Err, strings.Join(names, ", "))
}

func (e *ImportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrAborted and later phases were skipped.
func (e *ImportError) Is(target error) bool {
	return target == ErrAborted && len(e.Skipped) > 0
}

// Code is the result code reported to the host.
type Code int

// Result codes.
const (
	OK Code = iota
	CodeParse
	CodeValidation
	CodeIO
	CodeProcessor
	CodeUnknown
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case CodeParse:
		return "ErrParse"
	case CodeValidation:
		return "ErrValidation"
	case CodeIO:
		return "ErrIO"
	case CodeProcessor:
		return "ErrProcessor"
	default:
		return "ErrUnknown"
	}
}

// CodeOf maps an error returned by the importer to its result code.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrParse):
		return CodeParse
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrIO):
		return CodeIO
	case errors.Is(err, ErrProcessor):
		return CodeProcessor
	default:
		return CodeUnknown
	}
}
