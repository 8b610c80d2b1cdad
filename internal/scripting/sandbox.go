// Package scripting provides a sandboxed GopherLua execution environment for
// post-processor scripts. It has no dependency on importer packages; callers
// exchange data with scripts through Manager.Do.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of a single post-processor call
// when processors.instruction_limit is zero.
const DefaultInstructionLimit = 1_000_000

// strippedGlobals reach the filesystem or the module loader.
var strippedGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// opBudget is a context the VM polls once per opcode. It cancels itself when
// the polls outnumber its budget.
type opBudget struct {
	context.Context
	stop context.CancelFunc
	left atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.stop()
	}
	return b.Context.Done()
}

// NewSandboxedState returns an LState for running untrusted post-processors,
// armed with a budget of instLimit opcodes. Scripts see the base, table,
// string and math libraries minus strippedGlobals.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: the caller owns the LState and closes it.
func NewSandboxedState(instLimit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	Arm(L, instLimit)
	return L
}

// Arm replaces the opcode budget of L with a fresh one of instLimit opcodes.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: the returned cancel releases the budget.
func Arm(L *lua.LState, instLimit int) context.CancelFunc {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	b := &opBudget{}
	b.Context, b.stop = context.WithCancel(context.Background())
	b.left.Store(int64(instLimit))
	L.SetContext(b)
	return b.stop
}
