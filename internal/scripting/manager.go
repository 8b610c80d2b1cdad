package scripting

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoScript is returned when no script is loaded under a key.
var ErrNoScript = errors.New("scripting: no script loaded")

// vm is one loaded script. An LState is single-threaded; mu serializes every
// use of L.
type vm struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	closed bool
}

// Manager owns one sandboxed LState per script key.
//
// Manager is safe for concurrent use. Calls into the same script are
// serialized; different scripts run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no scripts loaded.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		vms:    make(map[string]*vm),
		logger: logger,
	}
}

// Load creates a sandboxed VM for key, registers the importer.* module, and
// executes src as a chunk named key. A previously loaded VM for key is closed
// and replaced.
//
// Precondition: key must be non-empty.
// Postcondition: the script is registered under key; returns error on Lua
// compile or top-level runtime failure.
func (m *Manager) Load(key string, src []byte, instLimit int) error {
	L := NewSandboxedState(instLimit)
	m.RegisterModules(L, key)

	fn, err := L.Load(bytes.NewReader(src), key)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: compiling %q: %w", key, err)
	}
	L.Push(fn)
	if err := L.PCall(0, 0, nil); err != nil {
		L.Close()
		return fmt.Errorf("scripting: running %q: %w", key, err)
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()

	if old != nil {
		old.close()
	}
	return nil
}

// Do runs fn against key's LState with a fresh instruction budget. Calls for
// the same key never overlap.
//
// Postcondition: returns ErrNoScript when key is not loaded, otherwise fn's
// error.
func (m *Manager) Do(key string, fn func(L *lua.LState) error) error {
	m.mu.RLock()
	v, ok := m.vms[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoScript, key)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return fmt.Errorf("%w: %q", ErrNoScript, key)
	}
	cancel := Arm(v.L, v.limit)
	defer cancel()
	return fn(v.L)
}

// Call calls the named Lua global function in key's VM and returns its first
// result. A missing function yields (LNil, nil); runtime errors are returned.
//
// Precondition: args must be valid lua.LValue instances.
func (m *Manager) Call(key, name string, args ...lua.LValue) (lua.LValue, error) {
	ret := lua.LValue(lua.LNil)
	err := m.Do(key, func(L *lua.LState) error {
		fn := L.GetGlobal(name)
		if fn == lua.LNil {
			return nil
		}
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return fmt.Errorf("scripting: calling %s in %q: %w", name, key, err)
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	return ret, err
}

// CallHook is Call for optional hooks: a missing script is logged at Info and
// Lua runtime errors are logged at Warn, and neither is propagated.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(key, hook string, args ...lua.LValue) lua.LValue {
	ret, err := m.Call(key, hook, args...)
	if errors.Is(err, ErrNoScript) {
		m.logger.Info("scripting: no VM for script",
			zap.String("script", key),
			zap.String("hook", hook),
		)
		return lua.LNil
	}
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("script", key),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil
	}
	return ret
}

// HasFunction reports whether key's VM defines a global function name.
func (m *Manager) HasFunction(key, name string) bool {
	found := false
	_ = m.Do(key, func(L *lua.LState) error {
		_, found = L.GetGlobal(name).(*lua.LFunction)
		return nil
	})
	return found
}

// Unload closes and forgets key's VM.
func (m *Manager) Unload(key string) {
	m.mu.Lock()
	v := m.vms[key]
	delete(m.vms, key)
	m.mu.Unlock()
	if v != nil {
		v.close()
	}
}

// Close closes every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.close()
	}
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		v.L.Close()
	}
}
