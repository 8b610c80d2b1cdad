package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the importer.* Lua table into L. importer.log
// and importer.warn write to the Manager's logger tagged with key.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: importer global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState, key string) {
	mod := L.NewTable()
	L.SetField(mod, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Info(L.CheckString(1), zap.String("script", key))
		return 0
	}))
	L.SetField(mod, "warn", L.NewFunction(func(L *lua.LState) int {
		m.logger.Warn(L.CheckString(1), zap.String("script", key))
		return 0
	}))
	L.SetGlobal("importer", mod)
}
