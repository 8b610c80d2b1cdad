package postprocess

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/afero"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/ldtk-importer/internal/scene"
	"github.com/cory-johannsen/ldtk-importer/internal/scripting"
)

// LuaLoader loads post-processors written in Lua. A script must define two
// global functions:
//
//	function handles(stage) return stage == "Level" end
//	function apply(stage, node)
//		node.properties.z_index = 1
//		node.properties.label = '"hello"'
//		node.properties.scale = "Vector2(2, 2)"
//	end
//
// apply receives the scene root as a table with fields name, type, instance,
// properties (key -> Godot literal), resources (key -> scene path), meta
// (key -> JSON string or Lua value) and children (array of node tables). The
// table is mutated in place; returning a table replaces the root instead.
// Lua numbers and booleans assigned to properties are converted; strings must
// already be literals, so text keeps its quotes.
type LuaLoader struct {
	fs        afero.Fs
	scripts   *scripting.Manager
	instLimit int
	logger    *zap.Logger
}

// NewLuaLoader constructs a LuaLoader.
//
// Precondition: fs, scripts and logger must be non-nil.
// Postcondition: returns a non-nil LuaLoader.
func NewLuaLoader(fs afero.Fs, scripts *scripting.Manager, instLimit int, logger *zap.Logger) *LuaLoader {
	return &LuaLoader{fs: fs, scripts: scripts, instLimit: instLimit, logger: logger}
}

// Load reads and runs the script at path and checks it implements the
// processor contract.
func (l *LuaLoader) Load(path string) (Processor, error) {
	src, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := l.scripts.Load(path, src, l.instLimit); err != nil {
		return nil, err
	}
	for _, fn := range []string{"handles", "apply"} {
		if !l.scripts.HasFunction(path, fn) {
			l.scripts.Unload(path)
			return nil, fmt.Errorf("%w: %s does not define %s", ErrNotProcessor, path, fn)
		}
	}
	return &luaProcessor{key: path, scripts: l.scripts}, nil
}

type luaProcessor struct {
	key     string
	scripts *scripting.Manager
}

func (p *luaProcessor) Handles(stage Stage) bool {
	return lua.LVAsBool(p.scripts.CallHook(p.key, "handles", lua.LString(stage.String())))
}

func (p *luaProcessor) Apply(stage Stage, s *scene.Scene) error {
	return p.scripts.Do(p.key, func(L *lua.LState) error {
		root := nodeToTable(L, s, s.Root, scene.RootPath)
		if err := L.CallByParam(lua.P{
			Fn:      L.GetGlobal("apply"),
			NRet:    1,
			Protect: true,
		}, lua.LString(stage.String()), root); err != nil {
			return fmt.Errorf("running %s apply for %s: %w", p.key, stage, err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		if tbl, ok := ret.(*lua.LTable); ok {
			root = tbl
		}

		meta := make(scene.Metadata)
		node, err := tableToNode(root, s, scene.RootPath, meta)
		if err != nil {
			return fmt.Errorf("%s returned an invalid scene: %w", p.key, err)
		}
		s.Root = node
		s.Meta = meta
		return nil
	})
}

func nodeToTable(L *lua.LState, s *scene.Scene, n *scene.Node, path string) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "name", lua.LString(n.Name))
	L.SetField(t, "type", lua.LString(n.Type))
	L.SetField(t, "instance", lua.LString(n.Instance))

	props := L.NewTable()
	resources := L.NewTable()
	for _, p := range n.Properties {
		if p.Resource != "" {
			L.SetField(resources, p.Key, lua.LString(p.Resource))
		} else {
			L.SetField(props, p.Key, lua.LString(p.Value))
		}
	}
	L.SetField(t, "properties", props)
	L.SetField(t, "resources", resources)

	meta := L.NewTable()
	for _, key := range s.Meta.Keys(path) {
		raw, _ := s.Meta.Get(path, key)
		L.SetField(meta, key, lua.LString(raw))
	}
	L.SetField(t, "meta", meta)

	children := L.NewTable()
	for _, c := range n.Children {
		children.Append(nodeToTable(L, s, c, scene.ChildPath(path, c.Name)))
	}
	L.SetField(t, "children", children)
	return t
}

// tableToNode rebuilds a node from its table form. Properties that existed
// before the script ran keep their original order; new ones follow sorted by
// key.
func tableToNode(t *lua.LTable, orig *scene.Scene, path string, meta scene.Metadata) (*scene.Node, error) {
	name := lua.LVAsString(t.RawGetString("name"))
	if name == "" {
		return nil, fmt.Errorf("node at %q has no name", path)
	}
	n := &scene.Node{
		Name:     name,
		Type:     lua.LVAsString(t.RawGetString("type")),
		Instance: lua.LVAsString(t.RawGetString("instance")),
	}
	if n.Type == "" && n.Instance == "" {
		return nil, fmt.Errorf("node %q needs a type or an instance", path)
	}

	values, err := propertyMap(t.RawGetString("properties"), path)
	if err != nil {
		return nil, err
	}
	resources := stringMap(t.RawGetString("resources"))
	var order []string
	if o := orig.Find(path); o != nil {
		for _, p := range o.Properties {
			order = append(order, p.Key)
		}
	}
	seen := make(map[string]bool)
	for _, k := range order {
		seen[k] = true
	}
	var added []string
	for k := range values {
		if !seen[k] {
			added = append(added, k)
			seen[k] = true
		}
	}
	for k := range resources {
		if !seen[k] {
			added = append(added, k)
			seen[k] = true
		}
	}
	sort.Strings(added)
	for _, k := range append(order, added...) {
		if r, ok := resources[k]; ok {
			n.SetResource(k, r)
		} else if v, ok := values[k]; ok {
			n.Set(k, v)
		}
	}

	if mt, ok := t.RawGetString("meta").(*lua.LTable); ok {
		mt.ForEach(func(k, v lua.LValue) {
			if err != nil {
				return
			}
			var raw json.RawMessage
			raw, err = metaValue(v)
			if err != nil {
				err = fmt.Errorf("metadata %q on %q: %w", k.String(), path, err)
				return
			}
			meta.Set(path, k.String(), raw)
		})
		if err != nil {
			return nil, err
		}
	}

	if ct, ok := t.RawGetString("children").(*lua.LTable); ok {
		for i := 1; i <= ct.Len(); i++ {
			childTable, ok := ct.RawGetInt(i).(*lua.LTable)
			if !ok {
				return nil, fmt.Errorf("child %d of %q is not a table", i, path)
			}
			childName := lua.LVAsString(childTable.RawGetString("name"))
			child, err := tableToNode(childTable, orig, scene.ChildPath(path, childName), meta)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	}
	return n, nil
}

// propertyMap converts a properties table into Godot literals. Numbers and
// booleans are converted; strings must already be literals.
func propertyMap(v lua.LValue, path string) (map[string]string, error) {
	out := make(map[string]string)
	t, ok := v.(*lua.LTable)
	if !ok {
		return out, nil
	}
	var err error
	t.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		switch v := v.(type) {
		case lua.LNumber:
			out[k.String()] = scene.Float(float64(v))
		case lua.LBool:
			out[k.String()] = scene.Bool(bool(v))
		case lua.LString:
			if cerr := scene.CheckLiteral(string(v)); cerr != nil {
				err = fmt.Errorf("property %q on %q: %w (quote text as '\"text\"')", k.String(), path, cerr)
				return
			}
			out[k.String()] = string(v)
		default:
			if v != lua.LNil {
				err = fmt.Errorf("property %q on %q: unsupported %s value", k.String(), path, v.Type())
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func stringMap(v lua.LValue) map[string]string {
	out := make(map[string]string)
	if t, ok := v.(*lua.LTable); ok {
		t.ForEach(func(k, v lua.LValue) {
			if v != lua.LNil {
				out[k.String()] = v.String()
			}
		})
	}
	return out
}

// metaValue turns a metadata value from Lua into JSON. Strings must already
// hold JSON; other values are converted.
func metaValue(v lua.LValue) (json.RawMessage, error) {
	if s, ok := v.(lua.LString); ok {
		if !json.Valid([]byte(s)) {
			return nil, fmt.Errorf("string value is not JSON")
		}
		return json.RawMessage(s), nil
	}
	data, err := json.Marshal(luaToGo(v))
	if err != nil {
		return nil, err
	}
	return data, nil
}

func luaToGo(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if n := v.Len(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, luaToGo(v.RawGetInt(i)))
			}
			return arr
		}
		obj := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) { obj[k.String()] = luaToGo(val) })
		return obj
	default:
		return nil
	}
}
