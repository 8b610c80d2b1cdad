package scene

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// uidNamespace seeds the name-based UUIDs that give every scene path a stable
// Godot uid.
var uidNamespace = uuid.MustParse("6f1c3e0a-5b52-4d8e-9a53-3f0d6c2b7e41")

// UID returns the Godot resource uid for the scene stored at path. The same
// path always yields the same uid.
func UID(path string) string {
	id := uuid.NewSHA1(uidNamespace, []byte(path))
	return "uid://" + strconv.FormatUint(binary.BigEndian.Uint64(id[:8])>>1, 36)
}

// Encoder renders scenes in the Godot text scene format.
type Encoder struct {
	// Localize maps a filesystem path to the path written into ext_resource
	// entries. nil keeps paths unchanged.
	Localize func(path string) string
}

type extResource struct {
	id   string
	path string
}

// Encode renders s, which is to be stored at path.
//
// Precondition: s.Root must be non-nil.
// Postcondition: Returns the same bytes for the same scene and path.
func (e Encoder) Encode(s *Scene, path string) ([]byte, error) {
	if s == nil || s.Root == nil {
		return nil, fmt.Errorf("encoding scene %s: no root node", path)
	}

	var resources []extResource
	ids := make(map[string]string)
	ref := func(target string) string {
		if id, ok := ids[target]; ok {
			return id
		}
		uid := UID(target)
		id := fmt.Sprintf("%d_%s", len(resources)+1, uid[len(uid)-5:])
		ids[target] = id
		resources = append(resources, extResource{id: id, path: target})
		return id
	}
	s.Walk(func(n *Node, _, _ string) {
		if n.Instance != "" {
			ref(n.Instance)
		}
		for _, p := range n.Properties {
			if p.Resource != "" {
				ref(p.Resource)
			}
		}
	})

	var buf bytes.Buffer
	if len(resources) > 0 {
		fmt.Fprintf(&buf, "[gd_scene load_steps=%d format=3 uid=%s]\n", len(resources)+1, String(UID(path)))
	} else {
		fmt.Fprintf(&buf, "[gd_scene format=3 uid=%s]\n", String(UID(path)))
	}
	for _, r := range resources {
		fmt.Fprintf(&buf, "\n[ext_resource type=\"PackedScene\" uid=%s path=%s id=%s]\n",
			String(UID(r.path)), String(e.localize(r.path)), String(r.id))
	}

	var encErr error
	s.Walk(func(n *Node, nodePath, parent string) {
		if encErr != nil {
			return
		}
		fmt.Fprintf(&buf, "\n[node name=%s", String(n.Name))
		if n.Type != "" && n.Instance == "" {
			fmt.Fprintf(&buf, " type=%s", String(n.Type))
		}
		if parent != "" {
			fmt.Fprintf(&buf, " parent=%s", String(parent))
		}
		if n.Instance != "" {
			fmt.Fprintf(&buf, " instance=%s", ExtResource(ids[n.Instance]))
		}
		buf.WriteString("]\n")

		for _, p := range n.Properties {
			value := p.Value
			if p.Resource != "" {
				value = ExtResource(ids[p.Resource])
			}
			fmt.Fprintf(&buf, "%s = %s\n", p.Key, value)
		}
		for _, key := range s.Meta.Keys(nodePath) {
			raw, _ := s.Meta.Get(nodePath, key)
			value, err := JSON(raw)
			if err != nil {
				encErr = fmt.Errorf("encoding metadata %q on node %q: %w", key, nodePath, err)
				return
			}
			fmt.Fprintf(&buf, "metadata/%s = %s\n", key, value)
		}
	})
	if encErr != nil {
		return nil, encErr
	}
	return buf.Bytes(), nil
}

func (e Encoder) localize(path string) string {
	if e.Localize == nil {
		return path
	}
	return e.Localize(path)
}
