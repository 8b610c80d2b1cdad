package importer

import "strings"

// NodeName converts an LDtk identifier into a valid Godot node name.
//
// Postcondition: result contains none of . : @ / " % and is idempotent
// (NodeName(NodeName(s)) == NodeName(s)). An empty name yields "_".
func NodeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch r {
		case '.', ':', '@', '/', '"', '%':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
