package importer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/ldtk-importer/internal/importer"
)

func TestNodeName_NoReservedCharacters(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Draw(t, "name")
		got := importer.NodeName(name)
		assert.False(t, strings.ContainsAny(got, `.:@/"%`), "reserved char in %q", got)
		assert.NotEmpty(t, got)
	})
}

func TestNodeName_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Draw(t, "name")
		got := importer.NodeName(name)
		assert.Equal(t, got, importer.NodeName(got))
	})
}

func TestNodeName_KnownValues(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Level_0", "Level_0"},
		{"LDTK_Player", "LDTK_Player"},
		{"a.b/c", "a_b_c"},
		{" Spaced ", "Spaced"},
		{"", "_"},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, importer.NodeName(tc.input))
		})
	}
}
