package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNotLiteral is returned by CheckLiteral for text Godot cannot read as a
// property value.
var ErrNotLiteral = errors.New("not a Godot literal")

var constructorCall = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\(.*\)$`)

// String returns a quoted Godot string literal.
func String(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// Int returns an integer literal.
func Int(i int) string { return strconv.Itoa(i) }

// Float returns a float literal using the shortest exact form.
func Float(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// Bool returns a boolean literal.
func Bool(b bool) string { return strconv.FormatBool(b) }

// Vector2 returns a Vector2 literal.
func Vector2(x, y float64) string {
	return fmt.Sprintf("Vector2(%s, %s)", Float(x), Float(y))
}

// Vector2i returns a Vector2i literal.
func Vector2i(x, y int) string {
	return fmt.Sprintf("Vector2i(%d, %d)", x, y)
}

// PackedInt32Array returns a PackedInt32Array literal.
func PackedInt32Array(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "PackedInt32Array(" + strings.Join(parts, ", ") + ")"
}

// Color returns a Color literal from an LDtk "#RRGGBB" string. Malformed
// input yields opaque white.
func Color(hex string, alpha float64) string {
	r, g, b := 1.0, 1.0, 1.0
	h := strings.TrimPrefix(hex, "#")
	if len(h) == 6 {
		if v, err := strconv.ParseUint(h, 16, 32); err == nil {
			r = float64((v>>16)&0xff) / 255
			g = float64((v>>8)&0xff) / 255
			b = float64(v&0xff) / 255
		}
	}
	return fmt.Sprintf("Color(%s, %s, %s, %s)", round(r), round(g), round(b), Float(alpha))
}

func round(f float64) string { return strconv.FormatFloat(f, 'f', 4, 64) }

// Dictionary returns a dictionary literal with integer keys in the given
// order.
func Dictionary(keys []int, values map[int]string) string {
	if len(keys) == 0 {
		return "{}"
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d: %s", k, String(values[k]))
	}
	return "{\n" + strings.Join(parts, ",\n") + "\n}"
}

// ExtResource returns a reference to an external resource id.
func ExtResource(id string) string {
	return fmt.Sprintf("ExtResource(%s)", String(id))
}

// JSON returns a compact form of a JSON fragment, which Godot reads as a
// Dictionary or Array literal.
func JSON(raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CheckLiteral reports whether v is a property value a scene file can hold:
// a quoted string (optionally StringName &"" or NodePath ^""), a number,
// true, false, null, an array, a dictionary or a constructor call such as
// Vector2(1, 2).
func CheckLiteral(v string) error {
	switch {
	case v == "true", v == "false", v == "null":
		return nil
	case strings.HasPrefix(v, `"`), strings.HasPrefix(v, `&"`), strings.HasPrefix(v, `^"`):
		if quoted(strings.TrimLeft(v, "&^")) {
			return nil
		}
	case strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]"),
		strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}"),
		constructorCall.MatchString(v):
		return nil
	default:
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNotLiteral, v)
}

// quoted reports whether s is one double-quoted string with every inner
// quote escaped.
func quoted(s string) bool {
	if len(s) < 2 || s[0] != '"' {
		return false
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i == len(s)-1
		}
	}
	return false
}
