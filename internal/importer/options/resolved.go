package options

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Resolved is a set of option values checked against a schema. Options the
// host did not supply read as their descriptor default.
type Resolved struct {
	schema map[Key]Descriptor
	values map[Key]any
}

// Resolve checks values, keyed by flat option name, against schema.
//
// Keys whose category is not an option category are ignored. Keys naming a
// tileset, entity or level that is not in the schema, unknown option names,
// and values of the wrong type are violations.
//
// Postcondition: Returns a Resolved, or an error describing all violations.
func Resolve(schema []Descriptor, values map[string]any) (*Resolved, error) {
	r := &Resolved{
		schema: make(map[Key]Descriptor, len(schema)),
		values: make(map[Key]any, len(values)),
	}
	for _, d := range schema {
		r.schema[d.Key] = d
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []string
	for _, name := range names {
		key, err := ParseKey(name)
		if err != nil {
			continue
		}
		d, ok := r.schema[key]
		if !ok {
			if id, isID := key.Identifier(); isID {
				errs = append(errs, fmt.Sprintf("option %q references unknown %s %q", name, strings.ToLower(string(key.Category)), id))
			} else {
				errs = append(errs, fmt.Sprintf("unknown option %q", name))
			}
			continue
		}
		if err := checkValue(d, values[name]); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		r.values[key] = values[name]
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return r, nil
}

func checkValue(d Descriptor, v any) error {
	switch d.Hint.Kind {
	case HintBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("option %q must be a bool, got %T", d.Name(), v)
		}
	default:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("option %q must be a string, got %T", d.Name(), v)
		}
		if d.Hint.Kind == HintFile && s == "" {
			return fmt.Errorf("option %q must not be empty", d.Name())
		}
		if d.Key == Prefix && s == "" {
			return fmt.Errorf("option %q must not be empty", d.Name())
		}
		if d.Hint.Kind == HintEnum && s != "" && !slices.Contains(d.Domain(), s) {
			return fmt.Errorf("option %q must be one of [%s], got %q", d.Name(), strings.Join(d.Domain(), ", "), s)
		}
	}
	return nil
}

// Value returns the value of key, falling back to the schema default.
func (r *Resolved) Value(key Key) (any, bool) {
	if v, ok := r.values[key]; ok {
		return v, true
	}
	d, ok := r.schema[key]
	if !ok {
		return nil, false
	}
	return d.Default, true
}

// String returns a string option, or "" when key is unknown.
func (r *Resolved) String(key Key) string {
	v, _ := r.Value(key)
	s, _ := v.(string)
	return s
}

// Bool returns a bool option, or false when key is unknown.
func (r *Resolved) Bool(key Key) bool {
	v, _ := r.Value(key)
	b, _ := v.(bool)
	return b
}

// Prefix returns General/prefix.
func (r *Resolved) Prefix() string { return r.String(Prefix) }

// MetaKey returns "<prefix>_<kind>", the metadata key for a kind of source
// fragment.
func (r *Resolved) MetaKey(kind string) string { return r.Prefix() + "_" + kind }

// Supplied returns the flat names of the options the host supplied, sorted.
func (r *Resolved) Supplied() []string {
	out := make([]string, 0, len(r.values))
	for k := range r.values {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out
}
