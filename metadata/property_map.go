// Package metadata parses the XML blobs embedded in metadata and sub-block
// segments into a PropertyMap.
//
// Element nesting becomes map nesting, addressed with "/"-joined paths.
// Attributes are stored under "@name" keys so they never clash with child
// elements. Repeated leaf elements collect into a value list; repeated
// container elements get "[n]" suffixes starting at the second occurrence.
package metadata

import (
	"slices"
	"strconv"
	"strings"
)

// AttrPrefix marks keys that came from XML attributes.
const AttrPrefix = "@"

// TextKey holds character data of elements that also have children or attributes.
const TextKey = "#text"

// Property is either a leaf holding one or more values or a nested map.
type Property struct {
	Values []string
	Map    *PropertyMap
}

// IsMap reports whether the property is a nested map.
func (p *Property) IsMap() bool {
	return p.Map != nil
}

// Value returns the first value of a leaf, or "" for maps and empty leaves.
func (p *Property) Value() string {
	if len(p.Values) == 0 {
		return ""
	}

	return p.Values[0]
}

// PropertyMap is a hierarchical key/value map with unique keys per level.
//
// A PropertyMap is not safe for concurrent mutation; concurrent reads are fine.
type PropertyMap struct {
	entries map[string]*Property
}

// New returns an empty map.
func New() *PropertyMap {
	return &PropertyMap{entries: make(map[string]*Property)}
}

// Len returns the number of keys at this level.
func (m *PropertyMap) Len() int {
	if m == nil {
		return 0
	}

	return len(m.entries)
}

// Keys returns the keys at this level in sorted order.
func (m *PropertyMap) Keys() []string {
	if m == nil {
		return nil
	}

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// Get returns the property at path.
func (m *PropertyMap) Get(path string) (*Property, bool) {
	parts := splitPath(path)
	if m == nil || len(parts) == 0 {
		return nil, false
	}

	cur := m
	for i, part := range parts {
		p, ok := cur.entries[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return p, true
		}
		if p.Map == nil {
			return nil, false
		}
		cur = p.Map
	}

	return nil, false
}

// Sub returns the nested map at path.
func (m *PropertyMap) Sub(path string) (*PropertyMap, bool) {
	p, ok := m.Get(path)
	if !ok || p.Map == nil {
		return nil, false
	}

	return p.Map, true
}

// String returns the first value of the leaf at path.
func (m *PropertyMap) String(path string) (string, bool) {
	p, ok := m.Get(path)
	if !ok || p.Map != nil || len(p.Values) == 0 {
		return "", false
	}

	return p.Values[0], true
}

// Int returns the leaf at path parsed as an integer.
func (m *PropertyMap) Int(path string) (int, bool) {
	s, ok := m.String(path)
	if !ok {
		return 0, false
	}

	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}

	return v, true
}

// Set stores values as the leaf at path, creating intermediate maps. An
// existing leaf or map at path is replaced.
func (m *PropertyMap) Set(path string, values ...string) {
	parent, key := m.parentFor(path)
	if parent == nil {
		return
	}

	parent.entries[key] = &Property{Values: values}
}

// SetMap stores sub as the nested map at path.
func (m *PropertyMap) SetMap(path string, sub *PropertyMap) {
	parent, key := m.parentFor(path)
	if parent == nil {
		return
	}

	parent.entries[key] = &Property{Map: sub}
}

func (m *PropertyMap) parentFor(path string) (*PropertyMap, string) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, ""
	}

	cur := m
	for _, part := range parts[:len(parts)-1] {
		p, ok := cur.entries[part]
		if !ok || p.Map == nil {
			p = &Property{Map: New()}
			cur.entries[part] = p
		}
		cur = p.Map
	}

	return cur, parts[len(parts)-1]
}

// Merge copies every property of other into m. Nested maps merge recursively;
// leaves from other replace leaves of m.
func (m *PropertyMap) Merge(other *PropertyMap) {
	if other == nil {
		return
	}

	for key, p := range other.entries {
		existing, ok := m.entries[key]
		if p.Map != nil && ok && existing.Map != nil {
			existing.Map.Merge(p.Map)
			continue
		}
		m.entries[key] = p.clone()
	}
}

// Clone returns a deep copy of m.
func (m *PropertyMap) Clone() *PropertyMap {
	out := New()
	if m == nil {
		return out
	}

	for key, p := range m.entries {
		out.entries[key] = p.clone()
	}

	return out
}

func (p *Property) clone() *Property {
	if p.Map != nil {
		return &Property{Map: p.Map.Clone()}
	}

	return &Property{Values: slices.Clone(p.Values)}
}

// Walk calls fn for every leaf with its full path, in sorted key order.
func (m *PropertyMap) Walk(fn func(path string, values []string)) {
	m.walk("", fn)
}

func (m *PropertyMap) walk(prefix string, fn func(string, []string)) {
	for _, key := range m.Keys() {
		p := m.entries[key]
		path := key
		if prefix != "" {
			path = prefix + "/" + key
		}

		if p.Map != nil {
			p.Map.walk(path, fn)
			continue
		}
		fn(path, p.Values)
	}
}

// add inserts a parsed child element. Repeated leaves append to the value list,
// repeated containers get an indexed key.
func (m *PropertyMap) add(name string, p *Property) {
	existing, ok := m.entries[name]
	if !ok {
		m.entries[name] = p
		return
	}

	if existing.Map == nil && p.Map == nil {
		existing.Values = append(existing.Values, p.Values...)
		return
	}

	for i := 1; ; i++ {
		key := name + "[" + strconv.Itoa(i) + "]"
		if _, taken := m.entries[key]; !taken {
			m.entries[key] = p
			return
		}
	}
}
