// Package meta carries per-binding metadata: doc comments, attributes
// and argument names, propagated alongside type checking so hosts can
// display documentation for any checked symbol.
package meta

// Attribute is a raw source attribute: a name plus an optional argument
// string, uninterpreted by the checker.
type Attribute struct {
	Name string
	Arg  string
}

// Metadata describes one binding. The Module map nests child metadata by
// field name so record construction can propagate field documentation.
type Metadata struct {
	Comment    string
	Attributes []Attribute
	Args       []string
	Module     map[string]*Metadata
}

// HasData reports whether any field is populated.
func (m *Metadata) HasData() bool {
	return m != nil && (m.Comment != "" || len(m.Attributes) > 0 || len(m.Args) > 0 || len(m.Module) > 0)
}

// GetAttribute returns the argument of the first attribute named name.
func (m *Metadata) GetAttribute(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, a := range m.Attributes {
		if a.Name == name {
			return a.Arg, true
		}
	}
	return "", false
}

// Get returns the nested metadata for a field, if any.
func (m *Metadata) Get(field string) (*Metadata, bool) {
	if m == nil {
		return nil, false
	}
	child, ok := m.Module[field]
	return child, ok
}

// Merge folds other into m. The first comment encountered wins,
// attribute lists concatenate, the argument list only replaces an empty
// one, and nested module maps merge key-wise recursively.
func (m *Metadata) Merge(other *Metadata) {
	if other == nil {
		return
	}
	if m.Comment == "" {
		m.Comment = other.Comment
	}
	m.Attributes = append(m.Attributes, other.Attributes...)
	if len(m.Args) == 0 {
		m.Args = other.Args
	}
	for k, v := range other.Module {
		if m.Module == nil {
			m.Module = make(map[string]*Metadata)
		}
		if existing, ok := m.Module[k]; ok {
			existing.Merge(v)
		} else {
			m.Module[k] = v
		}
	}
}
