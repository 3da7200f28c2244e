package types

import "github.com/lumenlang/lumen/internal/symbols"

// FlatRow is the flattened view of a row chain: all fields in declaration
// order plus the terminating tail (EmptyRow or an unbound Var).
type FlatRow struct {
	Fields []Field
	Tail   Type
}

// Closed reports whether the row has no tail variable.
func (r FlatRow) Closed() bool {
	_, ok := r.Tail.(*EmptyRow)
	return ok
}

// Lookup finds a field by name.
func (r FlatRow) Lookup(name symbols.Symbol) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name.Eq(name) {
			return f, true
		}
	}
	return Field{}, false
}

// FlattenRow walks a chain of ExtendRow nodes, resolving variable tails
// through the substitution, and returns all fields plus the final tail.
// The second return value names the first duplicated field, if any.
func FlattenRow(s *Subst, row Type) (FlatRow, *symbols.Symbol) {
	var out FlatRow
	seen := make(map[symbols.Symbol]struct{})
	var dup *symbols.Symbol
	rest := s.Resolve(row)
	for {
		ext, ok := rest.(*ExtendRow)
		if !ok {
			break
		}
		for _, f := range ext.Fields {
			if _, exists := seen[f.Name]; exists && dup == nil {
				name := f.Name
				dup = &name
			}
			seen[f.Name] = struct{}{}
			out.Fields = append(out.Fields, f)
		}
		rest = s.Resolve(ext.Rest)
	}
	out.Tail = rest
	return out, dup
}

// RowFields is a convenience over FlattenRow for callers that only need
// the fields of a record or variant type.
func RowFields(s *Subst, t Type) ([]Field, bool) {
	switch tt := s.Resolve(t).(type) {
	case *Record:
		flat, _ := FlattenRow(s, tt.Row)
		return flat.Fields, true
	case *Variant:
		flat, _ := FlattenRow(s, tt.Row)
		return flat.Fields, true
	default:
		return nil, false
	}
}

// SingletonRecord builds an open record type containing exactly one
// field, used when inferring field access on a still-unknown type.
func SingletonRecord(name symbols.Symbol, fieldType Type, tail Type) Type {
	return NewRecord(NewExtendRow([]Field{{Name: name, Type: fieldType}}, tail))
}

// ClosedRecord builds a record with exactly the given fields.
func ClosedRecord(fields []Field) Type {
	return NewRecord(NewExtendRow(fields, EmptyRowV))
}

// ClosedVariant builds a variant with exactly the given constructors.
func ClosedVariant(fields []Field) Type {
	return NewVariant(NewExtendRow(fields, EmptyRowV))
}
