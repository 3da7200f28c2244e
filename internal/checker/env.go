// Package checker implements kind inference and bidirectional type
// inference over the expression AST: binding-group collection, recursion
// checking, generalization at let boundaries and metadata propagation.
package checker

import (
	"github.com/benbjohnson/immutable"

	"github.com/lumenlang/lumen/internal/kinds"
	"github.com/lumenlang/lumen/internal/meta"
	"github.com/lumenlang/lumen/internal/symbols"
	"github.com/lumenlang/lumen/internal/types"
)

// Environment is the capability interface through which the checker sees
// already-checked bindings. It is implemented by whatever holds them
// (module table, REPL state, VM globals); the checker consumes it, never
// owns it.
type Environment interface {
	FindType(name symbols.Symbol) (types.Type, bool)
	FindKind(name symbols.Symbol) (kinds.Kind, bool)
	FindTypeInfo(name symbols.Symbol) (*types.AliasData, bool)
	// FindRecord resolves a field-name set to a previously registered
	// record and variant type, for constructor resolution.
	FindRecord(fields []symbols.Symbol) (record, variant types.Type, ok bool)
	// Bool bootstraps the primitive Bool type from the environment.
	Bool() types.Type
}

// EmptyEnv is an Environment with no bindings, usable for tests and for
// checking fully self-contained expressions.
type EmptyEnv struct {
	BoolType types.Type
}

func (e EmptyEnv) FindType(symbols.Symbol) (types.Type, bool)          { return nil, false }
func (e EmptyEnv) FindKind(symbols.Symbol) (kinds.Kind, bool)          { return nil, false }
func (e EmptyEnv) FindTypeInfo(symbols.Symbol) (*types.AliasData, bool) { return nil, false }
func (e EmptyEnv) FindRecord([]symbols.Symbol) (types.Type, types.Type, bool) {
	return nil, nil, false
}
func (e EmptyEnv) Bool() types.Type {
	if e.BoolType != nil {
		return e.BoolType
	}
	return types.OpaqueType
}

// scope is the checker's local binding environment. Persistent maps keep
// scope save/restore O(1): entering a binder saves the map value,
// leaving restores it.
type scope struct {
	vars      *immutable.Map[string, types.Type]
	typeInfos *immutable.Map[string, *types.AliasData]
}

func newScope() scope {
	return scope{
		vars:      immutable.NewMap[string, types.Type](nil),
		typeInfos: immutable.NewMap[string, *types.AliasData](nil),
	}
}

func (s scope) lookupVar(name symbols.Symbol) (types.Type, bool) {
	return s.vars.Get(name.Name())
}

func (s scope) bindVar(name symbols.Symbol, t types.Type) scope {
	s.vars = s.vars.Set(name.Name(), t)
	return s
}

func (s scope) lookupTypeInfo(name symbols.Symbol) (*types.AliasData, bool) {
	return s.typeInfos.Get(name.Name())
}

func (s scope) bindTypeInfo(name symbols.Symbol, data *types.AliasData) scope {
	s.typeInfos = s.typeInfos.Set(name.Name(), data)
	return s
}

// metadataTable accumulates the metadata attached to checked symbols.
type metadataTable map[string]*meta.Metadata

func (mt metadataTable) attach(name symbols.Symbol, m *meta.Metadata) {
	if !m.HasData() {
		return
	}
	if existing, ok := mt[name.Name()]; ok {
		existing.Merge(m)
		return
	}
	mt[name.Name()] = m
}
