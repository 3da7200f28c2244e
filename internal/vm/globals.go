package vm

import (
	"sync"

	"github.com/benbjohnson/immutable"

	"github.com/lumenlang/lumen/internal/checker"
	"github.com/lumenlang/lumen/internal/config"
	"github.com/lumenlang/lumen/internal/fixed"
	"github.com/lumenlang/lumen/internal/kinds"
	"github.com/lumenlang/lumen/internal/meta"
	"github.com/lumenlang/lumen/internal/symbols"
	"github.com/lumenlang/lumen/internal/types"
)

// Global is a value bound at the top level, together with its static type
// and whatever metadata the checker attached to the defining binding.
type Global struct {
	Name     string
	Typ      types.Type
	Value    Value
	Metadata *meta.Metadata
}

// GlobalState is the part of the machine shared by every thread: the
// global bindings, the registered type information and the record field
// mapping. Bindings and types are insert-only, so snapshots handed to a
// running thread stay valid no matter what other threads define
// afterwards. The state owns its own heap for global values; threads
// each carry their own, so no collection ever crosses a thread boundary.
type GlobalState struct {
	mu sync.Mutex

	interner *symbols.Interner
	cfg      config.Config

	globals   *immutable.Map[string, Global]
	typeInfos *fixed.Map[string, *types.AliasData]
	records   *fixed.Vec[recordInfo]
	metadata  map[string]*meta.Metadata

	fields *FieldMap
	gc     *GC

	loading map[string]bool

	boolType types.Type
}

type recordInfo struct {
	fields  []symbols.Symbol
	record  types.Type
	variant types.Type
}

// NewGlobalState builds an empty machine with the given limits.
func NewGlobalState(interner *symbols.Interner, cfg config.Config) *GlobalState {
	cfg = cfg.Normalize()
	g := &GlobalState{
		interner:  interner,
		cfg:       cfg,
		globals:   immutable.NewMap[string, Global](nil),
		typeInfos: fixed.NewMap[string, *types.AliasData](),
		records:   fixed.NewVec[recordInfo](),
		metadata:  make(map[string]*meta.Metadata),
		fields:    NewFieldMap(),
		loading:   make(map[string]bool),
	}
	g.gc = NewGC(cfg.GCThreshold, cfg.MemoryLimit)
	g.registerBool()
	return g
}

func (g *GlobalState) registerBool() {
	name := g.interner.Intern("Bool")
	data := &types.AliasData{
		Name: name,
		Typ: types.ClosedVariant([]types.Field{
			{Name: g.interner.Intern("False"), Type: types.OpaqueType},
			{Name: g.interner.Intern("True"), Type: types.OpaqueType},
		}),
	}
	g.typeInfos.TryInsert("Bool", data)
	g.boolType = &types.Ident{Name: name}
}

// Config returns the limits the machine was built with.
func (g *GlobalState) Config() config.Config { return g.cfg }

// Fields returns the shared record field mapping.
func (g *GlobalState) Fields() *FieldMap { return g.fields }

// Interner returns the symbol interner shared with the checker.
func (g *GlobalState) Interner() *symbols.Interner { return g.interner }

// DefineGlobal binds name to value. Globals are write-once; a second
// definition fails with GlobalAlreadyExistsError. The value is cloned
// onto the global heap, so a global never references a thread's heap,
// which dies with the thread.
func (g *GlobalState) DefineGlobal(name string, typ types.Type, value Value, md *meta.Metadata) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.globals.Get(name); ok {
		return &GlobalAlreadyExistsError{Name: name}
	}
	cl := globalCloner{g: g, seen: make(map[*Object]*Object)}
	value, err := cl.clone(value)
	if err != nil {
		cl.release()
		return err
	}
	g.globals = g.globals.Set(name, Global{Name: name, Typ: typ, Value: value, Metadata: md})
	cl.release()
	if md != nil && md.HasData() {
		g.metadata[name] = md
	}
	return nil
}

// globalCloner copies a value graph into the global heap. Clones are
// rooted until release, so a collection triggered mid-clone cannot free
// the parts not yet reachable from the globals map. Sharing within the
// graph is preserved through seen; compiled functions and native code
// are plain Go data and stay shared.
type globalCloner struct {
	g      *GlobalState
	seen   map[*Object]*Object
	guards []*Rooted
}

func (c *globalCloner) clone(v Value) (Value, error) {
	if v.Obj == nil || v.Obj.owner == c.g.gc {
		return v, nil
	}
	if copied, ok := c.seen[v.Obj]; ok {
		v.Obj = copied
		return v, nil
	}

	var data Traverseable
	switch d := v.Obj.Data.(type) {
	case *StringData:
		data = &StringData{S: d.S}
	case *DataValue:
		fields, err := c.cloneAll(d.Fields)
		if err != nil {
			return Value{}, err
		}
		data = &DataValue{VmTag: d.VmTag, Fields: fields}
	case *ArrayData:
		elems, err := c.cloneAll(d.Elems)
		if err != nil {
			return Value{}, err
		}
		data = &ArrayData{Elems: elems}
	case *ClosureData:
		upvars, err := c.cloneAll(d.Upvars)
		if err != nil {
			return Value{}, err
		}
		data = &ClosureData{Fn: d.Fn, Upvars: upvars}
	case *PartialData:
		fn, err := c.clone(d.Func)
		if err != nil {
			return Value{}, err
		}
		args, err := c.cloneAll(d.Args)
		if err != nil {
			return Value{}, err
		}
		data = &PartialData{Func: fn, Args: args}
	case *ExternData:
		data = &ExternData{Name: d.Name, Arity: d.Arity, Fn: d.Fn}
	default:
		return Value{}, &MessageError{Message: "cannot define a global holding userdata"}
	}

	obj, err := c.g.gc.Alloc(data, v.Obj.size, rootsFunc(c.g.traverseLocked))
	if err != nil {
		return Value{}, err
	}
	c.seen[v.Obj] = obj
	c.guards = append(c.guards, c.g.gc.Root(obj))
	v.Obj = obj
	return v, nil
}

func (c *globalCloner) cloneAll(vs []Value) ([]Value, error) {
	out := make([]Value, len(vs))
	for i, v := range vs {
		cv, err := c.clone(v)
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func (c *globalCloner) release() {
	for _, gd := range c.guards {
		gd.Release()
	}
}

// GetGlobal returns the binding for name.
func (g *GlobalState) GetGlobal(name string) (Global, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gl, ok := g.globals.Get(name)
	if !ok {
		return Global{}, &UndefinedBindingError{Name: name}
	}
	return gl, nil
}

// GetMetadata returns the metadata attached to a global or registered type.
func (g *GlobalState) GetMetadata(name string) (*meta.Metadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	md, ok := g.metadata[name]
	if !ok {
		return nil, &MetadataDoesNotExistError{Name: name}
	}
	return md, nil
}

// RegisterType publishes a type definition. The returned pointer is
// stable for the life of the machine, so static type references taken by
// already-compiled code never dangle. Re-registering a name fails with
// TypeAlreadyExistsError.
func (g *GlobalState) RegisterType(data *types.AliasData, md *meta.Metadata) (*types.AliasData, error) {
	name := data.Name.Name()
	slot, ok := g.typeInfos.TryInsert(name, data)
	if !ok {
		return nil, &TypeAlreadyExistsError{Name: name}
	}
	if md != nil && md.HasData() {
		g.mu.Lock()
		g.metadata[name] = md
		g.mu.Unlock()
	}
	return *slot, nil
}

// RegisterRecord makes a record type (and the matching variant, if any)
// discoverable by its field set, for checking record literals against
// declared types.
func (g *GlobalState) RegisterRecord(fieldNames []symbols.Symbol, record, variant types.Type) {
	g.records.Push(recordInfo{fields: fieldNames, record: record, variant: variant})
	names := make([]string, len(fieldNames))
	for i, f := range fieldNames {
		names[i] = f.Name()
	}
	g.fields.Tag(names)
}

// StartLoad marks a module as being loaded. Loading the same module
// again before FinishLoad is a cyclic import and fails.
func (g *GlobalState) StartLoad(module string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loading[module] {
		return &MessageError{Message: "cyclic import of module " + module}
	}
	g.loading[module] = true
	return nil
}

// FinishLoad clears the in-progress mark set by StartLoad.
func (g *GlobalState) FinishLoad(module string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.loading, module)
}

// IsLoading reports whether module is between StartLoad and FinishLoad.
func (g *GlobalState) IsLoading(module string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading[module]
}

// Collect forces a full collection of the global heap. Thread heaps are
// collected by their owning threads, never from here.
func (g *GlobalState) Collect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gc.Collect(rootsFunc(g.traverseLocked))
}

// Allocated returns the global heap's accounted size in bytes.
func (g *GlobalState) Allocated() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gc.Allocated()
}

func (g *GlobalState) traverseLocked(visit func(*Object)) {
	itr := g.globals.Iterator()
	for !itr.Done() {
		_, gl, _ := itr.Next()
		gl.Value.Traverse(visit)
	}
}

type rootsFunc func(visit func(*Object))

func (f rootsFunc) Traverse(visit func(*Object)) { f(visit) }

// Env exposes the machine's globals and types to the checker, so code
// checked later sees everything defined earlier.
func (g *GlobalState) Env() checker.Environment { return vmEnv{g} }

type vmEnv struct {
	g *GlobalState
}

func (e vmEnv) FindType(name symbols.Symbol) (types.Type, bool) {
	gl, err := e.g.GetGlobal(name.Name())
	if err != nil {
		return nil, false
	}
	return gl.Typ, true
}

func (e vmEnv) FindKind(name symbols.Symbol) (kinds.Kind, bool) {
	data, ok := e.FindTypeInfo(name)
	if !ok {
		return nil, false
	}
	return data.Kind(), true
}

func (e vmEnv) FindTypeInfo(name symbols.Symbol) (*types.AliasData, bool) {
	slot := e.g.typeInfos.Get(name.Name())
	if slot == nil {
		return nil, false
	}
	return *slot, true
}

func (e vmEnv) FindRecord(fieldNames []symbols.Symbol) (types.Type, types.Type, bool) {
	_, info := e.g.records.Find(func(r *recordInfo) bool {
		if len(r.fields) != len(fieldNames) {
			return false
		}
		for i, f := range r.fields {
			if !f.Eq(fieldNames[i]) {
				return false
			}
		}
		return true
	})
	if info == nil {
		return nil, nil, false
	}
	return info.record, info.variant, true
}

func (e vmEnv) Bool() types.Type { return e.g.boolType }
