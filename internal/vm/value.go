package vm

import (
	"fmt"
	"math"
	"strings"
)

// Tag identifies the kind of value stored in a Value.
type Tag uint8

const (
	TagInt Tag = iota
	TagFloat
	TagString
	TagData
	TagClosure
	TagPartial
	TagExtern
	TagUserdata
	TagArray
)

func (t Tag) String() string {
	switch t {
	case TagInt:
		return "Int"
	case TagFloat:
		return "Float"
	case TagString:
		return "String"
	case TagData:
		return "Data"
	case TagClosure:
		return "Function"
	case TagPartial:
		return "Function"
	case TagExtern:
		return "Extern"
	case TagUserdata:
		return "Userdata"
	case TagArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// Value is a small tagged struct. Ints and floats live inline in Scalar;
// everything else is a reference into GC-owned storage. The stack and
// closures only ever hold references, never independent ownership.
type Value struct {
	Tag    Tag
	Scalar uint64
	Obj    *Object
}

func IntValue(v int64) Value {
	return Value{Tag: TagInt, Scalar: uint64(v)}
}

func FloatValue(v float64) Value {
	return Value{Tag: TagFloat, Scalar: math.Float64bits(v)}
}

func (v Value) AsInt() int64     { return int64(v.Scalar) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.Scalar) }

// AsString extracts the string payload; the boolean is false when the
// value is not a string.
func (v Value) AsString() (string, bool) {
	if v.Tag != TagString || v.Obj == nil {
		return "", false
	}
	s, ok := v.Obj.Data.(*StringData)
	if !ok {
		return "", false
	}
	return s.S, true
}

// Traverse reports the value's outgoing heap reference, if any.
func (v Value) Traverse(visit func(*Object)) {
	if v.Obj != nil {
		visit(v.Obj)
	}
}

// Inspect renders the value for diagnostics.
func (v Value) Inspect() string {
	switch v.Tag {
	case TagInt:
		return fmt.Sprintf("%d", v.AsInt())
	case TagFloat:
		return fmt.Sprintf("%g", v.AsFloat())
	case TagString:
		s, _ := v.AsString()
		return fmt.Sprintf("%q", s)
	case TagData:
		d := v.Obj.Data.(*DataValue)
		if len(d.Fields) == 0 {
			return fmt.Sprintf("<data %d>", d.VmTag)
		}
		parts := make([]string, len(d.Fields))
		for i, f := range d.Fields {
			parts[i] = f.Inspect()
		}
		return fmt.Sprintf("<data %d: %s>", d.VmTag, strings.Join(parts, ", "))
	case TagClosure:
		c := v.Obj.Data.(*ClosureData)
		return fmt.Sprintf("<fn %s>", c.Fn.Name)
	case TagPartial:
		return "<partial fn>"
	case TagExtern:
		e := v.Obj.Data.(*ExternData)
		return fmt.Sprintf("<extern %s>", e.Name)
	case TagUserdata:
		return "<userdata>"
	case TagArray:
		a := v.Obj.Data.(*ArrayData)
		parts := make([]string, len(a.Elems))
		for i, e := range a.Elems {
			parts[i] = e.Inspect()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<?>"
	}
}

// StringData is a heap-allocated string.
type StringData struct {
	S string
}

func (s *StringData) Traverse(func(*Object)) {}

// DataValue is a constructor application or a record. VmTag
// disambiguates which constructor or record layout this is among those
// sharing the representation; for records the tag indexes the FieldMap.
type DataValue struct {
	VmTag  uint32
	Fields []Value
}

func (d *DataValue) Traverse(visit func(*Object)) {
	for _, f := range d.Fields {
		f.Traverse(visit)
	}
}

// ArrayData is a mutable array of values.
type ArrayData struct {
	Elems []Value
}

func (a *ArrayData) Traverse(visit func(*Object)) {
	for _, e := range a.Elems {
		e.Traverse(visit)
	}
}

// ClosureData pairs a compiled function with the values it captured at
// creation time. Captures are by value-reference: upvalues referring to
// heap objects share them with the defining scope.
type ClosureData struct {
	Fn     *CompiledFunction
	Upvars []Value
}

func (c *ClosureData) Traverse(visit func(*Object)) {
	for _, u := range c.Upvars {
		u.Traverse(visit)
	}
}

// PartialData is a function applied to fewer arguments than its arity.
// Supplying the rest later completes the call.
type PartialData struct {
	Func Value
	Args []Value
}

func (p *PartialData) Traverse(visit func(*Object)) {
	p.Func.Traverse(visit)
	for _, a := range p.Args {
		a.Traverse(visit)
	}
}

// ExternFn is the signature of a registered native function. It receives
// the calling thread with its arguments on the stack starting at base,
// and pushes its result before returning. It may allocate through the
// thread's GC and may call back into the VM.
type ExternFn func(t *Thread, base int) error

// ExternData is a registered native function.
type ExternData struct {
	Name  string
	Arity int
	Fn    ExternFn
}

func (e *ExternData) Traverse(func(*Object)) {}

// Userdata is the capability foreign boxed values implement so the
// collector's reachability walk stays total.
type Userdata interface {
	Traverseable
}

// UserdataBox wraps a foreign value for the heap.
type UserdataBox struct {
	V Userdata
}

func (u *UserdataBox) Traverse(visit func(*Object)) {
	u.V.Traverse(visit)
}
