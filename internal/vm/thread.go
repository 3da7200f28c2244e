package vm

import (
	"fmt"

	"github.com/google/uuid"
)

// frame is one activation record. base indexes the first argument slot
// on the operand stack; the callee value sits at base-1 and is replaced
// by the result when the frame returns.
type frame struct {
	fn     *CompiledFunction
	upvars []Value
	base   int
	ip     int
}

// Thread is a single execution context: its own operand stack, call
// frames and heap over the machine's shared globals. A thread is not
// safe for concurrent use; run each thread from one goroutine.
type Thread struct {
	ID      uuid.UUID
	globals *GlobalState

	gc     *GC
	stack  []Value
	frames []frame
	dead   bool
}

// NewThread creates a thread on g with an empty heap of its own.
func NewThread(g *GlobalState) *Thread {
	return &Thread{
		ID:      uuid.New(),
		globals: g,
		gc:      NewGC(g.cfg.GCThreshold, g.cfg.MemoryLimit),
		stack:   make([]Value, 0, 256),
	}
}

// Close retires the thread and drops its heap. After Close every entry
// point fails with ErrDead.
func (t *Thread) Close() {
	if t.dead {
		return
	}
	t.dead = true
	t.stack = nil
	t.frames = nil
}

// Globals returns the machine the thread runs on.
func (t *Thread) Globals() *GlobalState { return t.globals }

// Traverse reports every heap object reachable from the thread's stack
// and frames.
func (t *Thread) Traverse(visit func(*Object)) {
	for _, v := range t.stack {
		v.Traverse(visit)
	}
	for _, f := range t.frames {
		for _, u := range f.upvars {
			u.Traverse(visit)
		}
	}
}

// Call applies callee to args and runs to completion. On failure the
// stack and frames unwind back to the entry depth and the thread stays
// usable; only Close retires it.
func (t *Thread) Call(callee Value, args ...Value) (Value, error) {
	if t.dead {
		return Value{}, ErrDead
	}
	entryFrames, entryStack := len(t.frames), len(t.stack)
	err := t.Push(callee)
	for i := 0; err == nil && i < len(args); i++ {
		err = t.Push(args[i])
	}
	if err == nil {
		err = t.apply(len(args))
	}
	if err != nil {
		t.frames = t.frames[:entryFrames]
		t.stack = t.stack[:entryStack]
		return Value{}, err
	}
	return t.pop(), nil
}

// Push appends a value to the operand stack, failing once the stack
// limit is reached.
func (t *Thread) Push(v Value) error {
	if len(t.stack) >= t.globals.cfg.MaxStackSize {
		return &StackOverflowError{Limit: t.globals.cfg.MaxStackSize}
	}
	t.stack = append(t.stack, v)
	return nil
}

// StackGet reads the operand stack by absolute index. Extern functions
// use it with their base to read arguments.
func (t *Thread) StackGet(i int) Value { return t.stack[i] }

// StackLen returns the current operand stack depth.
func (t *Thread) StackLen() int { return len(t.stack) }

func (t *Thread) pop() Value {
	v := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return v
}

// Root pins v's heap object for the duration of the returned guard.
// Extern functions holding a VM value across their own allocations must
// root it; scalars come back as an already-released guard.
func (t *Thread) Root(v Value) *Rooted {
	if v.Obj == nil {
		return &Rooted{released: true}
	}
	return t.gc.Root(v.Obj)
}

// Collect forces a collection of the thread's heap.
func (t *Thread) Collect() {
	t.gc.Collect(rootsFunc(t.Traverse))
}

// Allocated returns the thread heap's accounted size in bytes.
func (t *Thread) Allocated() uint64 { return t.gc.Allocated() }

const objectHeaderSize = 16
const valueSize = 16

// alloc moves data onto the thread's heap. The operand stack and frames
// are the collection roots, so values being allocated into must stay
// reachable from them, or from an explicit Root guard, across this call.
func (t *Thread) alloc(data Traverseable, size uint64) (*Object, error) {
	return t.gc.Alloc(data, size, rootsFunc(t.Traverse))
}

// AllocString copies s onto the heap.
func (t *Thread) AllocString(s string) (Value, error) {
	obj, err := t.alloc(&StringData{S: s}, objectHeaderSize+uint64(len(s)))
	if err != nil {
		return Value{}, err
	}
	return Value{Tag: TagString, Obj: obj}, nil
}

// AllocData builds a constructor value. fields must stay reachable from
// a root (typically the operand stack) until the call returns.
func (t *Thread) AllocData(tag uint32, fields []Value) (Value, error) {
	obj, err := t.alloc(&DataValue{VmTag: tag, Fields: fields},
		objectHeaderSize+valueSize*uint64(len(fields)))
	if err != nil {
		return Value{}, err
	}
	return Value{Tag: TagData, Obj: obj}, nil
}

// AllocArray builds an array value; the same reachability rule as
// AllocData applies to elems.
func (t *Thread) AllocArray(elems []Value) (Value, error) {
	obj, err := t.alloc(&ArrayData{Elems: elems},
		objectHeaderSize+valueSize*uint64(len(elems)))
	if err != nil {
		return Value{}, err
	}
	return Value{Tag: TagArray, Obj: obj}, nil
}

// AllocExtern registers a native function as a callable value.
func (t *Thread) AllocExtern(name string, arity int, fn ExternFn) (Value, error) {
	obj, err := t.alloc(&ExternData{Name: name, Arity: arity, Fn: fn}, objectHeaderSize)
	if err != nil {
		return Value{}, err
	}
	return Value{Tag: TagExtern, Obj: obj}, nil
}

// AllocUserdata boxes a foreign value for the heap.
func (t *Thread) AllocUserdata(u Userdata, size uint64) (Value, error) {
	obj, err := t.alloc(&UserdataBox{V: u}, objectHeaderSize+size)
	if err != nil {
		return Value{}, err
	}
	return Value{Tag: TagUserdata, Obj: obj}, nil
}

func (t *Thread) allocClosure(fn *CompiledFunction, upvars []Value) (Value, error) {
	obj, err := t.alloc(&ClosureData{Fn: fn, Upvars: upvars},
		objectHeaderSize+valueSize*uint64(len(upvars)))
	if err != nil {
		return Value{}, err
	}
	return Value{Tag: TagClosure, Obj: obj}, nil
}

// apply runs the callable at stack[len-nargs-1] with the nargs values
// above it, leaving the single result in the callable's slot. Partial
// application and over-application are resolved here, so compiled code
// never needs to know a callee's arity.
func (t *Thread) apply(nargs int) error {
	fnIndex := len(t.stack) - nargs - 1
	callee := t.stack[fnIndex]

	switch callee.Tag {
	case TagClosure:
		clo := callee.Obj.Data.(*ClosureData)
		arity := clo.Fn.Args
		switch {
		case nargs == arity:
			depth := len(t.frames)
			if err := t.pushFrame(fnIndex, clo); err != nil {
				return err
			}
			return t.run(depth)
		case nargs < arity:
			return t.makePartial(fnIndex, nargs)
		default:
			return t.applyExcess(fnIndex, arity, nargs)
		}

	case TagPartial:
		p := callee.Obj.Data.(*PartialData)
		// Splice the stored arguments between the wrapped callable
		// and the fresh ones.
		for range p.Args {
			if err := t.Push(Value{}); err != nil {
				return err
			}
		}
		copy(t.stack[fnIndex+1+len(p.Args):], t.stack[fnIndex+1:fnIndex+1+nargs])
		copy(t.stack[fnIndex+1:], p.Args)
		t.stack[fnIndex] = p.Func
		return t.apply(len(p.Args) + nargs)

	case TagExtern:
		e := callee.Obj.Data.(*ExternData)
		switch {
		case nargs == e.Arity:
			return t.callExtern(fnIndex, e)
		case nargs < e.Arity:
			return t.makePartial(fnIndex, nargs)
		default:
			return t.applyExcess(fnIndex, e.Arity, nargs)
		}

	default:
		return &WrongTypeError{Expected: "function", Actual: callee.Tag.String()}
	}
}

// makePartial packs an under-applied call into a partial-application
// value sitting where the callable was.
func (t *Thread) makePartial(fnIndex, nargs int) error {
	args := make([]Value, nargs)
	copy(args, t.stack[fnIndex+1:])
	obj, err := t.alloc(&PartialData{Func: t.stack[fnIndex], Args: args},
		objectHeaderSize+valueSize*uint64(1+nargs))
	if err != nil {
		return err
	}
	t.stack = t.stack[:fnIndex]
	return t.Push(Value{Tag: TagPartial, Obj: obj})
}

// applyExcess saturates the callable with arity arguments, then applies
// the result to whatever is left over.
func (t *Thread) applyExcess(fnIndex, arity, nargs int) error {
	extra := make([]Value, nargs-arity)
	copy(extra, t.stack[fnIndex+1+arity:])
	// The extras are only reachable from this slice while the inner
	// call runs, so pin them.
	guards := make([]*Rooted, 0, len(extra))
	for _, v := range extra {
		guards = append(guards, t.Root(v))
	}
	defer func() {
		for _, g := range guards {
			g.Release()
		}
	}()
	t.stack = t.stack[:fnIndex+1+arity]
	if err := t.apply(arity); err != nil {
		return err
	}
	for _, v := range extra {
		if err := t.Push(v); err != nil {
			return err
		}
	}
	return t.apply(len(extra))
}

// callExtern invokes a native function. The callee and arguments stay
// on the stack while it runs, then collapse to the single result.
func (t *Thread) callExtern(fnIndex int, e *ExternData) error {
	before := len(t.stack)
	if err := e.Fn(t, fnIndex+1); err != nil {
		return &PanicError{
			Message: fmt.Sprintf("extern %s: %s", e.Name, err),
			Thread:  t.ID.String(),
		}
	}
	if len(t.stack) <= before {
		return &MessageError{Message: "extern " + e.Name + " returned no value"}
	}
	result := t.pop()
	t.stack = t.stack[:fnIndex]
	return t.Push(result)
}

func (t *Thread) pushFrame(fnIndex int, clo *ClosureData) error {
	if len(t.frames) >= t.globals.cfg.MaxCallDepth {
		return &StackOverflowError{Limit: t.globals.cfg.MaxCallDepth}
	}
	base := fnIndex + 1
	if base+clo.Fn.MaxLocals > t.globals.cfg.MaxStackSize {
		return &StackOverflowError{Limit: t.globals.cfg.MaxStackSize}
	}
	for i := clo.Fn.Args; i < clo.Fn.MaxLocals; i++ {
		t.stack = append(t.stack, Value{})
	}
	t.frames = append(t.frames, frame{fn: clo.Fn, upvars: clo.Upvars, base: base})
	return nil
}

// run executes frames until the depth drops back to minDepth, leaving
// the returning frame's result on the stack.
func (t *Thread) run(minDepth int) error {
	for {
		f := &t.frames[len(t.frames)-1]
		if f.ip >= len(f.fn.Instrs) {
			return &MessageError{Message: "instruction pointer ran off the end of " + f.fn.Name}
		}
		instr := f.fn.Instrs[f.ip]
		f.ip++

		switch instr.Op {
		case OpPushInt:
			if err := t.Push(IntValue(f.fn.Ints[instr.A])); err != nil {
				return err
			}
		case OpPushFloat:
			if err := t.Push(FloatValue(f.fn.Floats[instr.A])); err != nil {
				return err
			}
		case OpPushString:
			v, err := t.AllocString(f.fn.Strings[instr.A])
			if err != nil {
				return err
			}
			if err := t.Push(v); err != nil {
				return err
			}
		case OpPush:
			if err := t.Push(t.stack[f.base+int(instr.A)]); err != nil {
				return err
			}
		case OpPushGlobal:
			gl, err := t.globals.GetGlobal(f.fn.Strings[instr.A])
			if err != nil {
				return err
			}
			if err := t.Push(gl.Value); err != nil {
				return err
			}
		case OpStore:
			t.stack[f.base+int(instr.A)] = t.pop()
		case OpPop:
			t.pop()
		case OpSlide:
			top := t.pop()
			t.stack = t.stack[:len(t.stack)-int(instr.A)]
			t.stack = append(t.stack, top)

		case OpJump:
			f.ip = int(instr.A)
		case OpCJump:
			if t.pop().AsInt() != 0 {
				f.ip = int(instr.A)
			}

		case OpCall:
			nargs := int(instr.A)
			fnIndex := len(t.stack) - nargs - 1
			if clo, ok := saturatedClosure(t.stack[fnIndex], nargs); ok {
				if err := t.pushFrame(fnIndex, clo); err != nil {
					return err
				}
			} else if err := t.apply(nargs); err != nil {
				return err
			}
		case OpTailCall:
			nargs := int(instr.A)
			fnIndex := len(t.stack) - nargs - 1
			if clo, ok := saturatedClosure(t.stack[fnIndex], nargs); ok {
				// Reuse the current frame: the callee and its
				// arguments drop into the caller's slot.
				dst := f.base - 1
				copy(t.stack[dst:], t.stack[fnIndex:len(t.stack)])
				t.stack = t.stack[:dst+1+nargs]
				for i := clo.Fn.Args; i < clo.Fn.MaxLocals; i++ {
					t.stack = append(t.stack, Value{})
				}
				f.fn = clo.Fn
				f.upvars = clo.Upvars
				f.ip = 0
			} else {
				if err := t.apply(nargs); err != nil {
					return err
				}
				if done, err := t.returnTop(minDepth); done || err != nil {
					return err
				}
			}
		case OpReturn:
			if done, err := t.returnTop(minDepth); done || err != nil {
				return err
			}

		case OpMakeClosure:
			n := int(instr.B)
			upvars := make([]Value, n)
			copy(upvars, t.stack[len(t.stack)-n:])
			v, err := t.allocClosure(f.fn.Inner[instr.A], upvars)
			if err != nil {
				return err
			}
			t.stack = t.stack[:len(t.stack)-n]
			if err := t.Push(v); err != nil {
				return err
			}
		case OpPushUpvar:
			if err := t.Push(f.upvars[instr.A]); err != nil {
				return err
			}

		case OpConstruct, OpConstructRecord:
			n := int(instr.B)
			fields := make([]Value, n)
			copy(fields, t.stack[len(t.stack)-n:])
			v, err := t.AllocData(uint32(instr.A), fields)
			if err != nil {
				return err
			}
			t.stack = t.stack[:len(t.stack)-n]
			if err := t.Push(v); err != nil {
				return err
			}
		case OpConstructArray:
			n := int(instr.A)
			elems := make([]Value, n)
			copy(elems, t.stack[len(t.stack)-n:])
			v, err := t.AllocArray(elems)
			if err != nil {
				return err
			}
			t.stack = t.stack[:len(t.stack)-n]
			if err := t.Push(v); err != nil {
				return err
			}
		case OpGetOffset:
			d, err := popData(t)
			if err != nil {
				return err
			}
			if err := t.Push(d.Fields[instr.A]); err != nil {
				return err
			}
		case OpGetField:
			d, err := popData(t)
			if err != nil {
				return err
			}
			name := f.fn.Strings[instr.A]
			offset, ok := t.globals.fields.Offset(d.VmTag, name)
			if !ok {
				return &UndefinedFieldError{Field: name}
			}
			if err := t.Push(d.Fields[offset]); err != nil {
				return err
			}
		case OpTestTag:
			top := t.stack[len(t.stack)-1]
			var flag int64
			if top.Tag == TagData && top.Obj.Data.(*DataValue).VmTag == uint32(instr.A) {
				flag = 1
			}
			if err := t.Push(IntValue(flag)); err != nil {
				return err
			}
		case OpSplit:
			d, err := popData(t)
			if err != nil {
				return err
			}
			for _, fv := range d.Fields {
				if err := t.Push(fv); err != nil {
					return err
				}
			}

		case OpAddInt, OpSubInt, OpMulInt, OpDivInt, OpIntLT, OpIntEQ:
			b := t.pop().AsInt()
			a := t.pop().AsInt()
			var r int64
			switch instr.Op {
			case OpAddInt:
				r = a + b
			case OpSubInt:
				r = a - b
			case OpMulInt:
				r = a * b
			case OpDivInt:
				if b == 0 {
					return &MessageError{Message: "integer division by zero"}
				}
				r = a / b
			case OpIntLT:
				r = boolBit(a < b)
			case OpIntEQ:
				r = boolBit(a == b)
			}
			if err := t.Push(IntValue(r)); err != nil {
				return err
			}
		case OpAddFloat, OpSubFloat, OpMulFloat, OpDivFloat, OpFloatLT, OpFloatEQ:
			b := t.pop().AsFloat()
			a := t.pop().AsFloat()
			var v Value
			switch instr.Op {
			case OpAddFloat:
				v = FloatValue(a + b)
			case OpSubFloat:
				v = FloatValue(a - b)
			case OpMulFloat:
				v = FloatValue(a * b)
			case OpDivFloat:
				v = FloatValue(a / b)
			case OpFloatLT:
				v = IntValue(boolBit(a < b))
			case OpFloatEQ:
				v = IntValue(boolBit(a == b))
			}
			if err := t.Push(v); err != nil {
				return err
			}

		default:
			return &MessageError{Message: "unknown opcode " + instr.Op.String()}
		}
	}
}

// returnTop pops the current frame, replacing the callee slot with the
// value on top of the stack. done reports that the run loop's entry
// frame just returned.
func (t *Thread) returnTop(minDepth int) (done bool, err error) {
	result := t.pop()
	f := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]
	t.stack = t.stack[:f.base-1]
	if err := t.Push(result); err != nil {
		return true, err
	}
	return len(t.frames) == minDepth, nil
}

func saturatedClosure(callee Value, nargs int) (*ClosureData, bool) {
	if callee.Tag != TagClosure {
		return nil, false
	}
	clo := callee.Obj.Data.(*ClosureData)
	return clo, clo.Fn.Args == nargs
}

func popData(t *Thread) (*DataValue, error) {
	v := t.pop()
	if v.Tag != TagData {
		return nil, &WrongTypeError{Expected: "data", Actual: v.Tag.String()}
	}
	return v.Obj.Data.(*DataValue), nil
}

func boolBit(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
