package vm

import (
	"errors"
	"sync"
	"testing"

	"github.com/lumenlang/lumen/internal/config"
	"github.com/lumenlang/lumen/internal/symbols"
)

func newTestState(cfg config.Config) *GlobalState {
	return NewGlobalState(symbols.NewInterner(), cfg)
}

func mustClosure(t *testing.T, th *Thread, fn *CompiledFunction) Value {
	t.Helper()
	v, err := th.allocClosure(fn, nil)
	if err != nil {
		t.Fatalf("alloc closure: %v", err)
	}
	return v
}

func TestCallArithmetic(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	add := &CompiledFunction{
		Name:      "add",
		Args:      2,
		MaxLocals: 2,
		Instrs: []Instr{
			{Op: OpPush, A: 0},
			{Op: OpPush, A: 1},
			{Op: OpAddInt},
			{Op: OpReturn},
		},
	}
	got, err := th.Call(mustClosure(t, th, add), IntValue(40), IntValue(2))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("result = %d, want 42", got.AsInt())
	}
	if th.StackLen() != 0 {
		t.Fatalf("stack not empty after call: %d", th.StackLen())
	}
}

func TestFloatOps(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	half := &CompiledFunction{
		Name:      "half",
		Args:      1,
		MaxLocals: 1,
		Floats:    []float64{2.0},
		Instrs: []Instr{
			{Op: OpPush, A: 0},
			{Op: OpPushFloat, A: 0},
			{Op: OpDivFloat},
			{Op: OpReturn},
		},
	}
	got, err := th.Call(mustClosure(t, th, half), FloatValue(5.0))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got.AsFloat() != 2.5 {
		t.Fatalf("result = %v, want 2.5", got.AsFloat())
	}
}

func TestDivisionByZero(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)

	div := &CompiledFunction{
		Name:      "div",
		Args:      2,
		MaxLocals: 2,
		Instrs: []Instr{
			{Op: OpPush, A: 0},
			{Op: OpPush, A: 1},
			{Op: OpDivInt},
			{Op: OpReturn},
		},
	}
	clo := mustClosure(t, th, div)
	if _, err := th.Call(clo, IntValue(1), IntValue(0)); err == nil {
		t.Fatal("division by zero succeeded")
	}
	// The error unwound the stack and the thread keeps working.
	if th.StackLen() != 0 {
		t.Fatalf("stack depth = %d after failed call, want 0", th.StackLen())
	}
	got, err := th.Call(clo, IntValue(4), IntValue(2))
	if err != nil {
		t.Fatalf("call after error: %v", err)
	}
	if got.AsInt() != 2 {
		t.Fatalf("result = %d, want 2", got.AsInt())
	}
}

func TestPartialApplication(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	add := &CompiledFunction{
		Name:      "add",
		Args:      2,
		MaxLocals: 2,
		Instrs: []Instr{
			{Op: OpPush, A: 0},
			{Op: OpPush, A: 1},
			{Op: OpAddInt},
			{Op: OpReturn},
		},
	}
	partial, err := th.Call(mustClosure(t, th, add), IntValue(40))
	if err != nil {
		t.Fatalf("under-applied call: %v", err)
	}
	if partial.Tag != TagPartial {
		t.Fatalf("tag = %s, want a partial application", partial.Tag)
	}
	got, err := th.Call(partial, IntValue(2))
	if err != nil {
		t.Fatalf("saturating the partial: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("result = %d, want 42", got.AsInt())
	}
}

func TestOverApplication(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	// adder x = \y -> x + y; calling adder with both arguments at once
	// must thread the second into the returned closure.
	inner := &CompiledFunction{
		Name:      "adder.inner",
		Args:      1,
		MaxLocals: 1,
		Instrs: []Instr{
			{Op: OpPushUpvar, A: 0},
			{Op: OpPush, A: 0},
			{Op: OpAddInt},
			{Op: OpReturn},
		},
	}
	adder := &CompiledFunction{
		Name:      "adder",
		Args:      1,
		MaxLocals: 1,
		Inner:     []*CompiledFunction{inner},
		Instrs: []Instr{
			{Op: OpPush, A: 0},
			{Op: OpMakeClosure, A: 0, B: 1},
			{Op: OpReturn},
		},
	}
	got, err := th.Call(mustClosure(t, th, adder), IntValue(40), IntValue(2))
	if err != nil {
		t.Fatalf("over-applied call: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("result = %d, want 42", got.AsInt())
	}
}

func TestStackOverflowAtDepthLimit(t *testing.T) {
	g := newTestState(config.Config{MaxCallDepth: 3})
	th := NewThread(g)

	loop := &CompiledFunction{
		Name:    "loop",
		Args:    0,
		Strings: []string{"loop"},
		Instrs: []Instr{
			{Op: OpPushGlobal, A: 0},
			{Op: OpCall, A: 0},
			{Op: OpReturn},
		},
	}
	clo := mustClosure(t, th, loop)
	if err := g.DefineGlobal("loop", nil, clo, nil); err != nil {
		t.Fatal(err)
	}
	_, err := th.Call(clo)
	var overflow *StackOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("got %v, want stack overflow", err)
	}
	if overflow.Limit != 3 {
		t.Fatalf("limit = %d, want 3", overflow.Limit)
	}

	// Overflow is recoverable: the same thread runs to completion next.
	seven := &CompiledFunction{
		Name: "seven",
		Ints: []int64{7},
		Instrs: []Instr{
			{Op: OpPushInt, A: 0},
			{Op: OpReturn},
		},
	}
	got, err := th.Call(mustClosure(t, th, seven))
	if err != nil {
		t.Fatalf("call after overflow: %v", err)
	}
	if got.AsInt() != 7 {
		t.Fatalf("result = %d, want 7", got.AsInt())
	}
}

func TestTailCallReusesFrame(t *testing.T) {
	// Depth limit far below the iteration count: only frame reuse can
	// finish this countdown.
	g := newTestState(config.Config{MaxCallDepth: 4})
	th := NewThread(g)
	defer th.Close()

	countdown := &CompiledFunction{
		Name:      "countdown",
		Args:      1,
		MaxLocals: 1,
		Ints:      []int64{0, 1, 42},
		Strings:   []string{"countdown"},
		Instrs: []Instr{
			{Op: OpPush, A: 0},
			{Op: OpPushInt, A: 0},
			{Op: OpIntEQ},
			{Op: OpCJump, A: 9},
			{Op: OpPushGlobal, A: 0},
			{Op: OpPush, A: 0},
			{Op: OpPushInt, A: 1},
			{Op: OpSubInt},
			{Op: OpTailCall, A: 1},
			{Op: OpPushInt, A: 2},
			{Op: OpReturn},
		},
	}
	clo := mustClosure(t, th, countdown)
	if err := g.DefineGlobal("countdown", nil, clo, nil); err != nil {
		t.Fatal(err)
	}
	got, err := th.Call(clo, IntValue(500))
	if err != nil {
		t.Fatalf("countdown: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("result = %d, want 42", got.AsInt())
	}
}

func TestConstructAndFieldAccess(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	tag := g.Fields().Tag([]string{"x", "y"})
	getY := &CompiledFunction{
		Name:    "getY",
		Args:    0,
		Ints:    []int64{7, 8},
		Strings: []string{"y"},
		Instrs: []Instr{
			{Op: OpPushInt, A: 0},
			{Op: OpPushInt, A: 1},
			{Op: OpConstructRecord, A: int32(tag), B: 2},
			{Op: OpGetField, A: 0},
			{Op: OpReturn},
		},
	}
	got, err := th.Call(mustClosure(t, th, getY))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got.AsInt() != 8 {
		t.Fatalf("field y = %d, want 8", got.AsInt())
	}
}

func TestUndefinedFieldError(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)

	tag := g.Fields().Tag([]string{"x"})
	fn := &CompiledFunction{
		Name:    "oops",
		Ints:    []int64{1},
		Strings: []string{"y"},
		Instrs: []Instr{
			{Op: OpPushInt, A: 0},
			{Op: OpConstructRecord, A: int32(tag), B: 1},
			{Op: OpGetField, A: 0},
			{Op: OpReturn},
		},
	}
	_, err := th.Call(mustClosure(t, th, fn))
	var undef *UndefinedFieldError
	if !errors.As(err, &undef) {
		t.Fatalf("got %v, want undefined field", err)
	}
	if undef.Field != "y" {
		t.Fatalf("field = %q, want y", undef.Field)
	}
}

func TestTestTagAndSplit(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	// Construct tag 3 around two ints, check the tag, then split and add.
	fn := &CompiledFunction{
		Name: "sum",
		Ints: []int64{20, 22},
		Instrs: []Instr{
			{Op: OpPushInt, A: 0},
			{Op: OpPushInt, A: 1},
			{Op: OpConstruct, A: 3, B: 2},
			{Op: OpTestTag, A: 3},
			{Op: OpCJump, A: 6},
			{Op: OpReturn}, // unreachable for a matching tag
			{Op: OpSplit},
			{Op: OpAddInt},
			{Op: OpReturn},
		},
	}
	got, err := th.Call(mustClosure(t, th, fn))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("result = %d, want 42", got.AsInt())
	}
}

func TestGetOffset(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	fn := &CompiledFunction{
		Name: "first",
		Ints: []int64{11, 12},
		Instrs: []Instr{
			{Op: OpPushInt, A: 0},
			{Op: OpPushInt, A: 1},
			{Op: OpConstruct, A: 0, B: 2},
			{Op: OpGetOffset, A: 0},
			{Op: OpReturn},
		},
	}
	got, err := th.Call(mustClosure(t, th, fn))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got.AsInt() != 11 {
		t.Fatalf("result = %d, want 11", got.AsInt())
	}
}

func TestExternFunctions(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	double, err := th.AllocExtern("double", 1, func(t *Thread, base int) error {
		n := t.StackGet(base).AsInt()
		return t.Push(IntValue(n * 2))
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := th.Call(double, IntValue(21))
	if err != nil {
		t.Fatalf("extern call: %v", err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("result = %d, want 42", got.AsInt())
	}

	// Externs curry like compiled functions.
	partial, err := th.Call(double)
	if err != nil {
		t.Fatalf("under-applied extern: %v", err)
	}
	got, err = th.Call(partial, IntValue(5))
	if err != nil {
		t.Fatalf("saturating extern partial: %v", err)
	}
	if got.AsInt() != 10 {
		t.Fatalf("result = %d, want 10", got.AsInt())
	}
}

func TestCallNonFunction(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	_, err := th.Call(IntValue(1), IntValue(2))
	var wrong *WrongTypeError
	if !errors.As(err, &wrong) {
		t.Fatalf("got %v, want wrong type", err)
	}
}

func TestClosedThreadRefusesCalls(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	th.Close()
	if _, err := th.Call(IntValue(0)); !errors.Is(err, ErrDead) {
		t.Fatalf("err = %v, want ErrDead", err)
	}
}

func TestAllocationsSurviveCollection(t *testing.T) {
	// A threshold small enough that string allocations inside the
	// program force collections while it runs.
	g := newTestState(config.Config{GCThreshold: 64})
	th := NewThread(g)
	defer th.Close()

	fn := &CompiledFunction{
		Name:    "greeting",
		Strings: []string{"hello", "scratch"},
		Instrs: []Instr{
			{Op: OpPushString, A: 0},
			{Op: OpPushString, A: 1},
			{Op: OpPushString, A: 1},
			{Op: OpPop},
			{Op: OpPop},
			{Op: OpReturn},
		},
	}
	got, err := th.Call(mustClosure(t, th, fn))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	s, ok := got.AsString()
	if !ok || s != "hello" {
		t.Fatalf("result = %q, %v; want hello", s, ok)
	}
}

func TestThreadCollectFreesUnreachable(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	s, err := th.AllocString("transient")
	if err != nil {
		t.Fatal(err)
	}
	if err := th.Push(s); err != nil {
		t.Fatal(err)
	}
	th.Collect()
	if live := th.gc.Live(); live != 1 {
		t.Fatalf("live = %d with the string on the stack, want 1", live)
	}
	th.pop()
	th.Collect()
	if live := th.gc.Live(); live != 0 {
		t.Fatalf("live = %d after dropping the string, want 0", live)
	}
}

func TestExternErrorPanics(t *testing.T) {
	g := newTestState(config.Config{})
	th := NewThread(g)
	defer th.Close()

	boom, err := th.AllocExtern("boom", 1, func(t *Thread, base int) error {
		return errors.New("no such file")
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = th.Call(boom, IntValue(1))
	var p *PanicError
	if !errors.As(err, &p) {
		t.Fatalf("extern failure surfaced as %v, want PanicError", err)
	}
	if p.Thread != th.ID.String() {
		t.Fatalf("panic thread = %q, want %q", p.Thread, th.ID.String())
	}

	// The panic unwound the call; the thread stays alive.
	if th.StackLen() != 0 {
		t.Fatalf("stack depth = %d after panic, want 0", th.StackLen())
	}
	ok, err := th.AllocExtern("ok", 1, func(t *Thread, base int) error {
		return t.Push(t.StackGet(base))
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := th.Call(ok, IntValue(9))
	if err != nil {
		t.Fatalf("call after panic: %v", err)
	}
	if got.AsInt() != 9 {
		t.Fatalf("result = %d, want 9", got.AsInt())
	}
}

func TestThreadHeapsAreIndependent(t *testing.T) {
	// A threshold this small keeps both goroutines collecting
	// constantly. Each thread owns its heap, so neither collection
	// ever walks the other's stack.
	g := newTestState(config.Config{GCThreshold: 64})
	runner := NewThread(g)
	defer runner.Close()
	churner := NewThread(g)
	defer churner.Close()

	incr := &CompiledFunction{
		Name:      "incr",
		Args:      1,
		MaxLocals: 1,
		Ints:      []int64{1},
		Strings:   []string{"scratch allocation forcing a collection"},
		Instrs: []Instr{
			{Op: OpPushString, A: 0},
			{Op: OpPop},
			{Op: OpPush, A: 0},
			{Op: OpPushInt, A: 0},
			{Op: OpAddInt},
			{Op: OpReturn},
		},
	}
	clo := mustClosure(t, runner, incr)
	guard := runner.Root(clo)
	defer guard.Release()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 500; i++ {
			got, err := runner.Call(clo, IntValue(i))
			if err != nil {
				t.Errorf("call %d: %v", i, err)
				return
			}
			if got.AsInt() != i+1 {
				t.Errorf("call %d = %d, want %d", i, got.AsInt(), i+1)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if _, err := churner.AllocString("churning past the threshold"); err != nil {
				t.Errorf("alloc %d: %v", i, err)
				return
			}
		}
	}()
	wg.Wait()
}

func TestExternReentryWithRootedValue(t *testing.T) {
	// The inner calls allocate past the threshold, so collections run
	// while the extern holds values only in Go locals. The rooted one
	// must survive them.
	g := newTestState(config.Config{GCThreshold: 64})
	th := NewThread(g)
	defer th.Close()

	noisyDouble := &CompiledFunction{
		Name:      "noisyDouble",
		Args:      1,
		MaxLocals: 1,
		Strings:   []string{"scratch allocation forcing a collection"},
		Instrs: []Instr{
			{Op: OpPushString, A: 0},
			{Op: OpPop},
			{Op: OpPush, A: 0},
			{Op: OpPush, A: 0},
			{Op: OpAddInt},
			{Op: OpReturn},
		},
	}
	clo := mustClosure(t, th, noisyDouble)
	cloGuard := th.Root(clo)
	defer cloGuard.Release()

	twice, err := th.AllocExtern("twice", 2, func(t *Thread, base int) error {
		f, x := t.StackGet(base), t.StackGet(base+1)
		held, err := t.AllocString("held across re-entry")
		if err != nil {
			return err
		}
		guard := t.Root(held)
		defer guard.Release()

		r, err := t.Call(f, x)
		if err != nil {
			return err
		}
		r, err = t.Call(f, r)
		if err != nil {
			return err
		}
		if !heapContains(t.gc, held.Obj) {
			return errors.New("rooted value swept during re-entry")
		}
		return t.Push(r)
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := th.Call(twice, clo, IntValue(10))
	if err != nil {
		t.Fatalf("re-entrant extern: %v", err)
	}
	if got.AsInt() != 40 {
		t.Fatalf("result = %d, want 40", got.AsInt())
	}
}
