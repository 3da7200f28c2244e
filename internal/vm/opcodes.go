package vm

// Opcode identifies a single VM instruction.
type Opcode byte

const (
	// Stack and constants
	OpPushInt    Opcode = iota // A: index into Ints pool
	OpPushFloat                // A: index into Floats pool
	OpPushString               // A: index into Strings pool
	OpPush                     // A: local/argument slot, copied to top
	OpPushGlobal               // A: index into Strings pool (global name)
	OpStore                    // A: local slot, pop into it
	OpPop                      // discard top
	OpSlide                    // keep top, discard A values below it

	// Control flow
	OpJump  // A: absolute target
	OpCJump // pop; jump to A if nonzero

	// Calls
	OpCall     // A: argument count; callee below the arguments
	OpTailCall // A: argument count; reuse current frame
	OpReturn   // pop frame, leave single result on caller's stack

	// Closures
	OpMakeClosure // A: inner function index, B: upvalue count popped
	OpPushUpvar   // A: index into the running closure's captures

	// Data
	OpConstruct       // A: constructor tag, B: field count popped
	OpConstructRecord // A: record tag (FieldMap), B: field count popped
	OpConstructArray  // A: element count popped
	OpGetOffset       // A: field offset; pop data value, push field
	OpGetField        // A: Strings index; field lookup through FieldMap
	OpTestTag         // A: tag; push 1 if top's tag matches, else 0
	OpSplit           // pop data value, push all its fields

	// Integer arithmetic and comparison
	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpIntLT
	OpIntEQ

	// Float arithmetic and comparison
	OpAddFloat
	OpSubFloat
	OpMulFloat
	OpDivFloat
	OpFloatLT
	OpFloatEQ
)

var opcodeNames = map[Opcode]string{
	OpPushInt:         "PushInt",
	OpPushFloat:       "PushFloat",
	OpPushString:      "PushString",
	OpPush:            "Push",
	OpPushGlobal:      "PushGlobal",
	OpStore:           "Store",
	OpPop:             "Pop",
	OpSlide:           "Slide",
	OpJump:            "Jump",
	OpCJump:           "CJump",
	OpCall:            "Call",
	OpTailCall:        "TailCall",
	OpReturn:          "Return",
	OpMakeClosure:     "MakeClosure",
	OpPushUpvar:       "PushUpvar",
	OpConstruct:       "Construct",
	OpConstructRecord: "ConstructRecord",
	OpConstructArray:  "ConstructArray",
	OpGetOffset:       "GetOffset",
	OpGetField:        "GetField",
	OpTestTag:         "TestTag",
	OpSplit:           "Split",
	OpAddInt:          "AddInt",
	OpSubInt:          "SubInt",
	OpMulInt:          "MulInt",
	OpDivInt:          "DivInt",
	OpIntLT:           "IntLT",
	OpIntEQ:           "IntEQ",
	OpAddFloat:        "AddFloat",
	OpSubFloat:        "SubFloat",
	OpMulFloat:        "MulFloat",
	OpDivFloat:        "DivFloat",
	OpFloatLT:         "FloatLT",
	OpFloatEQ:         "FloatEQ",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "Unknown"
}

// Instr is one decoded instruction. Operand meaning depends on the
// opcode; unused operands are zero.
type Instr struct {
	Op Opcode
	A  int32
	B  int32
}

// CompiledFunction is the unit of execution the compiler hands to the
// VM: a flat instruction sequence plus its constant pools and the inner
// functions it can close over.
type CompiledFunction struct {
	Name    string
	Args    int
	Instrs  []Instr
	Ints    []int64
	Floats  []float64
	Strings []string
	Inner   []*CompiledFunction

	// MaxLocals is the frame size the function needs beyond its
	// arguments.
	MaxLocals int
}
