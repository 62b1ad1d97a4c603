package object

// OpCode is a single bytecode instruction's operation. Opcodes are one byte;
// operand widths are fixed per opcode and documented alongside each
// constant below (the compiler and the VM must agree on them).
type OpCode byte

const (
	// OpConstant idx8: push constants[idx].
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	// OpPop: drop the top of the stack.
	OpPop
	// OpGetLocal/OpSetLocal s8: stack[frame.base+s].
	OpGetLocal
	OpSetLocal
	// OpGetGlobal idx8: lookup by interned name constant; runtime error if absent.
	OpGetGlobal
	// OpDefineGlobal idx8: globals[name] = pop().
	OpDefineGlobal
	// OpSetGlobal idx8: runtime error if name absent; does not pop.
	OpSetGlobal
	// OpGetUpvalue/OpSetUpvalue s8.
	OpGetUpvalue
	OpSetUpvalue
	// OpGetProperty idx8: receiver at peek(0); field, else bound method, else error.
	OpGetProperty
	// OpSetProperty idx8: instance at peek(1); value at peek(0); result = value.
	OpSetProperty
	// OpGetSuper idx8: super-bound method lookup; needs superclass on stack.
	OpGetSuper
	OpEqual
	OpGreater
	OpLess
	// OpAdd: numbers add; two strings concatenate and intern; else TypeError.
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	// OpModulo: numbers only, math.Mod semantics.
	OpModulo
	OpNot
	OpNegate
	OpPrint
	// OpJump/OpJumpIfFalse off16: forward, big-endian offset.
	OpJump
	OpJumpIfFalse
	// OpLoop off16: backward, big-endian offset.
	OpLoop
	// OpCall argc8.
	OpCall
	// OpInvoke nameIdx8 argc8: combined GET_PROPERTY + CALL fast path.
	OpInvoke
	// OpSuperInvoke nameIdx8 argc8.
	OpSuperInvoke
	// OpClosure constIdx8, then upvalueCount * (isLocal8, index8).
	OpClosure
	OpCloseUpvalue
	OpReturn
	// OpClass nameIdx8.
	OpClass
	OpInherit
	// OpMethod nameIdx8.
	OpMethod
)

var opcodeNames = [...]string{
	OpConstant:     "OP_CONSTANT",
	OpNil:          "OP_NIL",
	OpTrue:         "OP_TRUE",
	OpFalse:        "OP_FALSE",
	OpPop:          "OP_POP",
	OpGetLocal:     "OP_GET_LOCAL",
	OpSetLocal:     "OP_SET_LOCAL",
	OpGetGlobal:    "OP_GET_GLOBAL",
	OpDefineGlobal: "OP_DEFINE_GLOBAL",
	OpSetGlobal:    "OP_SET_GLOBAL",
	OpGetUpvalue:   "OP_GET_UPVALUE",
	OpSetUpvalue:   "OP_SET_UPVALUE",
	OpGetProperty:  "OP_GET_PROPERTY",
	OpSetProperty:  "OP_SET_PROPERTY",
	OpGetSuper:     "OP_GET_SUPER",
	OpEqual:        "OP_EQUAL",
	OpGreater:      "OP_GREATER",
	OpLess:         "OP_LESS",
	OpAdd:          "OP_ADD",
	OpSubtract:     "OP_SUBTRACT",
	OpMultiply:     "OP_MULTIPLY",
	OpDivide:       "OP_DIVIDE",
	OpModulo:       "OP_MODULO",
	OpNot:          "OP_NOT",
	OpNegate:       "OP_NEGATE",
	OpPrint:        "OP_PRINT",
	OpJump:         "OP_JUMP",
	OpJumpIfFalse:  "OP_JUMP_IF_FALSE",
	OpLoop:         "OP_LOOP",
	OpCall:         "OP_CALL",
	OpInvoke:       "OP_INVOKE",
	OpSuperInvoke:  "OP_SUPER_INVOKE",
	OpClosure:      "OP_CLOSURE",
	OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpReturn:       "OP_RETURN",
	OpClass:        "OP_CLASS",
	OpInherit:      "OP_INHERIT",
	OpMethod:       "OP_METHOD",
}

func (op OpCode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "OP_UNKNOWN"
}

// FixedOperandSize returns the number of operand bytes that follow the
// opcode byte. For OpClosure it counts only the constant index: the
// 2*upvalueCount capture bytes after it depend on the Function constant
// and must be skipped by the caller. Used by the compiler test's
// instruction walker and by anything that needs to skip an instruction
// without fully decoding it.
func (op OpCode) FixedOperandSize() int {
	switch op {
	case OpConstant, OpGetLocal, OpSetLocal, OpGetGlobal, OpDefineGlobal,
		OpSetGlobal, OpGetUpvalue, OpSetUpvalue, OpGetProperty, OpSetProperty,
		OpGetSuper, OpCall, OpClass, OpMethod:
		return 1
	case OpJump, OpJumpIfFalse, OpLoop:
		return 2
	case OpInvoke, OpSuperInvoke:
		return 2
	case OpClosure:
		return 1 // plus 2*upvalueCount, not representable here
	default:
		return 0
	}
}
