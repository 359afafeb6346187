package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x00-0x0F)
	// ========================================================================

	OpConstant     Opcode = 0x00 // Push constant from pool: OpConstant <index:u8>
	OpConstantLong Opcode = 0x01 // Push constant from pool: OpConstantLong <index:u16>
	OpNil          Opcode = 0x02 // Push nil
	OpTrue         Opcode = 0x03 // Push true
	OpFalse        Opcode = 0x04 // Push false

	// ========================================================================
	// Stack manipulation (0x10-0x1F)
	// ========================================================================

	OpPop  Opcode = 0x10 // Pop top of stack
	OpDup  Opcode = 0x11 // Duplicate top of stack
	OpSwap Opcode = 0x12 // Swap top two stack elements

	// ========================================================================
	// Arithmetic (0x20-0x2F)
	// ========================================================================

	OpAdd      Opcode = 0x20 // Pop two, push sum (strings concatenate)
	OpSubtract Opcode = 0x21 // Pop two, push difference (a - b where b is TOS)
	OpMultiply Opcode = 0x22 // Pop two, push product
	OpDivide   Opcode = 0x23 // Pop two, push quotient
	OpModulo   Opcode = 0x24 // Pop two, push remainder
	OpNegate   Opcode = 0x25 // Negate top of stack

	// ========================================================================
	// Comparison (0x30-0x3F)
	// ========================================================================

	OpEqual        Opcode = 0x30 // Pop two, push true if equal
	OpNotEqual     Opcode = 0x31 // Pop two, push true if not equal
	OpGreater      Opcode = 0x32 // Pop two, push true if a > b
	OpGreaterEqual Opcode = 0x33 // Pop two, push true if a >= b
	OpLess         Opcode = 0x34 // Pop two, push true if a < b
	OpLessEqual    Opcode = 0x35 // Pop two, push true if a <= b

	// ========================================================================
	// Logical (0x38-0x3F)
	// ========================================================================

	OpNot    Opcode = 0x38 // Push true if TOS is falsey
	OpLogAnd Opcode = 0x39 // Eager logical AND of top two
	OpLogOr  Opcode = 0x3A // Eager logical OR of top two

	// ========================================================================
	// Variables (0x40-0x4F)
	// ========================================================================

	OpGetLocal     Opcode = 0x40 // Push local: OpGetLocal <slot:u8>
	OpSetLocal     Opcode = 0x41 // Peek into local: OpSetLocal <slot:u8>
	OpDefineGlobal Opcode = 0x42 // Pop and define global: OpDefineGlobal <name:u8>
	OpGetGlobal    Opcode = 0x43 // Push global: OpGetGlobal <name:u8>
	OpSetGlobal    Opcode = 0x44 // Peek into global: OpSetGlobal <name:u8>
	OpGetUpvalue   Opcode = 0x45 // Push captured variable: OpGetUpvalue <index:u8>
	OpSetUpvalue   Opcode = 0x46 // Peek into capture: OpSetUpvalue <index:u8>
	OpCloseUpvalue Opcode = 0x47 // Close topmost open capture and pop it

	// ========================================================================
	// Control flow (0x50-0x5F)
	// ========================================================================

	OpJump        Opcode = 0x50 // Unconditional forward jump: OpJump <offset:u16>
	OpJumpIfFalse Opcode = 0x51 // Pop condition, jump if falsey: <offset:u16>
	OpJumpIfTrue  Opcode = 0x52 // Pop condition, jump if truthy: <offset:u16>
	OpLoop        Opcode = 0x53 // Unconditional backward jump: OpLoop <offset:u16>

	// ========================================================================
	// Functions (0x60-0x6F)
	// ========================================================================

	OpClosure     Opcode = 0x60 // Make closure: <fn:u8> then <isLocal:u8 index:u8> per capture
	OpClosureLong Opcode = 0x61 // Make closure: <fn:u16> then capture pairs
	OpCall        Opcode = 0x62 // Call TOS-argc: OpCall <argc:u8>
	OpMethodCall  Opcode = 0x63 // Call property on receiver: <name:u8> <argc:u8>
	OpReturn      Opcode = 0x64 // Return top of stack from current frame

	// ========================================================================
	// Arrays and objects (0x70-0x7F)
	// ========================================================================

	OpArray        Opcode = 0x70 // Build array from top n values: OpArray <n:u8>
	OpGetSubscript Opcode = 0x71 // obj[index] -> value
	OpSetSubscript Opcode = 0x72 // obj[index] = value, leaves value
	OpCreateObject Opcode = 0x73 // Build object from n key/value pairs: <n:u8>
	OpGetProperty  Opcode = 0x74 // obj.name -> value: OpGetProperty <name:u8>
	OpSetProperty  Opcode = 0x75 // obj.name = value, leaves value: <name:u8>

	// ========================================================================
	// Structs (0x80-0x8F)
	// ========================================================================

	OpDefineStruct Opcode = 0x80 // Build struct type from name + n field names: <n:u8>

	// ========================================================================
	// Iteration (0x90-0x9F)
	// ========================================================================

	OpGetIter Opcode = 0x90 // Push cursor 0 over the collection at TOS
	OpForIter Opcode = 0x91 // Advance: push element,true or false at end

	// ========================================================================
	// Modules (0xA0-0xAF)
	// ========================================================================

	OpLoadModule   Opcode = 0xA0 // Load module, push it: OpLoadModule <path:u8>
	OpImportFrom   Opcode = 0xA1 // Push export from module at TOS: <name:u8>
	OpModuleExport Opcode = 0xA2 // Mark current-module name exported: <name:u8>

	// ========================================================================
	// Async (0xB0-0xBF)
	// ========================================================================

	OpAwait Opcode = 0xB0 // Pop awaitable, push its settled result

	// ========================================================================
	// Misc (0xF0-0xFF)
	// ========================================================================

	OpHalt Opcode = 0xF0 // Stop execution immediately with nil result
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack (-1 = variable)
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata. OpClosure and
// OpClosureLong additionally carry two trailing bytes per capture; callers
// that walk raw code must consult the function constant for the count.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Constants
	OpConstant:     {"CONSTANT", 0, 1, 1},
	OpConstantLong: {"CONSTANT_LONG", 0, 1, 2},
	OpNil:          {"NIL", 0, 1, 0},
	OpTrue:         {"TRUE", 0, 1, 0},
	OpFalse:        {"FALSE", 0, 1, 0},

	// Stack manipulation
	OpPop:  {"POP", 1, 0, 0},
	OpDup:  {"DUP", 1, 2, 0},
	OpSwap: {"SWAP", 2, 2, 0},

	// Arithmetic
	OpAdd:      {"ADD", 2, 1, 0},
	OpSubtract: {"SUBTRACT", 2, 1, 0},
	OpMultiply: {"MULTIPLY", 2, 1, 0},
	OpDivide:   {"DIVIDE", 2, 1, 0},
	OpModulo:   {"MODULO", 2, 1, 0},
	OpNegate:   {"NEGATE", 1, 1, 0},

	// Comparison
	OpEqual:        {"EQUAL", 2, 1, 0},
	OpNotEqual:     {"NOT_EQUAL", 2, 1, 0},
	OpGreater:      {"GREATER", 2, 1, 0},
	OpGreaterEqual: {"GREATER_EQUAL", 2, 1, 0},
	OpLess:         {"LESS", 2, 1, 0},
	OpLessEqual:    {"LESS_EQUAL", 2, 1, 0},

	// Logical
	OpNot:    {"NOT", 1, 1, 0},
	OpLogAnd: {"LOG_AND", 2, 1, 0},
	OpLogOr:  {"LOG_OR", 2, 1, 0},

	// Variables
	OpGetLocal:     {"GET_LOCAL", 0, 1, 1},
	OpSetLocal:     {"SET_LOCAL", 0, 0, 1}, // peeks, does not pop
	OpDefineGlobal: {"DEFINE_GLOBAL", 1, 0, 1},
	OpGetGlobal:    {"GET_GLOBAL", 0, 1, 1},
	OpSetGlobal:    {"SET_GLOBAL", 0, 0, 1}, // peeks, does not pop
	OpGetUpvalue:   {"GET_UPVALUE", 0, 1, 1},
	OpSetUpvalue:   {"SET_UPVALUE", 0, 0, 1},
	OpCloseUpvalue: {"CLOSE_UPVALUE", 1, 0, 0},

	// Control flow
	OpJump:        {"JUMP", 0, 0, 2},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 1, 0, 2},
	OpJumpIfTrue:  {"JUMP_IF_TRUE", 1, 0, 2},
	OpLoop:        {"LOOP", 0, 0, 2},

	// Functions
	OpClosure:     {"CLOSURE", 0, 1, 1}, // plus capture pairs
	OpClosureLong: {"CLOSURE_LONG", 0, 1, 2},
	OpCall:        {"CALL", -1, 1, 1}, // pops callee + argc args
	OpMethodCall:  {"METHOD_CALL", -1, 1, 2},
	OpReturn:      {"RETURN", 1, 0, 0},

	// Arrays and objects
	OpArray:        {"ARRAY", -1, 1, 1},
	OpGetSubscript: {"GET_SUBSCRIPT", 2, 1, 0},
	OpSetSubscript: {"SET_SUBSCRIPT", 3, 1, 0},
	OpCreateObject: {"CREATE_OBJECT", -1, 1, 1},
	OpGetProperty:  {"GET_PROPERTY", 1, 1, 1},
	OpSetProperty:  {"SET_PROPERTY", 2, 1, 1},

	// Structs
	OpDefineStruct: {"DEFINE_STRUCT", -1, 1, 1}, // pops name + n field names

	// Iteration
	OpGetIter: {"GET_ITER", 1, 2, 0},
	OpForIter: {"FOR_ITER", 2, -1, 0}, // pushes elem,true or false

	// Modules
	OpLoadModule:   {"LOAD_MODULE", 0, 1, 1},
	OpImportFrom:   {"IMPORT_FROM", 0, 1, 1}, // peeks module
	OpModuleExport: {"MODULE_EXPORT", 0, 0, 1},

	// Async
	OpAwait: {"AWAIT", 1, 1, 0},

	// Misc
	OpHalt: {"HALT", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of fixed operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total fixed length of an instruction
// (1 + operand bytes). Closure instructions are longer on the wire; their
// capture pairs are counted by the disassembler and verifier, which have
// the function constant in hand.
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode is a forward jump instruction.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse || op == OpJumpIfTrue
}

// IsReturn returns true if this opcode terminates the current frame.
func (op Opcode) IsReturn() bool {
	return op == OpReturn || op == OpHalt
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
