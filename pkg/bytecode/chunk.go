package bytecode

import (
	"encoding/binary"
	"math"
)

// maxJump is the largest forward or backward distance a 16-bit jump operand
// can encode.
const maxJump = math.MaxUint16

// Chunk is a unit of compiled bytecode: the instruction stream, its
// constant pool and a line table parallel to Code for diagnostics.
// Constants are appended per occurrence; the compiler switches to the
// long-form constant opcodes once indexes outgrow a byte.
type Chunk struct {
	Code      []byte
	Constants []Value
	Lines     []int
}

// NewChunk returns an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Emit appends an opcode.
func (c *Chunk) Emit(op Opcode, line int) {
	c.EmitByte(byte(op), line)
}

// EmitByte appends a raw byte, usually an operand.
func (c *Chunk) EmitByte(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// EmitWithOperand appends an opcode followed by a single-byte operand.
func (c *Chunk) EmitWithOperand(op Opcode, operand byte, line int) {
	c.Emit(op, line)
	c.EmitByte(operand, line)
}

// EmitUint16 appends a big-endian 16-bit operand.
func (c *Chunk) EmitUint16(v uint16, line int) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	c.EmitByte(buf[0], line)
	c.EmitByte(buf[1], line)
}

// AddConstant appends a constant and returns its index. No deduplication:
// each occurrence in the source gets its own pool entry.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// EmitJump appends a forward jump with a placeholder offset and returns the
// position of the operand for a later PatchJump.
func (c *Chunk) EmitJump(op Opcode, line int) int {
	c.Emit(op, line)
	c.EmitByte(0xFF, line)
	c.EmitByte(0xFF, line)
	return len(c.Code) - 2
}

// PatchJump back-fills the operand at offset so the jump lands on the next
// instruction to be emitted. Fails when the distance exceeds 16 bits.
func (c *Chunk) PatchJump(offset, line int) error {
	jump := len(c.Code) - offset - 2
	if jump > maxJump {
		return compileErrorf(line, "too much code to jump over")
	}
	binary.BigEndian.PutUint16(c.Code[offset:], uint16(jump))
	return nil
}

// EmitLoop appends a backward jump to start. The encoded distance counts
// the 2-byte operand itself. Fails when the distance exceeds 16 bits.
func (c *Chunk) EmitLoop(start, line int) error {
	c.Emit(OpLoop, line)
	back := len(c.Code) - start + 2
	if back > maxJump {
		return compileErrorf(line, "loop body too large")
	}
	c.EmitUint16(uint16(back), line)
	return nil
}

// ReadUint16 decodes the big-endian operand at offset.
func (c *Chunk) ReadUint16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// Line returns the source line for the instruction at offset, or 0 when
// out of range.
func (c *Chunk) Line(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}
