package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header, constants
// first, then one line per instruction. Nested functions in the constant
// pool are listed recursively after the code.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		fmt.Fprintf(&sb, "; === %s ===\n", name)
	}

	if len(c.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, v := range c.Constants {
			display := v.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			display = strings.ReplaceAll(display, "\n", "\\n")
			fmt.Fprintf(&sb, ";   [%3d] %s\n", i, display)
		}
	}

	sb.WriteString("; Code:\n")
	offset := 0
	lastLine := -1
	for offset < len(c.Code) {
		text, instrLen := c.disassembleInstruction(offset)
		line := c.Line(offset)
		if line != lastLine {
			fmt.Fprintf(&sb, "%04X  %-32s ; line %d\n", offset, text, line)
			lastLine = line
		} else {
			fmt.Fprintf(&sb, "%04X  %s\n", offset, text)
		}
		offset += instrLen
	}

	for i, v := range c.Constants {
		if fn := v.AsFunction(); fn != nil {
			sb.WriteString("\n")
			sb.WriteString(fn.Chunk.DisassembleWithName(fmt.Sprintf("fn %s (const %d)", fn.Name, i)))
		}
	}

	return sb.String()
}

// disassembleInstruction formats a single instruction at the given offset.
// Returns the formatted string and the instruction length, including the
// capture pairs of closure instructions.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	if offset >= len(c.Code) {
		return "<end of code>", 0
	}

	op := Opcode(c.Code[offset])
	info := GetOpcodeInfo(op)

	switch op {
	case OpConstant, OpConstantLong:
		idx, length := c.constantOperand(offset, op == OpConstantLong)
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, c.constantDisplay(idx)), length

	case OpClosure, OpClosureLong:
		idx, length := c.constantOperand(offset, op == OpClosureLong)
		text := fmt.Sprintf("%s %d ; %s", info.Name, idx, c.constantDisplay(idx))
		if idx < len(c.Constants) {
			if fn := c.Constants[idx].AsFunction(); fn != nil {
				for i := 0; i < fn.UpvalueCount; i++ {
					isLocal := c.Code[offset+length] != 0
					index := c.Code[offset+length+1]
					length += 2
					kind := "upvalue"
					if isLocal {
						kind = "local"
					}
					text += fmt.Sprintf(" [%s %d]", kind, index)
				}
			}
		}
		return text, length

	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		dist := int(c.ReadUint16(offset + 1))
		return fmt.Sprintf("%s %d -> %04X", info.Name, dist, offset+3+dist), 3

	case OpLoop:
		dist := int(c.ReadUint16(offset + 1))
		return fmt.Sprintf("%s %d -> %04X", info.Name, dist, offset+3-dist), 3

	case OpGetGlobal, OpSetGlobal, OpDefineGlobal, OpGetProperty, OpSetProperty,
		OpLoadModule, OpImportFrom, OpModuleExport:
		idx := int(c.Code[offset+1])
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, c.constantDisplay(idx)), 2

	case OpMethodCall:
		idx := int(c.Code[offset+1])
		argc := c.Code[offset+2]
		return fmt.Sprintf("%s %d %d ; %s", info.Name, idx, argc, c.constantDisplay(idx)), 3
	}

	switch info.OperandLen {
	case 0:
		return info.Name, 1
	case 1:
		return fmt.Sprintf("%s %d", info.Name, c.Code[offset+1]), 2
	case 2:
		return fmt.Sprintf("%s %d", info.Name, c.ReadUint16(offset+1)), 3
	}
	return info.Name, 1
}

func (c *Chunk) constantOperand(offset int, long bool) (int, int) {
	if long {
		return int(c.ReadUint16(offset + 1)), 3
	}
	return int(c.Code[offset+1]), 2
}

func (c *Chunk) constantDisplay(idx int) string {
	if idx < 0 || idx >= len(c.Constants) {
		return "<bad constant>"
	}
	v := c.Constants[idx]
	display := v.String()
	if v.IsString() {
		display = fmt.Sprintf("%q", display)
	}
	if len(display) > 20 {
		display = display[:17] + "..."
	}
	return display
}
