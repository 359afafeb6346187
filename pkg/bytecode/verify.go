package bytecode

import "fmt"

// VerifyStackShape statically checks that every control-flow path through
// the chunk agrees on stack depth: paths converging on the same offset must
// arrive with the same depth, no instruction may pop below zero, and jumps
// must land on instruction boundaries. Returns the maximum depth reached.
//
// Depths are relative to the frame base; the verifier does not know about
// the callee slot or parameters, so depth 0 is "nothing pushed by this
// chunk yet beyond its locals".
func VerifyStackShape(chunk *Chunk) (int, error) {
	depths := make(map[int]int)
	type workItem struct {
		offset int
		depth  int
	}
	work := []workItem{{0, 0}}
	maxDepth := 0

	for len(work) > 0 {
		item := work[len(work)-1]
		work = work[:len(work)-1]
		offset, depth := item.offset, item.depth

		for {
			if offset < 0 || offset > len(chunk.Code) {
				return 0, fmt.Errorf("verify: jump to offset %d outside code", offset)
			}
			if offset == len(chunk.Code) {
				return 0, fmt.Errorf("verify: execution falls off the end of the chunk")
			}
			if seen, ok := depths[offset]; ok {
				if seen != depth {
					return 0, fmt.Errorf("verify: offset %04X reached with depths %d and %d", offset, seen, depth)
				}
				break // already explored from here
			}
			depths[offset] = depth

			op := Opcode(chunk.Code[offset])
			info := GetOpcodeInfo(op)
			next := offset + op.InstructionLen()

			switch op {
			case OpReturn:
				if depth < 1 {
					return 0, fmt.Errorf("verify: return at %04X with empty stack", offset)
				}
			case OpHalt:
				// terminal
			case OpJump:
				dist := int(chunk.ReadUint16(offset + 1))
				offset = next + dist
				continue
			case OpJumpIfFalse, OpJumpIfTrue:
				depth--
				if depth < 0 {
					return 0, fmt.Errorf("verify: stack underflow at %04X (%s)", offset, op)
				}
				dist := int(chunk.ReadUint16(offset + 1))
				work = append(work, workItem{next + dist, depth})
				offset = next
				continue
			case OpLoop:
				dist := int(chunk.ReadUint16(offset + 1))
				offset = next - dist
				continue
			case OpForIter:
				// Always paired with a conditional exit: the item path
				// carries the element past the check, the exhausted path
				// leaves only the collection and cursor.
				if depth < 2 {
					return 0, fmt.Errorf("verify: %s at %04X without collection and cursor", op, offset)
				}
				if next >= len(chunk.Code) || Opcode(chunk.Code[next]) != OpJumpIfFalse {
					return 0, fmt.Errorf("verify: %s at %04X not followed by %s", op, offset, OpJumpIfFalse)
				}
				depths[next] = depth
				dist := int(chunk.ReadUint16(next + 1))
				work = append(work, workItem{next + 3 + dist, depth})
				depth++
				if depth > maxDepth {
					maxDepth = depth
				}
				offset = next + 3
				continue
			case OpCall:
				argc := int(chunk.Code[offset+1])
				depth -= argc // pops callee+args, pushes result
			case OpMethodCall:
				argc := int(chunk.Code[offset+2])
				depth -= argc
			case OpArray:
				n := int(chunk.Code[offset+1])
				depth -= n - 1
			case OpCreateObject:
				n := int(chunk.Code[offset+1])
				depth -= 2*n - 1
			case OpDefineStruct:
				n := int(chunk.Code[offset+1])
				depth -= n // pops name + n fields, pushes type
			case OpClosure, OpClosureLong:
				idx, length := chunk.constantOperand(offset, op == OpClosureLong)
				if idx >= len(chunk.Constants) {
					return 0, fmt.Errorf("verify: closure at %04X references constant %d", offset, idx)
				}
				fn := chunk.Constants[idx].AsFunction()
				if fn == nil {
					return 0, fmt.Errorf("verify: closure at %04X over non-function constant", offset)
				}
				depth++
				next = offset + length + 2*fn.UpvalueCount
			default:
				if info.StackPop < 0 || info.StackPush < 0 {
					return 0, fmt.Errorf("verify: unhandled variable-effect opcode %s at %04X", op, offset)
				}
				depth += info.StackPush - info.StackPop
			}

			if depth < 0 {
				return 0, fmt.Errorf("verify: stack underflow at %04X (%s)", offset, op)
			}
			if depth > maxDepth {
				maxDepth = depth
			}
			if op.IsReturn() {
				break
			}
			offset = next
		}
	}
	return maxDepth, nil
}

// VerifyFunction checks a function's chunk and, recursively, every nested
// function in its constant pool.
func VerifyFunction(fn *Function) error {
	if _, err := VerifyStackShape(fn.Chunk); err != nil {
		return fmt.Errorf("%s: %w", fn.Name, err)
	}
	for _, v := range fn.Chunk.Constants {
		if nested := v.AsFunction(); nested != nil {
			if err := VerifyFunction(nested); err != nil {
				return err
			}
		}
	}
	return nil
}
