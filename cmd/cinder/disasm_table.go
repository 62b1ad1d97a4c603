package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/cinderlang/cinder/pkg/object"
)

// printDisasmTable renders the same per-instruction data
// Chunk.DisassembleInstruction prints as plain text, but as a boxed,
// column-aligned table via olekukonko/tablewriter — a presentation
// difference only.
func printDisasmTable(w io.Writer, fn *object.Function) {
	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Go()
	}
	fmt.Fprintf(w, "== %s ==\n", name)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Offset", "Line", "Op", "Operands"})
	table.SetAutoWrapText(false)

	chunk := &fn.Chunk
	prevLine := -1
	for offset := 0; offset < len(chunk.Code); {
		op := object.OpCode(chunk.Code[offset])
		line := chunk.LineAt(offset)
		lineCol := fmt.Sprintf("%d", line)
		if line == prevLine {
			lineCol = "|"
		}
		prevLine = line

		operands, next := operandText(chunk, op, offset)
		table.Append([]string{fmt.Sprintf("%04d", offset), lineCol, op.String(), operands})
		offset = next
	}
	table.Render()
}

// operandText formats op's operands starting at offset (which still points
// at the opcode byte) and returns the offset of the next instruction,
// mirroring Chunk.DisassembleInstruction's per-opcode cases.
func operandText(chunk *object.Chunk, op object.OpCode, offset int) (string, int) {
	switch op {
	case object.OpConstant, object.OpGetGlobal, object.OpDefineGlobal, object.OpSetGlobal,
		object.OpGetProperty, object.OpSetProperty, object.OpGetSuper, object.OpClass, object.OpMethod:
		idx := chunk.Code[offset+1]
		return fmt.Sprintf("%d '%s'", idx, chunk.Constants[idx]), offset + 2

	case object.OpGetLocal, object.OpSetLocal, object.OpGetUpvalue, object.OpSetUpvalue, object.OpCall:
		return fmt.Sprintf("%d", chunk.Code[offset+1]), offset + 2

	case object.OpInvoke, object.OpSuperInvoke:
		idx := chunk.Code[offset+1]
		argc := chunk.Code[offset+2]
		return fmt.Sprintf("(%d args) %d '%s'", argc, idx, chunk.Constants[idx]), offset + 3

	case object.OpJump, object.OpJumpIfFalse:
		jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
		return fmt.Sprintf("-> %d", offset+3+jump), offset + 3

	case object.OpLoop:
		jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
		return fmt.Sprintf("-> %d", offset+3-jump), offset + 3

	case object.OpClosure:
		idx := chunk.Code[offset+1]
		next := offset + 2
		text := fmt.Sprintf("%d '%s'", idx, chunk.Constants[idx])
		if fn, ok := chunk.Constants[idx].AsObj().(*object.Function); ok {
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := chunk.Code[next]
				index := chunk.Code[next+1]
				next += 2
				kind := "upvalue"
				if isLocal != 0 {
					kind = "local"
				}
				text += fmt.Sprintf(", %s %d", kind, index)
			}
		}
		return text, next

	default:
		return "", offset + 1
	}
}
