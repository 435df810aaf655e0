package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Instruction is one decoded unit of bytecode: an opcode and the operand its
// shape calls for. The zero Instruction is RETURN.
//
// Instructions are comparable with ==. Use the constructors so that operand
// fields the opcode does not use stay zero.
type Instruction struct {
	op     Opcode
	arg    uint8
	offset int16
}

// NewInstruction returns an operand-less instruction.
// Panics with *OperandShapeError if op takes an operand.
func NewInstruction(op Opcode) Instruction {
	mustShape(op, OperandNone)
	return Instruction{op: op}
}

// NewByteInstruction returns an instruction carrying a single byte operand.
func NewByteInstruction(op Opcode, arg uint8) Instruction {
	mustShape(op, OperandByte)
	return Instruction{op: op, arg: arg}
}

// NewJumpInstruction returns a jump carrying a relative offset.
func NewJumpInstruction(op Opcode, offset int16) Instruction {
	mustShape(op, OperandOffset)
	return Instruction{op: op, offset: offset}
}

func mustShape(op Opcode, want OperandKind) {
	if !op.Valid() {
		panic(&UnknownOpcodeError{Byte: byte(op)})
	}
	if op.Operand() != want {
		panic(&OperandShapeError{Op: op, Want: want})
	}
}

// Op returns the instruction's opcode.
func (i Instruction) Op() Opcode { return i.op }

// Arg returns the byte operand (index, slot or count). Zero for other shapes.
func (i Instruction) Arg() uint8 { return i.arg }

// Offset returns the relative jump offset. Zero for non-jumps.
func (i Instruction) Offset() int16 { return i.offset }

// Size returns the encoded length in bytes.
func (i Instruction) Size() int { return i.op.Size() }

// Target returns the absolute position a jump at pos lands on. The offset is
// measured from the jump's own opcode byte, so a jump over n bytes of body is
// encoded as 3+n.
func (i Instruction) Target(pos int) int {
	return pos + int(i.offset)
}

// AppendTo appends the encoded instruction to buf.
func (i Instruction) AppendTo(buf []byte) []byte {
	buf = append(buf, byte(i.op))
	switch i.op.Operand() {
	case OperandByte:
		buf = append(buf, i.arg)
	case OperandOffset:
		buf = binary.BigEndian.AppendUint16(buf, uint16(i.offset))
	}
	return buf
}

// Encode returns the byte form: opcode followed by 0, 1 or 2 operand bytes.
func (i Instruction) Encode() []byte {
	return i.AppendTo(make([]byte, 0, i.Size()))
}

// String renders the instruction for listings and test failures.
func (i Instruction) String() string {
	switch i.op.Operand() {
	case OperandByte:
		return fmt.Sprintf("%s %d", i.op, i.arg)
	case OperandOffset:
		return fmt.Sprintf("%s %+d", i.op, i.offset)
	default:
		return i.op.String()
	}
}

// Decode reads one instruction from the front of code and reports how many
// bytes it used. An empty buffer yields io.EOF, the normal end of a stream;
// truncation inside an instruction is a *MissingOperandError instead.
//
// Operand values are not checked against any chunk.
func Decode(code []byte) (Instruction, int, error) {
	if len(code) == 0 {
		return Instruction{}, 0, io.EOF
	}

	op := Opcode(code[0])
	info, ok := opcodeInfoTable[op]
	if !ok {
		return Instruction{}, 0, &UnknownOpcodeError{Byte: code[0]}
	}

	ins := Instruction{op: op}
	switch info.Operand {
	case OperandByte:
		if len(code) < 2 {
			return Instruction{}, 0, &MissingOperandError{Op: op, Position: 1}
		}
		ins.arg = code[1]
	case OperandOffset:
		if len(code) < 2 {
			return Instruction{}, 0, &MissingOperandError{Op: op, Position: 1}
		}
		if len(code) < 3 {
			return Instruction{}, 0, &MissingOperandError{Op: op, Position: 2}
		}
		ins.offset = int16(binary.BigEndian.Uint16(code[1:3]))
	}

	return ins, info.Operand.Size() + 1, nil
}

// DecodeAt decodes the instruction starting at pos.
func DecodeAt(code []byte, pos int) (Instruction, int, error) {
	if pos < 0 || pos > len(code) {
		return Instruction{}, 0, fmt.Errorf("bytecode: position %d outside code of length %d", pos, len(code))
	}
	return Decode(code[pos:])
}
