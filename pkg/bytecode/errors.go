package bytecode

import (
	"errors"
	"fmt"
)

// Builder misuse. These are raised with panic: they mean the producer broke a
// precondition, not that some input was bad.
var (
	ErrTooManyConstants   = errors.New("bytecode: constant pool is full (255 entries)")
	ErrTooManyGlobals     = errors.New("bytecode: global table is full (255 entries)")
	ErrJumpAlreadyPatched = errors.New("bytecode: jump is not pending (patched twice or foreign handle)")
	ErrBuilderFinished    = errors.New("bytecode: builder already finished")
	ErrInvalidUTF8        = errors.New("bytecode: string is not valid UTF-8")
)

// UnknownOpcodeError is returned when the leading byte matches no opcode.
type UnknownOpcodeError struct {
	Byte byte
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("bytecode: unknown opcode 0x%02x", e.Byte)
}

// MissingOperandError is returned when the buffer ends inside an instruction.
// Position is the index of the first absent byte relative to the opcode (1 or 2).
type MissingOperandError struct {
	Op       Opcode
	Position int
}

func (e *MissingOperandError) Error() string {
	return fmt.Sprintf("bytecode: missing byte %d for %s", e.Position, e.Op)
}

// OperandShapeError is the panic value when an instruction is constructed with
// an operand the opcode does not take.
type OperandShapeError struct {
	Op   Opcode
	Want OperandKind
}

func (e *OperandShapeError) Error() string {
	return fmt.Sprintf("bytecode: %s takes a %s operand, not %s", e.Op, e.Op.Operand(), e.Want)
}

// JumpRangeError is the panic value when a patched jump distance does not fit
// in a signed 16-bit offset.
type JumpRangeError struct {
	From, To int
	Err      error
}

func (e *JumpRangeError) Error() string {
	return fmt.Sprintf("bytecode: jump from %d to %d out of range: %v", e.From, e.To, e.Err)
}

func (e *JumpRangeError) Unwrap() error { return e.Err }

// UnpatchedJumpsError is the panic value when a builder is finished while
// jumps still hold placeholder offsets.
type UnpatchedJumpsError struct {
	Offsets []int
}

func (e *UnpatchedJumpsError) Error() string {
	return fmt.Sprintf("bytecode: %d unpatched jump(s) at %v", len(e.Offsets), e.Offsets)
}

// SerializeError wraps a failure to encode or write a chunk.
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("bytecode: serialize chunk: %v", e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

// DeserializeError wraps a structural failure while reading a chunk.
type DeserializeError struct {
	Err error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("bytecode: deserialize chunk: %v", e.Err)
}

func (e *DeserializeError) Unwrap() error { return e.Err }

// ExtraBytesError reports bytes left over after a structurally valid chunk.
type ExtraBytesError struct {
	Remaining []byte
}

func (e *ExtraBytesError) Error() string {
	return fmt.Sprintf("bytecode: %d extra byte(s) at end of chunk: % x", len(e.Remaining), e.Remaining)
}
