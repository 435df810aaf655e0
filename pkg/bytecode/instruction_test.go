package bytecode

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleInstructions returns every opcode with a handful of operand values,
// including the extremes of each operand width.
func sampleInstructions() []Instruction {
	var out []Instruction
	for _, op := range AllOpcodes() {
		switch op.Operand() {
		case OperandNone:
			out = append(out, NewInstruction(op))
		case OperandByte:
			for _, v := range []uint8{0, 1, 0x7f, 0x80, math.MaxUint8} {
				out = append(out, NewByteInstruction(op, v))
			}
		case OperandOffset:
			for _, v := range []int16{0, 1, -1, 13, 0x100, -0x100, math.MaxInt16, math.MinInt16} {
				out = append(out, NewJumpInstruction(op, v))
			}
		}
	}
	return out
}

func TestInstructionRoundTrip(t *testing.T) {
	for _, ins := range sampleInstructions() {
		t.Run(ins.String(), func(t *testing.T) {
			enc := ins.Encode()
			require.Len(t, enc, ins.Op().Size())
			assert.Equal(t, byte(ins.Op()), enc[0])

			got, n, err := Decode(enc)
			require.NoError(t, err)
			assert.Equal(t, ins, got)
			assert.Equal(t, len(enc), n)
		})
	}
}

func TestEncodeJumpIsBigEndian(t *testing.T) {
	assert.Equal(t, []byte{0x60, 0x01, 0x02}, NewJumpInstruction(OpJump, 0x0102).Encode())
	assert.Equal(t, []byte{0x62, 0xff, 0xfa}, NewJumpInstruction(OpJumpFalsePop, -6).Encode())
	assert.Equal(t, []byte{0x03, 0x07}, NewByteInstruction(OpConstant, 7).Encode())
	assert.Equal(t, []byte{0x38}, NewInstruction(OpAdd).Encode())
}

func TestDecodeEmptyIsEOF(t *testing.T) {
	_, n, err := Decode(nil)
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)

	_, _, err = Decode([]byte{})
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeUnknownOpcode(t *testing.T) {
	for _, b := range []byte{0x07, 0x0f, 0x13, 0x25, 0x3d, 0x65, 0xff} {
		_, _, err := Decode([]byte{b, 0, 0})
		var ue *UnknownOpcodeError
		require.ErrorAs(t, err, &ue, "byte 0x%02x", b)
		assert.Equal(t, b, ue.Byte)
	}
}

func TestDecodeTruncated(t *testing.T) {
	for _, ins := range sampleInstructions() {
		enc := ins.Encode()
		if len(enc) == 1 {
			continue
		}
		_, _, err := Decode(enc[:len(enc)-1])
		var me *MissingOperandError
		require.ErrorAs(t, err, &me, "%s", ins)
		assert.Equal(t, ins.Op(), me.Op)
		assert.Equal(t, len(enc)-1, me.Position)
		assert.False(t, errors.Is(err, io.EOF))
	}

	_, _, err := Decode([]byte{byte(OpJump)})
	var me *MissingOperandError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 1, me.Position)
}

func TestDecodeIgnoresFollowingBytes(t *testing.T) {
	ins, n, err := Decode([]byte{byte(OpConstant), 200, byte(OpAdd), 0xff})
	require.NoError(t, err)
	assert.Equal(t, NewByteInstruction(OpConstant, 200), ins)
	assert.Equal(t, 2, n)
}

func TestDecodeAt(t *testing.T) {
	code := []byte{byte(OpNil), byte(OpLocalGet), 3}
	ins, n, err := DecodeAt(code, 1)
	require.NoError(t, err)
	assert.Equal(t, NewByteInstruction(OpLocalGet, 3), ins)
	assert.Equal(t, 2, n)

	_, _, err = DecodeAt(code, 3)
	assert.ErrorIs(t, err, io.EOF)

	_, _, err = DecodeAt(code, 4)
	assert.Error(t, err)
}

func TestConstructorShapeMismatchPanics(t *testing.T) {
	assert.Panics(t, func() { NewInstruction(OpConstant) })
	assert.Panics(t, func() { NewByteInstruction(OpAdd, 1) })
	assert.Panics(t, func() { NewJumpInstruction(OpCall, 1) })
	assert.Panics(t, func() { NewInstruction(Opcode(0x99)) })

	defer func() {
		r := recover()
		se, ok := r.(*OperandShapeError)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, OpJump, se.Op)
	}()
	NewByteInstruction(OpJump, 0)
}

func TestInstructionString(t *testing.T) {
	assert.Equal(t, "ADD", NewInstruction(OpAdd).String())
	assert.Equal(t, "CONSTANT 3", NewByteInstruction(OpConstant, 3).String())
	assert.Equal(t, "JUMP +13", NewJumpInstruction(OpJump, 13).String())
	assert.Equal(t, "JUMP_TRUE_POP -6", NewJumpInstruction(OpJumpTruePop, -6).String())
}

func TestInstructionTarget(t *testing.T) {
	assert.Equal(t, 17, NewJumpInstruction(OpJump, 13).Target(4))
	assert.Equal(t, 0, NewJumpInstruction(OpJump, -6).Target(6))
}
