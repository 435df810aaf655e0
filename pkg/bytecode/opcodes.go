package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Opcode is the leading byte of an encoded instruction.
// The numeric values are the wire tags and must never be renumbered.
type Opcode byte

const (
	// ========================================================================
	// Structural (0x00-0x0F)
	// ========================================================================

	OpReturn   Opcode = 0x00 // Return from the current frame
	OpPop      Opcode = 0x01 // Pop top of stack
	OpPopN     Opcode = 0x02 // Pop n values: OpPopN <count:u8>
	OpConstant Opcode = 0x03 // Push constant from pool: OpConstant <index:u8>
	OpNil      Opcode = 0x04 // Push nil
	OpFalse    Opcode = 0x05 // Push false
	OpTrue     Opcode = 0x06 // Push true

	// ========================================================================
	// Calls and functions (0x10-0x1F)
	// ========================================================================

	OpCall  Opcode = 0x10 // Call callee below args: OpCall <arity:u8>
	OpIndex Opcode = 0x11 // Pop index and target, push element
	OpFunc  Opcode = 0x12 // Make closure from constant: OpFunc <index:u8>

	// ========================================================================
	// Variables (0x20-0x2F)
	// ========================================================================

	OpLocalGet     Opcode = 0x20 // Push local slot: OpLocalGet <slot:u8>
	OpLocalSet     Opcode = 0x21 // Store TOS to local slot: OpLocalSet <slot:u8>
	OpGlobalDefine Opcode = 0x22 // Bind global: OpGlobalDefine <index:u8>
	OpGlobalGet    Opcode = 0x23 // Push global: OpGlobalGet <index:u8>
	OpGlobalSet    Opcode = 0x24 // Assign global: OpGlobalSet <index:u8>

	// ========================================================================
	// Logical and comparison (0x30-0x36)
	// ========================================================================

	OpNot Opcode = 0x30
	OpEq  Opcode = 0x31
	OpNe  Opcode = 0x32
	OpGt  Opcode = 0x33
	OpGe  Opcode = 0x34
	OpLt  Opcode = 0x35
	OpLe  Opcode = 0x36

	// ========================================================================
	// Arithmetic (0x37-0x3C)
	// ========================================================================

	OpNeg Opcode = 0x37
	OpAdd Opcode = 0x38
	OpSub Opcode = 0x39
	OpMul Opcode = 0x3a
	OpDiv Opcode = 0x3b
	OpRem Opcode = 0x3c

	// ========================================================================
	// Control flow (0x60-0x6F)
	// ========================================================================

	OpJump          Opcode = 0x60 // Unconditional: OpJump <offset:i16>
	OpJumpFalsePeek Opcode = 0x61 // Jump if TOS falsy, leave it: <offset:i16>
	OpJumpFalsePop  Opcode = 0x62 // Jump if TOS falsy, pop it: <offset:i16>
	OpJumpTruePeek  Opcode = 0x63 // Jump if TOS truthy, leave it: <offset:i16>
	OpJumpTruePop   Opcode = 0x64 // Jump if TOS truthy, pop it: <offset:i16>
)

// OperandKind describes what follows the opcode byte.
type OperandKind uint8

const (
	OperandNone   OperandKind = iota // no operand
	OperandByte                      // one unsigned byte
	OperandOffset                    // signed 16-bit, big-endian
)

// String returns a human-readable name for the operand kind.
func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandByte:
		return "u8"
	case OperandOffset:
		return "i16"
	default:
		return fmt.Sprintf("OperandKind(%d)", k)
	}
}

// Size returns the number of operand bytes.
func (k OperandKind) Size() int {
	switch k {
	case OperandByte:
		return 1
	case OperandOffset:
		return 2
	default:
		return 0
	}
}

// OpcodeInfo provides metadata about each opcode for decoding and listings.
type OpcodeInfo struct {
	Name    string      // Mnemonic
	Operand OperandKind // Operand shape
}

// opcodeInfoTable is the closed instruction set. Anything not listed here is
// rejected by Decode.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Structural
	OpReturn:   {"RETURN", OperandNone},
	OpPop:      {"POP", OperandNone},
	OpPopN:     {"POP_N", OperandByte},
	OpConstant: {"CONSTANT", OperandByte},
	OpNil:      {"NIL", OperandNone},
	OpFalse:    {"FALSE", OperandNone},
	OpTrue:     {"TRUE", OperandNone},

	// Calls
	OpCall:  {"CALL", OperandByte},
	OpIndex: {"INDEX", OperandNone},
	OpFunc:  {"FUNC", OperandByte},

	// Variables
	OpLocalGet:     {"LOCAL_GET", OperandByte},
	OpLocalSet:     {"LOCAL_SET", OperandByte},
	OpGlobalDefine: {"GLOBAL_DEFINE", OperandByte},
	OpGlobalGet:    {"GLOBAL_GET", OperandByte},
	OpGlobalSet:    {"GLOBAL_SET", OperandByte},

	// Logical / comparison
	OpNot: {"NOT", OperandNone},
	OpEq:  {"EQ", OperandNone},
	OpNe:  {"NE", OperandNone},
	OpGt:  {"GT", OperandNone},
	OpGe:  {"GE", OperandNone},
	OpLt:  {"LT", OperandNone},
	OpLe:  {"LE", OperandNone},

	// Arithmetic
	OpNeg: {"NEG", OperandNone},
	OpAdd: {"ADD", OperandNone},
	OpSub: {"SUB", OperandNone},
	OpMul: {"MUL", OperandNone},
	OpDiv: {"DIV", OperandNone},
	OpRem: {"REM", OperandNone},

	// Control flow
	OpJump:          {"JUMP", OperandOffset},
	OpJumpFalsePeek: {"JUMP_FALSE_PEEK", OperandOffset},
	OpJumpFalsePop:  {"JUMP_FALSE_POP", OperandOffset},
	OpJumpTruePeek:  {"JUMP_TRUE_PEEK", OperandOffset},
	OpJumpTruePop:   {"JUMP_TRUE_POP", OperandOffset},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// The second result is false if the opcode is not part of the instruction set.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
}

// Operand returns the operand shape for this opcode.
func (op Opcode) Operand() OperandKind {
	return opcodeInfoTable[op].Operand
}

// Size returns the total encoded length of an instruction (1 + operand bytes).
func (op Opcode) Size() int {
	return 1 + op.Operand().Size()
}

// IsJump returns true if this opcode carries a relative jump offset.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpJumpTruePop
}

// ParseOpcode looks up an opcode by mnemonic, ignoring case.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[strings.ToUpper(name)]
	return op, ok
}

// AllOpcodes returns every defined opcode in tag order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	sort.Slice(opcodes, func(i, j int) bool { return opcodes[i] < opcodes[j] })
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
