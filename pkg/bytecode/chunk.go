package bytecode

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxPoolEntries is the capacity of the constant pool and of the global table.
// Indices are a single byte and 0xFF is never handed out.
const MaxPoolEntries = 255

// ConstantKind tags the variants of Constant.
type ConstantKind uint8

const (
	ConstInteger ConstantKind = 0
	ConstFloat   ConstantKind = 1
	ConstString  ConstantKind = 2
)

// String returns a human-readable name for the kind.
func (k ConstantKind) String() string {
	switch k {
	case ConstInteger:
		return "integer"
	case ConstFloat:
		return "float"
	case ConstString:
		return "string"
	default:
		return fmt.Sprintf("ConstantKind(%d)", k)
	}
}

// Constant is a literal value referenced from the code by pool index.
type Constant struct {
	kind ConstantKind
	i    uint64
	f    float64
	s    string
}

// IntegerConstant returns an unsigned integer constant.
func IntegerConstant(v uint64) Constant { return Constant{kind: ConstInteger, i: v} }

// FloatConstant returns a float constant.
func FloatConstant(v float64) Constant { return Constant{kind: ConstFloat, f: v} }

// StringConstant returns a text constant.
func StringConstant(v string) Constant { return Constant{kind: ConstString, s: v} }

// Kind returns which variant c holds.
func (c Constant) Kind() ConstantKind { return c.kind }

// Integer returns the integer value; ok is false for other kinds.
func (c Constant) Integer() (v uint64, ok bool) { return c.i, c.kind == ConstInteger }

// Float returns the float value; ok is false for other kinds.
func (c Constant) Float() (v float64, ok bool) { return c.f, c.kind == ConstFloat }

// Text returns the string value; ok is false for other kinds.
func (c Constant) Text() (v string, ok bool) { return c.s, c.kind == ConstString }

// Equal compares kind and value. Floats compare by bit pattern, so a NaN
// constant equals itself and 0.0 differs from -0.0.
func (c Constant) Equal(other Constant) bool {
	if c.kind != other.kind {
		return false
	}
	switch c.kind {
	case ConstInteger:
		return c.i == other.i
	case ConstFloat:
		return math.Float64bits(c.f) == math.Float64bits(other.f)
	default:
		return c.s == other.s
	}
}

// String renders the constant the way the assembler accepts it.
func (c Constant) String() string {
	switch c.kind {
	case ConstInteger:
		return strconv.FormatUint(c.i, 10)
	case ConstFloat:
		s := strconv.FormatFloat(c.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case ConstString:
		return strconv.Quote(c.s)
	default:
		return fmt.Sprintf("<%s>", c.kind)
	}
}

// Chunk is a finished unit of bytecode: the encoded instruction stream, the
// constant pool it indexes into, and the global-name table.
//
// A Chunk is immutable once built; it is produced by Builder.Finish, Read or
// NewChunk and may be shared between goroutines.
type Chunk struct {
	constants []Constant
	globals   []string
	code      []byte
}

// NewChunk assembles a chunk from raw parts, copying them. It enforces the
// pool limits, UTF-8 strings and global-name uniqueness that Builder
// guarantees by construction, but does not decode the code; see Verify.
func NewChunk(constants []Constant, globals []string, code []byte) (*Chunk, error) {
	if len(constants) > MaxPoolEntries {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyConstants, len(constants))
	}
	if len(globals) > MaxPoolEntries {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyGlobals, len(globals))
	}
	for i, c := range constants {
		if c.kind == ConstString && !utf8.ValidString(c.s) {
			return nil, fmt.Errorf("%w: constant %d", ErrInvalidUTF8, i)
		}
	}
	seen := make(map[string]int, len(globals))
	for i, name := range globals {
		if !utf8.ValidString(name) {
			return nil, fmt.Errorf("%w: global %d", ErrInvalidUTF8, i)
		}
		if j, ok := seen[name]; ok {
			return nil, fmt.Errorf("bytecode: global %q listed at %d and %d", name, j, i)
		}
		seen[name] = i
	}
	return &Chunk{
		constants: slices.Clone(constants),
		globals:   slices.Clone(globals),
		code:      bytes.Clone(code),
	}, nil
}

// Code returns a copy of the encoded instruction stream. Use IterCode to walk
// it without copying.
func (c *Chunk) Code() []byte { return bytes.Clone(c.code) }

// Len returns the length of the code in bytes.
func (c *Chunk) Len() int { return len(c.code) }

// Constants returns a copy of the constant pool.
func (c *Chunk) Constants() []Constant { return append([]Constant(nil), c.constants...) }

// Constant returns the pool entry at index. Panics if out of range.
func (c *Chunk) Constant(index uint8) Constant { return c.constants[index] }

// NumConstants returns the size of the constant pool.
func (c *Chunk) NumConstants() int { return len(c.constants) }

// Globals returns a copy of the global-name table.
func (c *Chunk) Globals() []string { return append([]string(nil), c.globals...) }

// Global returns the global name at index. Panics if out of range.
func (c *Chunk) Global(index uint8) string { return c.globals[index] }

// NumGlobals returns the size of the global table.
func (c *Chunk) NumGlobals() int { return len(c.globals) }

// GlobalIndex looks up a global by name.
func (c *Chunk) GlobalIndex(name string) (uint8, bool) {
	i := slices.Index(c.globals, name)
	if i < 0 {
		return 0, false
	}
	return uint8(i), true
}

// IterCode returns a cursor over the chunk's instructions from offset 0.
func (c *Chunk) IterCode() *Cursor {
	return NewCursor(c.code)
}

// Equal reports whether both chunks hold the same constants, globals and code.
func (c *Chunk) Equal(other *Chunk) bool {
	if c == nil || other == nil {
		return c == other
	}
	return slices.EqualFunc(c.constants, other.constants, Constant.Equal) &&
		slices.Equal(c.globals, other.globals) &&
		bytes.Equal(c.code, other.code)
}
