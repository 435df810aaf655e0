package bytecode

import (
	"slices"
	"unicode/utf8"
)

// Builder is the mutable side of a Chunk. A compiler owns exactly one Builder
// per chunk, appends to it in program order and calls Finish when done.
// Builder is not safe for concurrent use.
type Builder struct {
	chunk    *Chunk
	pending  map[int]struct{} // opcode offsets of jumps awaiting a target
	finished bool
}

// NewBuilder creates a builder for an empty chunk.
func NewBuilder() *Builder {
	return &Builder{
		chunk: &Chunk{
			code: make([]byte, 0, 64),
		},
		pending: make(map[int]struct{}),
	}
}

func (b *Builder) mustBeOpen() {
	if b.finished {
		panic(ErrBuilderFinished)
	}
}

// Len returns the current length of the code buffer, which is also the
// offset the next instruction will be written at.
func (b *Builder) Len() int {
	return len(b.chunk.code)
}

// Push encodes ins and appends it to the code buffer.
func (b *Builder) Push(ins Instruction) int {
	b.mustBeOpen()
	offset := len(b.chunk.code)
	b.chunk.code = ins.AppendTo(b.chunk.code)
	return offset
}

// Emit pushes an operand-less instruction.
func (b *Builder) Emit(op Opcode) int {
	return b.Push(NewInstruction(op))
}

// EmitByte pushes an instruction with a byte operand.
func (b *Builder) EmitByte(op Opcode, arg uint8) int {
	return b.Push(NewByteInstruction(op, arg))
}

// AddConstant appends value to the constant pool and returns its index.
// Equal values are not merged; every call takes a new slot.
// Panics with ErrTooManyConstants once the pool holds 255 entries, and with
// ErrInvalidUTF8 for a string constant that could not be written.
func (b *Builder) AddConstant(value Constant) uint8 {
	b.mustBeOpen()
	if value.kind == ConstString && !utf8.ValidString(value.s) {
		panic(ErrInvalidUTF8)
	}
	idx := len(b.chunk.constants)
	if idx >= MaxPoolEntries {
		panic(ErrTooManyConstants)
	}
	b.chunk.constants = append(b.chunk.constants, value)
	return uint8(idx)
}

// EmitConstant adds value to the pool and pushes a CONSTANT that loads it.
func (b *Builder) EmitConstant(value Constant) uint8 {
	idx := b.AddConstant(value)
	b.EmitByte(OpConstant, idx)
	return idx
}

// MakeGlobal returns the table index for name, adding it if it is new.
// Panics with ErrTooManyGlobals when a new name would be the 256th, and with
// ErrInvalidUTF8 when name is not valid UTF-8.
func (b *Builder) MakeGlobal(name string) uint8 {
	b.mustBeOpen()
	if !utf8.ValidString(name) {
		panic(ErrInvalidUTF8)
	}
	if i := slices.Index(b.chunk.globals, name); i >= 0 {
		return uint8(i)
	}
	idx := len(b.chunk.globals)
	if idx >= MaxPoolEntries {
		panic(ErrTooManyGlobals)
	}
	b.chunk.globals = append(b.chunk.globals, name)
	return uint8(idx)
}

// DefineGlobal registers name and emits GLOBAL_DEFINE for it.
func (b *Builder) DefineGlobal(name string) uint8 {
	idx := b.MakeGlobal(name)
	b.EmitByte(OpGlobalDefine, idx)
	return idx
}

// NumConstants returns the current size of the constant pool.
func (b *Builder) NumConstants() int {
	return len(b.chunk.constants)
}

// NumGlobals returns the current size of the global table.
func (b *Builder) NumGlobals() int {
	return len(b.chunk.globals)
}

// Finish freezes the chunk and returns it. The builder cannot be used
// afterwards. Panics with *UnpatchedJumpsError if any PendingJump was never
// given a target.
func (b *Builder) Finish() *Chunk {
	b.mustBeOpen()
	if len(b.pending) > 0 {
		offsets := make([]int, 0, len(b.pending))
		for off := range b.pending {
			offsets = append(offsets, off)
		}
		slices.Sort(offsets)
		panic(&UnpatchedJumpsError{Offsets: offsets})
	}
	b.finished = true
	c := b.chunk
	b.chunk = &Chunk{}
	return c
}
