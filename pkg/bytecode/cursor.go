package bytecode

import (
	"errors"
	"io"
	"iter"
)

// Located pairs an instruction with the offset of its opcode byte.
type Located struct {
	Pos         int
	Instruction Instruction
}

// Cursor walks a code buffer one instruction at a time, in the manner of
// bufio.Scanner:
//
//	cur := chunk.IterCode()
//	for cur.Next() {
//		fmt.Println(cur.Pos(), cur.Instruction())
//	}
//	if err := cur.Err(); err != nil { ... }
//
// After a decode error the cursor stays exhausted; it never skips ahead to
// find the next plausible opcode.
type Cursor struct {
	code []byte
	next int
	pos  int
	ins  Instruction
	err  error
	done bool
}

// NewCursor returns a cursor positioned before the first instruction of code.
func NewCursor(code []byte) *Cursor {
	return &Cursor{code: code}
}

// Next decodes the next instruction. It returns false at the end of the code
// or on the first decode error.
func (c *Cursor) Next() bool {
	if c.done {
		return false
	}
	ins, n, err := Decode(c.code[c.next:])
	if err != nil {
		c.done = true
		if !errors.Is(err, io.EOF) {
			c.err = err
		}
		return false
	}
	c.pos = c.next
	c.ins = ins
	c.next += n
	return true
}

// Pos returns the offset of the current instruction.
func (c *Cursor) Pos() int { return c.pos }

// Instruction returns the current instruction.
func (c *Cursor) Instruction() Instruction { return c.ins }

// Err returns the decode error that stopped the cursor, if any.
func (c *Cursor) Err() error { return c.err }

// Reset rewinds the cursor to offset 0 and clears any error.
func (c *Cursor) Reset() {
	*c = Cursor{code: c.code}
}

// All yields (offset, instruction) pairs until the end of the code or the
// first error; check Err afterwards.
func (c *Cursor) All() iter.Seq2[int, Instruction] {
	return func(yield func(int, Instruction) bool) {
		for c.Next() {
			if !yield(c.pos, c.ins) {
				return
			}
		}
	}
}

// Collect drains the cursor. The returned slice holds everything decoded
// before the error, if there was one.
func (c *Cursor) Collect() ([]Located, error) {
	var out []Located
	for c.Next() {
		out = append(out, Located{Pos: c.pos, Instruction: c.ins})
	}
	return out, c.err
}
