package bytecode

import (
	"encoding/binary"

	"github.com/ccoveille/go-safecast"
)

// PendingJump is the handle for a jump whose target is not known yet.
// Every PendingJump must be passed to SetJumpTarget or SetJumpTargetAt
// exactly once; the builder panics on a second use and Finish panics if one
// was never used.
type PendingJump struct {
	offset int
}

// Offset returns the position of the jump's opcode byte.
func (pj PendingJump) Offset() int { return pj.offset }

// Mark returns the current code position, for use as a backward jump target.
func (b *Builder) Mark() int {
	return b.Len()
}

// PrepareJump emits op with a zero placeholder offset and returns the handle
// that later supplies the real one.
func (b *Builder) PrepareJump(op Opcode) PendingJump {
	offset := b.Push(NewJumpInstruction(op, 0))
	b.pending[offset] = struct{}{}
	return PendingJump{offset: offset}
}

// SetJumpTarget points a pending jump at the current end of the code.
func (b *Builder) SetJumpTarget(pj PendingJump) {
	b.SetJumpTargetAt(pj, b.Len())
}

// SetJumpTargetAt points a pending jump at target, which may lie before the
// jump. The stored offset is target minus the jump's own position; a distance
// that does not fit in int16 panics with *JumpRangeError.
func (b *Builder) SetJumpTargetAt(pj PendingJump, target int) {
	b.mustBeOpen()
	if _, ok := b.pending[pj.offset]; !ok {
		panic(ErrJumpAlreadyPatched)
	}

	rel, err := safecast.ToInt16(target - pj.offset)
	if err != nil {
		panic(&JumpRangeError{From: pj.offset, To: target, Err: err})
	}

	binary.BigEndian.PutUint16(b.chunk.code[pj.offset+1:pj.offset+3], uint16(rel))
	delete(b.pending, pj.offset)
}

// EmitLoop emits a jump back to target, a position recorded earlier with Mark.
func (b *Builder) EmitLoop(op Opcode, target int) int {
	pj := b.PrepareJump(op)
	b.SetJumpTargetAt(pj, target)
	return pj.offset
}

// Pending returns the number of jumps still waiting for a target.
func (b *Builder) Pending() int {
	return len(b.pending)
}
