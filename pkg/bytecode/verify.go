package bytecode

import (
	"errors"
	"fmt"
)

// VerifyError describes one problem found by Verify.
type VerifyError struct {
	Pos int
	Ins Instruction
	Msg string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("bytecode: %04X %s: %s", e.Pos, e.Ins, e.Msg)
}

// Verify decodes the whole chunk and cross-checks operands: pool and table
// indices must be in range and every jump must land on an instruction
// boundary within the code (the end of the code counts). All problems are
// returned together via errors.Join; a decode error ends the walk.
//
// Nothing else in this package requires a chunk to verify; interpreters that
// skip it must bounds-check at run time.
func (c *Chunk) Verify() error {
	var errs []error
	starts := make(map[int]bool)
	type jump struct {
		pos int
		ins Instruction
	}
	var jumps []jump

	cur := c.IterCode()
	for pos, ins := range cur.All() {
		starts[pos] = true
		switch ins.Op() {
		case OpConstant, OpFunc:
			if int(ins.Arg()) >= len(c.constants) {
				errs = append(errs, &VerifyError{pos, ins,
					fmt.Sprintf("constant index beyond pool of %d", len(c.constants))})
			}
		case OpGlobalDefine, OpGlobalGet, OpGlobalSet:
			if int(ins.Arg()) >= len(c.globals) {
				errs = append(errs, &VerifyError{pos, ins,
					fmt.Sprintf("global index beyond table of %d", len(c.globals))})
			}
		}
		if ins.Op().IsJump() {
			jumps = append(jumps, jump{pos, ins})
		}
	}
	if err := cur.Err(); err != nil {
		return errors.Join(append(errs, err)...)
	}
	starts[len(c.code)] = true

	for _, j := range jumps {
		target := j.ins.Target(j.pos)
		switch {
		case target < 0 || target > len(c.code):
			errs = append(errs, &VerifyError{j.pos, j.ins,
				fmt.Sprintf("target %04X outside code", target)})
		case !starts[target]:
			errs = append(errs, &VerifyError{j.pos, j.ins,
				fmt.Sprintf("target %04X is inside an instruction", target)})
		}
	}

	return errors.Join(errs...)
}
