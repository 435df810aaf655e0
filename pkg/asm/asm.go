// Package asm assembles a line-oriented text form into bytecode chunks.
//
// Each line holds at most one instruction, optionally preceded by a label:
//
//	; comments run to the end of the line
//	        constant 5
//	        global_define x
//	loop:   global_get x
//	        jump_false_pop done
//	        jump loop
//	done:   return
//
// Mnemonics are the opcode names, case-insensitive. Operands depend on the
// opcode: CONSTANT takes a literal (unsigned integer, float or quoted string),
// the GLOBAL_* family takes a name, jumps take a label, and everything else
// with an operand takes a number from 0 to 255.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/chazu/stackchunk/pkg/bytecode"
)

// Error reports a problem on a specific source line.
type Error struct {
	Line int
	Msg  string
	Err  error // underlying builder error, if any
}

func (e *Error) Error() string {
	return fmt.Sprintf("asm: line %d: %s", e.Line, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Assemble assembles src into a finished chunk.
func Assemble(src string) (*bytecode.Chunk, error) {
	return AssembleReader(strings.NewReader(src))
}

// AssembleReader assembles everything read from r.
func AssembleReader(r io.Reader) (*bytecode.Chunk, error) {
	a := &assembler{
		b:       bytecode.NewBuilder(),
		labels:  make(map[string]int),
		forward: make(map[string][]forwardRef),
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		a.line++
		if err := a.assembleLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("asm: read: %w", err)
	}

	if len(a.forward) > 0 {
		names := slices.Sorted(maps.Keys(a.forward))
		errs := make([]error, 0, len(names))
		for _, name := range names {
			errs = append(errs, &Error{
				Line: a.forward[name][0].line,
				Msg:  fmt.Sprintf("undefined label %q", name),
			})
		}
		return nil, errors.Join(errs...)
	}

	return a.b.Finish(), nil
}

type forwardRef struct {
	jump bytecode.PendingJump
	line int
}

type assembler struct {
	b       *bytecode.Builder
	line    int
	labels  map[string]int
	forward map[string][]forwardRef
}

func (a *assembler) errorf(format string, args ...any) error {
	return &Error{Line: a.line, Msg: fmt.Sprintf(format, args...)}
}

func (a *assembler) assembleLine(text string) (err error) {
	text = strings.TrimSpace(stripComment(text))
	if text == "" {
		return nil
	}

	// Builder misuse (full pools, over-long jumps) panics; for hand-written
	// source it is just another error on this line.
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			err = &Error{Line: a.line, Msg: e.Error(), Err: e}
		}
	}()

	if label, rest, ok := splitLabel(text); ok {
		if err := a.defineLabel(label); err != nil {
			return err
		}
		text = strings.TrimSpace(rest)
		if text == "" {
			return nil
		}
	}

	mnemonic, operand := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		mnemonic, operand = text[:i], strings.TrimSpace(text[i:])
	}
	op, ok := bytecode.ParseOpcode(mnemonic)
	if !ok {
		return a.errorf("unknown instruction %q", mnemonic)
	}

	if op.Operand() == bytecode.OperandNone {
		if operand != "" {
			return a.errorf("%s takes no operand", op)
		}
		a.b.Emit(op)
		return nil
	}
	if operand == "" {
		return a.errorf("%s needs an operand", op)
	}

	switch {
	case op == bytecode.OpConstant:
		c, err := parseConstant(operand)
		if err != nil {
			return a.errorf("%v", err)
		}
		a.b.EmitConstant(c)
	case op == bytecode.OpGlobalDefine:
		a.b.DefineGlobal(operand)
	case op == bytecode.OpGlobalGet || op == bytecode.OpGlobalSet:
		a.b.EmitByte(op, a.b.MakeGlobal(operand))
	case op.IsJump():
		a.jump(op, operand)
	default:
		n, err := strconv.ParseUint(operand, 0, 8)
		if err != nil {
			return a.errorf("%s operand %q is not a number from 0 to 255", op, operand)
		}
		a.b.EmitByte(op, uint8(n))
	}
	return nil
}

func (a *assembler) defineLabel(name string) error {
	if _, dup := a.labels[name]; dup {
		return a.errorf("label %q defined twice", name)
	}
	pos := a.b.Mark()
	a.labels[name] = pos
	for _, ref := range a.forward[name] {
		a.b.SetJumpTarget(ref.jump)
	}
	delete(a.forward, name)
	return nil
}

func (a *assembler) jump(op bytecode.Opcode, label string) {
	if pos, ok := a.labels[label]; ok {
		a.b.EmitLoop(op, pos)
		return
	}
	a.forward[label] = append(a.forward[label], forwardRef{
		jump: a.b.PrepareJump(op),
		line: a.line,
	})
}

// splitLabel recognises a leading "name:".
func splitLabel(text string) (label, rest string, ok bool) {
	head, rest, found := strings.Cut(text, ":")
	if !found || head == "" || strings.ContainsAny(head, " \t\"") {
		return "", text, false
	}
	return head, rest, true
}

// stripComment drops everything from the first ';' that is not inside a
// quoted string.
func stripComment(text string) string {
	inString, escaped := false, false
	for i, r := range text {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case r == ';' && !inString:
			return text[:i]
		}
	}
	return text
}

func parseConstant(lit string) (bytecode.Constant, error) {
	if strings.HasPrefix(lit, `"`) {
		s, err := strconv.Unquote(lit)
		if err != nil {
			return bytecode.Constant{}, fmt.Errorf("bad string literal %s", lit)
		}
		return bytecode.StringConstant(s), nil
	}
	if u, err := strconv.ParseUint(lit, 10, 64); err == nil {
		return bytecode.IntegerConstant(u), nil
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return bytecode.FloatConstant(f), nil
	}
	return bytecode.Constant{}, fmt.Errorf("bad constant %q", lit)
}
