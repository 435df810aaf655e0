package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d bytes, %d constants, %d globals\n\n",
		len(c.code), len(c.constants), len(c.globals)))

	c.writePools(&sb)
	c.writeCode(&sb)

	return sb.String()
}

// DisassembleCode lists only the instructions.
func (c *Chunk) DisassembleCode() string {
	var sb strings.Builder
	c.writeCode(&sb)
	return sb.String()
}

func (c *Chunk) writePools(sb *strings.Builder) {
	if len(c.constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, k := range c.constants {
			sb.WriteString(fmt.Sprintf(";   [%3d] %-7s %s\n", i, k.Kind(), truncate(k.String())))
		}
		sb.WriteString("\n")
	}

	if len(c.globals) > 0 {
		sb.WriteString("; Globals:\n")
		for i, g := range c.globals {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, g))
		}
		sb.WriteString("\n")
	}
}

func (c *Chunk) writeCode(sb *strings.Builder) {
	sb.WriteString("; Code:\n")
	cur := c.IterCode()
	for pos, ins := range cur.All() {
		line := ins.String()
		if note := c.annotate(pos, ins); note != "" {
			line = fmt.Sprintf("%-24s ; %s", line, note)
		}
		sb.WriteString(fmt.Sprintf("%04X  %s\n", pos, line))
	}
	if err := cur.Err(); err != nil {
		sb.WriteString(fmt.Sprintf("<error: %v>\n", err))
	}
}

// annotate resolves the operand of ins against the chunk's pools.
func (c *Chunk) annotate(pos int, ins Instruction) string {
	switch ins.Op() {
	case OpConstant, OpFunc:
		if int(ins.Arg()) < len(c.constants) {
			return truncate(c.constants[ins.Arg()].String())
		}
		return "<bad constant>"
	case OpGlobalDefine, OpGlobalGet, OpGlobalSet:
		if int(ins.Arg()) < len(c.globals) {
			return c.globals[ins.Arg()]
		}
		return "<bad global>"
	}
	if ins.Op().IsJump() {
		return fmt.Sprintf("-> %04X", ins.Target(pos))
	}
	return ""
}

// truncate shortens long values for readability.
func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return s
}
