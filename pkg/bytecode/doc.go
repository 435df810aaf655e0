// Package bytecode is the container and instruction encoding for the stack
// VM: what a compiler emits into and what an interpreter loop fetches from.
//
// # Instructions
//
// Every instruction is an opcode byte followed by at most two operand bytes:
//
//   - no operand (RETURN, ADD, ...): 1 byte
//   - one unsigned byte (CONSTANT, CALL, LOCAL_GET, ...): 2 bytes
//   - one signed 16-bit big-endian offset (the JUMP family): 3 bytes
//
// The opcode values are the wire tags (see opcodes.go) and are stable.
// Decode turns bytes back into an Instruction; a Cursor walks a whole buffer
// and stops for good at the first malformed instruction.
//
// # Chunks
//
// A Chunk holds the code, an append-only constant pool and a deduplicated
// global-name table, each capped at 255 entries so indices fit in a byte.
// Chunks are built through a Builder by a single producer and frozen with
// Finish. Exceeding a pool limit, or a jump distance that does not fit in
// int16, panics: both mean the producer emitted something this format cannot
// express.
//
// # Jumps
//
// Forward jumps are backpatched:
//
//	pj := b.PrepareJump(bytecode.OpJumpFalsePop)
//	... emit the body ...
//	b.SetJumpTarget(pj)
//
// The stored offset is relative to the jump's own opcode byte, so skipping
// a 10-byte body encodes as +13. Interpreters should compute targets with
// Instruction.Target rather than re-deriving the convention. Backward jumps
// record Mark() first and use EmitLoop.
//
// # Serialization
//
// Chunk.Write and Read move a chunk through a CBOR byte stream. Read
// rejects input with bytes after the chunk (*ExtraBytesError) as well as
// malformed input (*DeserializeError).
package bytecode
