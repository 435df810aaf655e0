package bytecode

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunk() *Chunk {
	b := NewBuilder()
	b.EmitConstant(IntegerConstant(math.MaxUint64))
	b.EmitConstant(FloatConstant(-0.1))
	b.EmitConstant(StringConstant("héllo\x00world"))
	b.EmitConstant(IntegerConstant(math.MaxUint64))
	b.DefineGlobal("answer")
	b.EmitByte(OpGlobalGet, b.MakeGlobal("print"))
	pj := b.PrepareJump(OpJumpFalsePeek)
	b.EmitByte(OpCall, 1)
	b.SetJumpTarget(pj)
	b.Emit(OpReturn)
	return b.Finish()
}

func roundTrip(t *testing.T, c *Chunk) *Chunk {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))
	got, err := Read(&buf)
	require.NoError(t, err)
	return got
}

func TestSerializeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		chunk *Chunk
	}{
		{"empty", NewBuilder().Finish()},
		{"sample", sampleChunk()},
		{"floats", func() *Chunk {
			b := NewBuilder()
			for _, f := range []float64{0, 1.5, math.SmallestNonzeroFloat64, math.MaxFloat64, math.Inf(-1), 65504, 1.0 / 3} {
				b.AddConstant(FloatConstant(f))
			}
			return b.Finish()
		}()},
		{"nan payloads", func() *Chunk {
			b := NewBuilder()
			for _, bits := range []uint64{
				math.Float64bits(math.NaN()),
				0x7ff0000000000001, // signalling
				0xfff8000000000000, // negative quiet
				0x7ff8dead0000beef,
			} {
				b.AddConstant(FloatConstant(math.Float64frombits(bits)))
			}
			return b.Finish()
		}()},
		{"full pools", func() *Chunk {
			b := NewBuilder()
			for i := 0; i < MaxPoolEntries; i++ {
				b.AddConstant(StringConstant(string(rune('a' + i%26))))
				b.MakeGlobal(string(rune(0x100 + i)))
			}
			return b.Finish()
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, tt.chunk)
			assert.True(t, tt.chunk.Equal(got))
			require.Equal(t, tt.chunk.NumConstants(), got.NumConstants())
			for i, want := range tt.chunk.Constants() {
				have := got.Constant(uint8(i))
				assert.True(t, want.Equal(have), "constant %d: %s became %s", i, want, have)
				if f, ok := want.Float(); ok {
					g, _ := have.Float()
					assert.Equal(t, math.Float64bits(f), math.Float64bits(g), "constant %d bits", i)
				}
			}
			assert.Equal(t, tt.chunk.Globals(), got.Globals())
			assert.Equal(t, tt.chunk.Code(), got.Code())
		})
	}
}

func TestSerializeIsDeterministic(t *testing.T) {
	a, err := sampleChunk().MarshalBinary()
	require.NoError(t, err)
	b, err := sampleChunk().MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSerializeLayout(t *testing.T) {
	b := NewBuilder()
	b.EmitConstant(IntegerConstant(5))
	b.MakeGlobal("g")
	data, err := b.Finish().MarshalBinary()
	require.NoError(t, err)

	// [ [[0, 5]], ["g"], h'0300' ]
	want := []byte{
		0x83,
		0x81, 0x82, 0x00, 0x05,
		0x81, 0x61, 'g',
		0x42, 0x03, 0x00,
	}
	assert.Equal(t, want, data)
}

func TestReadRejectsExtraBytes(t *testing.T) {
	data, err := sampleChunk().MarshalBinary()
	require.NoError(t, err)

	for _, suffix := range [][]byte{{0x00}, {0xff, 0xff}, []byte("garbage"), data} {
		input := append(bytes.Clone(data), suffix...)
		_, err := Read(bytes.NewReader(input))

		var xe *ExtraBytesError
		require.ErrorAs(t, err, &xe)
		assert.Equal(t, suffix, xe.Remaining)
	}
}

func TestReadRejectsMalformed(t *testing.T) {
	valid, err := sampleChunk().MarshalBinary()
	require.NoError(t, err)

	bad := func(v any) []byte {
		data, err := cbor.Marshal(v)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", valid[:len(valid)-1]},
		{"not an array", bad(map[string]int{"a": 1})},
		{"two fields", bad([]any{[]any{}, []string{}})},
		{"constant kind", bad([]any{[]any{[]any{9, 1}}, []string{}, []byte{}})},
		{"constant shape", bad([]any{[]any{[]any{0}}, []string{}, []byte{}})},
		{"int as string", bad([]any{[]any{[]any{0, "x"}}, []string{}, []byte{}})},
		{"code not bytes", bad([]any{[]any{}, []string{}, 7})},
		{"duplicate global", bad([]any{[]any{}, []string{"a", "a"}, []byte{}})},
		{"too many globals", bad([]any{[]any{}, manyNames(256), []byte{}})},
		// [ [], ["\xff"], h'' ]
		{"global not utf-8", []byte{0x83, 0x80, 0x81, 0x61, 0xff, 0x40}},
		// [ [[2, "\xfe"]], [], h'' ]
		{"string constant not utf-8", []byte{0x83, 0x81, 0x82, 0x02, 0x61, 0xfe, 0x80, 0x40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			var de *DeserializeError
			require.ErrorAs(t, err, &de)
			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestReadRejectsOversizedPoolEarly(t *testing.T) {
	consts := make([]any, MaxPoolEntries+1)
	for i := range consts {
		consts[i] = []any{0, i}
	}
	data, err := cbor.Marshal([]any{consts, []string{}, []byte{}})
	require.NoError(t, err)

	_, err = Unmarshal(data)
	var de *DeserializeError
	require.ErrorAs(t, err, &de)
	var me *cbor.MaxArrayElementsError
	assert.ErrorAs(t, err, &me, "rejected by the decoder, before the pool is built")
}

func manyNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune(0x4e00 + i))
	}
	return out
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteError(t *testing.T) {
	err := sampleChunk().Write(failingWriter{})
	var se *SerializeError
	require.ErrorAs(t, err, &se)
	assert.EqualError(t, se.Err, "disk full")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("io broke") }

func TestReadIOError(t *testing.T) {
	_, err := Read(failingReader{})
	var de *DeserializeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "io broke")
}

// Build 5 + 3, ship it, load it back and walk it.
func TestEndToEndAddition(t *testing.T) {
	b := NewBuilder()
	five := b.AddConstant(IntegerConstant(5))
	three := b.AddConstant(IntegerConstant(3))
	b.EmitByte(OpConstant, five)
	b.EmitByte(OpConstant, three)
	b.Emit(OpAdd)
	b.Emit(OpReturn)
	chunk := b.Finish()

	loaded := roundTrip(t, chunk)

	got, err := loaded.IterCode().Collect()
	require.NoError(t, err)
	assert.Equal(t, []Located{
		{0, NewByteInstruction(OpConstant, 0)},
		{2, NewByteInstruction(OpConstant, 1)},
		{4, NewInstruction(OpAdd)},
		{5, NewInstruction(OpReturn)},
	}, got)

	assert.Equal(t, IntegerConstant(5), loaded.Constant(0))
	assert.Equal(t, IntegerConstant(3), loaded.Constant(1))
}
