package bytecode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Wire form: a CBOR array [constants, globals, code]. Each constant is a
// two-element array [kind, value]; globals are text strings and code is a
// byte string. Encoding is canonical, so equal chunks serialize identically.
var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.NilContainers = cbor.NilContainerAsEmpty
	// Canonical mode folds every NaN into one value; keep the payload bits.
	opts.NaNConvert = cbor.NaNConvertPreserveSignal
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		MaxArrayElements: MaxPoolEntries,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

type wireChunk struct {
	_         struct{} `cbor:",toarray"`
	Constants []Constant
	Globals   []string
	Code      []byte
}

// MarshalCBOR encodes a constant as [kind, value].
func (c Constant) MarshalCBOR() ([]byte, error) {
	switch c.kind {
	case ConstInteger:
		return cborEncMode.Marshal([]any{c.kind, c.i})
	case ConstFloat:
		return cborEncMode.Marshal([]any{c.kind, c.f})
	case ConstString:
		return cborEncMode.Marshal([]any{c.kind, c.s})
	default:
		return nil, fmt.Errorf("bytecode: cannot encode constant of kind %s", c.kind)
	}
}

// UnmarshalCBOR decodes a constant written by MarshalCBOR.
func (c *Constant) UnmarshalCBOR(data []byte) error {
	var parts []cbor.RawMessage
	if err := cborDecMode.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("constant: %w", err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("constant: want [kind, value], got %d element(s)", len(parts))
	}

	var kind ConstantKind
	if err := cborDecMode.Unmarshal(parts[0], &kind); err != nil {
		return fmt.Errorf("constant kind: %w", err)
	}

	var err error
	switch kind {
	case ConstInteger:
		var v uint64
		err = cborDecMode.Unmarshal(parts[1], &v)
		*c = IntegerConstant(v)
	case ConstFloat:
		var v float64
		err = cborDecMode.Unmarshal(parts[1], &v)
		*c = FloatConstant(v)
	case ConstString:
		var v string
		err = cborDecMode.Unmarshal(parts[1], &v)
		*c = StringConstant(v)
	default:
		return fmt.Errorf("constant: unknown kind %d", kind)
	}
	if err != nil {
		return fmt.Errorf("%s constant: %w", kind, err)
	}
	return nil
}

// MarshalBinary returns the serialized chunk.
func (c *Chunk) MarshalBinary() ([]byte, error) {
	data, err := cborEncMode.Marshal(wireChunk{
		Constants: c.constants,
		Globals:   c.globals,
		Code:      c.code,
	})
	if err != nil {
		return nil, &SerializeError{Err: err}
	}
	return data, nil
}

// Write serializes the chunk to w.
func (c *Chunk) Write(w io.Writer) error {
	data, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return &SerializeError{Err: err}
	}
	return nil
}

// Unmarshal decodes a serialized chunk. The data must hold exactly one chunk:
// anything after it is reported as *ExtraBytesError, and a structural
// problem as *DeserializeError.
func Unmarshal(data []byte) (*Chunk, error) {
	var w wireChunk
	rest, err := cborDecMode.UnmarshalFirst(data, &w)
	if err != nil {
		return nil, &DeserializeError{Err: err}
	}
	if len(rest) > 0 {
		return nil, &ExtraBytesError{Remaining: bytes.Clone(rest)}
	}

	c, err := NewChunk(w.Constants, w.Globals, w.Code)
	if err != nil {
		return nil, &DeserializeError{Err: err}
	}
	return c, nil
}

// Read consumes r to the end and decodes the chunk it holds.
func Read(r io.Reader) (*Chunk, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DeserializeError{Err: fmt.Errorf("read: %w", err)}
	}
	if len(data) == 0 {
		return nil, &DeserializeError{Err: io.ErrUnexpectedEOF}
	}
	return Unmarshal(data)
}
