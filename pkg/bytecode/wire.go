package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireVersion is the chunk payload format version. The format is internal:
// caches reject mismatched versions wholesale rather than migrating.
const WireVersion = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: cbor enc mode: %v", err))
	}
	encMode = em
}

type wireChunk struct {
	Version   int         `cbor:"1,keyasint"`
	Code      []byte      `cbor:"2,keyasint"`
	Lines     []int       `cbor:"3,keyasint"`
	Constants []wireValue `cbor:"4,keyasint"`
}

type wireValue struct {
	Kind uint8         `cbor:"1,keyasint"`
	Num  float64       `cbor:"2,keyasint,omitempty"`
	Str  string        `cbor:"3,keyasint,omitempty"`
	Fn   *wireFunction `cbor:"4,keyasint,omitempty"`
}

type wireFunction struct {
	Name         string    `cbor:"1,keyasint"`
	Arity        int       `cbor:"2,keyasint"`
	UpvalueCount int       `cbor:"3,keyasint"`
	Chunk        wireChunk `cbor:"4,keyasint"`
}

// MarshalChunk encodes a chunk for persistence. Only compiler-produced
// constants (nil, bool, number, string, function) survive encoding; chunks
// holding runtime objects are rejected. Module bindings are stripped; use
// BindModule after decoding.
func MarshalChunk(c *Chunk) ([]byte, error) {
	wc, err := toWireChunk(c)
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(wc)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal chunk: %w", err)
	}
	return data, nil
}

// UnmarshalChunk decodes a chunk encoded by MarshalChunk.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var wc wireChunk
	if err := cbor.Unmarshal(data, &wc); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal chunk: %w", err)
	}
	if wc.Version != WireVersion {
		return nil, fmt.Errorf("bytecode: unsupported chunk version %d", wc.Version)
	}
	return fromWireChunk(wc)
}

// BindModule attaches a module to every function reachable from the chunk.
// Decoded module chunks need this before interpretation, since the wire
// format cannot carry module identity.
func BindModule(c *Chunk, module *Module) {
	for _, v := range c.Constants {
		if fn := v.AsFunction(); fn != nil {
			fn.Module = module
			BindModule(fn.Chunk, module)
		}
	}
}

func toWireChunk(c *Chunk) (wireChunk, error) {
	wc := wireChunk{
		Version: WireVersion,
		Code:    c.Code,
		Lines:   c.Lines,
	}
	for i, v := range c.Constants {
		wv, err := toWireValue(v)
		if err != nil {
			return wireChunk{}, fmt.Errorf("bytecode: marshal constant %d: %w", i, err)
		}
		wc.Constants = append(wc.Constants, wv)
	}
	return wc, nil
}

func toWireValue(v Value) (wireValue, error) {
	switch v.Type() {
	case ValNil:
		return wireValue{Kind: uint8(ValNil)}, nil
	case ValBool:
		n := 0.0
		if v.AsBool() {
			n = 1
		}
		return wireValue{Kind: uint8(ValBool), Num: n}, nil
	case ValNumber:
		return wireValue{Kind: uint8(ValNumber), Num: v.AsNumber()}, nil
	case ValString:
		return wireValue{Kind: uint8(ValString), Str: v.AsString()}, nil
	case ValFunction:
		fn := v.AsFunction()
		wc, err := toWireChunk(fn.Chunk)
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{Kind: uint8(ValFunction), Fn: &wireFunction{
			Name:         fn.Name,
			Arity:        fn.Arity,
			UpvalueCount: fn.UpvalueCount,
			Chunk:        wc,
		}}, nil
	}
	return wireValue{}, fmt.Errorf("cannot serialize %s constant", v.TypeName())
}

func fromWireChunk(wc wireChunk) (*Chunk, error) {
	c := &Chunk{Code: wc.Code, Lines: wc.Lines}
	for i, wv := range wc.Constants {
		v, err := fromWireValue(wv)
		if err != nil {
			return nil, fmt.Errorf("bytecode: unmarshal constant %d: %w", i, err)
		}
		c.Constants = append(c.Constants, v)
	}
	return c, nil
}

func fromWireValue(wv wireValue) (Value, error) {
	switch ValueType(wv.Kind) {
	case ValNil:
		return NilValue(), nil
	case ValBool:
		return BoolValue(wv.Num != 0), nil
	case ValNumber:
		return NumberValue(wv.Num), nil
	case ValString:
		return StringValue(wv.Str), nil
	case ValFunction:
		if wv.Fn == nil {
			return NilValue(), fmt.Errorf("function constant missing body")
		}
		chunk, err := fromWireChunk(wv.Fn.Chunk)
		if err != nil {
			return NilValue(), err
		}
		return FunctionValue(&Function{
			Name:         wv.Fn.Name,
			Arity:        wv.Fn.Arity,
			UpvalueCount: wv.Fn.UpvalueCount,
			Chunk:        chunk,
		}), nil
	}
	return NilValue(), fmt.Errorf("unknown constant kind %d", wv.Kind)
}
