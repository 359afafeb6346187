package bytecode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lumenlang/lumen/pkg/token"
)

func TestChunkRoundTrip(t *testing.T) {
	chunk := compileProg(t, prog(
		fnDecl("add", []string{"a", "b"}, ret(bin(token.Plus, ident("a"), ident("b")))),
		exprStmt(call(ident("add"), num(40), num(2))),
	))

	data, err := MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("MarshalChunk failed: %v", err)
	}
	decoded, err := UnmarshalChunk(data)
	if err != nil {
		t.Fatalf("UnmarshalChunk failed: %v", err)
	}

	if !bytes.Equal(decoded.Code, chunk.Code) {
		t.Error("code bytes differ after round trip")
	}
	if len(decoded.Lines) != len(chunk.Lines) {
		t.Errorf("line table length = %d, want %d", len(decoded.Lines), len(chunk.Lines))
	}
	if len(decoded.Constants) != len(chunk.Constants) {
		t.Fatalf("constant pool length = %d, want %d", len(decoded.Constants), len(chunk.Constants))
	}

	orig := findFunction(t, chunk, "add")
	got := findFunction(t, decoded, "add")
	if got.Arity != orig.Arity || got.UpvalueCount != orig.UpvalueCount {
		t.Errorf("function metadata differs: arity %d/%d upvalues %d/%d",
			got.Arity, orig.Arity, got.UpvalueCount, orig.UpvalueCount)
	}

	vm := NewVM()
	result, err := vm.Interpret(decoded)
	if err != nil {
		t.Fatalf("decoded chunk failed to run: %v", err)
	}
	expectNumber(t, result, 42)
}

func TestMarshalDeterministic(t *testing.T) {
	chunk := compileProg(t, prog(exprStmt(bin(token.Plus, num(1), num(2)))))
	a, err := MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("MarshalChunk failed: %v", err)
	}
	b, err := MarshalChunk(chunk)
	if err != nil {
		t.Fatalf("MarshalChunk failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}
}

func TestMarshalRejectsRuntimeConstants(t *testing.T) {
	c := NewChunk()
	c.AddConstant(ObjectValue(NewObject()))
	c.Emit(OpNil, 1)
	c.Emit(OpReturn, 1)
	if _, err := MarshalChunk(c); err == nil {
		t.Fatal("expected an error for a runtime object constant")
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalChunk([]byte("not cbor at all")); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestUnmarshalRejectsVersionMismatch(t *testing.T) {
	data, err := encMode.Marshal(wireChunk{Version: WireVersion + 1})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if _, err := UnmarshalChunk(data); err == nil {
		t.Fatal("expected a version error")
	} else if !strings.Contains(err.Error(), "unsupported chunk version") {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestBindModule(t *testing.T) {
	m := NewModule("lib", "lib")
	src, err := CompileModule(prog(
		exportedFn("outer", nil,
			ret(closureLit(nil, ret(num(1)))),
		),
	), m)
	if err != nil {
		t.Fatalf("CompileModule failed: %v", err)
	}

	data, err := MarshalChunk(src)
	if err != nil {
		t.Fatalf("MarshalChunk failed: %v", err)
	}
	decoded, err := UnmarshalChunk(data)
	if err != nil {
		t.Fatalf("UnmarshalChunk failed: %v", err)
	}

	// The wire format strips module identity.
	outer := findFunction(t, decoded, "outer")
	if outer.Module != nil {
		t.Fatal("decoded function should start unbound")
	}

	fresh := NewModule("lib", "lib")
	BindModule(decoded, fresh)
	if outer.Module != fresh {
		t.Error("BindModule should bind top-level functions")
	}
	inner := findFunction(t, outer.Chunk, "<anonymous>")
	if inner.Module != fresh {
		t.Error("BindModule should bind nested functions")
	}
}
