package bytecode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lumenlang/lumen/pkg/ast"
	"github.com/lumenlang/lumen/pkg/token"
)

func TestCounterClosures(t *testing.T) {
	// Each call of makeCounter creates a fresh captured cell; calls on one
	// counter advance it without touching the other.
	chunk := compileProg(t, prog(
		fnDecl("makeCounter", nil,
			varDecl("n", num(0)),
			ret(closureLit(nil,
				exprStmt(assign(ident("n"), bin(token.Plus, ident("n"), num(1)))),
				ret(ident("n")),
			)),
		),
		varDecl("c1", call(ident("makeCounter"))),
		varDecl("c2", call(ident("makeCounter"))),
		exprStmt(arrayLit(
			call(ident("c1")),
			call(ident("c1")),
			call(ident("c2")),
		)),
	))
	vm := NewVM()
	result, err := vm.Interpret(chunk)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	arr, _ := result.AsObject().(*Array)
	if arr == nil || len(arr.Elements) != 3 {
		t.Fatalf("expected 3-element array, got %s", result.String())
	}
	expectNumber(t, arr.Elements[0], 1)
	expectNumber(t, arr.Elements[1], 2)
	expectNumber(t, arr.Elements[2], 1)
}

func TestClosuresShareOpenCell(t *testing.T) {
	// While the enclosing frame is live, a setter and a getter over the
	// same local observe each other through one shared cell.
	result := interpret(t,
		fnDecl("outer", nil,
			varDecl("x", num(1)),
			varDecl("bump", closureLit(nil,
				exprStmt(assign(ident("x"), bin(token.Plus, ident("x"), num(1)))),
			)),
			varDecl("get", closureLit(nil, ret(ident("x")))),
			exprStmt(call(ident("bump"))),
			exprStmt(call(ident("bump"))),
			ret(call(ident("get"))),
		),
		exprStmt(call(ident("outer"))),
	)
	expectNumber(t, result, 3)
}

func TestDeepCaptureChain(t *testing.T) {
	result := interpret(t,
		fnDecl("a", nil,
			varDecl("x", num(5)),
			fnDecl("b", nil,
				fnDecl("c", nil, ret(ident("x"))),
				ret(call(ident("c"))),
			),
			ret(call(ident("b"))),
		),
		exprStmt(call(ident("a"))),
	)
	expectNumber(t, result, 5)
}

func TestShadowingPrintsOuterAfterBlock(t *testing.T) {
	var buf bytes.Buffer
	vm := NewVM(WithOutput(&buf))
	chunk := compileProg(t, prog(
		varDecl("a", num(10)),
		block(
			varDecl("a", num(20)),
			exprStmt(call(ident("print"), ident("a"))),
		),
		exprStmt(call(ident("print"), ident("a"))),
	))
	if _, err := vm.Interpret(chunk); err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if buf.String() != "20\n10\n" {
		t.Errorf("output = %q, want %q", buf.String(), "20\n10\n")
	}
}

func TestForInLeavesNoResidue(t *testing.T) {
	// The loop's hidden collection and cursor slots must be gone after the
	// loop, so a following local lands in the right slot.
	chunk := compileProg(t, prog(block(
		varDecl("sum", num(0)),
		forIn("e", arrayLit(num(1), num(2), num(3)), block(
			exprStmt(assign(ident("sum"), bin(token.Plus, ident("sum"), ident("e")))),
		)),
		varDecl("after", num(100)),
		exprStmt(assign(ident("sum"), bin(token.Plus, ident("sum"), ident("after")))),
	)))
	if err := VerifyFunction(&Function{Name: "<script>", Chunk: chunk}); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	vm := NewVM()
	if _, err := vm.Interpret(chunk); err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
}

func TestNestedLoops(t *testing.T) {
	result := interpret(t,
		varDecl("total", num(0)),
		forIn("i", arrayLit(num(1), num(2), num(3)), block(
			forIn("j", arrayLit(num(10), num(20)), block(
				exprStmt(assign(ident("total"),
					bin(token.Plus, ident("total"), bin(token.Star, ident("i"), ident("j"))))),
			)),
		)),
		exprStmt(ident("total")),
	)
	expectNumber(t, result, 180) // (1+2+3) * (10+20)
}

func TestClassCounter(t *testing.T) {
	initBody := []ast.Stmt{
		exprStmt(assign(member(ident("self"), "n"), ident("start"))),
	}
	incBody := []ast.Stmt{
		exprStmt(assign(member(ident("self"), "n"),
			bin(token.Plus, member(ident("self"), "n"), num(1)))),
		ret(member(ident("self"), "n")),
	}
	class := &ast.ClassDecl{
		Base: ast.Base{Line: 1},
		Name: "Counter",
		Methods: []*ast.FuncDecl{
			fnDecl("init", []string{"start"}, initBody...),
			fnDecl("inc", nil, incBody...),
		},
	}

	result := interpret(t,
		class,
		varDecl("c", call(ident("Counter"), num(10))),
		varDecl("d", call(ident("Counter"), num(0))),
		exprStmt(arrayLit(
			methodCall(ident("c"), "inc"),
			methodCall(ident("c"), "inc"),
			methodCall(ident("d"), "inc"),
		)),
	)
	arr, _ := result.AsObject().(*Array)
	if arr == nil || len(arr.Elements) != 3 {
		t.Fatalf("expected 3-element array, got %s", result.String())
	}
	expectNumber(t, arr.Elements[0], 11)
	expectNumber(t, arr.Elements[1], 12)
	expectNumber(t, arr.Elements[2], 1)
}

func buildModule(t *testing.T, vm *VM, name string, stmts ...ast.Stmt) *Module {
	t.Helper()
	m := NewModule(name, name)
	chunk, err := CompileModule(prog(stmts...), m)
	if err != nil {
		t.Fatalf("CompileModule(%s) failed: %v", name, err)
	}
	if _, err := vm.InterpretFunction(&Function{Name: name, Chunk: chunk, Module: m}); err != nil {
		t.Fatalf("module %s body failed: %v", name, err)
	}
	return m
}

func exportedVar(name string, init ast.Expr) ast.Stmt {
	return &ast.VarDecl{Base: ast.Base{Line: 1}, Name: name, Init: init, Exported: true}
}

func exportedFn(name string, params []string, body ...ast.Stmt) ast.Stmt {
	return &ast.FuncDecl{Base: ast.Base{Line: 1}, Name: name, Params: params, Body: body, Exported: true}
}

func TestModuleImport(t *testing.T) {
	vm := NewVM()
	m := buildModule(t, vm, "config",
		exportedVar("version", str("1.0")),
		exportedFn("get", nil, ret(ident("version"))),
	)
	vm.Modules()["config"] = m

	chunk := compileProg(t, prog(
		&ast.Import{Base: ast.Base{Line: 1}, Module: "config", Names: []string{"get"}},
		exprStmt(call(ident("get"))),
	))
	result, err := vm.Interpret(chunk)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	expectString(t, result, "1.0")
}

func TestModuleImportWhole(t *testing.T) {
	vm := NewVM()
	m := buildModule(t, vm, "config",
		exportedVar("version", str("2.0")),
	)
	vm.Modules()["config"] = m

	chunk := compileProg(t, prog(
		&ast.Import{Base: ast.Base{Line: 1}, Module: "config", Alias: "cfg"},
		exprStmt(member(ident("cfg"), "version")),
	))
	result, err := vm.Interpret(chunk)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	expectString(t, result, "2.0")
}

func TestModuleLoaderInvoked(t *testing.T) {
	vm := NewVM()
	m := buildModule(t, vm, "lib", exportedVar("answer", num(42)))

	vm2 := NewVM(WithLoader(MapLoader{"lib": m}))
	chunk := compileProg(t, prog(
		&ast.Import{Base: ast.Base{Line: 1}, Module: "lib", Names: []string{"answer"}},
		exprStmt(ident("answer")),
	))
	result, err := vm2.Interpret(chunk)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	expectNumber(t, result, 42)
}

func TestModuleMissingLoader(t *testing.T) {
	vm := NewVM()
	chunk := compileProg(t, prog(
		&ast.Import{Base: ast.Base{Line: 1}, Module: "nowhere"},
	))
	if _, err := vm.Interpret(chunk); err == nil {
		t.Fatal("expected an error")
	} else if !strings.Contains(err.Error(), "no module loader installed") {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestModuleMissingExport(t *testing.T) {
	vm := NewVM()
	m := buildModule(t, vm, "lib",
		varDecl("hidden", num(1)), // not exported
	)
	vm.Modules()["lib"] = m

	chunk := compileProg(t, prog(
		&ast.Import{Base: ast.Base{Line: 1}, Module: "lib", Names: []string{"hidden"}},
	))
	if _, err := vm.Interpret(chunk); err == nil {
		t.Fatal("expected an error")
	} else if !strings.Contains(err.Error(), "does not export 'hidden'") {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestModuleScopeIsolation(t *testing.T) {
	// Two modules each keep their own x; calling into them never leaks
	// one module's globals into the other or into the host.
	vm := NewVM()
	a := buildModule(t, vm, "a",
		varDecl("x", num(1)),
		exportedFn("get", nil, ret(ident("x"))),
	)
	b := buildModule(t, vm, "b",
		varDecl("x", num(2)),
		exportedFn("get", nil, ret(ident("x"))),
	)
	vm.Modules()["a"] = a
	vm.Modules()["b"] = b

	chunk := compileProg(t, prog(
		&ast.Import{Base: ast.Base{Line: 1}, Module: "a", Alias: "ma"},
		&ast.Import{Base: ast.Base{Line: 1}, Module: "b", Alias: "mb"},
		exprStmt(arrayLit(
			methodCall(ident("ma"), "get"),
			methodCall(ident("mb"), "get"),
		)),
	))
	result, err := vm.Interpret(chunk)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	arr, _ := result.AsObject().(*Array)
	if arr == nil {
		t.Fatalf("expected array, got %s", result.TypeName())
	}
	expectNumber(t, arr.Elements[0], 1)
	expectNumber(t, arr.Elements[1], 2)
}

func TestModuleContextRestoredAfterCall(t *testing.T) {
	// The module defines its own x; after calling into it, the host's x
	// must resolve against host globals again.
	vm := NewVM()
	m := buildModule(t, vm, "lib",
		varDecl("x", num(99)),
		exportedFn("touch", nil, ret(ident("x"))),
	)
	vm.Modules()["lib"] = m

	chunk := compileProg(t, prog(
		&ast.Import{Base: ast.Base{Line: 1}, Module: "lib", Alias: "lib"},
		varDecl("x", num(1)),
		exprStmt(methodCall(ident("lib"), "touch")),
		exprStmt(ident("x")),
	))
	result, err := vm.Interpret(chunk)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	expectNumber(t, result, 1)
}

func TestModuleAssignmentRejected(t *testing.T) {
	vm := NewVM()
	m := buildModule(t, vm, "lib", exportedVar("v", num(1)))
	vm.Modules()["lib"] = m

	chunk := compileProg(t, prog(
		&ast.Import{Base: ast.Base{Line: 1}, Module: "lib", Alias: "lib"},
		exprStmt(assign(member(ident("lib"), "v"), num(2))),
	))
	if _, err := vm.Interpret(chunk); err == nil {
		t.Fatal("expected an error")
	} else if !strings.Contains(err.Error(), "cannot assign to module") {
		t.Errorf("unexpected error %q", err.Error())
	}
}
