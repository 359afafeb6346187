package bytecode

import (
	"testing"

	"github.com/lumenlang/lumen/pkg/ast"
	"github.com/lumenlang/lumen/pkg/token"
)

// AST builders for compiler and VM tests. Lines default to 1; tests that
// assert on diagnostics build nodes with explicit Base values.

func prog(stmts ...ast.Stmt) *ast.Program { return &ast.Program{Stmts: stmts} }

func at(line int) ast.Base { return ast.Base{Line: line} }

func num(n float64) ast.Expr   { return &ast.NumberLit{Base: at(1), Value: n} }
func str(s string) ast.Expr    { return &ast.StringLit{Base: at(1), Value: s} }
func boolLit(b bool) ast.Expr  { return &ast.BoolLit{Base: at(1), Value: b} }
func nilLit() ast.Expr         { return &ast.NilLit{Base: at(1)} }
func ident(name string) ast.Expr {
	return &ast.Variable{Base: at(1), Name: name}
}

func bin(op token.Kind, left, right ast.Expr) ast.Expr {
	return &ast.Binary{Base: at(1), Op: op, Left: left, Right: right}
}

func unary(op token.Kind, operand ast.Expr) ast.Expr {
	return &ast.Unary{Base: at(1), Op: op, Operand: operand}
}

func ternary(cond, then, els ast.Expr) ast.Expr {
	return &ast.Ternary{Base: at(1), Cond: cond, Then: then, Else: els}
}

func assign(target, value ast.Expr) ast.Expr {
	return &ast.Assign{Base: at(1), Target: target, Value: value}
}

func call(callee ast.Expr, args ...ast.Expr) ast.Expr {
	return &ast.Call{Base: at(1), Callee: callee, Args: args}
}

func methodCall(receiver ast.Expr, name string, args ...ast.Expr) ast.Expr {
	return &ast.MethodCall{Base: at(1), Receiver: receiver, Name: name, Args: args}
}

func member(object ast.Expr, name string) ast.Expr {
	return &ast.Member{Base: at(1), Object: object, Name: name}
}

func subscript(object, index ast.Expr) ast.Expr {
	return &ast.Subscript{Base: at(1), Object: object, Index: index}
}

func arrayLit(elements ...ast.Expr) ast.Expr {
	return &ast.ArrayLit{Base: at(1), Elements: elements}
}

func objectLit(keys []string, values []ast.Expr) ast.Expr {
	return &ast.ObjectLit{Base: at(1), Keys: keys, Values: values}
}

func closureLit(params []string, body ...ast.Stmt) ast.Expr {
	return &ast.ClosureLit{Base: at(1), Params: params, Body: body}
}

func awaitExpr(operand ast.Expr) ast.Expr {
	return &ast.Await{Base: at(1), Operand: operand}
}

func exprStmt(e ast.Expr) ast.Stmt {
	return &ast.ExprStmt{Base: at(1), E: e}
}

func varDecl(name string, init ast.Expr) ast.Stmt {
	return &ast.VarDecl{Base: at(1), Name: name, Init: init}
}

func block(stmts ...ast.Stmt) ast.Stmt {
	return &ast.Block{Base: at(1), Stmts: stmts}
}

func ifStmt(cond ast.Expr, then, els ast.Stmt) ast.Stmt {
	return &ast.If{Base: at(1), Cond: cond, Then: then, Else: els}
}

func whileStmt(cond ast.Expr, body ast.Stmt) ast.Stmt {
	return &ast.While{Base: at(1), Cond: cond, Body: body}
}

func forStmt(init ast.Stmt, cond, incr ast.Expr, body ast.Stmt) ast.Stmt {
	return &ast.For{Base: at(1), Init: init, Cond: cond, Incr: incr, Body: body}
}

func forIn(name string, iterable ast.Expr, body ast.Stmt) ast.Stmt {
	return &ast.ForIn{Base: at(1), Name: name, Iterable: iterable, Body: body}
}

func breakStmt() ast.Stmt    { return &ast.Break{Base: at(1)} }
func continueStmt() ast.Stmt { return &ast.Continue{Base: at(1)} }

func ret(value ast.Expr) ast.Stmt {
	return &ast.Return{Base: at(1), Value: value}
}

func fnDecl(name string, params []string, body ...ast.Stmt) *ast.FuncDecl {
	return &ast.FuncDecl{Base: at(1), Name: name, Params: params, Body: body}
}

func structDecl(name string, fields ...string) ast.Stmt {
	return &ast.StructDecl{Base: at(1), Name: name, Fields: fields}
}

// ---- Compile and run helpers ----

func compileProg(t *testing.T, p *ast.Program) *Chunk {
	t.Helper()
	chunk, err := Compile(p)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return chunk
}

func interpret(t *testing.T, stmts ...ast.Stmt) Value {
	t.Helper()
	chunk := compileProg(t, prog(stmts...))
	vm := NewVM()
	result, err := vm.Interpret(chunk)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	return result
}

func interpretErr(t *testing.T, stmts ...ast.Stmt) error {
	t.Helper()
	chunk := compileProg(t, prog(stmts...))
	vm := NewVM()
	_, err := vm.Interpret(chunk)
	if err == nil {
		t.Fatal("expected a runtime error, got none")
	}
	return err
}

func compileErr(t *testing.T, stmts ...ast.Stmt) *CompileError {
	t.Helper()
	_, err := Compile(prog(stmts...))
	if err == nil {
		t.Fatal("expected a compile error, got none")
	}
	ce, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("expected *CompileError, got %T: %v", err, err)
	}
	return ce
}

func expectNumber(t *testing.T, v Value, want float64) {
	t.Helper()
	if !v.IsNumber() {
		t.Fatalf("expected number %v, got %s %q", want, v.TypeName(), v.String())
	}
	if v.AsNumber() != want {
		t.Errorf("expected %v, got %v", want, v.AsNumber())
	}
}

func expectString(t *testing.T, v Value, want string) {
	t.Helper()
	if !v.IsString() {
		t.Fatalf("expected string %q, got %s %q", want, v.TypeName(), v.String())
	}
	if v.AsString() != want {
		t.Errorf("expected %q, got %q", want, v.AsString())
	}
}

func expectBool(t *testing.T, v Value, want bool) {
	t.Helper()
	if !v.IsBool() {
		t.Fatalf("expected bool %v, got %s %q", want, v.TypeName(), v.String())
	}
	if v.AsBool() != want {
		t.Errorf("expected %v, got %v", want, v.AsBool())
	}
}

// findFunction looks up a function constant by name in a chunk's pool.
func findFunction(t *testing.T, chunk *Chunk, name string) *Function {
	t.Helper()
	for _, c := range chunk.Constants {
		if fn := c.AsFunction(); fn != nil && fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function constant named %q", name)
	return nil
}
