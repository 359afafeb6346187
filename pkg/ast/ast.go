// Package ast defines the syntax tree the compiler consumes. Parsing is an
// external collaborator; producers build these nodes directly. Nodes are
// plain data: the compiler walks them with type switches and never mutates
// them.
package ast

import "github.com/lumenlang/lumen/pkg/token"

// Base carries the source line shared by every node. Embed it in node
// structs; Pos reports the line for diagnostics and the chunk line table.
type Base struct {
	Line int
}

func (b Base) Pos() int { return b.Line }

// Node is any syntax tree node.
type Node interface {
	Pos() int
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Program is a parsed compilation unit.
type Program struct {
	Stmts []Stmt
}

// ---- Expressions ----

// NilLit is the literal nil.
type NilLit struct{ Base }

// BoolLit is true or false.
type BoolLit struct {
	Base
	Value bool
}

// NumberLit is a numeric literal. All Lumen numbers are float64.
type NumberLit struct {
	Base
	Value float64
}

// StringLit is a string literal with escapes already resolved.
type StringLit struct {
	Base
	Value string
}

// ArrayLit is [e1, e2, ...].
type ArrayLit struct {
	Base
	Elements []Expr
}

// ObjectLit is {k1: v1, k2: v2, ...}. Keys and Values are parallel.
type ObjectLit struct {
	Base
	Keys   []string
	Values []Expr
}

// Variable is a bare identifier reference.
type Variable struct {
	Base
	Name string
}

// Unary is -x or !x. Op is token.Minus or token.Bang.
type Unary struct {
	Base
	Op      token.Kind
	Operand Expr
}

// Binary is a two-operand operator expression, including the eager logical
// operators and / or.
type Binary struct {
	Base
	Op    token.Kind
	Left  Expr
	Right Expr
}

// Ternary is cond ? then : else.
type Ternary struct {
	Base
	Cond Expr
	Then Expr
	Else Expr
}

// Assign writes Value to Target. Target must be a Variable, Member or
// Subscript; the compiler rejects anything else.
type Assign struct {
	Base
	Target Expr
	Value  Expr
}

// Call invokes Callee with Args, evaluated left to right.
type Call struct {
	Base
	Callee Expr
	Args   []Expr
}

// MethodCall is obj.name(args...), dispatched through the receiver.
type MethodCall struct {
	Base
	Receiver Expr
	Name     string
	Args     []Expr
}

// Member is obj.name read access.
type Member struct {
	Base
	Object Expr
	Name   string
}

// Subscript is obj[index].
type Subscript struct {
	Base
	Object Expr
	Index  Expr
}

// ClosureLit is an anonymous function expression.
type ClosureLit struct {
	Base
	Params []string
	Body   []Stmt
}

// Await is await e.
type Await struct {
	Base
	Operand Expr
}

func (*NilLit) exprNode()     {}
func (*BoolLit) exprNode()    {}
func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*ArrayLit) exprNode()   {}
func (*ObjectLit) exprNode()  {}
func (*Variable) exprNode()   {}
func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Ternary) exprNode()    {}
func (*Assign) exprNode()     {}
func (*Call) exprNode()       {}
func (*MethodCall) exprNode() {}
func (*Member) exprNode()     {}
func (*Subscript) exprNode()  {}
func (*ClosureLit) exprNode() {}
func (*Await) exprNode()      {}

// ---- Statements ----

// ExprStmt evaluates an expression for its effect and discards the value.
type ExprStmt struct {
	Base
	E Expr
}

// VarDecl declares a variable. A nil Init means the variable starts nil.
type VarDecl struct {
	Base
	Name     string
	Init     Expr
	Exported bool
}

// Block is { stmts... } with its own scope.
type Block struct {
	Base
	Stmts []Stmt
}

// If is if/else. Else may be nil.
type If struct {
	Base
	Cond Expr
	Then Stmt
	Else Stmt
}

// While loops while Cond is truthy.
type While struct {
	Base
	Cond Expr
	Body Stmt
}

// For is the C-style loop. Init may be nil or a VarDecl/ExprStmt; Cond and
// Incr may be nil.
type For struct {
	Base
	Init Stmt
	Cond Expr
	Incr Expr
	Body Stmt
}

// ForIn is for name in iterable.
type ForIn struct {
	Base
	Name     string
	Iterable Expr
	Body     Stmt
}

// Break exits the innermost loop.
type Break struct{ Base }

// Continue jumps to the next iteration of the innermost loop.
type Continue struct{ Base }

// Return exits the current function. A nil Value returns nil.
type Return struct {
	Base
	Value Expr
}

// FuncDecl declares a named function.
type FuncDecl struct {
	Base
	Name     string
	Params   []string
	Body     []Stmt
	Exported bool
}

// ClassDecl declares a class. Methods are compiled into closures bound to a
// fresh object per construction; a method named "init" becomes the
// constructor body and donates its parameter list to the class constructor.
type ClassDecl struct {
	Base
	Name     string
	Methods  []*FuncDecl
	Exported bool
}

// StructDecl declares a struct type with a fixed field list.
type StructDecl struct {
	Base
	Name     string
	Fields   []string
	Exported bool
}

// Import binds a module, or selected names from it, into the current scope.
// With Names empty the whole module object is bound to Alias (or Module when
// Alias is empty); otherwise each listed name is imported individually.
type Import struct {
	Base
	Module string
	Alias  string
	Names  []string
}

func (*ExprStmt) stmtNode()   {}
func (*VarDecl) stmtNode()    {}
func (*Block) stmtNode()      {}
func (*If) stmtNode()         {}
func (*While) stmtNode()      {}
func (*For) stmtNode()        {}
func (*ForIn) stmtNode()      {}
func (*Break) stmtNode()      {}
func (*Continue) stmtNode()   {}
func (*Return) stmtNode()     {}
func (*FuncDecl) stmtNode()   {}
func (*ClassDecl) stmtNode()  {}
func (*StructDecl) stmtNode() {}
func (*Import) stmtNode()     {}
