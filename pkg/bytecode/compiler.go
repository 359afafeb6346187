package bytecode

import (
	"github.com/lumenlang/lumen/pkg/ast"
)

const (
	// maxLocals caps the locals of one function; slots are single-byte
	// operands.
	maxLocals = 255
	// maxUpvalues caps the distinct captures of one function.
	maxUpvalues = 255
	// maxCallArgs caps the arguments of one call.
	maxCallArgs = 255
)

type funcKind uint8

const (
	funcScript funcKind = iota
	funcFunction
)

// local is a compile-time local variable. depth -1 marks a declared but
// not yet initialized local; reading one is the own-initializer error.
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// upvalueDesc describes one capture of the function being compiled.
// IsLocal means the capture reads a local of the immediately enclosing
// function; otherwise it chains through the enclosing function's capture at
// the same index.
type upvalueDesc struct {
	index   uint8
	isLocal bool
}

// loopContext tracks the innermost enclosing loop: where continue jumps,
// the scope depth at loop entry (break and continue pop locals declared
// above it) and the break jumps to patch at loop end.
type loopContext struct {
	enclosing  *loopContext
	start      int
	scopeDepth int
	breaks     []int
}

// Compiler compiles one function. Function compilers link to their
// enclosing compiler; there is no package-level compilation state, so
// independent compilations never interfere.
type Compiler struct {
	enclosing  *Compiler
	function   *Function
	kind       funcKind
	locals     []local
	scopeDepth int
	upvalues   []upvalueDesc
	loop       *loopContext
	module     *Module
	line       int
	lastOp     Opcode
	emitted    bool
}

func newCompiler(enclosing *Compiler, kind funcKind, name string, arity int, module *Module) *Compiler {
	c := &Compiler{
		enclosing: enclosing,
		function:  NewFunction(name, arity),
		kind:      kind,
		module:    module,
	}
	c.function.Module = module
	if kind != funcScript {
		// Slot 0 holds the callee; reserving it keeps user locals aligned
		// with the VM call convention.
		c.locals = append(c.locals, local{name: "", depth: 0})
	}
	return c
}

// Compile compiles a program into a runnable chunk. When the last
// statement is an expression statement its value becomes the chunk's
// result, which is what interactive sessions rely on.
func Compile(prog *ast.Program) (*Chunk, error) {
	return compileProgram(prog, nil)
}

// CompileModule compiles a program as the body of module. Functions it
// creates are bound to the module, so their global accesses resolve against
// the module scope at run time.
func CompileModule(prog *ast.Program, module *Module) (*Chunk, error) {
	if module == nil {
		return nil, compileErrorf(0, "module compilation requires a module")
	}
	return compileProgram(prog, module)
}

func compileProgram(prog *ast.Program, module *Module) (*Chunk, error) {
	name := "<script>"
	if module != nil {
		name = module.Name
	}
	c := newCompiler(nil, funcScript, name, 0, module)
	for i, stmt := range prog.Stmts {
		if i == len(prog.Stmts)-1 {
			if es, ok := stmt.(*ast.ExprStmt); ok {
				// Last expression statement: leave its value as the
				// program result instead of discarding it.
				c.line = es.Pos()
				if err := c.compileExpr(es.E); err != nil {
					return nil, err
				}
				c.emit(OpReturn)
				break
			}
		}
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}
	fn := c.end()
	return fn.Chunk, nil
}

// end finishes the function being compiled, adding the implicit nil return
// unless the code already ends with a return.
func (c *Compiler) end() *Function {
	if !c.emitted || c.lastOp != OpReturn {
		c.emit(OpNil)
		c.emit(OpReturn)
	}
	c.function.UpvalueCount = len(c.upvalues)
	return c.function
}

func (c *Compiler) chunk() *Chunk {
	return c.function.Chunk
}

// ---- Emission helpers ----

func (c *Compiler) emit(op Opcode) {
	c.chunk().Emit(op, c.line)
	c.lastOp = op
	c.emitted = true
}

func (c *Compiler) emitByte(b byte) {
	c.chunk().EmitByte(b, c.line)
}

func (c *Compiler) emitWithOperand(op Opcode, operand byte) {
	c.emit(op)
	c.emitByte(operand)
}

func (c *Compiler) emitJump(op Opcode) int {
	c.emit(op)
	c.emitByte(0xFF)
	c.emitByte(0xFF)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) error {
	return c.chunk().PatchJump(offset, c.line)
}

func (c *Compiler) emitLoop(start int) error {
	err := c.chunk().EmitLoop(start, c.line)
	c.lastOp = OpLoop
	return err
}

// emitConstant pushes v, switching to the long-form opcode once the pool
// outgrows single-byte indexes.
func (c *Compiler) emitConstant(v Value) error {
	idx := c.chunk().AddConstant(v)
	switch {
	case idx <= 0xFF:
		c.emitWithOperand(OpConstant, byte(idx))
	case idx <= 0xFFFF:
		c.emit(OpConstantLong)
		c.chunk().EmitUint16(uint16(idx), c.line)
	default:
		return compileErrorf(c.line, "too many constants in one chunk")
	}
	return nil
}

// identifierConstant interns a name in the constant pool for the
// single-byte name operands (globals, properties, imports).
func (c *Compiler) identifierConstant(name string) (byte, error) {
	idx := c.chunk().AddConstant(StringValue(name))
	if idx > 0xFF {
		return 0, compileErrorf(c.line, "too many names in one chunk")
	}
	return byte(idx), nil
}

// ---- Scopes and locals ----

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope discards the locals of the closing scope, newest first.
// Captured locals are closed instead of popped so closures keep them alive.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].isCaptured {
			c.emit(OpCloseUpvalue)
		} else {
			c.emit(OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// declareVariable reserves a local for name in the current scope. At scope
// depth zero bindings are globals and nothing is reserved.
func (c *Compiler) declareVariable(name string) error {
	if c.scopeDepth == 0 {
		return nil
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name {
			return compileErrorf(c.line, "already a variable named '%s' in this scope", name)
		}
	}
	return c.addLocal(name)
}

func (c *Compiler) addLocal(name string) error {
	if len(c.locals) >= maxLocals {
		return compileErrorf(c.line, "too many local variables in function")
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
	return nil
}

// addHiddenLocal reserves an unnamed, already initialized slot. The for-in
// lowering uses two of these for the collection and cursor.
func (c *Compiler) addHiddenLocal() error {
	if len(c.locals) >= maxLocals {
		return compileErrorf(c.line, "too many local variables in function")
	}
	c.locals = append(c.locals, local{name: "", depth: c.scopeDepth})
	return nil
}

// markInitialized makes the newest local visible to reads. No-op at scope
// depth zero.
func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

// defineVariable completes a declaration: locals become readable, globals
// emit the define instruction.
func (c *Compiler) defineVariable(name string) error {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return nil
	}
	idx, err := c.identifierConstant(name)
	if err != nil {
		return err
	}
	c.emitWithOperand(OpDefineGlobal, idx)
	return nil
}

// resolveLocal finds name among this function's locals, newest first so
// shadowing works. Finding a local still at depth -1 means the initializer
// references the variable it is initializing.
func (c *Compiler) resolveLocal(name string) (int, error) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				return -1, compileErrorf(c.line, "cannot read local variable '%s' in its own initializer", name)
			}
			return i, nil
		}
	}
	return -1, nil
}

// resolveUpvalue finds name in an enclosing function, threading a chain of
// captures through every intermediate function. Returns -1 when the name is
// not a local of any enclosing function.
func (c *Compiler) resolveUpvalue(name string) (int, error) {
	if c.enclosing == nil {
		return -1, nil
	}
	slot, err := c.enclosing.resolveLocal(name)
	if err != nil {
		return -1, err
	}
	if slot != -1 {
		c.enclosing.locals[slot].isCaptured = true
		return c.addUpvalue(uint8(slot), true)
	}
	up, err := c.enclosing.resolveUpvalue(name)
	if err != nil {
		return -1, err
	}
	if up != -1 {
		return c.addUpvalue(uint8(up), false)
	}
	return -1, nil
}

// addUpvalue registers a capture, reusing an existing descriptor for the
// same (index, isLocal) pair.
func (c *Compiler) addUpvalue(index uint8, isLocal bool) (int, error) {
	for i, up := range c.upvalues {
		if up.index == index && up.isLocal == isLocal {
			return i, nil
		}
	}
	if len(c.upvalues) >= maxUpvalues {
		return -1, compileErrorf(c.line, "too many captured variables in function")
	}
	c.upvalues = append(c.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1, nil
}

// ---- Variable access ----

func (c *Compiler) compileGetVariable(name string) error {
	slot, err := c.resolveLocal(name)
	if err != nil {
		return err
	}
	if slot != -1 {
		c.emitWithOperand(OpGetLocal, byte(slot))
		return nil
	}
	up, err := c.resolveUpvalue(name)
	if err != nil {
		return err
	}
	if up != -1 {
		c.emitWithOperand(OpGetUpvalue, byte(up))
		return nil
	}
	idx, err := c.identifierConstant(name)
	if err != nil {
		return err
	}
	c.emitWithOperand(OpGetGlobal, idx)
	return nil
}

func (c *Compiler) compileSetVariable(name string) error {
	slot, err := c.resolveLocal(name)
	if err != nil {
		return err
	}
	if slot != -1 {
		c.emitWithOperand(OpSetLocal, byte(slot))
		return nil
	}
	up, err := c.resolveUpvalue(name)
	if err != nil {
		return err
	}
	if up != -1 {
		c.emitWithOperand(OpSetUpvalue, byte(up))
		return nil
	}
	idx, err := c.identifierConstant(name)
	if err != nil {
		return err
	}
	c.emitWithOperand(OpSetGlobal, idx)
	return nil
}

// ---- Functions ----

// compileFunction compiles a nested function body in a child compiler and
// emits the closure instruction into this compiler's chunk, followed by one
// (isLocal, index) pair per capture.
func (c *Compiler) compileFunction(name string, params []string, body []ast.Stmt, line int) error {
	child := newCompiler(c, funcFunction, name, len(params), c.module)
	child.line = line
	child.beginScope()
	for _, p := range params {
		if err := child.declareVariable(p); err != nil {
			return err
		}
		child.markInitialized()
	}
	for _, stmt := range body {
		if err := child.compileStatement(stmt); err != nil {
			return err
		}
	}
	fn := child.end()

	idx := c.chunk().AddConstant(FunctionValue(fn))
	switch {
	case idx <= 0xFF:
		c.emitWithOperand(OpClosure, byte(idx))
	case idx <= 0xFFFF:
		c.emit(OpClosureLong)
		c.chunk().EmitUint16(uint16(idx), c.line)
	default:
		return compileErrorf(c.line, "too many constants in one chunk")
	}
	for _, up := range child.upvalues {
		if up.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(up.index)
	}
	return nil
}

// discardLoopLocals emits pops for every local declared since the
// innermost loop was entered, without forgetting them: the bytecode path
// leaves the loop but compilation of the enclosing block continues.
func (c *Compiler) discardLoopLocals(loop *loopContext) {
	for i := len(c.locals) - 1; i >= 0 && c.locals[i].depth > loop.scopeDepth; i-- {
		if c.locals[i].isCaptured {
			c.emit(OpCloseUpvalue)
		} else {
			c.emit(OpPop)
		}
	}
}
