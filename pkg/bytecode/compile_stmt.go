package bytecode

import (
	"github.com/lumenlang/lumen/pkg/ast"
)

func (c *Compiler) compileStatement(stmt ast.Stmt) error {
	if line := stmt.Pos(); line > 0 {
		c.line = line
	}
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		if err := c.compileExpr(s.E); err != nil {
			return err
		}
		c.emit(OpPop)
		return nil
	case *ast.VarDecl:
		return c.compileVarDecl(s)
	case *ast.Block:
		c.beginScope()
		for _, inner := range s.Stmts {
			if err := c.compileStatement(inner); err != nil {
				return err
			}
		}
		c.endScope()
		return nil
	case *ast.If:
		return c.compileIf(s)
	case *ast.While:
		return c.compileWhile(s)
	case *ast.For:
		return c.compileFor(s)
	case *ast.ForIn:
		return c.compileForIn(s)
	case *ast.Break:
		return c.compileBreak()
	case *ast.Continue:
		return c.compileContinue()
	case *ast.Return:
		return c.compileReturn(s)
	case *ast.FuncDecl:
		return c.compileFuncDecl(s)
	case *ast.ClassDecl:
		return c.compileClassDecl(s)
	case *ast.StructDecl:
		return c.compileStructDecl(s)
	case *ast.Import:
		return c.compileImport(s)
	}
	return compileErrorf(c.line, "cannot compile statement %T", stmt)
}

func (c *Compiler) compileVarDecl(s *ast.VarDecl) error {
	if err := c.declareVariable(s.Name); err != nil {
		return err
	}
	if s.Init != nil {
		if err := c.compileExpr(s.Init); err != nil {
			return err
		}
	} else {
		c.emit(OpNil)
	}
	if err := c.defineVariable(s.Name); err != nil {
		return err
	}
	if s.Exported {
		return c.emitExport(s.Name)
	}
	return nil
}

func (c *Compiler) compileIf(s *ast.If) error {
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	thenJump := c.emitJump(OpJumpIfFalse)
	if err := c.compileStatement(s.Then); err != nil {
		return err
	}
	if s.Else == nil {
		return c.patchJump(thenJump)
	}
	elseJump := c.emitJump(OpJump)
	if err := c.patchJump(thenJump); err != nil {
		return err
	}
	if err := c.compileStatement(s.Else); err != nil {
		return err
	}
	return c.patchJump(elseJump)
}

func (c *Compiler) compileWhile(s *ast.While) error {
	loopStart := len(c.chunk().Code)
	loop := &loopContext{enclosing: c.loop, start: loopStart, scopeDepth: c.scopeDepth}
	c.loop = loop
	defer func() { c.loop = loop.enclosing }()

	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	exitJump := c.emitJump(OpJumpIfFalse)
	if err := c.compileStatement(s.Body); err != nil {
		return err
	}
	if err := c.emitLoop(loop.start); err != nil {
		return err
	}
	if err := c.patchJump(exitJump); err != nil {
		return err
	}
	return c.patchBreaks(loop)
}

// compileFor lowers the C-style loop. With an increment clause, continue
// and the body's trailing loop both target the increment, which then loops
// back to the condition.
func (c *Compiler) compileFor(s *ast.For) error {
	c.beginScope()
	if s.Init != nil {
		if err := c.compileStatement(s.Init); err != nil {
			return err
		}
	}
	loopStart := len(c.chunk().Code)
	loop := &loopContext{enclosing: c.loop, start: loopStart, scopeDepth: c.scopeDepth}
	c.loop = loop
	defer func() { c.loop = loop.enclosing }()

	exitJump := -1
	if s.Cond != nil {
		if err := c.compileExpr(s.Cond); err != nil {
			return err
		}
		exitJump = c.emitJump(OpJumpIfFalse)
	}
	if s.Incr != nil {
		bodyJump := c.emitJump(OpJump)
		incrStart := len(c.chunk().Code)
		if err := c.compileExpr(s.Incr); err != nil {
			return err
		}
		c.emit(OpPop)
		if err := c.emitLoop(loopStart); err != nil {
			return err
		}
		loop.start = incrStart
		if err := c.patchJump(bodyJump); err != nil {
			return err
		}
	}
	if err := c.compileStatement(s.Body); err != nil {
		return err
	}
	if err := c.emitLoop(loop.start); err != nil {
		return err
	}
	if exitJump != -1 {
		if err := c.patchJump(exitJump); err != nil {
			return err
		}
	}
	if err := c.patchBreaks(loop); err != nil {
		return err
	}
	c.endScope()
	return nil
}

// compileForIn lowers iteration over a collection. The collection and the
// iteration cursor occupy two unnamed locals for the duration of the loop;
// each pass binds the current element as a fresh local in an inner scope.
func (c *Compiler) compileForIn(s *ast.ForIn) error {
	c.beginScope()
	if err := c.compileExpr(s.Iterable); err != nil {
		return err
	}
	if err := c.addHiddenLocal(); err != nil { // collection
		return err
	}
	c.emit(OpGetIter)
	if err := c.addHiddenLocal(); err != nil { // cursor
		return err
	}

	loopStart := len(c.chunk().Code)
	loop := &loopContext{enclosing: c.loop, start: loopStart, scopeDepth: c.scopeDepth}
	c.loop = loop
	defer func() { c.loop = loop.enclosing }()

	c.emit(OpForIter)
	exitJump := c.emitJump(OpJumpIfFalse)

	c.beginScope()
	if err := c.declareVariable(s.Name); err != nil {
		return err
	}
	c.markInitialized()
	if err := c.compileStatement(s.Body); err != nil {
		return err
	}
	c.endScope()

	if err := c.emitLoop(loop.start); err != nil {
		return err
	}
	if err := c.patchJump(exitJump); err != nil {
		return err
	}
	if err := c.patchBreaks(loop); err != nil {
		return err
	}
	c.endScope() // pops cursor and collection
	return nil
}

func (c *Compiler) compileBreak() error {
	if c.loop == nil {
		return compileErrorf(c.line, "'break' outside a loop")
	}
	c.discardLoopLocals(c.loop)
	c.loop.breaks = append(c.loop.breaks, c.emitJump(OpJump))
	return nil
}

func (c *Compiler) compileContinue() error {
	if c.loop == nil {
		return compileErrorf(c.line, "'continue' outside a loop")
	}
	c.discardLoopLocals(c.loop)
	return c.emitLoop(c.loop.start)
}

func (c *Compiler) patchBreaks(loop *loopContext) error {
	for _, offset := range loop.breaks {
		if err := c.patchJump(offset); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileReturn(s *ast.Return) error {
	if c.kind == funcScript {
		return compileErrorf(c.line, "cannot return from top-level code")
	}
	if s.Value != nil {
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
	} else {
		c.emit(OpNil)
	}
	c.emit(OpReturn)
	return nil
}

func (c *Compiler) compileFuncDecl(s *ast.FuncDecl) error {
	if err := c.declareVariable(s.Name); err != nil {
		return err
	}
	// Initialize before the body so the function can call itself.
	c.markInitialized()
	if err := c.compileFunction(s.Name, s.Params, s.Body, s.Pos()); err != nil {
		return err
	}
	if err := c.defineVariable(s.Name); err != nil {
		return err
	}
	if s.Exported {
		return c.emitExport(s.Name)
	}
	return nil
}

// compileClassDecl desugars a class into its constructor function: build an
// object, bind each method as a closure capturing self, run init if
// present, return the object.
func (c *Compiler) compileClassDecl(s *ast.ClassDecl) error {
	line := s.Pos()
	base := ast.Base{Line: line}

	var initMethod *ast.FuncDecl
	for _, m := range s.Methods {
		if m.Name == "init" {
			initMethod = m
		}
	}
	var ctorParams []string
	if initMethod != nil {
		ctorParams = initMethod.Params
	}

	body := []ast.Stmt{
		&ast.VarDecl{Base: base, Name: "self", Init: &ast.ObjectLit{Base: base}},
	}
	for _, m := range s.Methods {
		mbase := ast.Base{Line: m.Pos()}
		body = append(body, &ast.ExprStmt{Base: mbase, E: &ast.Assign{
			Base:   mbase,
			Target: &ast.Member{Base: mbase, Object: &ast.Variable{Base: mbase, Name: "self"}, Name: m.Name},
			Value:  &ast.ClosureLit{Base: mbase, Params: m.Params, Body: m.Body},
		}})
	}
	if initMethod != nil {
		args := make([]ast.Expr, len(ctorParams))
		for i, p := range ctorParams {
			args[i] = &ast.Variable{Base: base, Name: p}
		}
		body = append(body, &ast.ExprStmt{Base: base, E: &ast.MethodCall{
			Base:     base,
			Receiver: &ast.Variable{Base: base, Name: "self"},
			Name:     "init",
			Args:     args,
		}})
	}
	body = append(body, &ast.Return{Base: base, Value: &ast.Variable{Base: base, Name: "self"}})

	return c.compileFuncDecl(&ast.FuncDecl{
		Base:     base,
		Name:     s.Name,
		Params:   ctorParams,
		Body:     body,
		Exported: s.Exported,
	})
}

func (c *Compiler) compileStructDecl(s *ast.StructDecl) error {
	if len(s.Fields) > 0xFF {
		return compileErrorf(c.line, "too many fields in struct '%s'", s.Name)
	}
	if err := c.declareVariable(s.Name); err != nil {
		return err
	}
	if err := c.emitConstant(StringValue(s.Name)); err != nil {
		return err
	}
	for _, f := range s.Fields {
		if err := c.emitConstant(StringValue(f)); err != nil {
			return err
		}
	}
	c.emitWithOperand(OpDefineStruct, byte(len(s.Fields)))
	if err := c.defineVariable(s.Name); err != nil {
		return err
	}
	if s.Exported {
		return c.emitExport(s.Name)
	}
	return nil
}

func (c *Compiler) compileImport(s *ast.Import) error {
	if c.scopeDepth > 0 {
		return compileErrorf(c.line, "'import' must be at top level")
	}
	pathIdx, err := c.identifierConstant(s.Module)
	if err != nil {
		return err
	}
	c.emitWithOperand(OpLoadModule, pathIdx)
	if len(s.Names) == 0 {
		bind := s.Alias
		if bind == "" {
			bind = s.Module
		}
		return c.defineVariable(bind)
	}
	for _, name := range s.Names {
		nameIdx, err := c.identifierConstant(name)
		if err != nil {
			return err
		}
		c.emitWithOperand(OpImportFrom, nameIdx)
		if err := c.defineVariable(name); err != nil {
			return err
		}
	}
	c.emit(OpPop) // the module object
	return nil
}

// emitExport marks a just-defined top-level binding as a module export.
func (c *Compiler) emitExport(name string) error {
	if c.module == nil {
		return compileErrorf(c.line, "'export' outside a module")
	}
	if c.scopeDepth > 0 {
		return compileErrorf(c.line, "'export' must be at top level")
	}
	idx, err := c.identifierConstant(name)
	if err != nil {
		return err
	}
	c.emitWithOperand(OpModuleExport, idx)
	return nil
}
