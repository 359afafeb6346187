package bytecode

import (
	"github.com/lumenlang/lumen/pkg/ast"
	"github.com/lumenlang/lumen/pkg/token"
)

func (c *Compiler) compileExpr(expr ast.Expr) error {
	if line := expr.Pos(); line > 0 {
		c.line = line
	}
	switch e := expr.(type) {
	case *ast.NilLit:
		c.emit(OpNil)
		return nil
	case *ast.BoolLit:
		if e.Value {
			c.emit(OpTrue)
		} else {
			c.emit(OpFalse)
		}
		return nil
	case *ast.NumberLit:
		return c.emitConstant(NumberValue(e.Value))
	case *ast.StringLit:
		return c.emitConstant(StringValue(e.Value))
	case *ast.ArrayLit:
		return c.compileArrayLit(e)
	case *ast.ObjectLit:
		return c.compileObjectLit(e)
	case *ast.Variable:
		return c.compileGetVariable(e.Name)
	case *ast.Unary:
		return c.compileUnary(e)
	case *ast.Binary:
		return c.compileBinary(e)
	case *ast.Ternary:
		return c.compileTernary(e)
	case *ast.Assign:
		return c.compileAssign(e)
	case *ast.Call:
		return c.compileCall(e)
	case *ast.MethodCall:
		return c.compileMethodCall(e)
	case *ast.Member:
		if err := c.compileExpr(e.Object); err != nil {
			return err
		}
		idx, err := c.identifierConstant(e.Name)
		if err != nil {
			return err
		}
		c.emitWithOperand(OpGetProperty, idx)
		return nil
	case *ast.Subscript:
		if err := c.compileExpr(e.Object); err != nil {
			return err
		}
		if err := c.compileExpr(e.Index); err != nil {
			return err
		}
		c.emit(OpGetSubscript)
		return nil
	case *ast.ClosureLit:
		return c.compileFunction("<anonymous>", e.Params, e.Body, e.Pos())
	case *ast.Await:
		if err := c.compileExpr(e.Operand); err != nil {
			return err
		}
		c.emit(OpAwait)
		return nil
	}
	return compileErrorf(c.line, "cannot compile expression %T", expr)
}

func (c *Compiler) compileArrayLit(e *ast.ArrayLit) error {
	if len(e.Elements) > 0xFF {
		return compileErrorf(c.line, "array literal too large")
	}
	for _, el := range e.Elements {
		if err := c.compileExpr(el); err != nil {
			return err
		}
	}
	c.emitWithOperand(OpArray, byte(len(e.Elements)))
	return nil
}

func (c *Compiler) compileObjectLit(e *ast.ObjectLit) error {
	if len(e.Keys) != len(e.Values) {
		return compileErrorf(c.line, "malformed object literal")
	}
	if len(e.Keys) > 0xFF {
		return compileErrorf(c.line, "object literal too large")
	}
	for i, k := range e.Keys {
		if err := c.emitConstant(StringValue(k)); err != nil {
			return err
		}
		if err := c.compileExpr(e.Values[i]); err != nil {
			return err
		}
	}
	c.emitWithOperand(OpCreateObject, byte(len(e.Keys)))
	return nil
}

func (c *Compiler) compileUnary(e *ast.Unary) error {
	if err := c.compileExpr(e.Operand); err != nil {
		return err
	}
	switch e.Op {
	case token.Minus:
		c.emit(OpNegate)
	case token.Bang:
		c.emit(OpNot)
	default:
		return compileErrorf(c.line, "invalid unary operator '%s'", e.Op)
	}
	return nil
}

var binaryOps = map[token.Kind]Opcode{
	token.Plus:         OpAdd,
	token.Minus:        OpSubtract,
	token.Star:         OpMultiply,
	token.Slash:        OpDivide,
	token.Percent:      OpModulo,
	token.Equal:        OpEqual,
	token.NotEqual:     OpNotEqual,
	token.Greater:      OpGreater,
	token.GreaterEqual: OpGreaterEqual,
	token.Less:         OpLess,
	token.LessEqual:    OpLessEqual,
	token.And:          OpLogAnd,
	token.Or:           OpLogOr,
}

func (c *Compiler) compileBinary(e *ast.Binary) error {
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	op, ok := binaryOps[e.Op]
	if !ok {
		return compileErrorf(c.line, "invalid binary operator '%s'", e.Op)
	}
	c.emit(op)
	return nil
}

func (c *Compiler) compileTernary(e *ast.Ternary) error {
	if err := c.compileExpr(e.Cond); err != nil {
		return err
	}
	elseJump := c.emitJump(OpJumpIfFalse)
	if err := c.compileExpr(e.Then); err != nil {
		return err
	}
	endJump := c.emitJump(OpJump)
	if err := c.patchJump(elseJump); err != nil {
		return err
	}
	if err := c.compileExpr(e.Else); err != nil {
		return err
	}
	return c.patchJump(endJump)
}

// compileAssign handles the three assignable targets. The assigned value is
// left on the stack as the expression result.
func (c *Compiler) compileAssign(e *ast.Assign) error {
	switch target := e.Target.(type) {
	case *ast.Variable:
		if err := c.compileExpr(e.Value); err != nil {
			return err
		}
		return c.compileSetVariable(target.Name)
	case *ast.Member:
		if err := c.compileExpr(target.Object); err != nil {
			return err
		}
		if err := c.compileExpr(e.Value); err != nil {
			return err
		}
		idx, err := c.identifierConstant(target.Name)
		if err != nil {
			return err
		}
		c.emitWithOperand(OpSetProperty, idx)
		return nil
	case *ast.Subscript:
		if err := c.compileExpr(target.Object); err != nil {
			return err
		}
		if err := c.compileExpr(target.Index); err != nil {
			return err
		}
		if err := c.compileExpr(e.Value); err != nil {
			return err
		}
		c.emit(OpSetSubscript)
		return nil
	}
	return compileErrorf(c.line, "invalid assignment target")
}

func (c *Compiler) compileCall(e *ast.Call) error {
	if len(e.Args) > maxCallArgs {
		return compileErrorf(c.line, "too many call arguments")
	}
	if err := c.compileExpr(e.Callee); err != nil {
		return err
	}
	for _, arg := range e.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.emitWithOperand(OpCall, byte(len(e.Args)))
	return nil
}

func (c *Compiler) compileMethodCall(e *ast.MethodCall) error {
	if len(e.Args) > maxCallArgs {
		return compileErrorf(c.line, "too many call arguments")
	}
	if err := c.compileExpr(e.Receiver); err != nil {
		return err
	}
	idx, err := c.identifierConstant(e.Name)
	if err != nil {
		return err
	}
	for _, arg := range e.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.emit(OpMethodCall)
	c.emitByte(idx)
	c.emitByte(byte(len(e.Args)))
	return nil
}
