package bytecode

import (
	"fmt"
	"strings"
)

// InterpretResult classifies the outcome of running a chunk.
type InterpretResult uint8

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	}
	return fmt.Sprintf("InterpretResult(%d)", uint8(r))
}

// CompileError is a hard compilation failure. Resource limit overflows
// (too many locals, too many captures, jump spans over 16 bits) abort
// compilation before any invalid operand reaches the chunk.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error [line %d]: %s", e.Line, e.Message)
	}
	return "compile error: " + e.Message
}

func compileErrorf(line int, format string, args ...any) *CompileError {
	return &CompileError{Message: fmt.Sprintf(format, args...), Line: line}
}

// TraceEntry is one frame of a runtime error's stack trace, innermost
// first.
type TraceEntry struct {
	Function string
	Line     int
}

// RuntimeError is an execution failure. The VM resets itself after raising
// one, so the same VM stays usable for subsequent runs.
type RuntimeError struct {
	Message string
	Trace   []TraceEntry
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString("runtime error: ")
	b.WriteString(e.Message)
	for _, t := range e.Trace {
		fmt.Fprintf(&b, "\n  [line %d] in %s", t.Line, t.Function)
	}
	return b.String()
}

// ResultOf maps an interpretation error to the classic result triple.
func ResultOf(err error) InterpretResult {
	switch err.(type) {
	case nil:
		return InterpretOK
	case *CompileError:
		return InterpretCompileError
	default:
		return InterpretRuntimeError
	}
}
