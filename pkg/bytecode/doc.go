// Package bytecode implements the Lumen compiler and virtual machine: a
// single-pass compiler from the syntax tree to stack-machine bytecode, and
// the VM that executes it.
//
// # Compilation model
//
// Each function compiles in its own Compiler linked to its enclosing
// compiler; there is no shared compilation state. Locals are tracked as a
// flat array of (name, depth) pairs; a depth of -1 marks a local that is
// declared but not yet initialized, which is how reads inside a variable's
// own initializer are caught. Scopes pop their locals on exit, closing the
// captured ones.
//
// Variables that closures reach from enclosing functions become upvalues.
// Resolution first tries the enclosing function's locals, then recurses
// outward, threading a capture descriptor through every intermediate
// function so that deeply nested closures share one cell per variable.
// Descriptors are deduplicated per function and capped at 255; exceeding
// the cap, like exceeding 255 locals or a 16-bit jump span, is a hard
// compile error.
//
// # Execution model
//
// The VM is a classic stack machine. A call places the callee at the new
// frame's base slot with the arguments above it, so parameters start at
// slot 1; the top-level script frame has no callee slot and its locals
// start at slot 0. Returning closes every capture cell at or above the
// frame base (promoting it from a live stack slot to an owned value),
// truncates the stack, and pushes the result.
//
// Functions compiled inside a module carry a module reference. Calling one
// switches the VM's module context so global reads and writes resolve
// against the module scope before the VM-level globals; the caller's
// context is saved in the frame and restored on return.
//
// # Diagnostics
//
// Chunks carry a line table parallel to the code. Runtime errors capture a
// stack trace from the live frames and reset the VM, leaving it reusable.
// The disassembler renders annotated listings, and VerifyStackShape
// statically checks that all control-flow paths agree on stack depth using
// the per-opcode metadata table.
package bytecode
