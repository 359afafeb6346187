package bytecode

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lumen.vm")

const (
	// DefaultStackSize bounds the value stack.
	DefaultStackSize = 256
	// DefaultMaxFrames bounds call nesting.
	DefaultMaxFrames = 64
)

// CallFrame is one activation record. base is the stack slot of the callee
// for function calls; slot base+1 holds the first parameter. savedModule is
// the caller's module context, restored on return.
type CallFrame struct {
	closure     *Closure
	fn          *Function
	ip          int
	base        int
	savedModule *Module
}

func (f *CallFrame) function() *Function {
	if f.closure != nil {
		return f.closure.Function
	}
	return f.fn
}

// VM executes chunks. A VM survives runtime errors: raising one resets the
// stack and frames, so the same VM can keep interpreting.
type VM struct {
	stack         []Value
	sp            int
	frames        []CallFrame
	fc            int
	globals       map[string]Value
	modules       map[string]*Module
	currentModule *Module
	openUpvalues  []*Upvalue
	strings       *StringPool
	loader        ModuleLoader
	output        io.Writer
	trace         bool
}

// Option configures a VM.
type Option func(*VM)

// WithLoader installs the module loader imports resolve through.
func WithLoader(l ModuleLoader) Option {
	return func(vm *VM) { vm.loader = l }
}

// WithOutput redirects the print native. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.output = w }
}

// WithTrace enables per-instruction debug logging.
func WithTrace(trace bool) Option {
	return func(vm *VM) { vm.trace = trace }
}

// WithStackSize overrides the value stack bound.
func WithStackSize(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.stack = make([]Value, n)
		}
	}
}

// WithMaxFrames overrides the call nesting bound.
func WithMaxFrames(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.frames = make([]CallFrame, n)
		}
	}
}

// WithStringPool installs a shared interning pool.
func WithStringPool(p *StringPool) Option {
	return func(vm *VM) { vm.strings = p }
}

// NewVM returns a VM with the default native library registered.
func NewVM(opts ...Option) *VM {
	vm := &VM{
		stack:   make([]Value, DefaultStackSize),
		frames:  make([]CallFrame, DefaultMaxFrames),
		globals: make(map[string]Value),
		modules: make(map[string]*Module),
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.strings == nil {
		vm.strings = NewStringPool(nil)
	}
	vm.registerNatives()
	return vm
}

// Interpret runs a chunk produced by Compile and returns its result value.
// The returned error is a *CompileError or *RuntimeError; ResultOf maps it
// to the classic result triple.
func (vm *VM) Interpret(chunk *Chunk) (Value, error) {
	return vm.InterpretFunction(&Function{Name: "<script>", Chunk: chunk})
}

// InterpretFunction runs a zero-arity function as a top-level program.
// Module-bound functions run in their module context.
func (vm *VM) InterpretFunction(fn *Function) (Value, error) {
	vm.sp = 0
	vm.fc = 0
	vm.openUpvalues = nil

	frame := CallFrame{fn: fn, base: 0, savedModule: vm.currentModule}
	if fn.Module != nil {
		vm.currentModule = fn.Module
	}
	vm.frames[0] = frame
	vm.fc = 1

	result, err := vm.run(0)
	if err != nil {
		vm.resetAfterError()
		return NilValue(), err
	}
	return result, nil
}

// CallValue invokes a callable value with args from Go code, running the VM
// until the call returns. Natives that call back into bytecode use this.
func (vm *VM) CallValue(callee Value, args []Value) (Value, error) {
	if vm.sp+len(args)+1 > len(vm.stack) {
		return NilValue(), vm.runtimeError("stack overflow")
	}
	vm.push(callee)
	for _, a := range args {
		vm.push(a)
	}
	before := vm.fc
	if err := vm.callValue(callee, len(args)); err != nil {
		vm.sp -= len(args) + 1
		return NilValue(), err
	}
	if vm.fc == before {
		// Native or constructor: result is already on the stack.
		return vm.pop(), nil
	}
	result, err := vm.run(before)
	if err != nil {
		vm.resetAfterError()
		return NilValue(), err
	}
	return result, nil
}

// DefineGlobal installs a VM-level global, visible from every module as a
// fallback.
func (vm *VM) DefineGlobal(name string, v Value) {
	vm.globals[name] = v
}

// Global reads a VM-level global.
func (vm *VM) Global(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// RegisterNative installs a named Go function. Arity -1 accepts any number
// of arguments.
func (vm *VM) RegisterNative(name string, arity int, fn NativeFn) {
	vm.globals[name] = NativeValue(&Native{Name: name, Arity: arity, Fn: fn})
}

// Modules returns the loaded module registry.
func (vm *VM) Modules() map[string]*Module {
	return vm.modules
}

// ScanRoots reports every value the VM holds live: the stack, globals,
// loaded modules and open capture cells. External collectors hook in here.
func (vm *VM) ScanRoots(mark func(root any)) {
	for i := 0; i < vm.sp; i++ {
		mark(vm.stack[i])
	}
	for _, v := range vm.globals {
		mark(v)
	}
	for _, m := range vm.modules {
		mark(m)
	}
	for _, u := range vm.openUpvalues {
		mark(u.Get())
	}
}

func (vm *VM) resetAfterError() {
	vm.sp = 0
	vm.fc = 0
	vm.openUpvalues = nil
	vm.currentModule = nil
}

// ---- Stack primitives ----

func (vm *VM) push(v Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) readByte(frame *CallFrame) byte {
	code := frame.function().Chunk.Code
	b := code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readUint16(frame *CallFrame) uint16 {
	chunk := frame.function().Chunk
	v := chunk.ReadUint16(frame.ip)
	frame.ip += 2
	return v
}

func (vm *VM) readConstant(frame *CallFrame, long bool) Value {
	chunk := frame.function().Chunk
	if long {
		return chunk.Constants[vm.readUint16(frame)]
	}
	return chunk.Constants[vm.readByte(frame)]
}

// runtimeError builds a RuntimeError carrying the current stack trace,
// innermost frame first.
func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	err := &RuntimeError{Message: fmt.Sprintf(format, args...)}
	for i := vm.fc - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.function()
		err.Trace = append(err.Trace, TraceEntry{
			Function: fn.Name,
			Line:     fn.Chunk.Line(frame.ip - 1),
		})
	}
	return err
}

// ---- Calls ----

func (vm *VM) callValue(callee Value, argc int) error {
	switch callee.Type() {
	case ValClosure:
		return vm.callFunction(callee.AsClosure(), callee.AsClosure().Function, argc)
	case ValFunction:
		return vm.callFunction(nil, callee.AsFunction(), argc)
	case ValNative:
		return vm.callNative(callee.AsNative(), argc)
	case ValObject:
		if st, ok := callee.AsObject().(*StructType); ok {
			return vm.constructStruct(st, argc)
		}
	}
	return vm.runtimeError("can only call functions (got %s)", callee.TypeName())
}

func (vm *VM) callFunction(closure *Closure, fn *Function, argc int) error {
	if argc != fn.Arity {
		return vm.runtimeError("%s expects %d arguments but got %d", fn.Name, fn.Arity, argc)
	}
	if vm.fc >= len(vm.frames) {
		return vm.runtimeError("stack overflow")
	}
	frame := CallFrame{
		closure:     closure,
		fn:          fn,
		base:        vm.sp - argc - 1,
		savedModule: vm.currentModule,
	}
	if fn.Module != nil {
		vm.currentModule = fn.Module
	}
	vm.frames[vm.fc] = frame
	vm.fc++
	return nil
}

func (vm *VM) callNative(native *Native, argc int) error {
	if native.Arity >= 0 && argc != native.Arity {
		return vm.runtimeError("%s expects %d arguments but got %d", native.Name, native.Arity, argc)
	}
	args := vm.stack[vm.sp-argc : vm.sp]
	result, err := native.Fn(args)
	if err != nil {
		return vm.runtimeError("%s: %s", native.Name, err.Error())
	}
	vm.sp -= argc + 1
	vm.push(result)
	return nil
}

func (vm *VM) constructStruct(st *StructType, argc int) error {
	if argc != len(st.Fields) {
		return vm.runtimeError("struct %s expects %d fields but got %d", st.Name, len(st.Fields), argc)
	}
	fields := make([]Value, argc)
	copy(fields, vm.stack[vm.sp-argc:vm.sp])
	vm.sp -= argc + 1
	vm.push(ObjectValue(&StructInstance{Type: st, Fields: fields}))
	return nil
}

// ---- Upvalues ----

// captureUpvalue returns the open cell for a stack slot, creating it on
// first capture so every closure over the same variable shares one cell.
func (vm *VM) captureUpvalue(slot int) *Upvalue {
	for _, u := range vm.openUpvalues {
		if u.open && u.slot == slot {
			return u
		}
	}
	u := &Upvalue{vm: vm, slot: slot, open: true}
	vm.openUpvalues = append(vm.openUpvalues, u)
	return u
}

// closeUpvalues promotes every open cell at or above from to closed,
// snapshotting the stack slot into the cell.
func (vm *VM) closeUpvalues(from int) {
	kept := vm.openUpvalues[:0]
	for _, u := range vm.openUpvalues {
		if u.open && u.slot >= from {
			u.Close()
		} else {
			kept = append(kept, u)
		}
	}
	vm.openUpvalues = kept
}

// ---- Execution ----

// run executes until the frame count drops to stopAt, returning the value
// the last frame returned. Interpret runs with stopAt 0; reentrant calls
// run with the frame count they started from.
func (vm *VM) run(stopAt int) (Value, error) {
	for {
		frame := &vm.frames[vm.fc-1]
		opOffset := frame.ip
		op := Opcode(vm.readByte(frame))

		if vm.trace {
			log.Debugf("[%04X] %-16s sp=%d fp=%d", opOffset, op, vm.sp, vm.fc)
		}

		// Bound the stack before the op pushes. Variable-push ops push at
		// most two values.
		if need := GetOpcodeInfo(op).StackPush; need != 0 {
			if need < 0 {
				need = 2
			}
			if vm.sp+need > len(vm.stack) {
				return NilValue(), vm.runtimeError("stack overflow")
			}
		}

		switch op {
		case OpConstant:
			vm.push(vm.readConstant(frame, false))
		case OpConstantLong:
			vm.push(vm.readConstant(frame, true))
		case OpNil:
			vm.push(NilValue())
		case OpTrue:
			vm.push(BoolValue(true))
		case OpFalse:
			vm.push(BoolValue(false))

		case OpPop:
			vm.pop()
		case OpDup:
			vm.push(vm.peek(0))
		case OpSwap:
			vm.stack[vm.sp-1], vm.stack[vm.sp-2] = vm.stack[vm.sp-2], vm.stack[vm.sp-1]

		case OpAdd:
			b, a := vm.pop(), vm.pop()
			switch {
			case a.IsNumber() && b.IsNumber():
				vm.push(NumberValue(a.AsNumber() + b.AsNumber()))
			case a.IsString() && b.IsString():
				vm.push(StringValue(vm.strings.Intern(a.AsString() + b.AsString())))
			default:
				return NilValue(), vm.runtimeError("operands to '+' must be two numbers or two strings (got %s and %s)", a.TypeName(), b.TypeName())
			}
		case OpSubtract, OpMultiply, OpDivide, OpModulo:
			b, a := vm.pop(), vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return NilValue(), vm.runtimeError("operands to '%s' must be numbers (got %s and %s)", arithmeticSymbol(op), a.TypeName(), b.TypeName())
			}
			x, y := a.AsNumber(), b.AsNumber()
			switch op {
			case OpSubtract:
				vm.push(NumberValue(x - y))
			case OpMultiply:
				vm.push(NumberValue(x * y))
			case OpDivide:
				vm.push(NumberValue(x / y))
			case OpModulo:
				vm.push(NumberValue(math.Mod(x, y)))
			}
		case OpNegate:
			a := vm.pop()
			if !a.IsNumber() {
				return NilValue(), vm.runtimeError("operand to unary '-' must be a number (got %s)", a.TypeName())
			}
			vm.push(NumberValue(-a.AsNumber()))

		case OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(a.Equals(b)))
		case OpNotEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(!a.Equals(b)))
		case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
			b, a := vm.pop(), vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return NilValue(), vm.runtimeError("comparison operands must be numbers (got %s and %s)", a.TypeName(), b.TypeName())
			}
			x, y := a.AsNumber(), b.AsNumber()
			switch op {
			case OpGreater:
				vm.push(BoolValue(x > y))
			case OpGreaterEqual:
				vm.push(BoolValue(x >= y))
			case OpLess:
				vm.push(BoolValue(x < y))
			case OpLessEqual:
				vm.push(BoolValue(x <= y))
			}

		case OpNot:
			vm.push(BoolValue(!vm.pop().Truthy()))
		case OpLogAnd:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(a.Truthy() && b.Truthy()))
		case OpLogOr:
			b, a := vm.pop(), vm.pop()
			vm.push(BoolValue(a.Truthy() || b.Truthy()))

		case OpGetLocal:
			slot := int(vm.readByte(frame))
			vm.push(vm.stack[frame.base+slot])
		case OpSetLocal:
			slot := int(vm.readByte(frame))
			vm.stack[frame.base+slot] = vm.peek(0)
		case OpDefineGlobal:
			name := vm.readConstant(frame, false).AsString()
			v := vm.pop()
			if vm.currentModule != nil {
				vm.currentModule.Define(name, v)
			} else {
				vm.globals[name] = v
			}
		case OpGetGlobal:
			name := vm.readConstant(frame, false).AsString()
			if vm.currentModule != nil {
				if v, ok := vm.currentModule.Get(name); ok {
					vm.push(v)
					break
				}
			}
			v, ok := vm.globals[name]
			if !ok {
				return NilValue(), vm.runtimeError("undefined variable '%s'", name)
			}
			vm.push(v)
		case OpSetGlobal:
			name := vm.readConstant(frame, false).AsString()
			v := vm.peek(0)
			if vm.currentModule != nil && vm.currentModule.Set(name, v) {
				break
			}
			if _, ok := vm.globals[name]; !ok {
				return NilValue(), vm.runtimeError("undefined variable '%s'", name)
			}
			vm.globals[name] = v
		case OpGetUpvalue:
			idx := int(vm.readByte(frame))
			vm.push(frame.closure.Upvalues[idx].Get())
		case OpSetUpvalue:
			idx := int(vm.readByte(frame))
			frame.closure.Upvalues[idx].Set(vm.peek(0))
		case OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case OpJump:
			offset := int(vm.readUint16(frame))
			frame.ip += offset
		case OpJumpIfFalse:
			offset := int(vm.readUint16(frame))
			if !vm.pop().Truthy() {
				frame.ip += offset
			}
		case OpJumpIfTrue:
			offset := int(vm.readUint16(frame))
			if vm.pop().Truthy() {
				frame.ip += offset
			}
		case OpLoop:
			offset := int(vm.readUint16(frame))
			frame.ip -= offset

		case OpClosure, OpClosureLong:
			fnValue := vm.readConstant(frame, op == OpClosureLong)
			fn := fnValue.AsFunction()
			if fn == nil {
				return NilValue(), vm.runtimeError("malformed closure instruction")
			}
			closure := NewClosure(fn)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame) != 0
				index := int(vm.readByte(frame))
				if isLocal {
					closure.Upvalues[i] = vm.captureUpvalue(frame.base + index)
				} else {
					if frame.closure == nil {
						return NilValue(), vm.runtimeError("malformed closure instruction")
					}
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(ClosureValue(closure))
		case OpCall:
			argc := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return NilValue(), err
			}
		case OpMethodCall:
			name := vm.readConstant(frame, false).AsString()
			argc := int(vm.readByte(frame))
			method, err := vm.resolveMethod(vm.peek(argc), name)
			if err != nil {
				return NilValue(), err
			}
			vm.stack[vm.sp-argc-1] = method
			if err := vm.callValue(method, argc); err != nil {
				return NilValue(), err
			}
		case OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.base)
			vm.currentModule = frame.savedModule
			vm.fc--
			vm.sp = frame.base
			if vm.fc == stopAt {
				return result, nil
			}
			vm.push(result)

		case OpArray:
			n := int(vm.readByte(frame))
			elements := make([]Value, n)
			copy(elements, vm.stack[vm.sp-n:vm.sp])
			vm.sp -= n
			vm.push(ObjectValue(NewArray(elements)))
		case OpGetSubscript:
			index, obj := vm.pop(), vm.pop()
			v, err := vm.subscriptGet(obj, index)
			if err != nil {
				return NilValue(), err
			}
			vm.push(v)
		case OpSetSubscript:
			v, index, obj := vm.pop(), vm.pop(), vm.pop()
			if err := vm.subscriptSet(obj, index, v); err != nil {
				return NilValue(), err
			}
			vm.push(v)
		case OpCreateObject:
			n := int(vm.readByte(frame))
			obj := NewObject()
			base := vm.sp - 2*n
			for i := 0; i < n; i++ {
				key := vm.stack[base+2*i]
				obj.Set(key.AsString(), vm.stack[base+2*i+1])
			}
			vm.sp = base
			vm.push(ObjectValue(obj))
		case OpGetProperty:
			name := vm.readConstant(frame, false).AsString()
			obj := vm.pop()
			v, err := vm.propertyGet(obj, name)
			if err != nil {
				return NilValue(), err
			}
			vm.push(v)
		case OpSetProperty:
			name := vm.readConstant(frame, false).AsString()
			v, obj := vm.pop(), vm.pop()
			if err := vm.propertySet(obj, name, v); err != nil {
				return NilValue(), err
			}
			vm.push(v)

		case OpDefineStruct:
			n := int(vm.readByte(frame))
			fields := make([]string, n)
			for i := n - 1; i >= 0; i-- {
				fields[i] = vm.pop().AsString()
			}
			name := vm.pop().AsString()
			vm.push(ObjectValue(&StructType{Name: name, Fields: fields}))

		case OpGetIter:
			coll := vm.peek(0)
			if _, ok := coll.AsObject().(*Array); !ok {
				return NilValue(), vm.runtimeError("can only iterate arrays (got %s)", coll.TypeName())
			}
			vm.push(NumberValue(0))
		case OpForIter:
			cursor := vm.peek(0)
			arr, _ := vm.peek(1).AsObject().(*Array)
			if arr == nil {
				return NilValue(), vm.runtimeError("iterator lost its collection")
			}
			i := int(cursor.AsNumber())
			if i < len(arr.Elements) {
				vm.pop() // cursor
				vm.push(NumberValue(float64(i + 1)))
				vm.push(arr.Elements[i])
				vm.push(BoolValue(true))
			} else {
				vm.push(BoolValue(false))
			}

		case OpLoadModule:
			path := vm.readConstant(frame, false).AsString()
			m, ok := vm.modules[path]
			if !ok {
				if vm.loader == nil {
					return NilValue(), vm.runtimeError("cannot load module '%s': no module loader installed", path)
				}
				loaded, err := vm.loader.Load(path)
				if err != nil {
					return NilValue(), vm.runtimeError("cannot load module '%s': %s", path, err.Error())
				}
				vm.modules[path] = loaded
				m = loaded
			}
			vm.push(ObjectValue(m))
		case OpImportFrom:
			name := vm.readConstant(frame, false).AsString()
			m, _ := vm.peek(0).AsObject().(*Module)
			if m == nil {
				return NilValue(), vm.runtimeError("import source is not a module (got %s)", vm.peek(0).TypeName())
			}
			v, ok := m.GetExport(name)
			if !ok {
				return NilValue(), vm.runtimeError("module '%s' does not export '%s'", m.Name, name)
			}
			vm.push(v)
		case OpModuleExport:
			name := vm.readConstant(frame, false).AsString()
			if vm.currentModule == nil {
				return NilValue(), vm.runtimeError("'export' outside a module")
			}
			vm.currentModule.Export(name)

		case OpAwait:
			v := vm.pop()
			aw, _ := v.AsObject().(Awaitable)
			if aw == nil {
				return NilValue(), vm.runtimeError("can only await a promise (got %s)", v.TypeName())
			}
			result, ready, failure := aw.AwaitResult()
			if !ready {
				return NilValue(), vm.runtimeError("awaited promise is still pending")
			}
			if failure != nil {
				return NilValue(), vm.runtimeError("awaited promise failed: %s", failure.Error())
			}
			vm.push(result)

		case OpHalt:
			return NilValue(), nil

		default:
			return NilValue(), vm.runtimeError("unknown opcode 0x%02X", byte(op))
		}
	}
}

func arithmeticSymbol(op Opcode) string {
	switch op {
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpModulo:
		return "%"
	}
	return op.String()
}

// resolveMethod looks a name up on a method-call receiver.
func (vm *VM) resolveMethod(receiver Value, name string) (Value, error) {
	switch o := receiver.AsObject().(type) {
	case *Object:
		if v, ok := o.Get(name); ok {
			return v, nil
		}
		return NilValue(), vm.runtimeError("undefined property '%s'", name)
	case *StructInstance:
		if i := o.Type.FieldIndex(name); i != -1 {
			return o.Fields[i], nil
		}
		return NilValue(), vm.runtimeError("struct %s has no field '%s'", o.Type.Name, name)
	case *Module:
		if v, ok := o.GetExport(name); ok {
			return v, nil
		}
		return NilValue(), vm.runtimeError("module '%s' does not export '%s'", o.Name, name)
	}
	return NilValue(), vm.runtimeError("can only call methods on objects, structs and modules (got %s)", receiver.TypeName())
}

func (vm *VM) propertyGet(obj Value, name string) (Value, error) {
	switch o := obj.AsObject().(type) {
	case *Object:
		if v, ok := o.Get(name); ok {
			return v, nil
		}
		return NilValue(), vm.runtimeError("undefined property '%s'", name)
	case *StructInstance:
		if i := o.Type.FieldIndex(name); i != -1 {
			return o.Fields[i], nil
		}
		return NilValue(), vm.runtimeError("struct %s has no field '%s'", o.Type.Name, name)
	case *Module:
		if v, ok := o.GetExport(name); ok {
			return v, nil
		}
		return NilValue(), vm.runtimeError("module '%s' does not export '%s'", o.Name, name)
	}
	return NilValue(), vm.runtimeError("only objects, structs and modules have properties (got %s)", obj.TypeName())
}

func (vm *VM) propertySet(obj Value, name string, v Value) error {
	switch o := obj.AsObject().(type) {
	case *Object:
		o.Set(name, v)
		return nil
	case *StructInstance:
		if i := o.Type.FieldIndex(name); i != -1 {
			o.Fields[i] = v
			return nil
		}
		return vm.runtimeError("struct %s has no field '%s'", o.Type.Name, name)
	case *Module:
		return vm.runtimeError("cannot assign to module '%s'", o.Name)
	}
	return vm.runtimeError("only objects and structs accept property assignment (got %s)", obj.TypeName())
}

func (vm *VM) subscriptGet(obj, index Value) (Value, error) {
	switch o := obj.AsObject().(type) {
	case *Array:
		i, err := vm.arrayIndex(o, index)
		if err != nil {
			return NilValue(), err
		}
		return o.Elements[i], nil
	case *Object:
		if !index.IsString() {
			return NilValue(), vm.runtimeError("object keys must be strings (got %s)", index.TypeName())
		}
		if v, ok := o.Get(index.AsString()); ok {
			return v, nil
		}
		return NilValue(), nil
	}
	if obj.IsString() {
		s := obj.AsString()
		if !index.IsNumber() {
			return NilValue(), vm.runtimeError("string index must be a number (got %s)", index.TypeName())
		}
		i := int(index.AsNumber())
		if i < 0 || i >= len(s) {
			return NilValue(), vm.runtimeError("string index %d out of range", i)
		}
		return StringValue(s[i : i+1]), nil
	}
	return NilValue(), vm.runtimeError("cannot index %s", obj.TypeName())
}

func (vm *VM) subscriptSet(obj, index, v Value) error {
	switch o := obj.AsObject().(type) {
	case *Array:
		i, err := vm.arrayIndex(o, index)
		if err != nil {
			return err
		}
		o.Elements[i] = v
		return nil
	case *Object:
		if !index.IsString() {
			return vm.runtimeError("object keys must be strings (got %s)", index.TypeName())
		}
		o.Set(index.AsString(), v)
		return nil
	}
	return vm.runtimeError("cannot index %s", obj.TypeName())
}

func (vm *VM) arrayIndex(arr *Array, index Value) (int, error) {
	if !index.IsNumber() {
		return 0, vm.runtimeError("array index must be a number (got %s)", index.TypeName())
	}
	f := index.AsNumber()
	i := int(f)
	if float64(i) != f {
		return 0, vm.runtimeError("array index must be an integer (got %v)", f)
	}
	if i < 0 || i >= len(arr.Elements) {
		return 0, vm.runtimeError("array index %d out of range (length %d)", i, len(arr.Elements))
	}
	return i, nil
}
