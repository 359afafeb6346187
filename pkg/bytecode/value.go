package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType tags the runtime type of a Value.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValString
	ValFunction
	ValClosure
	ValNative
	ValObject
)

var valueTypeNames = [...]string{
	ValNil:      "nil",
	ValBool:     "bool",
	ValNumber:   "number",
	ValString:   "string",
	ValFunction: "function",
	ValClosure:  "function",
	ValNative:   "function",
	ValObject:   "object",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// Value is a tagged Lumen runtime value. The zero Value is nil.
// Heap-backed kinds (arrays, objects, structs, modules, awaitables) live
// behind the ValObject tag and compare by identity.
type Value struct {
	typ ValueType
	num float64
	str string
	obj any
}

// Constructors.

func NilValue() Value { return Value{} }

func BoolValue(b bool) Value {
	if b {
		return Value{typ: ValBool, num: 1}
	}
	return Value{typ: ValBool}
}

func NumberValue(n float64) Value     { return Value{typ: ValNumber, num: n} }
func StringValue(s string) Value      { return Value{typ: ValString, str: s} }
func FunctionValue(f *Function) Value { return Value{typ: ValFunction, obj: f} }
func ClosureValue(c *Closure) Value   { return Value{typ: ValClosure, obj: c} }
func NativeValue(n *Native) Value     { return Value{typ: ValNative, obj: n} }
func ObjectValue(o any) Value         { return Value{typ: ValObject, obj: o} }

// Accessors. Callers check the tag first; accessors on the wrong tag return
// zero values rather than panicking.

func (v Value) Type() ValueType { return v.typ }

func (v Value) AsBool() bool      { return v.num != 0 }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsString() string  { return v.str }

func (v Value) AsFunction() *Function {
	f, _ := v.obj.(*Function)
	return f
}

func (v Value) AsClosure() *Closure {
	c, _ := v.obj.(*Closure)
	return c
}

func (v Value) AsNative() *Native {
	n, _ := v.obj.(*Native)
	return n
}

// AsObject returns the heap object behind a ValObject value.
func (v Value) AsObject() any { return v.obj }

func (v Value) IsNil() bool      { return v.typ == ValNil }
func (v Value) IsBool() bool     { return v.typ == ValBool }
func (v Value) IsNumber() bool   { return v.typ == ValNumber }
func (v Value) IsString() bool   { return v.typ == ValString }
func (v Value) IsFunction() bool { return v.typ == ValFunction }
func (v Value) IsClosure() bool  { return v.typ == ValClosure }
func (v Value) IsNative() bool   { return v.typ == ValNative }
func (v Value) IsObject() bool   { return v.typ == ValObject }

// IsCallable reports whether calling v can succeed.
func (v Value) IsCallable() bool {
	switch v.typ {
	case ValFunction, ValClosure, ValNative:
		return true
	case ValObject:
		_, ok := v.obj.(*StructType)
		return ok
	}
	return false
}

// Truthy implements Lumen truthiness: nil and false are falsey, everything
// else is truthy.
func (v Value) Truthy() bool {
	switch v.typ {
	case ValNil:
		return false
	case ValBool:
		return v.AsBool()
	}
	return true
}

// Equals implements Lumen equality: nil equals nil, bools, numbers and
// strings compare by value, heap objects by identity.
func (v Value) Equals(other Value) bool {
	if v.typ != other.typ {
		// Function-flavored tags never cross-compare equal either.
		return false
	}
	switch v.typ {
	case ValNil:
		return true
	case ValBool:
		return v.AsBool() == other.AsBool()
	case ValNumber:
		return v.num == other.num
	case ValString:
		return v.str == other.str
	default:
		return v.obj == other.obj
	}
}

// TypeName returns the user-facing type name, distinguishing heap kinds.
func (v Value) TypeName() string {
	if v.typ == ValObject {
		switch v.obj.(type) {
		case *Array:
			return "array"
		case *Object:
			return "object"
		case *StructType:
			return "struct type"
		case *StructInstance:
			return "struct"
		case *Module:
			return "module"
		}
		if _, ok := v.obj.(Awaitable); ok {
			return "promise"
		}
	}
	return v.typ.String()
}

// String formats a value for display. Integral numbers print without a
// decimal point.
func (v Value) String() string {
	switch v.typ {
	case ValNil:
		return "nil"
	case ValBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case ValNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case ValString:
		return v.str
	case ValFunction:
		return "<fn " + v.AsFunction().Name + ">"
	case ValClosure:
		return "<fn " + v.AsClosure().Function.Name + ">"
	case ValNative:
		return "<native " + v.AsNative().Name + ">"
	case ValObject:
		return formatObject(v.obj)
	}
	return "<?>"
}

func formatObject(obj any) string {
	switch o := obj.(type) {
	case *Array:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range o.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.String())
		}
		b.WriteByte(']')
		return b.String()
	case *Object:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range o.Keys() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			v, _ := o.Get(k)
			b.WriteString(v.String())
		}
		b.WriteByte('}')
		return b.String()
	case *StructType:
		return "<struct " + o.Name + ">"
	case *StructInstance:
		var b strings.Builder
		b.WriteString(o.Type.Name)
		b.WriteByte('{')
		for i, f := range o.Type.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f)
			b.WriteString(": ")
			b.WriteString(o.Fields[i].String())
		}
		b.WriteByte('}')
		return b.String()
	case *Module:
		return "<module " + o.Name + ">"
	}
	return fmt.Sprintf("<%T>", obj)
}

// Function is a compiled Lumen function: its chunk plus the metadata the VM
// needs to call it. Module is non-nil for functions compiled inside a
// module; calling one switches the VM's module context for the duration of
// the call.
type Function struct {
	Name         string
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Module       *Module
}

// NewFunction returns an empty function with a fresh chunk.
func NewFunction(name string, arity int) *Function {
	return &Function{Name: name, Arity: arity, Chunk: NewChunk()}
}

// Closure pairs a function with its capture cells.
type Closure struct {
	Function *Function
	Upvalues []*Upvalue
}

// NewClosure allocates a closure with one nil cell slot per declared
// upvalue; the VM fills the slots when executing OpClosure.
func NewClosure(fn *Function) *Closure {
	return &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
}

// NativeFn is the signature of a Go function exposed to Lumen code.
type NativeFn func(args []Value) (Value, error)

// Native is a named Go function callable from bytecode. Arity -1 means
// variadic.
type Native struct {
	Name  string
	Arity int
	Fn    NativeFn
}

// Array is a mutable ordered collection.
type Array struct {
	Elements []Value
}

// NewArray returns an array over elements, which it takes ownership of.
func NewArray(elements []Value) *Array {
	return &Array{Elements: elements}
}

// Object is a mutable string-keyed record. Insertion order is preserved so
// display and iteration are deterministic.
type Object struct {
	fields map[string]Value
	order  []string
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{fields: make(map[string]Value)}
}

// Get returns the field value and whether it exists.
func (o *Object) Get(name string) (Value, bool) {
	v, ok := o.fields[name]
	return v, ok
}

// Set writes a field, tracking insertion order for new keys.
func (o *Object) Set(name string, v Value) {
	if _, ok := o.fields[name]; !ok {
		o.order = append(o.order, name)
	}
	o.fields[name] = v
}

// Keys returns the field names in insertion order.
func (o *Object) Keys() []string { return o.order }

// Len returns the number of fields.
func (o *Object) Len() int { return len(o.fields) }

// StructType is a named record type with a fixed field list. Struct types
// are callable: calling one with one argument per field constructs an
// instance.
type StructType struct {
	Name   string
	Fields []string
}

// FieldIndex returns the slot of a field name, or -1.
func (t *StructType) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// StructInstance is a value of a struct type. Fields is parallel to
// Type.Fields.
type StructInstance struct {
	Type   *StructType
	Fields []Value
}

// Awaitable is the contract OpAwait settles against. AwaitResult reports
// the current state: ready=false means still pending; a non-nil failure
// with ready=true means the awaitable failed.
type Awaitable interface {
	AwaitResult() (result Value, ready bool, failure error)
}

// Upvalue is a capture cell shared between closures. It is either open,
// reading through to a live stack slot of its VM, or closed, owning the
// value. Close promotes open to closed in place so every closure holding
// the cell observes the promotion.
type Upvalue struct {
	vm     *VM
	slot   int
	open   bool
	closed Value
}

// Slot returns the stack slot an open cell points at, or -1 once closed.
func (u *Upvalue) Slot() int {
	if u.open {
		return u.slot
	}
	return -1
}

// Get returns the current value of the cell.
func (u *Upvalue) Get() Value {
	if u.open {
		return u.vm.stack[u.slot]
	}
	return u.closed
}

// Set updates the cell value.
func (u *Upvalue) Set(v Value) {
	if u.open {
		u.vm.stack[u.slot] = v
		return
	}
	u.closed = v
}

// Close snapshots the stack slot into the cell. Closing a closed cell is a
// no-op.
func (u *Upvalue) Close() {
	if !u.open {
		return
	}
	u.closed = u.vm.stack[u.slot]
	u.open = false
}
