package bytecode

import "testing"

func TestTruthiness(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{NilValue(), false},
		{BoolValue(false), false},
		{BoolValue(true), true},
		{NumberValue(0), true}, // zero is truthy
		{NumberValue(1), true},
		{StringValue(""), true}, // empty string is truthy
		{ObjectValue(NewArray(nil)), true},
	}
	for _, tt := range tests {
		if tt.v.Truthy() != tt.want {
			t.Errorf("%s.Truthy() = %v, want %v", tt.v.String(), tt.v.Truthy(), tt.want)
		}
	}
}

func TestEquals(t *testing.T) {
	a := NewArray([]Value{NumberValue(1)})
	b := NewArray([]Value{NumberValue(1)})

	tests := []struct {
		name string
		x, y Value
		want bool
	}{
		{"nil==nil", NilValue(), NilValue(), true},
		{"numbers by value", NumberValue(2), NumberValue(2), true},
		{"numbers differ", NumberValue(2), NumberValue(3), false},
		{"strings by value", StringValue("a"), StringValue("a"), true},
		{"cross type", NumberValue(1), StringValue("1"), false},
		{"nil vs false", NilValue(), BoolValue(false), false},
		{"array identity", ObjectValue(a), ObjectValue(a), true},
		{"equal arrays not identical", ObjectValue(a), ObjectValue(b), false},
	}
	for _, tt := range tests {
		if tt.x.Equals(tt.y) != tt.want {
			t.Errorf("%s: Equals = %v, want %v", tt.name, tt.x.Equals(tt.y), tt.want)
		}
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NilValue(), "nil"},
		{BoolValue(true), "bool"},
		{NumberValue(1), "number"},
		{StringValue("s"), "string"},
		{ClosureValue(NewClosure(NewFunction("f", 0))), "function"},
		{NativeValue(&Native{Name: "n"}), "function"},
		{ObjectValue(NewArray(nil)), "array"},
		{ObjectValue(NewObject()), "object"},
		{ObjectValue(&StructType{Name: "P"}), "struct type"},
		{ObjectValue(&StructInstance{Type: &StructType{Name: "P"}}), "struct"},
		{ObjectValue(NewModule("m", "m")), "module"},
	}
	for _, tt := range tests {
		if got := tt.v.TypeName(); got != tt.want {
			t.Errorf("TypeName = %q, want %q", got, tt.want)
		}
	}
}

func TestValueString(t *testing.T) {
	obj := NewObject()
	obj.Set("a", NumberValue(1))
	st := &StructType{Name: "Point", Fields: []string{"x", "y"}}

	tests := []struct {
		v    Value
		want string
	}{
		{NilValue(), "nil"},
		{BoolValue(true), "true"},
		{NumberValue(3), "3"}, // integral numbers print without a point
		{NumberValue(2.5), "2.5"},
		{StringValue("hi"), "hi"},
		{FunctionValue(NewFunction("f", 0)), "<fn f>"},
		{NativeValue(&Native{Name: "print"}), "<native print>"},
		{ObjectValue(NewArray([]Value{NumberValue(1), NumberValue(2)})), "[1, 2]"},
		{ObjectValue(obj), "{a: 1}"},
		{ObjectValue(st), "<struct Point>"},
		{ObjectValue(&StructInstance{Type: st, Fields: []Value{NumberValue(3), NumberValue(4)}}), "Point{x: 3, y: 4}"},
		{ObjectValue(NewModule("cfg", "cfg")), "<module cfg>"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String = %q, want %q", got, tt.want)
		}
	}
}

func TestIsCallable(t *testing.T) {
	callable := []Value{
		FunctionValue(NewFunction("f", 0)),
		ClosureValue(NewClosure(NewFunction("f", 0))),
		NativeValue(&Native{Name: "n"}),
		ObjectValue(&StructType{Name: "P"}),
	}
	for _, v := range callable {
		if !v.IsCallable() {
			t.Errorf("%s should be callable", v.String())
		}
	}

	notCallable := []Value{
		NilValue(),
		NumberValue(1),
		StringValue("s"),
		ObjectValue(NewArray(nil)),
		ObjectValue(&StructInstance{Type: &StructType{Name: "P"}}),
	}
	for _, v := range notCallable {
		if v.IsCallable() {
			t.Errorf("%s should not be callable", v.String())
		}
	}
}

func TestObjectInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("b", NumberValue(1))
	o.Set("a", NumberValue(2))
	o.Set("b", NumberValue(3)) // overwrite keeps original position

	keys := o.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("Keys = %v, want [b a]", keys)
	}
	if o.Len() != 2 {
		t.Errorf("Len = %d, want 2", o.Len())
	}
	v, ok := o.Get("b")
	if !ok || v.AsNumber() != 3 {
		t.Errorf("Get(b) = %v %v, want 3 true", v, ok)
	}
}

func TestStructFieldIndex(t *testing.T) {
	st := &StructType{Name: "P", Fields: []string{"x", "y"}}
	if st.FieldIndex("y") != 1 {
		t.Errorf("FieldIndex(y) = %d, want 1", st.FieldIndex("y"))
	}
	if st.FieldIndex("z") != -1 {
		t.Errorf("FieldIndex(z) = %d, want -1", st.FieldIndex("z"))
	}
}

func TestUpvalueOpenClose(t *testing.T) {
	vm := NewVM()
	vm.push(NumberValue(10))

	u := vm.captureUpvalue(0)
	if u.Slot() != 0 {
		t.Errorf("Slot = %d, want 0", u.Slot())
	}
	expectNumber(t, u.Get(), 10)

	u.Set(NumberValue(20))
	expectNumber(t, vm.stack[0], 20) // open cell writes through

	u.Close()
	if u.Slot() != -1 {
		t.Errorf("closed Slot = %d, want -1", u.Slot())
	}
	vm.stack[0] = NumberValue(99) // stack no longer backs the cell
	expectNumber(t, u.Get(), 20)

	u.Set(NumberValue(30))
	expectNumber(t, u.Get(), 30)
}

func TestCaptureUpvalueSharesCell(t *testing.T) {
	vm := NewVM()
	vm.push(NumberValue(1))
	a := vm.captureUpvalue(0)
	b := vm.captureUpvalue(0)
	if a != b {
		t.Error("capturing the same slot twice should reuse the open cell")
	}
}
