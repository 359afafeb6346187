package bytecode

import (
	"errors"
	"fmt"
	"strings"
)

// registerNatives installs the default native library. Natives live in the
// VM-level global table, so module code reaches them through the fallback
// lookup.
func (vm *VM) registerNatives() {
	vm.RegisterNative("print", -1, vm.nativePrint)
	vm.RegisterNative("len", 1, nativeLen)
	vm.RegisterNative("str", 1, nativeStr)
	vm.RegisterNative("append", 2, nativeAppend)
}

func (vm *VM) nativePrint(args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	fmt.Fprintln(vm.output, strings.Join(parts, " "))
	return NilValue(), nil
}

func nativeLen(args []Value) (Value, error) {
	v := args[0]
	switch o := v.AsObject().(type) {
	case *Array:
		return NumberValue(float64(len(o.Elements))), nil
	case *Object:
		return NumberValue(float64(o.Len())), nil
	}
	if v.IsString() {
		return NumberValue(float64(len(v.AsString()))), nil
	}
	return NilValue(), fmt.Errorf("cannot take length of %s", v.TypeName())
}

func nativeStr(args []Value) (Value, error) {
	return StringValue(args[0].String()), nil
}

func nativeAppend(args []Value) (Value, error) {
	arr, _ := args[0].AsObject().(*Array)
	if arr == nil {
		return NilValue(), errors.New("first argument must be an array")
	}
	arr.Elements = append(arr.Elements, args[1])
	return args[0], nil
}
