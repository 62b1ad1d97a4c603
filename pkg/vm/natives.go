// Package vm - native standard library.
//
// A small set of native functions are wired into the globals table at VM
// construction time: one Go closure per native, installed once from New.
package vm

import (
	"time"

	"github.com/cinderlang/cinder/pkg/object"
)

// defineNative wraps fn as an object.Native and installs it as a global
// named name.
func (vm *VM) defineNative(name string, fn object.NativeFn) {
	// Keep the native on the stack while interning its name, which may
	// trigger a collection.
	vm.push(object.FromObj(vm.heap.NewNative(name, fn)))
	vm.globals.Put(vm.heap.InternGoString(name), vm.peek(0))
	vm.pop()
}

func (vm *VM) defineNatives() {
	vm.defineNative("clock", vm.nativeClock)
	vm.defineNative("str", vm.nativeStr)
	vm.defineNative("len", vm.nativeLen)
	vm.defineNative("type", vm.nativeType)
}

// nativeClock returns seconds elapsed since this VM was constructed,
// standing in for "since process start" since the VM owns the program's
// whole lifetime in this embedding.
func (vm *VM) nativeClock(args []object.Value) (object.Value, string, bool) {
	return object.Number(time.Since(vm.startTime).Seconds()), "", true
}

// nativeStr renders its argument the same way OP_PRINT does and interns the
// result.
func (vm *VM) nativeStr(args []object.Value) (object.Value, string, bool) {
	if len(args) != 1 {
		return object.Nil, "str() takes exactly 1 argument.", false
	}
	return object.FromObj(vm.heap.InternGoString(args[0].String())), "", true
}

// nativeLen returns the byte length of a string argument.
func (vm *VM) nativeLen(args []object.Value) (object.Value, string, bool) {
	if len(args) != 1 {
		return object.Nil, "len() takes exactly 1 argument.", false
	}
	s, ok := args[0].AsObj().(*object.String)
	if !args[0].IsObjKind(object.KindString) || !ok {
		return object.Nil, "len() argument must be a string.", false
	}
	return object.Number(float64(len(s.Chars))), "", true
}

// nativeType names the runtime type of its argument.
func (vm *VM) nativeType(args []object.Value) (object.Value, string, bool) {
	if len(args) != 1 {
		return object.Nil, "type() takes exactly 1 argument.", false
	}
	var name string
	switch v := args[0]; {
	case v.IsNil():
		name = "nil"
	case v.IsBool():
		name = "bool"
	case v.IsNumber():
		name = "number"
	case v.IsObjKind(object.KindString):
		name = "string"
	case v.IsObjKind(object.KindFunction), v.IsObjKind(object.KindClosure), v.IsObjKind(object.KindNative):
		name = "function"
	case v.IsObjKind(object.KindClass):
		name = "class"
	case v.IsObjKind(object.KindInstance):
		name = "instance"
	default:
		name = "object"
	}
	return object.FromObj(vm.heap.InternGoString(name)), "", true
}
