// Package vm implements the bytecode virtual machine for cinder.
//
// The VM is a stack-based interpreter that executes the bytecode a
// pkg/compiler Compile call produces. It's the final stage in the execution
// pipeline:
//
//   Source Code -> Lexer -> Compiler -> Bytecode -> VM -> Execution
//
// Virtual Machine Architecture:
//
// The VM uses a stack-based architecture with the following components:
//
//   1. Operand stack: holds intermediate values during computation, backed
//      by a fixed-capacity array so captured-upvalue pointers into it never
//      dangle across a push/pop.
//   2. Call-frame stack: one entry per in-flight closure invocation, each
//      recording its own instruction pointer and stack base.
//   3. Globals table: a swiss-table map from interned variable name to value.
//   4. Heap: shared with the compiler, owns every object the VM allocates
//      while running (closures, instances, strings produced by concatenation
//      or str()).
//
// Execution Model:
//
// The VM executes instructions sequentially using a per-frame instruction
// pointer. Each instruction manipulates the stack, variables, or control
// flow. Most opcodes follow the same pattern: pop operands, perform the
// operation, push the result.
package vm

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/cinderlang/cinder/pkg/gc"
	"github.com/cinderlang/cinder/pkg/object"
)

// FramesMax bounds the call-frame stack. StackMax
// follows from it: the deepest a single frame's locals/temporaries can run
// is 256 slots, the limit a single-byte OP_GET_LOCAL operand can address.
const (
	FramesMax = 64
	StackMax  = FramesMax * 256
)

// callFrame is one in-flight closure invocation: the closure being run, an
// instruction pointer into its function's chunk, and the index into the VM's
// operand stack where this frame's slot 0 (the callee itself) lives.
type callFrame struct {
	closure   *object.Closure
	ip        int
	slotsBase int
}

// VM is the bytecode interpreter. The zero value is not usable; construct
// with New.
type VM struct {
	stack [StackMax]object.Value
	sp    int

	frames     [FramesMax]callFrame
	frameCount int

	globals object.StringTable[object.Value]
	heap    *gc.Heap

	openUpvalues *object.Upvalue
	initString   *object.String

	// Out is where OP_PRINT writes. Defaults
	// to os.Stdout; tests substitute a bytes.Buffer to assert on output.
	Out io.Writer

	startTime time.Time
}

// New creates a VM sharing heap with whatever compiled the program it's
// about to run, installs the native standard library, and registers itself
// as a GC root source for the heap's lifetime.
func New(heap *gc.Heap) *VM {
	vm := &VM{
		heap:      heap,
		globals:   object.NewStringTable[object.Value](16),
		Out:       os.Stdout,
		startTime: time.Now(),
	}
	vm.initString = heap.InternGoString("init")
	heap.AddRoot(vm)
	vm.defineNatives()
	return vm
}

// MarkRoots implements gc.RootSource: every live operand-stack slot, every
// frame's closure, the open-upvalue list, every global key and value, and
// initString.
func (vm *VM) MarkRoots(h *gc.Heap) {
	for i := 0; i < vm.sp; i++ {
		h.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		h.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		h.MarkObject(uv)
	}
	vm.globals.Each(func(name *object.String, v object.Value) {
		h.MarkObject(name)
		h.MarkValue(v)
	})
	h.MarkObject(vm.initString)
}

func (vm *VM) push(v object.Value) { vm.stack[vm.sp] = v; vm.sp++ }
func (vm *VM) pop() object.Value { vm.sp--; return vm.stack[vm.sp] }
func (vm *VM) peek(distance int) object.Value { return vm.stack[vm.sp-1-distance] }

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Interpret loads fn (the top-level function pkg/compiler.Compile returned)
// into a closure and runs it to completion.
func (vm *VM) Interpret(fn *object.Function) error {
	vm.push(object.FromObj(fn))
	closure := vm.heap.NewClosure(fn)
	vm.pop()
	vm.push(object.FromObj(closure))
	if err := vm.callClosure(closure, 0); err != nil {
		return err
	}
	return vm.run()
}

func (vm *VM) frame() *callFrame { return &vm.frames[vm.frameCount-1] }

func (vm *VM) readByte() byte {
	f := vm.frame()
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readShort() int {
	f := vm.frame()
	hi := f.closure.Function.Chunk.Code[f.ip]
	lo := f.closure.Function.Chunk.Code[f.ip+1]
	f.ip += 2
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant() object.Value {
	return vm.frame().closure.Function.Chunk.Constants[vm.readByte()]
}

func (vm *VM) readString() *object.String {
	return vm.readConstant().AsObj().(*object.String)
}

// run is the dispatch loop. It returns nil on OP_RETURN from the top-level
// frame, or a *RuntimeError for any failure.
func (vm *VM) run() error {
	for {
		op := object.OpCode(vm.readByte())
		switch op {
		case object.OpConstant:
			vm.push(vm.readConstant())

		case object.OpNil:
			vm.push(object.Nil)
		case object.OpTrue:
			vm.push(object.Bool(true))
		case object.OpFalse:
			vm.push(object.Bool(false))

		case object.OpPop:
			vm.pop()

		case object.OpGetLocal:
			slot := vm.readByte()
			vm.push(vm.stack[vm.frame().slotsBase+int(slot)])

		case object.OpSetLocal:
			slot := vm.readByte()
			vm.stack[vm.frame().slotsBase+int(slot)] = vm.peek(0)

		case object.OpGetGlobal:
			name := vm.readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError(UndefinedVariable, "Undefined variable '%s'.", name.Go())
			}
			vm.push(v)

		case object.OpDefineGlobal:
			name := vm.readString()
			vm.globals.Put(name, vm.pop())

		case object.OpSetGlobal:
			name := vm.readString()
			if !vm.globals.Has(name) {
				return vm.runtimeError(UndefinedVariable, "Undefined variable '%s'.", name.Go())
			}
			vm.globals.Put(name, vm.peek(0))

		case object.OpGetUpvalue:
			slot := vm.readByte()
			vm.push(vm.frame().closure.Upvalues[slot].Get())

		case object.OpSetUpvalue:
			slot := vm.readByte()
			vm.frame().closure.Upvalues[slot].Set(vm.peek(0))

		case object.OpGetProperty:
			if err := vm.getProperty(); err != nil {
				return err
			}

		case object.OpSetProperty:
			if err := vm.setProperty(); err != nil {
				return err
			}

		case object.OpGetSuper:
			name := vm.readString()
			superclass := vm.pop().AsObj().(*object.Class)
			instance := vm.peek(0)
			bound, ok := vm.bindMethod(superclass, name, instance)
			if !ok {
				return vm.runtimeError(UndefinedProperty, "Undefined property '%s'.", name.Go())
			}
			vm.pop()
			vm.push(bound)

		case object.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.Bool(object.Equal(a, b)))

		case object.OpGreater:
			if err := vm.numberCompare(func(a, b float64) bool { return a > b }); err != nil {
				return err
			}
		case object.OpLess:
			if err := vm.numberCompare(func(a, b float64) bool { return a < b }); err != nil {
				return err
			}

		case object.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case object.OpSubtract:
			if err := vm.numberBinary(func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case object.OpMultiply:
			if err := vm.numberBinary(func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case object.OpDivide:
			if err := vm.numberBinary(func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}
		case object.OpModulo:
			if err := vm.numberBinary(math.Mod); err != nil {
				return err
			}

		case object.OpNot:
			vm.push(object.Bool(vm.pop().IsFalsey()))

		case object.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(TypeError, "Operand must be a number.")
			}
			vm.push(object.Number(-vm.pop().AsNumber()))

		case object.OpPrint:
			fmt.Fprintln(vm.Out, vm.pop().String())

		case object.OpJump:
			offset := vm.readShort()
			vm.frame().ip += offset

		case object.OpJumpIfFalse:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.frame().ip += offset
			}

		case object.OpLoop:
			offset := vm.readShort()
			vm.frame().ip -= offset

		case object.OpCall:
			argCount := int(vm.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}

		case object.OpInvoke:
			name := vm.readString()
			argCount := int(vm.readByte())
			if err := vm.invoke(name, argCount); err != nil {
				return err
			}

		case object.OpSuperInvoke:
			name := vm.readString()
			argCount := int(vm.readByte())
			superclass := vm.pop().AsObj().(*object.Class)
			if err := vm.invokeFromClass(superclass, name, argCount); err != nil {
				return err
			}

		case object.OpClosure:
			fn := vm.readConstant().AsObj().(*object.Function)
			closure := vm.heap.NewClosure(fn)
			vm.push(object.FromObj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte()
				index := int(vm.readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(vm.frame().slotsBase + index)
				} else {
					closure.Upvalues[i] = vm.frame().closure.Upvalues[index]
				}
			}

		case object.OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case object.OpReturn:
			result := vm.pop()
			finished := vm.frame()
			vm.closeUpvalues(finished.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.sp = finished.slotsBase
			vm.push(result)

		case object.OpClass:
			name := vm.readString()
			vm.push(object.FromObj(vm.heap.NewClass(name)))

		case object.OpInherit:
			superValue := vm.peek(1)
			superclass, ok := superValue.AsObj().(*object.Class)
			if !ok {
				return vm.runtimeError(TypeError, "Superclass must be a class.")
			}
			subclass := vm.peek(0).AsObj().(*object.Class)
			superclass.Methods.Each(func(name *object.String, m *object.Closure) {
				subclass.Methods.Put(name, m)
			})
			vm.pop()

		case object.OpMethod:
			vm.defineMethod(vm.readString())

		default:
			return vm.runtimeError(TypeError, "unknown opcode: %v", op)
		}
	}
}

func (vm *VM) numberBinary(f func(a, b float64) float64) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(TypeError, "Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(object.Number(f(a, b)))
	return nil
}

func (vm *VM) numberCompare(f func(a, b float64) bool) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(TypeError, "Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(object.Bool(f(a, b)))
	return nil
}

// add is polymorphic: two numbers add, two strings concatenate and intern
// the result.
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(object.Number(a.AsNumber() + b.AsNumber()))
	case a.IsObjKind(object.KindString) && b.IsObjKind(object.KindString):
		vm.pop()
		vm.pop()
		as := a.AsObj().(*object.String)
		bs := b.AsObj().(*object.String)
		concatenated := append(append([]byte(nil), as.Chars...), bs.Chars...)
		vm.push(object.FromObj(vm.heap.InternString(concatenated)))
	default:
		return vm.runtimeError(TypeError, "Operands must be two numbers or two strings.")
	}
	return nil
}

func (vm *VM) getProperty() error {
	instance, ok := vm.peek(0).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError(TypeError, "Only instances have properties.")
	}
	name := vm.readString()
	if v, ok := instance.Fields.Get(name); ok {
		vm.pop()
		vm.push(v)
		return nil
	}
	bound, ok := vm.bindMethod(instance.Class, name, vm.peek(0))
	if !ok {
		return vm.runtimeError(UndefinedProperty, "Undefined property '%s'.", name.Go())
	}
	vm.pop()
	vm.push(bound)
	return nil
}

func (vm *VM) setProperty() error {
	instance, ok := vm.peek(1).AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError(TypeError, "Only instances have fields.")
	}
	name := vm.readString()
	value := vm.peek(0)
	instance.Fields.Put(name, value)
	vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}

// bindMethod looks up name in class's method table and, if found, wraps it
// with receiver into a BoundMethod.
func (vm *VM) bindMethod(class *object.Class, name *object.String, receiver object.Value) (object.Value, bool) {
	method, ok := class.Methods.Get(name)
	if !ok {
		return object.Nil, false
	}
	return object.FromObj(vm.heap.NewBoundMethod(receiver, method)), true
}

func (vm *VM) defineMethod(name *object.String) {
	method := vm.pop().AsObj().(*object.Closure)
	class := vm.peek(0).AsObj().(*object.Class)
	class.Methods.Put(name, method)
}

// callValue implements OP_CALL's dispatch: closures, classes
// (instantiation, optionally via init), bound methods, and natives.
func (vm *VM) callValue(callee object.Value, argCount int) error {
	if callee.IsObj() {
		switch fn := callee.AsObj().(type) {
		case *object.Closure:
			return vm.callClosure(fn, argCount)
		case *object.Class:
			instance := vm.heap.NewInstance(fn)
			vm.stack[vm.sp-argCount-1] = object.FromObj(instance)
			if initializer, ok := fn.Methods.Get(vm.initString); ok {
				return vm.callClosure(initializer, argCount)
			}
			if argCount != 0 {
				return vm.runtimeError(ArityMismatch, "Expected 0 arguments but got %d.", argCount)
			}
			return nil
		case *object.BoundMethod:
			vm.stack[vm.sp-argCount-1] = fn.Receiver
			return vm.callClosure(fn.Method, argCount)
		case *object.Native:
			args := vm.stack[vm.sp-argCount : vm.sp]
			result, errMsg, ok := fn.Fn(args)
			if !ok {
				return vm.runtimeError(TypeError, "%s", errMsg)
			}
			vm.sp -= argCount + 1
			vm.push(result)
			return nil
		}
	}
	return vm.runtimeError(NotCallable, "Can only call functions and classes.")
}

func (vm *VM) callClosure(closure *object.Closure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError(ArityMismatch, "Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError(StackOverflow, "Stack overflow.")
	}
	vm.frames[vm.frameCount] = callFrame{
		closure:   closure,
		ip:        0,
		slotsBase: vm.sp - argCount - 1,
	}
	vm.frameCount++
	return nil
}

// invoke is OP_INVOKE's fast path: a field holding a callable is called
// directly; otherwise the method is dispatched from the receiver's class
// without materialising an intermediate BoundMethod.
func (vm *VM) invoke(name *object.String, argCount int) error {
	receiver := vm.peek(argCount)
	instance, ok := receiver.AsObj().(*object.Instance)
	if !ok {
		return vm.runtimeError(TypeError, "Only instances have methods.")
	}
	if v, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.sp-argCount-1] = v
		return vm.callValue(v, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *object.Class, name *object.String, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError(UndefinedProperty, "Undefined property '%s'.", name.Go())
	}
	return vm.callClosure(method, argCount)
}

// captureUpvalue finds or creates an open upvalue for the given absolute
// stack index, keeping vm.openUpvalues ordered by descending index (see
// object.Upvalue.StackIndex for why this orders by an explicit field
// rather than pointer comparison).
func (vm *VM) captureUpvalue(index int) *object.Upvalue {
	var prev *object.Upvalue
	uv := vm.openUpvalues
	for uv != nil && uv.StackIndex > index {
		prev = uv
		uv = uv.NextOpen
	}
	if uv != nil && uv.StackIndex == index {
		return uv
	}
	created := vm.heap.NewUpvalue(&vm.stack[index], index)
	created.NextOpen = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above fromIndex, moving its
// value off the stack and onto the heap.
func (vm *VM) closeUpvalues(fromIndex int) {
	for vm.openUpvalues != nil && vm.openUpvalues.StackIndex >= fromIndex {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
	}
}

// runtimeError builds a *RuntimeError with a full stack trace (top frame
// first) and resets the VM's stacks.
func (vm *VM) runtimeError(kind ErrorKind, format string, args ...interface{}) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	trace := make([]StackFrame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := vm.frames[i]
		fn := f.closure.Function
		line := fn.Chunk.LineAt(f.ip - 1)
		name := ""
		if fn.Name != nil {
			name = fn.Name.Go()
		}
		trace = append(trace, StackFrame{Name: name, Line: line})
	}
	vm.resetStack()
	return newRuntimeError(kind, msg, trace)
}
