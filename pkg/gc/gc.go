// Package gc implements the heap: the intrusive allocation list, the
// interned-string table, and a tri-colour mark-sweep collector. The
// compiler and the VM are the heap's two clients; both register themselves
// as a gc.RootSource so a collection triggered at any allocation site
// (during compilation or during execution) still finds every live
// reference.
package gc

import (
	"github.com/cinderlang/cinder/pkg/object"
	"github.com/dolthub/swiss"
)

// RootSource is implemented by anything that owns GC roots: the VM (operand
// stack, call frames, open upvalues, globals, init string) and the active
// compiler chain (each Function under construction, reachable as a
// constant of its enclosing chunk only once emitted). MarkRoots must call back
// for every Value/Obj it owns that should survive a collection.
type RootSource interface {
	MarkRoots(h *Heap)
}

// Config tunes the collector. Zero value is not usable; use DefaultConfig.
type Config struct {
	// InitialNextGC is the bytesAllocated threshold that triggers the first
	// collection.
	InitialNextGC int64
	// GrowFactor multiplies bytesAllocated (at the end of a collection) to
	// produce the next threshold: next_gc = bytes*GrowFactor, but never
	// below InitialNextGC.
	GrowFactor int64
	// StressGC, when true, runs a full collection on every single
	// allocation, exactly like a debug build compiled with
	// DEBUG_STRESS_GC — used by tests to shake out missed roots.
	StressGC bool
}

func DefaultConfig() Config {
	return Config{InitialNextGC: 1 << 20, GrowFactor: 2}
}

// Heap owns every live object, the interned strings table, and the
// allocation-triggered collector.
type Heap struct {
	cfg Config

	objects        object.Obj // head of the intrusive allocation list
	bytesAllocated int64
	nextGC         int64

	strings *swiss.Map[uint32, []*object.String]
	gray    []object.Obj

	roots []RootSource
}

func New(cfg Config) *Heap {
	return &Heap{
		cfg:     cfg,
		nextGC:  cfg.InitialNextGC,
		strings: swiss.NewMap[uint32, []*object.String](64),
	}
}

// BytesAllocated reports the current live-object byte accounting, used by
// the "bytes_allocated equals sum of reachable sizes" invariant test.
func (h *Heap) BytesAllocated() int64 { return h.bytesAllocated }

// AddRoot registers a permanent or scoped root source. The VM registers
// itself once for its whole lifetime; the compiler pushes itself on entry
// to Compile and removes itself (via RemoveRoot) once compilation
// completes, so a GC triggered purely by VM execution doesn't walk a
// finished compiler's (possibly reused) state.
func (h *Heap) AddRoot(r RootSource) {
	h.roots = append(h.roots, r)
}

// RemoveRoot undoes AddRoot for r (last matching entry wins, since the
// compiler chain is pushed/popped in strict LIFO order).
func (h *Heap) RemoveRoot(r RootSource) {
	for i := len(h.roots) - 1; i >= 0; i-- {
		if h.roots[i] == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

func sizeOf(o object.Obj) int64 {
	switch v := o.(type) {
	case *object.String:
		return int64(32 + len(v.Chars))
	case *object.Function:
		return 64
	case *object.Closure:
		return int64(40 + 8*len(v.Upvalues))
	case *object.Upvalue:
		return 24
	case *object.Native:
		return 32
	case *object.Class:
		return 48
	case *object.Instance:
		return 48
	case *object.BoundMethod:
		return 32
	default:
		return 16
	}
}

// track prepends obj to the allocation list and accounts its size,
// triggering a collection first if the new total would exceed nextGC (or
// unconditionally under StressGC) — but only once obj itself is already
// reachable from a root, which is the caller's responsibility (push
// transient values onto the VM operand stack before allocating anything
// that depends on them).
func (h *Heap) track(obj object.Obj) {
	if h.cfg.StressGC {
		h.Collect()
	} else if h.bytesAllocated+sizeOf(obj) > h.nextGC {
		h.Collect()
	}
	obj.GetHeader().Next = h.objects
	h.objects = obj
	h.bytesAllocated += sizeOf(obj)
}

// NewFunction allocates a Function on the heap.
func (h *Heap) NewFunction() *object.Function {
	fn := object.NewFunction()
	h.track(fn)
	return fn
}

// NewClosure allocates a Closure wrapping fn.
func (h *Heap) NewClosure(fn *object.Function) *object.Closure {
	c := object.NewClosure(fn)
	h.track(c)
	return c
}

// NewUpvalue allocates an open upvalue pointing at the stack slot index
// (location is that slot's address, passed separately since Go gives no way
// to recover an index from a pointer without unsafe).
func (h *Heap) NewUpvalue(location *object.Value, index int) *object.Upvalue {
	u := &object.Upvalue{Location: location, StackIndex: index}
	h.track(u)
	return u
}

// NewNative allocates a native function wrapper.
func (h *Heap) NewNative(name string, fn object.NativeFn) *object.Native {
	n := &object.Native{Name: name, Fn: fn}
	h.track(n)
	return n
}

// NewClass allocates a class named name.
func (h *Heap) NewClass(name *object.String) *object.Class {
	c := object.NewClass(name)
	h.track(c)
	return c
}

// NewInstance allocates an instance of class.
func (h *Heap) NewInstance(class *object.Class) *object.Instance {
	i := object.NewInstance(class)
	h.track(i)
	return i
}

// NewBoundMethod allocates a bound method.
func (h *Heap) NewBoundMethod(receiver object.Value, method *object.Closure) *object.BoundMethod {
	b := &object.BoundMethod{Receiver: receiver, Method: method}
	h.track(b)
	return b
}
