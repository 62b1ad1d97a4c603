package object

// Kind identifies which heap object variant an Obj value is.
type Kind int

const (
	KindString Kind = iota
	KindFunction
	KindClosure
	KindUpvalue
	KindNative
	KindClass
	KindInstance
	KindBoundMethod
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindClosure:
		return "closure"
	case KindUpvalue:
		return "upvalue"
	case KindNative:
		return "native"
	case KindClass:
		return "class"
	case KindInstance:
		return "instance"
	case KindBoundMethod:
		return "bound method"
	default:
		return "unknown"
	}
}

// Header is embedded by every heap object. Marked is the GC's tri-colour
// bit (true once an object has been greyed); Next threads every live
// allocation into one intrusive singly-linked list so the sweep phase can
// walk every object without a separate registry.
type Header struct {
	Marked bool
	Next   Obj
}

// Obj is implemented by every heap object variant. There is deliberately no
// embedded-interface inheritance hierarchy: the GC dispatches on Kind (or a
// type switch) rather than on virtual methods, mirroring a tagged-union C
// struct with one tag per variant.
type Obj interface {
	Kind() Kind
	GetHeader() *Header
}

// String is an immutable, interned byte sequence. Equal content always maps
// to the same *String handle (see gc.Heap.InternString), so equality of two
// strings is pointer equality.
type String struct {
	Header
	Chars []byte
	Hash  uint32
}

func (s *String) Kind() Kind { return KindString }
func (s *String) GetHeader() *Header { return &s.Header }
func (s *String) Go() string { return string(s.Chars) }

// Function is a compiled function body: its own Chunk, declared arity, and
// the number of upvalues its closures must capture. Name is nil for the
// top-level script function.
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *String
}

func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) GetHeader() *Header { return &f.Header }

// NewFunction returns a zero-value Function ready to be compiled into.
func NewFunction() *Function {
	return &Function{Chunk: NewChunk()}
}

// UpvalueSlot records how a closure captures one upvalue: either directly
// from a local slot in the immediately enclosing frame (IsLocal true), or by
// forwarding an upvalue already captured by the enclosing closure.
type UpvalueSlot struct {
	IsLocal bool
	Index   byte
}

// Closure pairs a Function with its captured Upvalues, one per
// Function.UpvalueCount. This is what OP_CALL invokes for user-defined
// functions.
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) Kind() Kind { return KindClosure }
func (c *Closure) GetHeader() *Header { return &c.Header }

// NewClosure allocates the Upvalues slice sized to fn's UpvalueCount, ready
// for the VM to populate one capture at a time while executing OP_CLOSURE.
func NewClosure(fn *Function) *Closure {
	return &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
}

// Upvalue is either open (Location points into the live operand stack) or
// closed (Closed holds the value after the owning frame returned). NextOpen
// threads open upvalues into the VM's list, ordered by
// descending stack index.
type Upvalue struct {
	Header
	Location *Value
	Closed   Value
	NextOpen *Upvalue
	// StackIndex is the absolute operand-stack slot Location was opened
	// against. Go pointers have no ordering comparison, unlike the raw
	// pointer arithmetic the algorithm this is ported from relies on, so the
	// VM's open-upvalue list orders and compares by this integer instead.
	// Meaningless once the upvalue is closed.
	StackIndex int
}

func (u *Upvalue) Kind() Kind { return KindUpvalue }
func (u *Upvalue) GetHeader() *Header { return &u.Header }

// Get returns the upvalue's current value, whether open or closed.
func (u *Upvalue) Get() Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

// Set writes through to the live stack slot if still open, or to the closed
// cell otherwise.
func (u *Upvalue) Set(v Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

// Close transitions the upvalue from open to closed, copying the
// referenced stack slot's current value in and severing the Location
// pointer.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = nil
}

// NativeFn is the signature every native (built-in) function must satisfy.
// It returns the result value, or ok=false with an error message if the
// call should raise a runtime error.
type NativeFn func(args []Value) (result Value, errMsg string, ok bool)

// Native wraps a host-provided Go function so it can live in a Value and be
// called through OP_CALL like any other callable.
type Native struct {
	Header
	Name string
	Fn   NativeFn
}

func (n *Native) Kind() Kind { return KindNative }
func (n *Native) GetHeader() *Header { return &n.Header }

// Class is a named bag of methods. Methods are keyed by interned method
// name for O(1) identity lookup (see gc.Heap / the swiss-table method
// tables built by the compiler's OP_METHOD handling in the VM).
type Class struct {
	Header
	Name    *String
	Methods MethodTable
}

func (c *Class) Kind() Kind { return KindClass }
func (c *Class) GetHeader() *Header { return &c.Header }

// NewClass returns a class with an empty method table.
func NewClass(name *String) *Class {
	return &Class{Name: name, Methods: NewMethodTable()}
}

// Instance is a live object of some Class, holding its own field values
// keyed by interned field name.
type Instance struct {
	Header
	Class  *Class
	Fields FieldTable
}

func (i *Instance) Kind() Kind { return KindInstance }
func (i *Instance) GetHeader() *Header { return &i.Header }

// NewInstance returns an instance of class with an empty field table.
func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: NewFieldTable()}
}

// BoundMethod pairs a receiver with one of its class's closures, so that
// `this` resolves correctly when the method is later called without the
// receiver expression still in view (e.g. stored in a variable).
type BoundMethod struct {
	Header
	Receiver Value
	Method   *Closure
}

func (m *BoundMethod) Kind() Kind { return KindBoundMethod }
func (m *BoundMethod) GetHeader() *Header { return &m.Header }

// stringifyObj implements the object-printing half of Value.String, one
// case per Kind.
func stringifyObj(o Obj) string {
	switch v := o.(type) {
	case *String:
		return v.Go()
	case *Function:
		if v.Name == nil {
			return "<script>"
		}
		return "<fn " + v.Name.Go() + ">"
	case *Closure:
		if v.Function.Name == nil {
			return "<script>"
		}
		return "<fn " + v.Function.Name.Go() + ">"
	case *Native:
		return "<native fn " + v.Name + ">"
	case *Class:
		return v.Name.Go()
	case *Instance:
		return v.Class.Name.Go() + " instance"
	case *BoundMethod:
		return stringifyObj(v.Method)
	default:
		return "<obj>"
	}
}
