// Package object defines the runtime value representation, the heap object
// variants, and the bytecode chunk format shared by the compiler and the VM.
//
// Value and Obj are mutually recursive (a Value can hold an Obj, and some Obj
// variants such as Function hold Values in their constant pool), and Function
// embeds a Chunk directly, so all three live in one package rather than
// three importing each other in a cycle.
package object

import "fmt"

// ValueType is the tag of a Value's active variant.
type ValueType int

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj
)

// Value is a tagged union: exactly one of nil, bool, number or object handle
// is live at a time, selected by Type. This is a plain tagged struct rather
// than a NaN-boxed 64-bit encoding — see DESIGN.md's Open Questions entry.
type Value struct {
	Type ValueType
	b    bool
	n    float64
	o    Obj
}

var Nil = Value{Type: ValNil}

func Bool(b bool) Value { return Value{Type: ValBool, b: b} }

func Number(n float64) Value { return Value{Type: ValNumber, n: n} }

func FromObj(o Obj) Value { return Value{Type: ValObj, o: o} }

func (v Value) IsNil() bool { return v.Type == ValNil }
func (v Value) IsBool() bool { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool { return v.Type == ValObj }

func (v Value) AsBool() bool { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsObj() Obj { return v.o }

// IsObjKind reports whether v holds an object of the given kind.
func (v Value) IsObjKind(k Kind) bool {
	return v.Type == ValObj && v.o != nil && v.o.Kind() == k
}

// IsFalsey implements Lox/Cinder truthiness: nil and false are falsey,
// everything else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return !v.b
	default:
		return false
	}
}

// Equal implements value equality: same variant and structurally equal
// payload, with object handles compared by identity (strings compare equal
// by identity too, since they are interned).
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case ValNil:
		return true
	case ValBool:
		return a.b == b.b
	case ValNumber:
		return a.n == b.n
	case ValObj:
		return a.o == b.o
	default:
		return false
	}
}

// String renders v the way OP_PRINT does.
func (v Value) String() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.b {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.n)
	case ValObj:
		return stringifyObj(v.o)
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	return fmt.Sprintf("%g", n)
}
