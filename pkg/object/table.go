package object

import "github.com/dolthub/swiss"

// StringTable is a swiss-table-backed associative array keyed by interned
// *String identity, giving O(1) average lookup without re-implementing
// open-addressing by hand. VM globals, class method tables, and instance
// field tables all use this type.
type StringTable[V any] struct {
	m *swiss.Map[*String, V]
}

// NewStringTable returns an empty table with room for capacity entries
// before it needs to grow.
func NewStringTable[V any](capacity uint32) StringTable[V] {
	if capacity == 0 {
		capacity = 8
	}
	return StringTable[V]{m: swiss.NewMap[*String, V](capacity)}
}

func (t StringTable[V]) Get(key *String) (V, bool) {
	return t.m.Get(key)
}

func (t StringTable[V]) Put(key *String, val V) {
	t.m.Put(key, val)
}

func (t StringTable[V]) Delete(key *String) bool {
	return t.m.Delete(key)
}

func (t StringTable[V]) Has(key *String) bool {
	return t.m.Has(key)
}

func (t StringTable[V]) Len() int {
	return t.m.Count()
}

// Each visits every entry. Iteration order is unspecified, matching
// swiss.Map and Go's own builtin map.
func (t StringTable[V]) Each(fn func(key *String, val V)) {
	t.m.Iter(func(k *String, v V) bool {
		fn(k, v)
		return true
	})
}

// FieldTable holds an Instance's field values.
type FieldTable = StringTable[Value]

// MethodTable holds a Class's methods.
type MethodTable = StringTable[*Closure]

// NewFieldTable and NewMethodTable exist (rather than calling
// NewStringTable[Value]/[*Closure] directly at every call site) so
// object.go's constructors read in terms of fields and methods, not
// the underlying generic container.
func NewFieldTable() FieldTable   { return NewStringTable[Value](8) }
func NewMethodTable() MethodTable { return NewStringTable[*Closure](4) }
