package gc

import "github.com/cinderlang/cinder/pkg/object"

// fnv1a32 computes the 32-bit FNV-1a hash used to bucket interned strings.
func fnv1a32(bytes []byte) uint32 {
	const (
		offsetBasis uint32 = 2166136261
		prime       uint32 = 16777619
	)
	h := offsetBasis
	for _, b := range bytes {
		h ^= uint32(b)
		h *= prime
	}
	return h
}

// InternString returns the unique *object.String for bytes, allocating and
// registering a new one only if this exact byte sequence has never been
// interned (or was interned but collected since). Equal content always maps
// to the same handle: intern(a) == intern(b) iff bytes are equal.
func (h *Heap) InternString(bytes []byte) *object.String {
	hash := fnv1a32(bytes)
	if bucket, ok := h.strings.Get(hash); ok {
		for _, s := range bucket {
			if string(s.Chars) == string(bytes) {
				return s
			}
		}
	}

	s := &object.String{Chars: append([]byte(nil), bytes...), Hash: hash}

	// The new string needs no transient root across the allocation: track()
	// runs any collection *before* linking s into the allocation list, so
	// that collection cannot sweep s. The intern table insert happens after
	// track() returns, at which point s is on the allocation list and stays
	// there through the remainder of this call.
	h.track(s)

	bucket, _ := h.strings.Get(hash)
	h.strings.Put(hash, append(bucket, s))
	return s
}

// InternGoString is InternString for a Go string: the compiler passes
// identifier and string-literal text through it, the VM its own strings.
func (h *Heap) InternGoString(s string) *object.String {
	return h.InternString([]byte(s))
}

// sweepStringTable removes every bucket entry whose string didn't survive
// the mark phase — a "weak sweep": the string table holds no
// strong references, so once this step runs, any string not reachable from
// a real root is gone from the table (and freed in the subsequent sweep).
func (h *Heap) sweepStringTable() {
	h.strings.Iter(func(hash uint32, bucket []*object.String) bool {
		kept := bucket[:0]
		for _, s := range bucket {
			if s.Marked {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			h.strings.Delete(hash)
		} else {
			h.strings.Put(hash, kept)
		}
		return true
	})
}
