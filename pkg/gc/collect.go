package gc

import "github.com/cinderlang/cinder/pkg/object"

// MarkValue greys v's object (if any and not already grey/black). Part of
// the public Heap API so RootSource implementations (vm.VM, compiler's
// active-compiler chain) can report their roots without reaching into
// unexported gc internals.
func (h *Heap) MarkValue(v object.Value) {
	if v.Type == object.ValObj {
		h.MarkObject(v.AsObj())
	}
}

// MarkObject greys obj.
func (h *Heap) MarkObject(o object.Obj) {
	if o == nil {
		return
	}
	hdr := o.GetHeader()
	if hdr.Marked {
		return
	}
	hdr.Marked = true
	h.gray = append(h.gray, o)
}

// Collect runs one full mark-sweep cycle: mark every registered root,
// trace the gray worklist to black, weak-sweep the string-intern table,
// sweep the allocation list, then grow the threshold.
func (h *Heap) Collect() {
	h.gray = h.gray[:0]
	for _, r := range h.roots {
		r.MarkRoots(h)
	}
	h.trace()
	h.sweepStringTable()
	h.sweep()
	h.nextGC = h.bytesAllocated * h.cfg.GrowFactor
	if h.nextGC < h.cfg.InitialNextGC {
		h.nextGC = h.cfg.InitialNextGC
	}
}

func (h *Heap) trace() {
	for len(h.gray) > 0 {
		n := len(h.gray) - 1
		o := h.gray[n]
		h.gray = h.gray[:n]
		h.blacken(o)
	}
}

func (h *Heap) blacken(o object.Obj) {
	switch v := o.(type) {
	case *object.String, *object.Native:
		// no children
	case *object.Function:
		// The top-level script has no name.
		if v.Name != nil {
			h.MarkObject(v.Name)
		}
		for _, c := range v.Chunk.Constants {
			h.MarkValue(c)
		}
	case *object.Closure:
		h.MarkObject(v.Function)
		for _, up := range v.Upvalues {
			// Slots not yet filled while OP_CLOSURE is still capturing.
			if up != nil {
				h.MarkObject(up)
			}
		}
	case *object.Upvalue:
		if v.Location == nil {
			h.MarkValue(v.Closed)
		}
	case *object.Class:
		h.MarkObject(v.Name)
		v.Methods.Each(func(name *object.String, m *object.Closure) {
			h.MarkObject(name)
			h.MarkObject(m)
		})
	case *object.Instance:
		h.MarkObject(v.Class)
		v.Fields.Each(func(name *object.String, val object.Value) {
			h.MarkObject(name)
			h.MarkValue(val)
		})
	case *object.BoundMethod:
		h.MarkValue(v.Receiver)
		h.MarkObject(v.Method)
	}
}

// sweep walks the intrusive allocation list, dropping every object that was
// never marked this cycle and clearing the mark bit on every survivor so
// the next cycle starts white.
func (h *Heap) sweep() {
	var prev object.Obj
	cur := h.objects
	for cur != nil {
		hdr := cur.GetHeader()
		next := hdr.Next
		if hdr.Marked {
			hdr.Marked = false
			prev = cur
		} else {
			h.bytesAllocated -= sizeOf(cur)
			if prev == nil {
				h.objects = next
			} else {
				prev.GetHeader().Next = next
			}
		}
		cur = next
	}
}
