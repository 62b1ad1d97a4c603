package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cinderlang/cinder/pkg/gc"
	"github.com/cinderlang/cinder/pkg/object"
)

// .cnd is a small container format: a magic header followed by one
// serialized top-level Function, recursively including every nested
// Function reachable through its constant pool. This lives entirely
// outside the core (file I/O is an external collaborator, not a compiler
// or VM concern) — pkg/compiler and pkg/vm never see this encoding, only
// an in-memory *object.Function.
var cndMagic = [4]byte{'C', 'N', 'D', 1}

const (
	tagNil = iota
	tagBool
	tagNumber
	tagString
	tagFunction
)

func encodeChunkFile(w io.Writer, fn *object.Function) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(cndMagic[:]); err != nil {
		return err
	}
	if err := encodeFunction(bw, fn); err != nil {
		return err
	}
	return bw.Flush()
}

func decodeChunkFile(r io.Reader, heap *gc.Heap) (*object.Function, error) {
	br := bufio.NewReader(r)
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, err
	}
	if magic != cndMagic {
		return nil, fmt.Errorf("not a cinder bytecode file")
	}
	return decodeFunction(br, heap)
}

func encodeFunction(w *bufio.Writer, fn *object.Function) error {
	if err := binary.Write(w, binary.BigEndian, uint32(fn.Arity)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(fn.UpvalueCount)); err != nil {
		return err
	}
	if err := writeString(w, nameOrEmpty(fn.Name), fn.Name != nil); err != nil {
		return err
	}

	code := fn.Chunk.Code
	if err := binary.Write(w, binary.BigEndian, uint32(len(code))); err != nil {
		return err
	}
	if _, err := w.Write(code); err != nil {
		return err
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(fn.Chunk.Lines))); err != nil {
		return err
	}
	for _, line := range fn.Chunk.Lines {
		if err := binary.Write(w, binary.BigEndian, uint32(line)); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(fn.Chunk.Constants))); err != nil {
		return err
	}
	for _, c := range fn.Chunk.Constants {
		if err := encodeValue(w, c); err != nil {
			return err
		}
	}
	return nil
}

func decodeFunction(r *bufio.Reader, heap *gc.Heap) (*object.Function, error) {
	var arity, upvalueCount uint32
	if err := binary.Read(r, binary.BigEndian, &arity); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &upvalueCount); err != nil {
		return nil, err
	}
	name, hasName, err := readString(r)
	if err != nil {
		return nil, err
	}

	fn := heap.NewFunction()
	fn.Arity = int(arity)
	fn.UpvalueCount = int(upvalueCount)
	if hasName {
		fn.Name = heap.InternGoString(name)
	}

	var codeLen uint32
	if err := binary.Read(r, binary.BigEndian, &codeLen); err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, err
	}
	fn.Chunk.Code = code

	var lineCount uint32
	if err := binary.Read(r, binary.BigEndian, &lineCount); err != nil {
		return nil, err
	}
	lines := make([]int, lineCount)
	for i := range lines {
		var line uint32
		if err := binary.Read(r, binary.BigEndian, &line); err != nil {
			return nil, err
		}
		lines[i] = int(line)
	}
	fn.Chunk.Lines = lines

	var constCount uint32
	if err := binary.Read(r, binary.BigEndian, &constCount); err != nil {
		return nil, err
	}
	constants := make([]object.Value, constCount)
	for i := range constants {
		v, err := decodeValue(r, heap)
		if err != nil {
			return nil, err
		}
		constants[i] = v
	}
	fn.Chunk.Constants = constants

	return fn, nil
}

func encodeValue(w *bufio.Writer, v object.Value) error {
	switch {
	case v.IsNil():
		return w.WriteByte(tagNil)
	case v.IsBool():
		if err := w.WriteByte(tagBool); err != nil {
			return err
		}
		b := byte(0)
		if v.AsBool() {
			b = 1
		}
		return w.WriteByte(b)
	case v.IsNumber():
		if err := w.WriteByte(tagNumber); err != nil {
			return err
		}
		return binary.Write(w, binary.BigEndian, v.AsNumber())
	case v.IsObjKind(object.KindString):
		if err := w.WriteByte(tagString); err != nil {
			return err
		}
		return writeString(w, v.AsObj().(*object.String).Go(), true)
	case v.IsObjKind(object.KindFunction):
		if err := w.WriteByte(tagFunction); err != nil {
			return err
		}
		return encodeFunction(w, v.AsObj().(*object.Function))
	default:
		return fmt.Errorf("cnd: constant pool entry of kind %v is not serializable", v.AsObj().Kind())
	}
}

func decodeValue(r *bufio.Reader, heap *gc.Heap) (object.Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return object.Nil, err
	}
	switch tag {
	case tagNil:
		return object.Nil, nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return object.Nil, err
		}
		return object.Bool(b != 0), nil
	case tagNumber:
		var n float64
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return object.Nil, err
		}
		return object.Number(n), nil
	case tagString:
		s, _, err := readString(r)
		if err != nil {
			return object.Nil, err
		}
		return object.FromObj(heap.InternGoString(s)), nil
	case tagFunction:
		fn, err := decodeFunction(r, heap)
		if err != nil {
			return object.Nil, err
		}
		return object.FromObj(fn), nil
	default:
		return object.Nil, fmt.Errorf("cnd: unknown constant tag %d", tag)
	}
}

func writeString(w *bufio.Writer, s string, present bool) error {
	if !present {
		return binary.Write(w, binary.BigEndian, uint32(0xFFFFFFFF))
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r *bufio.Reader) (string, bool, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", false, err
	}
	if n == 0xFFFFFFFF {
		return "", false, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", false, err
	}
	return string(buf), true, nil
}

func nameOrEmpty(s *object.String) string {
	if s == nil {
		return ""
	}
	return s.Go()
}
