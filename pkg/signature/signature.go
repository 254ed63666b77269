// Package signature builds structural fingerprints of operation definitions.
//
// Two definitions with the same fingerprint are the same computation, so the
// graph builder can share one node between them. The fingerprint only covers
// definition parameters (function identities, joiner kinds, expression text,
// parent identities), never live data.
package signature

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"strings"
	"unsafe"
)

// Writer accumulates a definition into both an fnv-64a hash (cheap lookup key)
// and a canonical string (exact comparison on hash collisions).
type Writer struct {
	h     hash.Hash64
	canon strings.Builder
}

func NewWriter() *Writer {
	return &Writer{h: fnv.New64a()}
}

func (w *Writer) Int(v int) *Writer {
	return w.Uint(uint64(v))
}

func (w *Writer) Uint(v uint64) *Writer {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = w.h.Write(buf[:])
	w.canon.Write(buf[:])
	return w
}

func (w *Writer) String(s string) *Writer {
	_, _ = w.h.Write([]byte(s))
	_, _ = w.h.Write([]byte{0}) // separator
	w.canon.WriteString(s)
	w.canon.WriteByte(0)
	return w
}

func (w *Writer) Bool(b bool) *Writer {
	if b {
		return w.Uint(1)
	}
	return w.Uint(0)
}

// Func writes the identity of a function value (see FuncID).
func (w *Writer) Func(id uintptr) *Writer {
	return w.Uint(uint64(id))
}

func (w *Writer) Sum() uint64 {
	return w.h.Sum64()
}

func (w *Writer) Canonical() string {
	return w.canon.String()
}

// FuncID returns an identity for a function value, 0 for nil.
//
// A func value is a pointer to its closure record. Top-level functions and
// closures that capture nothing share one static record, so every reference
// to them yields the same id. Closures that capture variables get a fresh
// record per evaluation and therefore distinct ids: sharing is then skipped,
// which costs performance but never correctness.
//
// F must be a func type.
func FuncID[F any](f F) uintptr {
	if unsafe.Sizeof(f) != unsafe.Sizeof(uintptr(0)) {
		panic("signature.FuncID: argument is not a func value")
	}
	return *(*uintptr)(unsafe.Pointer(&f))
}
