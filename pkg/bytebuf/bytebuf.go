// Package bytebuf provides the low-level, pointer-arithmetic-adjacent
// primitives that both the arena and pool allocators are built on: rounding
// a requested size up to a power of two, ceiling division for byte-to-block
// conversion, and reading/writing the fixed-width size header that precedes
// every allocation.
package bytebuf

import (
	"encoding/binary"
	"unsafe"
)

// Word is the machine's pointer-sized unsigned integer width in bytes. Every
// allocation header, in either allocator, is exactly Word bytes.
const Word = int(unsafe.Sizeof(uintptr(0)))

// NextPowerOfTwo returns the smallest power of two greater than or equal to
// n. NextPowerOfTwo(0) is 1.
//
// Implemented by bit-smearing: OR each bit into every lower bit position,
// then add one. This is the same trick used throughout the pack for
// size-class rounding (see e.g. flier/goutil's arena.SuggestSize).
func NextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}

	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// CeilDiv returns the ceiling of bytes/divisor using unsigned integer
// arithmetic. divisor must be non-zero.
func CeilDiv(bytes, divisor uint64) uint64 {
	if bytes == 0 {
		return 0
	}
	return (bytes-1)/divisor + 1
}

// Swap exchanges the values pointed to by a and b.
func Swap(a, b *int) {
	*a, *b = *b, *a
}

// ReadHeader reads the Word-byte, native-endian size header starting at
// offset in buf.
func ReadHeader(buf []byte, offset int) uint64 {
	return binary.NativeEndian.Uint64(buf[offset : offset+Word])
}

// WriteHeader writes n as a Word-byte, native-endian size header starting at
// offset in buf.
func WriteHeader(buf []byte, offset int, n uint64) {
	binary.NativeEndian.PutUint64(buf[offset:offset+Word], n)
}

// ZeroRange zeroes buf[offset : offset+n].
func ZeroRange(buf []byte, offset, n int) {
	clear(buf[offset : offset+n])
}

// SameBacking reports whether p and q's first bytes live in the same
// underlying array at the same address — used to test pointer identity
// between a payload slice handed out by an allocator and the buffer it was
// carved from, since the core API returns []byte rather than raw pointers.
func SameBacking(p, q []byte) bool {
	if len(p) == 0 || len(q) == 0 {
		return len(p) == 0 && len(q) == 0
	}
	return unsafe.Pointer(unsafe.SliceData(p)) == unsafe.Pointer(unsafe.SliceData(q))
}

// OffsetWithin returns the byte offset of p within buf and true, or (0,
// false) if p does not point into buf's backing array.
func OffsetWithin(buf, p []byte) (int, bool) {
	if len(buf) == 0 {
		return 0, false
	}

	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	end := base + uintptr(len(buf))

	var ptr uintptr
	if len(p) == 0 {
		return 0, false
	}
	ptr = uintptr(unsafe.Pointer(unsafe.SliceData(p)))

	if ptr < base || ptr > end {
		return 0, false
	}
	return int(ptr - base), true
}
