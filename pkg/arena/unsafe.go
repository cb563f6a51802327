package arena

import "unsafe"

// sizeOf and cast are the two unsafe primitives New needs to place a typed
// value into an arena-carved []byte, mirroring the cast helpers in
// github.com/flier/goutil/pkg/xunsafe (Cast, Bytes) without pulling in that
// package's full generic-layout machinery, which this module has no other
// use for.

func sizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func cast[T any](buf []byte) *T {
	return (*T)(unsafe.Pointer(unsafe.SliceData(buf)))
}
