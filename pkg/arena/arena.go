// Package arena implements a bump (linear) allocator over chained,
// fixed-size backing buffers.
//
// An Arena hands out byte slices by advancing a single offset into a
// backing buffer; individual allocations cannot be freed, only the whole
// arena can be reset or destroyed. Each allocation is prefixed by a
// [bytebuf.Word]-byte size header so that [Node.Realloc] can recover the
// original request size without an external ledger.
//
// Arenas grow by chaining additional, equally-sized nodes onto the head, up
// to a caller-supplied cap.
package arena

import (
	"github.com/flier/memkit/internal/debug"
	"github.com/flier/memkit/pkg/bytebuf"
)

// Node is one link in an Arena's chain of backing buffers. The head node of
// a chain additionally owns maxNodes and sNodes; those fields are unused on
// every other node.
type Node struct {
	memory []byte // backing buffer, len(memory) == sArena
	ptr    int    // bump offset into memory; 0 <= ptr <= sArena
	sArena int    // capacity in bytes, always a power of two

	maxNodes int // head only
	sNodes   int // head only

	next *Node
}

var _ Allocator = (*Node)(nil)

// Allocator is the capability interface common to [arena.Node] and
// github.com/flier/memkit/pkg/pool.Node, per the "dynamic-dispatch
// substitute" note in the design: code that only needs Alloc/Realloc/Reset/
// Destroy can depend on this instead of a concrete handle type.
type Allocator interface {
	Alloc(n int) []byte
	Realloc(p []byte, n int) []byte
	Reset() bool
	Destroy() bool
	Size() int
	SizeUsed() int
	Nodes() int
	MaxNodes() int
}

// Create allocates a new Arena head node with capacity rounded up to the
// next power of two, and a chain cap of maxNodes. Returns nil if sArena is
// zero.
func Create(sArena, maxNodes int) *Node {
	if sArena <= 0 {
		return nil
	}

	rounded := int(bytebuf.NextPowerOfTwo(uint64(sArena)))

	a := &Node{
		memory:   make([]byte, rounded),
		sArena:   rounded,
		maxNodes: maxNodes,
		sNodes:   1,
	}

	debug.Log([]any{"%p", a}, "create", "s_arena=%d max_nodes=%d", rounded, maxNodes)

	return a
}

// Alloc allocates n bytes from the arena, walking the node chain for the
// first node with room, spawning a fresh node if the cap allows it. Returns
// nil if a, or n, is zero, if n plus its header would not fit in an empty
// node at all, or if no node has room and the chain is already at its cap.
func (a *Node) Alloc(n int) []byte {
	if a == nil || n <= 0 {
		return nil
	}

	need := bytebuf.Word + n
	if need > a.sArena {
		debug.Log([]any{"%p", a}, "alloc", "miss: %d bytes exceeds node capacity %d", n, a.sArena)
		return nil
	}

	for node := a; node != nil; node = node.next {
		if node.ptr+need <= node.sArena {
			return node.bump(n)
		}

		if node.next == nil {
			if a.sNodes >= a.maxNodes {
				debug.Log([]any{"%p", a}, "alloc", "miss: chain at cap (%d nodes)", a.sNodes)
				return nil
			}

			node.next = &Node{
				memory: make([]byte, a.sArena),
				sArena: a.sArena,
			}
			a.sNodes++

			debug.Log([]any{"%p", a}, "alloc", "spawned node %d", a.sNodes)

			return node.next.bump(n)
		}
	}

	return nil
}

// bump carves n bytes (plus header) out of this node, which the caller has
// already verified has room, and returns the payload slice.
func (a *Node) bump(n int) []byte {
	header := a.ptr
	payload := header + bytebuf.Word

	bytebuf.WriteHeader(a.memory, header, uint64(n))
	a.ptr = payload + n

	debug.Log([]any{"%p", a}, "bump", "%d:%d, %d:%d", header, a.ptr, n, bytebuf.Word)

	return a.memory[payload : payload+n : payload+n]
}

// Realloc allocates a fresh n-byte region and copies min(oldSize, n) bytes
// from p into it. p is only considered valid if it lies within the head
// node's byte range — the walk does not consult non-head nodes, even
// though Alloc may have served p from one of them. Returns nil if p is out
// of the head's range or if the new allocation fails.
func (a *Node) Realloc(p []byte, n int) []byte {
	if a == nil {
		return nil
	}

	offset, ok := bytebuf.OffsetWithin(a.memory, p)
	if !ok || offset < bytebuf.Word {
		debug.Log([]any{"%p", a}, "realloc", "miss: p not in head node range")
		return nil
	}

	oldSize := int(bytebuf.ReadHeader(a.memory, offset-bytebuf.Word))

	q := a.Alloc(n)
	if q == nil {
		return nil
	}

	copy(q, p[:min(oldSize, n)])

	return q
}

// Reset zeroes the head node's buffer and resets its bump offset to the
// base, reclaiming it for reuse. This operates on the head node only;
// nodes appended past the head remain allocated and untouched. Pointers
// into any node's memory must not be used after Reset.
func (a *Node) Reset() bool {
	if a == nil {
		return false
	}

	clear(a.memory)
	a.ptr = 0

	debug.Log([]any{"%p", a}, "reset", "s_arena=%d", a.sArena)

	return true
}

// Destroy releases every node in the chain. After Destroy, a must not be
// used.
func (a *Node) Destroy() bool {
	if a == nil {
		return false
	}

	for node := a; node != nil; {
		next := node.next
		node.memory = nil
		node.next = nil
		node = next
	}

	debug.Log([]any{"%p", a}, "destroy", "released %d nodes", a.sNodes)

	return true
}

// Size returns the head node's capacity in bytes.
func (a *Node) Size() int {
	if a == nil {
		return 0
	}
	return a.sArena
}

// SizeUsed returns the number of bytes bumped past on the head node.
func (a *Node) SizeUsed() int {
	if a == nil {
		return 0
	}
	return a.ptr
}

// Nodes returns the current chain length.
func (a *Node) Nodes() int {
	if a == nil {
		return 0
	}
	return a.sNodes
}

// MaxNodes returns the chain cap.
func (a *Node) MaxNodes() int {
	if a == nil {
		return 0
	}
	return a.maxNodes
}

// New allocates size-of-T bytes from a and stores value in them, returning a
// typed pointer into the arena's backing buffer.
func New[T any](a *Node, value T) *T {
	buf := a.Alloc(sizeOf[T]())
	if buf == nil {
		return nil
	}

	p := cast[T](buf)
	*p = value

	return p
}
