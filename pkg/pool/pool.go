// Package pool implements a best-fit block allocator with coalescing over
// chained, fixed-size backing buffers.
//
// A Pool node partitions its backing buffer into fixed-size blocks and
// tracks contiguous runs of free blocks as a size-sorted, doubly-linked list
// of [FreeRegion] descriptors. Allocation performs best-fit selection with
// in-place sort repair (see bestFit/bubbleLeft in freelist.go); freeing
// performs three-way adjacency detection and coalescing (coalesceFree). The
// free-region descriptors themselves are allocated from a dedicated inner
// [arena.Node] owned by each Pool node, so free-list bookkeeping never
// touches Go's own heap once a node's descriptor arena has warmed up.
//
// Like [arena.Node], every public operation returns a nil/false sentinel on
// failure rather than an error value. Internal invariant breaches call
// debug.Assert; resource exhaustion (including exhaustion of a node's
// descriptor arena) is a normal failure mode and is surfaced as a sentinel
// instead.
package pool

import (
	"github.com/flier/memkit/internal/debug"
	"github.com/flier/memkit/pkg/arena"
	"github.com/flier/memkit/pkg/bytebuf"
)

const (
	minFreeListArenaSize = 1024
	maxFreeListArenaSize = 10 * 1024 * 1024
	freeListArenaNodes   = 5
)

// Node is one link in a Pool's chain of block-sharded backing buffers. The
// head node additionally owns maxNodes and sNodes; those fields are unused
// on every other node. Each node, head or not, owns its own memory buffer,
// flArena and freeList independently — the Pool's "chaining" is purely
// about capacity, unlike the Arena's head-only bookkeeping.
type Node struct {
	memory []byte // len(memory) == sPool + bytebuf.Word*(sPool/sBlock)
	sPool  int    // bytes covered by block payloads, power of two
	sBlock int    // block payload size, power of two, >= bytebuf.Word

	flArena  *arena.Node
	freeList *FreeRegion

	maxNodes int // head only
	sNodes   int // head only

	next *Node
}

var _ Allocator = (*Node)(nil)

// Allocator is the capability interface common to Pool and
// github.com/flier/memkit/pkg/arena.Node, extended with Free, which Arena
// does not support.
type Allocator interface {
	Alloc(n int) []byte
	Realloc(p []byte, n int) []byte
	Free(p []byte) bool
	Reset() bool
	Destroy() bool
	Size() int
	SizeUsed() int
	Nodes() int
	MaxNodes() int
	SBlock() int
}

func clampFreeListArenaSize(sPool int) int {
	size := sPool / 100
	if size < minFreeListArenaSize {
		size = minFreeListArenaSize
	}
	if size > maxFreeListArenaSize {
		size = maxFreeListArenaSize
	}
	return size
}

// newNode builds one fully-initialized Pool node: its descriptor arena, its
// zeroed block buffer, and a single FreeRegion covering every block.
func newNode(sPool, sBlock int) *Node {
	n := &Node{sPool: sPool, sBlock: sBlock}

	n.flArena = arena.Create(clampFreeListArenaSize(sPool), freeListArenaNodes)
	if n.flArena == nil {
		return nil
	}

	blocks := sPool / sBlock
	n.memory = make([]byte, sPool+bytebuf.Word*blocks)

	region := arena.New(n.flArena, FreeRegion{sBlocks: blocks})
	if region == nil {
		return nil
	}
	n.freeList = region

	return n
}

// Create allocates a new Pool head node. sPool and sBlock are each rounded
// up to the next power of two; sBlock must be at least bytebuf.Word.
// Returns nil if sPool is zero or sBlock is too small, or if the node's
// descriptor arena or block buffer cannot be allocated.
func Create(sPool, sBlock, maxNodes int) *Node {
	if sPool <= 0 || sBlock < bytebuf.Word {
		return nil
	}

	roundedPool := int(bytebuf.NextPowerOfTwo(uint64(sPool)))
	roundedBlock := int(bytebuf.NextPowerOfTwo(uint64(sBlock)))

	head := newNode(roundedPool, roundedBlock)
	if head == nil {
		return nil
	}
	head.maxNodes = maxNodes
	head.sNodes = 1

	debug.Log([]any{"%p", head}, "create", "s_pool=%d s_block=%d max_nodes=%d",
		roundedPool, roundedBlock, maxNodes)

	return head
}

// Alloc converts n bytes to a block count by ceiling division and walks the
// node chain for the first best-fit hit, appending a fresh node (if under
// cap) on an all-miss. Returns nil if n is zero, if the block count exceeds
// a single node's total capacity (no node, fresh or otherwise, could ever
// satisfy it), if every node misses and the chain is already at its cap, or
// if a fresh node could not be allocated.
func (p *Node) Alloc(n int) []byte {
	if p == nil || n <= 0 {
		return nil
	}

	blocks := int(bytebuf.CeilDiv(uint64(n), uint64(p.sBlock)))
	if blocks > p.sPool/p.sBlock {
		debug.Log([]any{"%p", p}, "alloc", "miss: %d bytes exceeds node capacity %d", n, p.sPool)
		return nil
	}

	for node := p; node != nil; node = node.next {
		if start, ok := bestFit(node, blocks); ok {
			return node.commit(start, n)
		}

		if node.next == nil {
			if p.sNodes >= p.maxNodes {
				debug.Log([]any{"%p", p}, "alloc", "miss: chain at cap (%d nodes)", p.sNodes)
				return nil
			}

			fresh := newNode(p.sPool, p.sBlock)
			if fresh == nil {
				return nil
			}
			node.next = fresh
			p.sNodes++

			start, ok := bestFit(fresh, blocks)
			if !ok {
				debug.Log([]any{"%p", p}, "alloc", "miss: fresh node has no room for %d blocks", blocks)
				return nil
			}

			debug.Log([]any{"%p", p}, "alloc", "spawned node %d", p.sNodes)

			return fresh.commit(start, n)
		}
	}

	return nil
}

// commit writes the n-byte header for the slot at startBlock and returns
// the user payload slice.
func (node *Node) commit(startBlock, n int) []byte {
	slot := startBlock * (bytebuf.Word + node.sBlock)
	payload := slot + bytebuf.Word

	bytebuf.WriteHeader(node.memory, slot, uint64(n))

	return node.memory[payload : payload+n : payload+n]
}

// findOwner locates the node whose buffer ptr was carved from, and the byte
// offset of ptr's payload within that node's memory. The allocation's end
// (offset+len(ptr)) is allowed to land exactly at the node buffer's end —
// an allocation that exactly fills the last slot is not out of range.
func (p *Node) findOwner(ptr []byte) (owner *Node, offset int, ok bool) {
	for node := p; node != nil; node = node.next {
		off, inRange := bytebuf.OffsetWithin(node.memory, ptr)
		if !inRange || off < bytebuf.Word {
			continue
		}
		if off+len(ptr) > len(node.memory) {
			continue
		}
		return node, off, true
	}
	return nil, 0, false
}

// Free reads the size header immediately preceding ptr, rejects a zero
// header as a double-free or never-allocated pointer, locates the owning
// node by range check, and coalesces the freed run with its neighbors.
// Returns false if ptr does not belong to this pool or its header is zero.
func (p *Node) Free(ptr []byte) bool {
	if p == nil || len(ptr) == 0 {
		return false
	}

	node, offset, ok := p.findOwner(ptr)
	if !ok {
		debug.Log([]any{"%p", p}, "free", "miss: foreign pointer")
		return false
	}

	headerOff := offset - bytebuf.Word
	size := bytebuf.ReadHeader(node.memory, headerOff)
	if size == 0 {
		debug.Log([]any{"%p", p}, "free", "miss: zero header (double free?)")
		return false
	}

	slotSize := bytebuf.Word + node.sBlock
	debug.Assert(headerOff%slotSize == 0, "free: pointer not aligned to a slot boundary")

	bytebuf.ZeroRange(node.memory, headerOff, bytebuf.Word+int(size))

	index := headerOff / slotSize
	blocks := int(bytebuf.CeilDiv(size, uint64(node.sBlock)))

	return coalesceFree(node, index, blocks)
}

// Realloc validates that ptr belongs to this pool, then allocates n bytes
// fresh, copies the old payload into it, and frees the old pointer.
//
// Shrinking is disallowed outright: if the old size exceeds n, Realloc
// returns nil rather than copying a truncated payload — asymmetric with
// Arena.Realloc, which always copies min(old,new). Growing copies the old
// payload's oldSize bytes into the front of the new region; nothing past the
// old payload is read, and the remaining n-oldSize bytes of the new region
// are not copied from the old allocation.
func (p *Node) Realloc(ptr []byte, n int) []byte {
	if p == nil || n <= 0 {
		return nil
	}

	node, offset, ok := p.findOwner(ptr)
	if !ok {
		return nil
	}

	oldSize := int(bytebuf.ReadHeader(node.memory, offset-bytebuf.Word))
	if oldSize == 0 || oldSize > n {
		return nil
	}

	q := p.Alloc(n)
	if q == nil {
		return nil
	}

	copy(q, ptr)

	if !p.Free(ptr) {
		_ = p.Free(q)
		return nil
	}

	return q
}

// Reset reclaims every node in the chain: each node's descriptor arena is
// reset, a single FreeRegion covering the whole node is re-allocated from
// it, and the node's block buffer is zeroed.
func (p *Node) Reset() bool {
	if p == nil {
		return false
	}

	for node := p; node != nil; node = node.next {
		node.flArena.Reset()

		blocks := node.sPool / node.sBlock
		region := arena.New(node.flArena, FreeRegion{sBlocks: blocks})
		if region == nil {
			return false
		}
		node.freeList = region

		clear(node.memory)
	}

	debug.Log([]any{"%p", p}, "reset", "reset %d nodes", p.sNodes)

	return true
}

// Destroy releases every node in the chain, including each node's
// descriptor arena. After Destroy, p must not be used.
func (p *Node) Destroy() bool {
	if p == nil {
		return false
	}

	for node := p; node != nil; {
		next := node.next

		node.flArena.Destroy()
		node.flArena = nil
		node.memory = nil
		node.freeList = nil
		node.next = nil

		node = next
	}

	debug.Log([]any{"%p", p}, "destroy", "released %d nodes", p.sNodes)

	return true
}

// Size returns the head node's block-payload capacity in bytes.
func (p *Node) Size() int {
	if p == nil {
		return 0
	}
	return p.sPool
}

// SBlock returns the block payload size in bytes.
func (p *Node) SBlock() int {
	if p == nil {
		return 0
	}
	return p.sBlock
}

// Nodes returns the current chain length.
func (p *Node) Nodes() int {
	if p == nil {
		return 0
	}
	return p.sNodes
}

// MaxNodes returns the chain cap.
func (p *Node) MaxNodes() int {
	if p == nil {
		return 0
	}
	return p.maxNodes
}

// SizeUsed sums, across every node in the chain, sPool minus the bytes
// still covered by that node's free regions.
func (p *Node) SizeUsed() int {
	if p == nil {
		return 0
	}

	used := 0
	for node := p; node != nil; node = node.next {
		free := 0
		for r := node.freeList; r != nil; r = r.next {
			free += r.sBlocks
		}
		used += node.sPool - node.sBlock*free
	}

	return used
}
