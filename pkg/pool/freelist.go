package pool

import (
	"github.com/flier/memkit/pkg/arena"
	"github.com/flier/memkit/pkg/bytebuf"
)

// FreeRegion describes a maximal contiguous run of free blocks in one Pool
// node. Descriptors are allocated from the node's flArena and are never
// individually released — only Node.Reset reclaims them, by resetting the
// inner arena wholesale.
type FreeRegion struct {
	startBlock int
	sBlocks    int
	prev, next *FreeRegion
}

// bestFit scans node's free list — ascending by sBlocks — for the first
// region with enough blocks to satisfy the request, which by construction
// is the smallest such region. On a hit it shrinks the region in place
// (splitting off the served blocks from its front) and repairs ordering by
// either unlinking an emptied region or bubbling a shrunk one left past any
// now-larger neighbor. Returns the start block of the served run and true,
// or (0, false) on a miss.
func bestFit(node *Node, blocks int) (int, bool) {
	for r := node.freeList; r != nil; r = r.next {
		if r.sBlocks < blocks {
			continue
		}

		start := r.startBlock
		r.startBlock += blocks
		r.sBlocks -= blocks

		if r.sBlocks == 0 {
			unlink(node, r)
		} else {
			bubbleLeft(r)
		}

		return start, true
	}

	return 0, false
}

// bubbleLeft restores ascending order after r has shrunk, by repeatedly
// swapping r's (startBlock, sBlocks) fields with its left neighbor's until
// it is no longer smaller. List links are never touched — only content
// moves, which is cheaper than unlinking and re-inserting.
func bubbleLeft(r *FreeRegion) {
	for r.prev != nil && r.sBlocks < r.prev.sBlocks {
		bytebuf.Swap(&r.startBlock, &r.prev.startBlock)
		bytebuf.Swap(&r.sBlocks, &r.prev.sBlocks)
		r = r.prev
	}
}

// unlink removes r from node's free list without reclaiming its descriptor.
func unlink(node *Node, r *FreeRegion) {
	if r.prev != nil {
		r.prev.next = r.next
	} else {
		node.freeList = r.next
	}

	if r.next != nil {
		r.next.prev = r.prev
	}

	r.prev, r.next = nil, nil
}

// sortedInsert splices r into node's free list in ascending order by
// sBlocks, after any existing regions of equal size (stable with respect to
// insertion recency).
func sortedInsert(node *Node, r *FreeRegion) {
	var prev *FreeRegion
	curr := node.freeList

	for curr != nil && curr.sBlocks <= r.sBlocks {
		prev = curr
		curr = curr.next
	}

	r.prev, r.next = prev, curr

	if prev != nil {
		prev.next = r
	} else {
		node.freeList = r
	}

	if curr != nil {
		curr.prev = r
	}
}

// coalesceFree merges a just-freed run [index, index+blocks) into node's
// free list, detecting left/right adjacency by a linear scan (stopping
// early once both neighbors are found — list order is irrelevant here,
// only adjacency matters) and handling all four merge cases. Returns false
// only if a brand-new descriptor was needed and the node's flArena could not
// supply one (descriptor-arena exhaustion — a normal failure mode, not an
// invariant breach).
func coalesceFree(node *Node, index, blocks int) bool {
	var left, right *FreeRegion

	for r := node.freeList; r != nil && (left == nil || right == nil); r = r.next {
		if r.startBlock+r.sBlocks == index {
			left = r
		}
		if r.startBlock == index+blocks {
			right = r
		}
	}

	switch {
	case left != nil && right != nil:
		unlink(node, left)
		unlink(node, right)
		left.sBlocks += blocks + right.sBlocks
		sortedInsert(node, left)

	case left != nil:
		unlink(node, left)
		left.sBlocks += blocks
		sortedInsert(node, left)

	case right != nil:
		unlink(node, right)
		right.startBlock = index
		right.sBlocks += blocks
		sortedInsert(node, right)

	default:
		r := arena.New(node.flArena, FreeRegion{startBlock: index, sBlocks: blocks})
		if r == nil {
			return false
		}
		sortedInsert(node, r)
	}

	return true
}

// freeListLen counts the regions currently linked in node's free list.
func freeListLen(node *Node) int {
	n := 0
	for r := node.freeList; r != nil; r = r.next {
		n++
	}
	return n
}
