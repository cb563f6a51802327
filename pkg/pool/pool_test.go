package pool_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/flier/memkit/pkg/pool"
)

func TestCreate(t *testing.T) {
	Convey("Given a zero pool size", t, func() {
		Convey("Then Create fails", func() {
			So(pool.Create(0, 16, 1), ShouldBeNil)
		})
	})

	Convey("Given a block size smaller than a word", t, func() {
		Convey("Then Create fails", func() {
			So(pool.Create(1024, 4, 1), ShouldBeNil)
		})
	})

	Convey("Given non-power-of-two sizes", t, func() {
		p := pool.Create(1000, 10, 1)

		Convey("Then both are rounded up to powers of two", func() {
			So(p.Size(), ShouldEqual, 1024)
			So(p.SBlock(), ShouldEqual, 16)
		})
	})
}

func TestPoolBestFitSplitAndBubble(t *testing.T) {
	// Successive best-fit splits of the single free region of a one-node pool.
	Convey("Given a pool of 1024 bytes, 16-byte blocks, single node", t, func() {
		p := pool.Create(1024, 16, 1)
		require.NotNil(t, p)

		Convey("When 32 bytes are allocated", func() {
			p1 := p.Alloc(32)
			So(p1, ShouldNotBeNil)
			So(len(p1), ShouldEqual, 32)

			Convey("When 480 bytes are then allocated", func() {
				p2 := p.Alloc(480)
				So(p2, ShouldNotBeNil)
				So(len(p2), ShouldEqual, 480)

				Convey("When 32 more bytes are allocated", func() {
					p3 := p.Alloc(32)
					So(p3, ShouldNotBeNil)
					So(len(p3), ShouldEqual, 32)
				})
			})
		})
	})
}

func TestPoolRoundTripHeader(t *testing.T) {
	// The size header read before the returned pointer equals the requested size.
	// We can't read the raw header from outside the package, so we instead
	// verify the returned slice has exactly the requested length.
	Convey("Given a pool", t, func() {
		p := pool.Create(4096, 32, 2)

		Convey("When allocating various sizes", func() {
			for _, n := range []int{1, 17, 32, 33, 100} {
				got := p.Alloc(n)
				So(got, ShouldNotBeNil)
				So(len(got), ShouldEqual, n)
			}
		})
	})
}

func TestPoolCoalesceRestoresFreeListLength(t *testing.T) {
	// Freeing three adjacent live blocks, in any order, returns
	// the free-list region count to its pre-allocation count (one). The count
	// is not visible outside the package, so it is checked by allocating the
	// whole node (64 blocks) at once, which only a single region can serve.
	Convey("Given a pool with three adjacent live allocations", t, func() {
		p := pool.Create(1024, 16, 1)
		before := p.SizeUsed()
		So(before, ShouldEqual, 0)

		a := p.Alloc(16)
		b := p.Alloc(16)
		c := p.Alloc(16)
		require.NotNil(t, a)
		require.NotNil(t, b)
		require.NotNil(t, c)

		Convey("When freed out of order", func() {
			So(p.Free(b), ShouldBeTrue)
			So(p.Free(a), ShouldBeTrue)
			So(p.Free(c), ShouldBeTrue)

			Convey("Then used size returns to its original value", func() {
				So(p.SizeUsed(), ShouldEqual, before)
			})

			Convey("Then a single free region spans the whole node again", func() {
				So(p.Alloc(1024), ShouldNotBeNil)
			})

			Convey("Then the reclaimed space can satisfy the original sequence again", func() {
				a2 := p.Alloc(16)
				b2 := p.Alloc(16)
				c2 := p.Alloc(16)
				So(a2, ShouldNotBeNil)
				So(b2, ShouldNotBeNil)
				So(c2, ShouldNotBeNil)
			})
		})
	})
}

func TestForeignPointerFree(t *testing.T) {
	// Freeing a pointer against a pool that did not allocate it must fail.
	Convey("Given two independent pools", t, func() {
		p1 := pool.Create(1024, 16, 1)
		p2 := pool.Create(1024, 16, 1)

		used1, used2 := p1.SizeUsed(), p2.SizeUsed()

		Convey("When a pointer from p1 is freed against p2", func() {
			ptr := p1.Alloc(32)
			require.NotNil(t, ptr)

			ok := p2.Free(ptr)

			Convey("Then it fails and leaves both pools unchanged", func() {
				So(ok, ShouldBeFalse)
				So(p2.SizeUsed(), ShouldEqual, used2)
				So(p1.SizeUsed(), ShouldBeGreaterThan, used1)
			})
		})
	})
}

func TestZeroHeaderDoubleFreeRejected(t *testing.T) {
	// A zeroed header after a first free must reject a second free.
	Convey("Given an allocation that has already been freed once", t, func() {
		p := pool.Create(1024, 16, 1)
		ptr := p.Alloc(32)
		require.NotNil(t, ptr)
		So(p.Free(ptr), ShouldBeTrue)

		Convey("When freed a second time", func() {
			Convey("Then it is rejected because the header now reads zero", func() {
				So(p.Free(ptr), ShouldBeFalse)
			})
		})
	})
}

func TestPoolReallocDisallowsShrink(t *testing.T) {
	// Shrink-via-realloc returns nil.
	Convey("Given a 64-byte allocation", t, func() {
		p := pool.Create(1024, 16, 1)
		ptr := p.Alloc(64)
		require.NotNil(t, ptr)

		Convey("When reallocated to a smaller size", func() {
			got := p.Realloc(ptr, 32)

			Convey("Then it is rejected", func() {
				So(got, ShouldBeNil)
			})
		})

		Convey("When reallocated to a larger size", func() {
			for i := range ptr {
				ptr[i] = byte(i + 1)
			}
			got := p.Realloc(ptr, 96)

			Convey("Then it succeeds and preserves the original bytes", func() {
				So(got, ShouldNotBeNil)
				So(len(got), ShouldEqual, 96)
				for i := 0; i < 64; i++ {
					So(got[i], ShouldEqual, byte(i+1))
				}
			})
		})
	})
}

func TestPoolAllocExceedingNodeCapacity(t *testing.T) {
	Convey("Given a pool of 256 bytes with room to grow", t, func() {
		p := pool.Create(256, 16, 4)
		require.NotNil(t, p)

		Convey("When a request larger than one node can ever hold is made", func() {
			got := p.Alloc(512)

			Convey("Then it fails instead of spawning a node and overrunning it", func() {
				So(got, ShouldBeNil)
				So(p.Nodes(), ShouldEqual, 1)
			})
		})
	})
}

func TestPoolCapacityExceeded(t *testing.T) {
	Convey("Given a pool at its node cap with no room left", t, func() {
		p := pool.Create(256, 16, 1)
		// Consume the whole node (16 blocks * 16 bytes).
		for i := 0; i < 16; i++ {
			require.NotNil(t, p.Alloc(16))
		}

		Convey("Then one more allocation fails rather than spawning a node", func() {
			So(p.Alloc(16), ShouldBeNil)
		})
	})
}

func TestPoolGrowsChainUnderCap(t *testing.T) {
	Convey("Given a pool with room to grow", t, func() {
		p := pool.Create(256, 16, 2)
		for i := 0; i < 16; i++ {
			require.NotNil(t, p.Alloc(16))
		}

		Convey("Then a further allocation spawns a second node", func() {
			got := p.Alloc(16)
			So(got, ShouldNotBeNil)
			So(p.Nodes(), ShouldEqual, 2)
		})
	})
}

func TestPoolResetReclaimsEveryNode(t *testing.T) {
	// Reset must walk every node in the chain, not just the head.
	Convey("Given a pool that has grown to two nodes", t, func() {
		p := pool.Create(256, 16, 2)
		for i := 0; i < 16; i++ {
			require.NotNil(t, p.Alloc(16))
		}
		require.NotNil(t, p.Alloc(16))
		So(p.Nodes(), ShouldEqual, 2)

		Convey("When reset", func() {
			So(p.Reset(), ShouldBeTrue)

			Convey("Then used size across both nodes returns to zero", func() {
				So(p.SizeUsed(), ShouldEqual, 0)
			})

			Convey("Then both nodes can be fully reallocated again", func() {
				for i := 0; i < 16; i++ {
					require.NotNil(t, p.Alloc(16))
				}
				require.NotNil(t, p.Alloc(16))
			})
		})
	})
}

func TestPoolDestroy(t *testing.T) {
	Convey("Given a pool", t, func() {
		p := pool.Create(1024, 16, 1)

		Convey("When destroyed", func() {
			So(p.Destroy(), ShouldBeTrue)
		})
	})
}

func TestPoolNilReceivers(t *testing.T) {
	Convey("Given a nil pool", t, func() {
		var p *pool.Node

		Convey("Then every operation fails gracefully instead of panicking", func() {
			So(p.Alloc(8), ShouldBeNil)
			So(p.Free(nil), ShouldBeFalse)
			So(p.Realloc(nil, 8), ShouldBeNil)
			So(p.Reset(), ShouldBeFalse)
			So(p.Destroy(), ShouldBeFalse)
			So(p.Size(), ShouldEqual, 0)
			So(p.SizeUsed(), ShouldEqual, 0)
			So(p.Nodes(), ShouldEqual, 0)
			So(p.MaxNodes(), ShouldEqual, 0)
			So(p.SBlock(), ShouldEqual, 0)
		})
	})
}

func TestPoolBoundedResidency(t *testing.T) {
	// Used size never exceeds total pool capacity.
	Convey("Given a pool under a churn of alloc/free cycles", t, func() {
		p := pool.Create(4096, 32, 4)

		var live [][]byte
		for i := 0; i < 50; i++ {
			if n := i % 7; n > 0 && len(live) > 0 {
				So(p.Free(live[0]), ShouldBeTrue)
				live = live[1:]
				continue
			}
			if ptr := p.Alloc(32); ptr != nil {
				live = append(live, ptr)
			}
			So(p.SizeUsed(), ShouldBeLessThanOrEqualTo, p.Size()*p.MaxNodes())
		}
	})
}
