package main

import (
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/flier/memkit/pkg/arena"
	"github.com/flier/memkit/pkg/pool"
)

// runArena repeatedly allocates allocSize bytes, resetting the arena every
// 64 rounds since individual allocations can never be freed.
func runArena(cfg Config, rounds, allocSize int) (*Report, error) {
	a := arena.Create(cfg.ArenaSize, cfg.ArenaMaxNodes)
	if a == nil {
		return nil, errors.New("failed to create arena")
	}
	defer a.Destroy()

	start := time.Now()
	failures := 0

	for i := 0; i < rounds; i++ {
		if i%64 == 0 {
			a.Reset()
		}
		if buf := a.Alloc(allocSize); buf == nil {
			failures++
			klog.V(3).InfoS("arena alloc miss", "round", i)
		}
	}

	return &Report{
		Mode:     "arena",
		Rounds:   rounds,
		Failures: failures,
		Elapsed:  time.Since(start),
		Size:     a.Size(),
		SizeUsed: a.SizeUsed(),
		Nodes:    a.Nodes(),
		MaxNodes: a.MaxNodes(),
	}, nil
}

// runPool churns through alloc/free cycles, freeing the oldest live pointer
// every third round so the free list sees realistic coalescing pressure.
func runPool(cfg Config, rounds, allocSize int) (*Report, error) {
	p := pool.Create(cfg.PoolSize, cfg.PoolBlock, cfg.PoolMaxNodes)
	if p == nil {
		return nil, errors.New("failed to create pool")
	}
	defer p.Destroy()

	start := time.Now()
	failures := 0
	var live [][]byte

	for i := 0; i < rounds; i++ {
		if i%3 == 0 && len(live) > 0 {
			if !p.Free(live[0]) {
				klog.V(3).InfoS("pool free miss", "round", i)
			}
			live = live[1:]
			continue
		}

		buf := p.Alloc(allocSize)
		if buf == nil {
			failures++
			klog.V(3).InfoS("pool alloc miss", "round", i)
			continue
		}
		live = append(live, buf)
	}

	return &Report{
		Mode:     "pool",
		Rounds:   rounds,
		Failures: failures,
		Elapsed:  time.Since(start),
		Size:     p.Size(),
		SizeUsed: p.SizeUsed(),
		Nodes:    p.Nodes(),
		MaxNodes: p.MaxNodes(),
	}, nil
}
