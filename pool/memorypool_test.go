package pool_test

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/momentics/hioload-reactor/pool"
)

func uintptrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func TestMemoryPoolLIFOReuse(t *testing.T) {
	p := pool.NewMemoryPool(64, 2)
	p1 := p.Allocate()
	p2 := p.Allocate()
	p.Deallocate(p1)
	p3 := p.Allocate()
	if p3 != p1 {
		t.Fatalf("expected LIFO reuse: p3 (%p) should equal p1 (%p)", p3, p1)
	}
	_ = p2
}

func TestMemoryPoolGrowsOnExhaustion(t *testing.T) {
	p := pool.NewMemoryPoolWithGrowth(32, 1, 4)
	first := p.Allocate()
	if first == nil {
		t.Fatal("expected non-nil block")
	}
	// Pool had exactly 1 initial block, now exhausted; next Allocate must
	// trigger chunk growth rather than panic or block.
	second := p.Allocate()
	if second == nil || second == first {
		t.Fatal("expected a distinct freshly grown block")
	}
	stats := p.Stats()
	if stats.ChunksAllocated != 2 {
		t.Fatalf("expected 2 chunks allocated, got %d", stats.ChunksAllocated)
	}
}

func TestMemoryPoolAlignment(t *testing.T) {
	p := pool.NewMemoryPool(24, 8)
	for i := 0; i < 8; i++ {
		b := p.Allocate()
		addr := uintptrOf(b.Bytes)
		if addr%8 != 0 {
			t.Fatalf("block %d not word-aligned: addr=%x", i, addr)
		}
	}
}

func TestMemoryPoolNoDoubleHandoutUnderConcurrency(t *testing.T) {
	p := pool.NewMemoryPool(16, 4)
	const workers = 8
	const iterations = 500

	seen := make(map[*pool.Block]int)
	inUse := make(map[*pool.Block]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				b := p.Allocate()
				mu.Lock()
				if inUse[b] {
					t.Errorf("block %p handed out while still held by another caller", b)
				}
				inUse[b] = true
				seen[b]++
				mu.Unlock()
				mu.Lock()
				delete(inUse, b)
				mu.Unlock()
				p.Deallocate(b)
			}
		}()
	}
	wg.Wait()
	// A block may legitimately be seen many times across the run (it is
	// reused), but it must never be handed to a second caller while the
	// first still holds it; inUse tracks that, and the total count checks
	// that every Allocate returned a block.
	total := 0
	for _, c := range seen {
		total += c
	}
	if total != workers*iterations {
		t.Fatalf("expected %d allocations total, got %d", workers*iterations, total)
	}
}
