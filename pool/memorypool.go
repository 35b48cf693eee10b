// File: pool/memorypool.go
// Package pool implements the thread-safe fixed-size block allocator and the
// bounded connection pool the reactor core relies on.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MemoryPool is a free-list block allocator in the spirit of the
// slab pools (pool/slab_pool.go, pool/base_bufferpool.go): carve a chunk into
// fixed-size blocks up front, hand them out from a free list, and grow by
// another fixed-size chunk when the list runs dry. Unlike those
// buffer pools (which are keyed by NUMA node and backed by a bounded
// channel/lock-free queue, tolerating silent drop-on-full), this pool must
// satisfy the stronger invariants required here: LIFO reuse order and
// no cap on outstanding blocks, so the free list is a plain mutex-guarded
// stack rather than a ring buffer.

package pool

import (
	"sync"

	"github.com/momentics/hioload-reactor/internal/obsmetrics"
)

// wordSize is the natural alignment every returned pointer must satisfy.
const wordSize = 8

// Block is a handle to one fixed-size region carved from a MemoryPool chunk.
// Its Bytes slice is valid for reuse bookkeeping purposes only until the
// block is deallocated; callers treat it as an opaque, pre-allocated buffer.
type Block struct {
	Bytes []byte
}

// MemoryPool is a thread-safe fixed-block-size allocator with free-list
// reuse and lazy chunk growth.
type MemoryPool struct {
	mu         sync.Mutex
	blockSize  int
	chunkGrow  int
	freeList   []*Block // used as a LIFO stack: last deallocated is popped first
	chunks     [][]byte // owned backing storage, freed (dropped) on pool destruction
}

// NewMemoryPool rounds blockSize up to at least wordSize (the size of a
// free-list link in a pointer-chasing implementation; here it is the
// minimum useful allocation granularity) and then to a multiple of
// wordSize so every block in a chunk starts word-aligned, and carves one
// chunk of blockSize*initialBlocks bytes into initialBlocks free blocks.
func NewMemoryPool(blockSize, initialBlocks int) *MemoryPool {
	if blockSize < wordSize {
		blockSize = wordSize
	}
	blockSize = (blockSize + wordSize - 1) &^ (wordSize - 1)
	if initialBlocks <= 0 {
		initialBlocks = 1
	}
	p := &MemoryPool{
		blockSize: blockSize,
		chunkGrow: 100,
	}
	p.mu.Lock()
	p.growLocked(initialBlocks)
	p.mu.Unlock()
	return p
}

// NewMemoryPoolWithGrowth is NewMemoryPool with an explicit chunk-growth
// block count instead of the package default of 100.
func NewMemoryPoolWithGrowth(blockSize, initialBlocks, chunkGrowth int) *MemoryPool {
	p := NewMemoryPool(blockSize, initialBlocks)
	if chunkGrowth > 0 {
		p.chunkGrow = chunkGrowth
	}
	return p
}

// growLocked allocates one new chunk of blockSize*n bytes, carves it into n
// blocks, and pushes them onto the free list. Caller must hold p.mu; the
// lock is released around the allocation itself per the concurrency
// note ("the lock is released around chunk allocation ... and re-acquired
// to link new blocks").
func (p *MemoryPool) growLocked(n int) {
	blockSize := p.blockSize
	p.mu.Unlock()
	chunk := make([]byte, blockSize*n)
	blocks := make([]*Block, n)
	for i := 0; i < n; i++ {
		blocks[i] = &Block{Bytes: chunk[i*blockSize : (i+1)*blockSize : (i+1)*blockSize]}
	}
	p.mu.Lock()
	p.chunks = append(p.chunks, chunk)
	// Push in reverse so blocks[0] ends up on top of the stack, matching
	// the order a caller allocating immediately after New would expect.
	for i := n - 1; i >= 0; i-- {
		p.freeList = append(p.freeList, blocks[i])
	}
	obsmetrics.PoolMemoryBlocksAllocated.Add(float64(n))
}

// Allocate pops one block from the free list, growing the pool by
// chunkGrow blocks first if the list is empty. The returned Block's Bytes
// slice is at least blockSize long and word-aligned (Go's allocator aligns
// slice backing arrays to at least the machine word).
func (p *MemoryPool) Allocate() *Block {
	p.mu.Lock()
	if len(p.freeList) == 0 {
		p.growLocked(p.chunkGrow)
	}
	n := len(p.freeList)
	b := p.freeList[n-1]
	p.freeList = p.freeList[:n-1]
	p.mu.Unlock()
	return b
}

// Deallocate pushes b back onto the free list. b must have been returned by
// Allocate on this pool and not already freed; double-free is undefined
// behavior (the block would appear twice in the free list and could be
// handed out to two concurrent callers).
func (p *MemoryPool) Deallocate(b *Block) {
	p.mu.Lock()
	p.freeList = append(p.freeList, b)
	p.mu.Unlock()
}

// BlockSize returns the (possibly rounded-up) block size this pool serves.
func (p *MemoryPool) BlockSize() int {
	return p.blockSize
}

// Stats is a point-in-time snapshot for diagnostics.
type Stats struct {
	ChunksAllocated int
	BlocksFree      int
}

// Stats reports current pool occupancy.
func (p *MemoryPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{ChunksAllocated: len(p.chunks), BlocksFree: len(p.freeList)}
}
