// Package memory defines the allocator capability the runtime is built
// against, plus the implementations it ships. A garbage collector is an
// external collaborator: it plugs in through the Allocator interface and
// discovers live values through RootScanner.
package memory

// Allocator is the capability handed to runtime components that own bulk
// byte storage. Implementations decide pooling, reuse and lifetime; Reset
// invalidates everything allocated so far in one step.
type Allocator interface {
	// Allocate returns a zeroed buffer of exactly size bytes.
	Allocate(size int) []byte
	// Reallocate grows or shrinks buf to size, preserving the prefix.
	Reallocate(buf []byte, size int) []byte
	// Free releases buf. Arena-style allocators may treat it as a no-op.
	Free(buf []byte)
	// Reset releases every allocation made through this allocator.
	Reset()
}

// RootScanner is implemented by components that hold live values a
// collector must not reclaim. The scanner calls mark once per root.
type RootScanner interface {
	ScanRoots(mark func(root any))
}

// SystemAllocator allocates directly from the Go heap. Free and Reset are
// no-ops; the Go runtime reclaims the buffers.
type SystemAllocator struct{}

func (SystemAllocator) Allocate(size int) []byte {
	return make([]byte, size)
}

func (SystemAllocator) Reallocate(buf []byte, size int) []byte {
	if size <= cap(buf) {
		return buf[:size]
	}
	next := make([]byte, size)
	copy(next, buf)
	return next
}

func (SystemAllocator) Free(buf []byte) {}

func (SystemAllocator) Reset() {}

const defaultBlockSize = 64 * 1024

// Arena is a bump allocator over fixed-size blocks. Individual Free calls
// are no-ops; Reset drops every block at once. Allocations larger than the
// block size get a dedicated block.
type Arena struct {
	blockSize int
	blocks    [][]byte
	cur       []byte
	offset    int
}

// NewArena returns an arena with the given block size, or the default when
// blockSize is zero or negative.
func NewArena(blockSize int) *Arena {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	return &Arena{blockSize: blockSize}
}

func (a *Arena) Allocate(size int) []byte {
	if size > a.blockSize {
		block := make([]byte, size)
		a.blocks = append(a.blocks, block)
		return block
	}
	if a.cur == nil || a.offset+size > len(a.cur) {
		a.cur = make([]byte, a.blockSize)
		a.blocks = append(a.blocks, a.cur)
		a.offset = 0
	}
	buf := a.cur[a.offset : a.offset+size : a.offset+size]
	a.offset += size
	return buf
}

func (a *Arena) Reallocate(buf []byte, size int) []byte {
	if size <= cap(buf) {
		return buf[:size]
	}
	next := a.Allocate(size)
	copy(next, buf)
	return next
}

func (a *Arena) Free(buf []byte) {}

func (a *Arena) Reset() {
	a.blocks = nil
	a.cur = nil
	a.offset = 0
}

// Used reports the number of bytes currently reserved by the arena,
// counting whole blocks.
func (a *Arena) Used() int {
	total := 0
	for _, b := range a.blocks {
		total += len(b)
	}
	return total
}

// TrackingAllocator wraps another allocator and counts bytes flowing
// through it. Useful in tests and for memory pressure heuristics.
type TrackingAllocator struct {
	inner     Allocator
	allocated int64
	freed     int64
}

// NewTrackingAllocator wraps inner, defaulting to SystemAllocator when nil.
func NewTrackingAllocator(inner Allocator) *TrackingAllocator {
	if inner == nil {
		inner = SystemAllocator{}
	}
	return &TrackingAllocator{inner: inner}
}

func (t *TrackingAllocator) Allocate(size int) []byte {
	t.allocated += int64(size)
	return t.inner.Allocate(size)
}

func (t *TrackingAllocator) Reallocate(buf []byte, size int) []byte {
	if size > len(buf) {
		t.allocated += int64(size - len(buf))
	}
	return t.inner.Reallocate(buf, size)
}

func (t *TrackingAllocator) Free(buf []byte) {
	t.freed += int64(len(buf))
	t.inner.Free(buf)
}

func (t *TrackingAllocator) Reset() {
	t.freed = t.allocated
	t.inner.Reset()
}

// Allocated returns the total bytes requested so far.
func (t *TrackingAllocator) Allocated() int64 { return t.allocated }

// Live returns allocated minus freed bytes.
func (t *TrackingAllocator) Live() int64 { return t.allocated - t.freed }
