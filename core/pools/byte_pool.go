package pools

import "sync"

// BytePool is a multi-tiered byte slice pool. The tiers follow the read
// buffer's growth schedule (4 KiB doubling), so a buffer that grew up to
// 32 KiB during a long request is still recycled when its connection closes;
// larger buffers are left to the GC.
type BytePool struct {
	pools []*sync.Pool
	sizes []int
}

var defaultSizes = []int{
	4096,  // fresh read buffers
	8192,  // one growth step
	16384,
	32768,
}

// NewBytePool creates a byte pool with the standard size tiers.
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom size tiers.
// Sizes must be ascending.
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}

	for i, size := range sizes {
		sz := size
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}

	return bp
}

// Get returns a byte slice of at least the requested size.
func (bp *BytePool) Get(size int) []byte {
	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			return (*bp.pools[i].Get().(*[]byte))[:size]
		}
	}
	return make([]byte, size)
}

// Put returns a byte slice to the pool. Slices whose capacity matches no
// tier are left to the GC.
func (bp *BytePool) Put(buf []byte) {
	capacity := cap(buf)
	for i, poolSize := range bp.sizes {
		if capacity == poolSize {
			buf = buf[:capacity]
			bp.pools[i].Put(&buf)
			return
		}
	}
}
