// Package bufpool provides the message buffer pool used to read and build
// tagged-value payloads without a fresh allocation per message.
package bufpool

import (
	"sync"
	"sync/atomic"
)

// MaxMessageSize is the per-message byte ceiling. A frame descriptor
// advertising a larger length is rejected by the caller before a buffer is
// ever requested from the pool.
const MaxMessageSize = 256 * 1024

// MaxPooledBytes is the ceiling on memory the pool is willing to hold for
// later reuse. Once outstanding pooled capacity reaches this, buffers
// returned via Put are zeroed and discarded instead of recycled so the pool
// never becomes an unbounded cache under a bursty or hostile client.
const MaxPooledBytes = 16 * 1024 * 1024

var sizeClasses = []int{256, 1024, 4096, 16384, 65536, MaxMessageSize}

type classPool struct {
	size int
	pool *sync.Pool
}

// Pool provides sized byte slices backed by reusable buffers to reduce GC
// churn while reading and building PulseAudio native-protocol messages.
type Pool struct {
	pools  []classPool
	pooled int64 // bytes currently held in pools, accounted at Put time
}

var defaultPool = New()

// Get acquires a buffer from the package-level default pool.
func Get(size int) []byte {
	return defaultPool.Get(size)
}

// Put releases a buffer back to the package-level default pool.
func Put(buf []byte) {
	defaultPool.Put(buf)
}

// New creates a buffer pool with size classes spanning up to MaxMessageSize.
func New() *Pool {
	pools := make([]classPool, len(sizeClasses))
	for i, classSize := range sizeClasses {
		size := classSize
		pools[i] = classPool{
			size: size,
			pool: &sync.Pool{
				New: func() any {
					return make([]byte, size)
				},
			},
		}
	}
	return &Pool{pools: pools}
}

// Get returns a byte slice whose length matches the requested size and whose
// capacity is the nearest size class that can accommodate it. Requests
// larger than MaxMessageSize still allocate (the caller is expected to have
// already rejected frames that large), but the allocation bypasses pooling.
func (p *Pool) Get(size int) []byte {
	if p == nil || size <= 0 {
		return nil
	}

	for i := range p.pools {
		class := &p.pools[i]
		if size <= class.size {
			buf := class.pool.Get().([]byte)
			atomic.AddInt64(&p.pooled, -int64(class.size))
			return buf[:size]
		}
	}

	return make([]byte, size)
}

// Put returns the provided buffer to the pool if its capacity matches a size
// class and doing so would not push the pool's total held bytes over
// MaxPooledBytes. Buffers that don't match a class, or that would overflow
// the cap, are zeroed and dropped rather than recycled.
func (p *Pool) Put(buf []byte) {
	if p == nil || buf == nil {
		return
	}

	capBuf := cap(buf)
	for i := range p.pools {
		class := &p.pools[i]
		if capBuf != class.size {
			continue
		}
		full := buf[:class.size]
		clear(full)
		if atomic.AddInt64(&p.pooled, int64(class.size)) > MaxPooledBytes {
			atomic.AddInt64(&p.pooled, -int64(class.size))
			return
		}
		class.pool.Put(full)
		return
	}
}

// Pooled reports the approximate number of bytes currently cached across all
// size classes, for diagnostics and tests. The count is a heuristic: Get
// decrements it even when sync.Pool had to mint a fresh buffer, so it can
// run slightly low, never the reverse in a way that would let Put exceed
// MaxPooledBytes for long.
func (p *Pool) Pooled() int64 {
	if p == nil {
		return 0
	}
	if v := atomic.LoadInt64(&p.pooled); v > 0 {
		return v
	}
	return 0
}
