package archive

import (
	"sync"
)

// Buffer is a thread-safe FIFO that doubles its capacity when it reaches
// 70% full, up to a maximum. At the maximum it drops the oldest item to
// make room, so Push never blocks.
type Buffer[T any] struct {
	mu          sync.Mutex
	buf         []T
	head        int // read position
	tail        int // write position
	count       int
	capacity    int
	maxCapacity int
	closed      bool
	notify      chan struct{}

	// Stats
	totalPushed  int64
	totalDrained int64
	dropped      int64
	resizeCount  int
}

// NewBuffer creates a buffer with the given initial and maximum capacity.
func NewBuffer[T any](initialCapacity, maxCapacity int) *Buffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if maxCapacity < initialCapacity {
		maxCapacity = initialCapacity
	}
	return &Buffer[T]{
		buf:         make([]T, initialCapacity),
		capacity:    initialCapacity,
		maxCapacity: maxCapacity,
		notify:      make(chan struct{}, 1),
	}
}

// Push appends an item. It reports false if the buffer is closed.
func (b *Buffer[T]) Push(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold && b.capacity < b.maxCapacity {
		b.grow()
	}

	if b.count == b.capacity {
		// Full at max capacity: overwrite the oldest
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.dropped++
	}

	b.buf[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalPushed++

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// DrainTo removes up to max items (all when max <= 0) in FIFO order.
func (b *Buffer[T]) DrainTo(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	var zero T
	for i := 0; i < n; i++ {
		result[i] = b.buf[b.head]
		b.buf[b.head] = zero // Clear reference for GC
		b.head = (b.head + 1) % b.capacity
		b.count--
	}
	b.totalDrained += int64(n)

	return result
}

// Notify fires after pushes. Multiple pushes may coalesce into one signal.
func (b *Buffer[T]) Notify() <-chan struct{} {
	return b.notify
}

// Close stops accepting items. Remaining items can still be drained.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Len returns the current number of items in the buffer.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer statistics.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:        b.count,
		Capacity:     b.capacity,
		MaxCapacity:  b.maxCapacity,
		TotalPushed:  b.totalPushed,
		TotalDrained: b.totalDrained,
		Dropped:      b.dropped,
		ResizeCount:  b.resizeCount,
	}
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count        int
	Capacity     int
	MaxCapacity  int
	TotalPushed  int64
	TotalDrained int64
	Dropped      int64
	ResizeCount  int
}

// grow doubles the capacity, clamped to maxCapacity. Must be called with lock held.
func (b *Buffer[T]) grow() {
	newCapacity := b.capacity * 2
	if newCapacity > b.maxCapacity {
		newCapacity = b.maxCapacity
	}
	newBuf := make([]T, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count % newCapacity
	b.capacity = newCapacity
	b.resizeCount++
}
