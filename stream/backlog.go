// Package stream pulls CSV payload frames from a ZeroMQ source and parses
// them through the engine on a fixed worker pool.
package stream

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

// Common errors for backlog operations
var (
	ErrBacklogFull  = errors.New("backlog is full")
	ErrDuplicateSeq = errors.New("frame sequence already buffered")
	ErrEmptyFrame   = errors.New("empty frame")
)

// Frame is one received payload awaiting parsing.
type Frame struct {
	Seq      uint64    `json:"seq"`
	Payload  []byte    `json:"payload,omitempty"`
	Received time.Time `json:"received"`
}

// frameQueue implements heap.Interface ordered by ascending sequence.
type frameQueue []*Frame

func (q frameQueue) Len() int            { return len(q) }
func (q frameQueue) Less(i, j int) bool  { return q[i].Seq < q[j].Seq }
func (q frameQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *frameQueue) Push(x interface{}) { *q = append(*q, x.(*Frame)) }

func (q *frameQueue) Pop() interface{} {
	old := *q
	n := len(old)
	f := old[n-1]
	old[n-1] = nil // avoid memory leak
	*q = old[0 : n-1]
	return f
}

// Backlog buffers received frames up to a size bound, draining them in
// sequence order. All operations are safe for concurrent use.
type Backlog struct {
	buffered map[uint64]*Frame
	queue    frameQueue
	maxSize  int
	mu       sync.Mutex
}

// NewBacklog creates a Backlog holding at most maxSize frames.
func NewBacklog(maxSize int) *Backlog {
	if maxSize <= 0 {
		maxSize = 1
	}
	b := &Backlog{
		buffered: make(map[uint64]*Frame),
		queue:    make(frameQueue, 0),
		maxSize:  maxSize,
	}
	heap.Init(&b.queue)
	return b
}

// Add buffers a frame. Returns an error when the backlog is full or the
// sequence number is already buffered.
func (b *Backlog) Add(f *Frame) error {
	if f == nil || len(f.Payload) == 0 {
		return ErrEmptyFrame
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.buffered[f.Seq]; exists {
		return ErrDuplicateSeq
	}
	if len(b.buffered) >= b.maxSize {
		return ErrBacklogFull
	}

	if f.Received.IsZero() {
		f.Received = time.Now()
	}
	b.buffered[f.Seq] = f
	heap.Push(&b.queue, f)
	return nil
}

// PopBatch removes and returns up to n frames with the lowest sequence
// numbers.
func (b *Backlog) PopBatch(n int) []*Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.queue) {
		n = len(b.queue)
	}
	frames := make([]*Frame, 0, n)
	for i := 0; i < n; i++ {
		f := heap.Pop(&b.queue).(*Frame)
		delete(b.buffered, f.Seq)
		frames = append(frames, f)
	}
	return frames
}

// Len returns the number of buffered frames.
func (b *Backlog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffered)
}
