package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ParseFunc turns one payload into row and byte counts. It is the unit of
// work executed by the pool.
type ParseFunc func(payload []byte) (rows, bytes int64, err error)

// WorkResult is the outcome of parsing one frame.
type WorkResult struct {
	Seq      uint64
	Rows     int64
	Bytes    int64
	Err      error
	Duration time.Duration
	WorkerID int
}

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Pending   int   `json:"pending"`
}

// WorkerPool parses frames on a fixed set of goroutines. Each worker owns
// its task exclusively; results are delivered on a channel.
type WorkerPool struct {
	workers    int
	parse      ParseFunc
	frameChan  chan *Frame
	resultChan chan *WorkResult
	wg         sync.WaitGroup

	active    int64
	completed int64
	failed    int64

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
}

// NewWorkerPool creates and starts a pool of the given size.
func NewWorkerPool(workers int, parse ParseFunc) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		workers:    workers,
		parse:      parse,
		frameChan:  make(chan *Frame, workers*100),
		resultChan: make(chan *WorkResult, workers*100),
		ctx:        ctx,
		cancel:     cancel,
		running:    true,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case frame, ok := <-p.frameChan:
			if !ok {
				return
			}
			p.process(id, frame)
		}
	}
}

func (p *WorkerPool) process(id int, frame *Frame) {
	atomic.AddInt64(&p.active, 1)
	defer atomic.AddInt64(&p.active, -1)

	start := time.Now()
	res := &WorkResult{Seq: frame.Seq, WorkerID: id}

	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Err = errors.New("panic during parse")
			}
		}()
		res.Rows, res.Bytes, res.Err = p.parse(frame.Payload)
	}()

	res.Duration = time.Since(start)
	if res.Err != nil {
		atomic.AddInt64(&p.failed, 1)
	} else {
		atomic.AddInt64(&p.completed, 1)
	}

	select {
	case p.resultChan <- res:
	case <-p.ctx.Done():
	}
}

// Submit queues a frame for parsing. Returns false when the pool is shut
// down or the queue is full.
func (p *WorkerPool) Submit(frame *Frame) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return false
	}

	select {
	case p.frameChan <- frame:
		return true
	default:
		return false
	}
}

// Results returns the channel on which outcomes are delivered.
func (p *WorkerPool) Results() <-chan *WorkResult {
	return p.resultChan
}

// Stats returns a snapshot of pool counters.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:   p.workers,
		Active:    atomic.LoadInt64(&p.active),
		Completed: atomic.LoadInt64(&p.completed),
		Failed:    atomic.LoadInt64(&p.failed),
		Pending:   len(p.frameChan),
	}
}

// Shutdown stops the workers after draining queued frames.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.frameChan)
	p.wg.Wait()
	p.cancel()
	close(p.resultChan)
}
