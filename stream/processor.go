package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/VanDung-dev/TickDB-Engine/engine"
	"github.com/VanDung-dev/TickDB-Engine/schema"
)

// Config holds stream processor settings.
type Config struct {
	// SourceURL is the ZeroMQ endpoint the PULL socket dials.
	SourceURL string
	// SchemaID selects a registry schema; empty means per-payload inference.
	SchemaID string
	// BatchSize is the engine record-batch hint.
	BatchSize int
	// Workers sizes the parse pool.
	Workers int
	// BacklogSize bounds buffered frames awaiting parsing.
	BacklogSize int
}

// DefaultConfig returns the default stream configuration.
func DefaultConfig(sourceURL string) Config {
	def := engine.DefaultConfig()
	return Config{
		SourceURL:   sourceURL,
		BatchSize:   def.BatchSize,
		Workers:     def.Workers,
		BacklogSize: 4096,
	}
}

// ProcessingStats is a snapshot of stream progress.
type ProcessingStats struct {
	MessagesProcessed int64         `json:"messages_processed"`
	RowsProcessed     int64         `json:"rows_processed"`
	BytesProcessed    int64         `json:"bytes_processed"`
	Failures          int64         `json:"failures"`
	ThroughputMBps    float64       `json:"throughput_mbps"`
	Elapsed           time.Duration `json:"elapsed_ns"`
}

// Processor pulls CSV payload frames from a ZeroMQ source, buffers them in
// a sequence-ordered backlog and parses them on a worker pool.
type Processor struct {
	cfg      Config
	eng      *engine.Engine
	registry *schema.Registry

	socket  zmq4.Socket
	backlog *Backlog
	pool    *WorkerPool

	messages int64
	rows     int64
	bytes    int64
	failures int64
	started  time.Time

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewProcessor creates a Processor. registry is required only when
// cfg.SchemaID is set.
func NewProcessor(cfg Config, registry *schema.Registry) *Processor {
	return &Processor{
		cfg: cfg,
		eng: engine.New(engine.Config{
			BatchSize: cfg.BatchSize,
			Workers:   1, // parallelism comes from the frame pool
		}),
		registry: registry,
		backlog:  NewBacklog(cfg.BacklogSize),
	}
}

// Start dials the source and begins processing. It returns once the
// receive, drain and collect loops are running.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("processor already running")
	}

	parse, err := p.parseFunc()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.socket = zmq4.NewPull(ctx)
	if err := p.socket.Dial(p.cfg.SourceURL); err != nil {
		cancel()
		return fmt.Errorf("failed to dial %s: %w", p.cfg.SourceURL, err)
	}

	p.pool = NewWorkerPool(p.cfg.Workers, parse)
	p.started = time.Now()
	p.running = true

	p.wg.Add(3)
	go p.receiveLoop(ctx)
	go p.drainLoop(ctx)
	go p.collectLoop()
	return nil
}

func (p *Processor) parseFunc() (ParseFunc, error) {
	if p.cfg.SchemaID == "" {
		return func(payload []byte) (int64, int64, error) {
			res, err := p.eng.Parse(payload)
			if err != nil {
				return 0, 0, err
			}
			defer res.Table.Release()
			return res.Stats.RowsProcessed, res.Stats.BytesProcessed, nil
		}, nil
	}

	if p.registry == nil {
		return nil, errors.New("schema ID set but no registry provided")
	}
	sch, err := p.registry.ArrowSchema(p.cfg.SchemaID)
	if err != nil {
		return nil, err
	}
	return func(payload []byte) (int64, int64, error) {
		res, err := p.eng.ParseWithSchema(payload, sch)
		if err != nil {
			return 0, 0, err
		}
		defer res.Table.Release()
		return res.Stats.RowsProcessed, res.Stats.BytesProcessed, nil
	}, nil
}

func (p *Processor) receiveLoop(ctx context.Context) {
	defer p.wg.Done()

	var seq uint64
	for {
		msg, err := p.socket.Recv()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				atomic.AddInt64(&p.failures, 1)
				continue
			}
		}

		for _, payload := range msg.Frames {
			frame := &Frame{Seq: seq, Payload: payload, Received: time.Now()}
			seq++
			if err := p.backlog.Add(frame); err != nil {
				atomic.AddInt64(&p.failures, 1)
			}
		}
	}
}

func (p *Processor) drainLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, frame := range p.backlog.PopBatch(p.cfg.Workers) {
				if !p.pool.Submit(frame) {
					// Queue full: put it back for the next tick.
					if err := p.backlog.Add(frame); err != nil {
						atomic.AddInt64(&p.failures, 1)
					}
				}
			}
		}
	}
}

func (p *Processor) collectLoop() {
	defer p.wg.Done()

	for res := range p.pool.Results() {
		if res.Err != nil {
			atomic.AddInt64(&p.failures, 1)
			continue
		}
		atomic.AddInt64(&p.messages, 1)
		atomic.AddInt64(&p.rows, res.Rows)
		atomic.AddInt64(&p.bytes, res.Bytes)
	}
}

// Stats returns a snapshot of stream progress.
func (p *Processor) Stats() ProcessingStats {
	p.mu.Lock()
	started := p.started
	running := p.running
	p.mu.Unlock()

	stats := ProcessingStats{
		MessagesProcessed: atomic.LoadInt64(&p.messages),
		RowsProcessed:     atomic.LoadInt64(&p.rows),
		BytesProcessed:    atomic.LoadInt64(&p.bytes),
		Failures:          atomic.LoadInt64(&p.failures),
	}
	if running || !started.IsZero() {
		stats.Elapsed = time.Since(started)
	}
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.ThroughputMBps = float64(stats.BytesProcessed) / (1024 * 1024) / secs
	}
	return stats
}

// Stop shuts the processor down, draining in-flight work.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	_ = p.socket.Close()
	p.pool.Shutdown()
	p.wg.Wait()
}
