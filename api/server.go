package api

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/VanDung-dev/TickDB-Engine/engine"
)

// ServerConfig holds ingest server settings.
type ServerConfig struct {
	Address   string
	Delimiter byte
	BatchSize int
	Workers   int
}

// DefaultServerConfig returns the default ingest server configuration.
func DefaultServerConfig() ServerConfig {
	def := engine.DefaultConfig()
	return ServerConfig{
		Address:   ":50051",
		Delimiter: def.Delimiter,
		BatchSize: def.BatchSize,
		Workers:   def.Workers,
	}
}

// IngestServer is a TCP server accepting length-prefixed CSV payload frames
// and answering each with a status byte plus the parsed table as an Arrow
// IPC stream.
type IngestServer struct {
	cfg      ServerConfig
	handler  *ParseHandler
	metrics  *Metrics
	listener net.Listener
	running  bool
	mu       sync.Mutex
	quit     chan struct{}
}

// NewIngestServer creates a new IngestServer. metrics may be nil.
func NewIngestServer(cfg ServerConfig, metrics *Metrics) *IngestServer {
	eng := engine.New(engine.Config{
		Delimiter: cfg.Delimiter,
		BatchSize: cfg.BatchSize,
		Workers:   cfg.Workers,
	})
	return &IngestServer{
		cfg:     cfg,
		handler: NewParseHandler(eng, metrics),
		metrics: metrics,
		quit:    make(chan struct{}),
	}
}

// Start starts the server. This method blocks until the server is stopped
// or fails.
func (s *IngestServer) Start() error {
	if err := s.listen(); err != nil {
		return err
	}
	defer s.Stop()
	s.acceptLoop()
	return nil
}

// StartAsync starts the server in a background goroutine.
func (s *IngestServer) StartAsync() error {
	if err := s.listen(); err != nil {
		return err
	}
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listener address, or empty before Start.
func (s *IngestServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *IngestServer) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}
	lis, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	s.listener = lis
	s.running = true
	return nil
}

func (s *IngestServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

// Stop stops the server.
func (s *IngestServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.quit)
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			_ = err // shutdown path, nothing to do with it
		}
	}
}

// handleConnection serves one client until it disconnects. A structural
// parse failure is answered with an error frame; the connection stays open.
func (s *IngestServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.ConnectionsActive.Inc()
		defer s.metrics.ConnectionsActive.Dec()
	}

	for {
		payload, err := ReadFrame(conn)
		if err != nil {
			if s.metrics != nil && err != io.EOF {
				s.metrics.FrameErrors.Inc()
			}
			return
		}
		if s.metrics != nil {
			s.metrics.FramesTotal.Inc()
		}

		ipcData, err := s.handler.ProcessPayload(payload)

		var response []byte
		if err != nil {
			response = append([]byte{StatusError}, []byte(err.Error())...)
		} else {
			response = append([]byte{StatusOK}, ipcData...)
		}

		if err := WriteFrame(conn, response); err != nil {
			return
		}
	}
}
