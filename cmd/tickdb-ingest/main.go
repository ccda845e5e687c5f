// Command tickdb-ingest runs the TCP ingest server alongside a Prometheus
// metrics endpoint.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/VanDung-dev/TickDB-Engine/api"
)

func main() {
	var (
		addr        = flag.String("addr", ":50051", "ingest listen address")
		metricsAddr = flag.String("metrics-addr", ":9090", "metrics listen address")
		delim       = flag.String("d", ",", "field delimiter (single byte)")
		batchSize   = flag.Int("batch", 16384, "rows per record batch")
		workers     = flag.Int("workers", 0, "concurrent column builds (0 = NumCPU)")
	)
	flag.Parse()

	if len(*delim) != 1 {
		log.Fatalf("Delimiter must be a single byte, got %q", *delim)
	}

	metrics := api.NewMetrics("tickdb")

	cfg := api.DefaultServerConfig()
	cfg.Address = *addr
	cfg.Delimiter = (*delim)[0]
	cfg.BatchSize = *batchSize
	cfg.Workers = *workers

	server := api.NewIngestServer(cfg, metrics)

	log.Printf("Starting ingest server on %s...", *addr)
	if err := server.StartAsync(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	metricsServer := api.NewMetricsServer(*metricsAddr)
	metricsServer.StartAsync()
	log.Printf("Metrics available on %s/metrics", *metricsAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	server.Stop()
	if err := metricsServer.Stop(); err != nil {
		log.Printf("Metrics server stop: %v", err)
	}
	log.Println("Server stopped.")
}
