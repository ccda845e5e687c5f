package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// StressTestConfig holds configuration for the stress test.
type StressTestConfig struct {
	Address      string
	Concurrency  int
	Duration     time.Duration
	RowsPerFrame int
	ReportFile   string
}

// StressTestResult holds the results of a stress test.
type StressTestResult struct {
	TotalRequests  int64
	SuccessfulReqs int64
	FailedReqs     int64
	TotalDuration  time.Duration
	AvgLatency     time.Duration
	MinLatency     time.Duration
	MaxLatency     time.Duration
	RequestsPerSec float64
	PayloadBytes   int
}

func main() {
	config := parseFlags()
	payload := buildPayload(config.RowsPerFrame)

	fmt.Println("=== TickDB Ingest Server Stress Test ===")
	fmt.Printf("Target: %s\n", config.Address)
	fmt.Printf("Concurrency: %d workers\n", config.Concurrency)
	fmt.Printf("Duration: %v\n", config.Duration)
	fmt.Printf("Payload: %d rows, %d bytes\n", config.RowsPerFrame, len(payload))
	fmt.Println()

	result := runStressTest(config, payload)
	result.PayloadBytes = len(payload)

	printResults(result)

	if config.ReportFile != "" {
		saveReport(config, result)
	}
}

func parseFlags() StressTestConfig {
	config := StressTestConfig{}

	flag.StringVar(&config.Address, "addr", "127.0.0.1:50051", "Ingest server address")
	flag.IntVar(&config.Concurrency, "c", 10, "Number of concurrent workers")
	flag.DurationVar(&config.Duration, "d", 30*time.Second, "Duration of test")
	flag.IntVar(&config.RowsPerFrame, "rows", 1000, "CSV rows per request frame")
	flag.StringVar(&config.ReportFile, "o", "", "Output report file (JSON)")

	flag.Parse()

	return config
}

// buildPayload generates one CSV frame of synthetic tick data.
func buildPayload(rows int) []byte {
	symbols := []string{"AAPL", "MSFT", "GOOG", "AMZN", "NVDA"}
	var sb strings.Builder
	sb.WriteString("ts,symbol,price,size,side\n")
	base := time.Now().UnixNano()
	for i := 0; i < rows; i++ {
		side := "buy"
		if i%2 == 1 {
			side = "sell"
		}
		fmt.Fprintf(&sb, "%d,%s,%.4f,%d,%s\n",
			base+int64(i), symbols[i%len(symbols)], 100+float64(i%500)/100, 100+i%400, side)
	}
	return []byte(sb.String())
}

func runStressTest(config StressTestConfig, payload []byte) StressTestResult {
	var (
		totalReqs    int64
		successReqs  int64
		failedReqs   int64
		totalLatency int64
		minLatency   int64 = 1<<63 - 1
		maxLatency   int64
		wg           sync.WaitGroup
		stopChan     = make(chan struct{})
	)

	startTime := time.Now()

	// Start workers
	for i := 0; i < config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(config, payload, stopChan, &totalReqs, &successReqs, &failedReqs, &totalLatency, &minLatency, &maxLatency)
		}()
	}

	// Wait for duration
	time.Sleep(config.Duration)
	close(stopChan)
	wg.Wait()

	duration := time.Since(startTime)
	total := atomic.LoadInt64(&totalReqs)
	success := atomic.LoadInt64(&successReqs)
	failed := atomic.LoadInt64(&failedReqs)
	latencySum := atomic.LoadInt64(&totalLatency)
	minLat := atomic.LoadInt64(&minLatency)
	maxLat := atomic.LoadInt64(&maxLatency)

	var avgLatency time.Duration
	if success > 0 {
		avgLatency = time.Duration(latencySum / success)
	}

	return StressTestResult{
		TotalRequests:  total,
		SuccessfulReqs: success,
		FailedReqs:     failed,
		TotalDuration:  duration,
		AvgLatency:     avgLatency,
		MinLatency:     time.Duration(minLat),
		MaxLatency:     time.Duration(maxLat),
		RequestsPerSec: float64(total) / duration.Seconds(),
	}
}

func runWorker(config StressTestConfig, payload []byte, stop chan struct{}, totalReqs, successReqs, failedReqs, totalLatency, minLatency, maxLatency *int64) {
	for {
		select {
		case <-stop:
			return
		default:
			latency, err := sendRequest(config, payload)
			atomic.AddInt64(totalReqs, 1)

			if err != nil {
				atomic.AddInt64(failedReqs, 1)
				// Small sleep on error to avoid hammering
				time.Sleep(10 * time.Millisecond)
			} else {
				atomic.AddInt64(successReqs, 1)
				atomic.AddInt64(totalLatency, int64(latency))

				// Update min/max latency
				lat := int64(latency)
				for {
					old := atomic.LoadInt64(minLatency)
					if lat >= old || atomic.CompareAndSwapInt64(minLatency, old, lat) {
						break
					}
				}
				for {
					old := atomic.LoadInt64(maxLatency)
					if lat <= old || atomic.CompareAndSwapInt64(maxLatency, old, lat) {
						break
					}
				}
			}
		}
	}
}

func sendRequest(config StressTestConfig, payload []byte) (time.Duration, error) {
	conn, err := net.DialTimeout("tcp", config.Address, 5*time.Second)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(10 * time.Second))

	start := time.Now()

	if err := writeFrame(conn, payload); err != nil {
		return 0, err
	}

	resp, err := readFrame(conn)
	latency := time.Since(start)
	if err != nil {
		return 0, err
	}
	if len(resp) == 0 || resp[0] != 0 {
		return 0, fmt.Errorf("server returned error frame: %s", resp[1:])
	}

	return latency, nil
}

func writeFrame(conn net.Conn, data []byte) error {
	// Write length prefix (4 bytes big-endian)
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	if _, err := conn.Write(length); err != nil {
		return err
	}
	_, err := conn.Write(data)
	return err
}

func readFrame(conn net.Conn) ([]byte, error) {
	// Read length prefix
	length := make([]byte, 4)
	if _, err := io.ReadFull(conn, length); err != nil {
		return nil, err
	}
	msgLen := binary.BigEndian.Uint32(length)

	// Read frame body
	data := make([]byte, msgLen)
	_, err := io.ReadFull(conn, data)
	return data, err
}

func printResults(result StressTestResult) {
	fmt.Println("=== Results ===")
	fmt.Printf("Duration:        %v\n", result.TotalDuration.Round(time.Millisecond))
	fmt.Printf("Total Requests:  %d\n", result.TotalRequests)
	fmt.Printf("Successful:      %d (%.2f%%)\n", result.SuccessfulReqs, float64(result.SuccessfulReqs)/float64(result.TotalRequests)*100)
	fmt.Printf("Failed:          %d (%.2f%%)\n", result.FailedReqs, float64(result.FailedReqs)/float64(result.TotalRequests)*100)
	fmt.Printf("Requests/sec:    %.2f\n", result.RequestsPerSec)
	fmt.Printf("Ingest rate:     %.2f MB/s\n", float64(result.SuccessfulReqs)*float64(result.PayloadBytes)/(1024*1024)/result.TotalDuration.Seconds())
	fmt.Printf("Avg Latency:     %v\n", result.AvgLatency.Round(time.Microsecond))
	fmt.Printf("Min Latency:     %v\n", result.MinLatency.Round(time.Microsecond))
	fmt.Printf("Max Latency:     %v\n", result.MaxLatency.Round(time.Microsecond))
}

func saveReport(config StressTestConfig, result StressTestResult) {
	report := map[string]interface{}{
		"config": map[string]interface{}{
			"address":        config.Address,
			"concurrency":    config.Concurrency,
			"duration":       config.Duration.String(),
			"rows_per_frame": config.RowsPerFrame,
		},
		"results": map[string]interface{}{
			"total_requests":   result.TotalRequests,
			"successful":       result.SuccessfulReqs,
			"failed":           result.FailedReqs,
			"requests_per_sec": result.RequestsPerSec,
			"avg_latency_ms":   float64(result.AvgLatency.Microseconds()) / 1000,
			"min_latency_ms":   float64(result.MinLatency.Microseconds()) / 1000,
			"max_latency_ms":   float64(result.MaxLatency.Microseconds()) / 1000,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	data, _ := json.MarshalIndent(report, "", "  ")
	if err := os.WriteFile(config.ReportFile, data, 0644); err != nil {
		log.Printf("Failed to write report: %v", err)
	} else {
		fmt.Printf("Report saved to: %s\n", config.ReportFile)
	}
}
