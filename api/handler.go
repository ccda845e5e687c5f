package api

import (
	"fmt"
	"time"

	"github.com/VanDung-dev/TickDB-Engine/arrowio"
	"github.com/VanDung-dev/TickDB-Engine/engine"
)

// ParseHandler turns one raw CSV payload into an Arrow IPC response. It is
// separated from the connection loop so it can be exercised without
// sockets.
type ParseHandler struct {
	engine  *engine.Engine
	metrics *Metrics
}

// NewParseHandler creates a ParseHandler. metrics may be nil.
func NewParseHandler(eng *engine.Engine, metrics *Metrics) *ParseHandler {
	return &ParseHandler{engine: eng, metrics: metrics}
}

// ProcessPayload parses payload and returns the resulting table as an Arrow
// IPC stream. Structural failures (empty payload, no sample rows) are
// returned as errors; bad values inside the payload surface as nulls in the
// response table, not as errors.
func (h *ParseHandler) ProcessPayload(payload []byte) ([]byte, error) {
	start := time.Now()

	if len(payload) == 0 {
		h.record(nil, start, false)
		return nil, fmt.Errorf("received empty payload")
	}

	res, err := h.engine.Parse(payload)
	if err != nil {
		h.record(nil, start, false)
		return nil, err
	}
	defer res.Table.Release()

	ipcData, err := arrowio.WriteTable(res.Table)
	if err != nil {
		h.record(nil, start, false)
		return nil, fmt.Errorf("failed to serialize table: %w", err)
	}

	h.record(&res.Stats, start, true)
	return ipcData, nil
}

func (h *ParseHandler) record(stats *engine.Stats, start time.Time, success bool) {
	if h.metrics == nil {
		return
	}
	if stats == nil {
		h.metrics.RecordParse(0, 0, 0, 0, time.Since(start), success)
		return
	}
	h.metrics.RecordParse(stats.RowsProcessed, stats.BytesProcessed, stats.RaggedRows,
		stats.ThroughputMBps, time.Since(start), success)
}
