package api

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/VanDung-dev/TickDB-Engine/arrowio"
	"github.com/VanDung-dev/TickDB-Engine/engine"
)

func newTestHandler() *ParseHandler {
	return NewParseHandler(engine.New(engine.DefaultConfig()), nil)
}

func TestProcessPayload(t *testing.T) {
	h := newTestHandler()

	ipcData, err := h.ProcessPayload([]byte("a,b,c\n1,2.5,x\n3,4.0,y\n"))
	if err != nil {
		t.Fatalf("ProcessPayload failed: %v", err)
	}

	tbl, err := arrowio.ReadTable(ipcData)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	defer tbl.Release()

	if tbl.NumRows() != 2 || tbl.NumCols() != 3 {
		t.Errorf("Expected 2x3 table, got %dx%d", tbl.NumRows(), tbl.NumCols())
	}
	if got := tbl.Schema().Field(1).Type; !arrow.TypeEqual(got, arrow.PrimitiveTypes.Float64) {
		t.Errorf("Expected Float64, got %s", got)
	}
}

func TestProcessPayloadEmpty(t *testing.T) {
	h := newTestHandler()

	if _, err := h.ProcessPayload(nil); err == nil {
		t.Errorf("Expected error for empty payload")
	}
}

func TestProcessPayloadBadValuesStillSucceed(t *testing.T) {
	h := newTestHandler()

	// Bad numeric values null out; they never fail the call.
	ipcData, err := h.ProcessPayload([]byte("n\n1\n2\n"))
	if err != nil {
		t.Fatalf("ProcessPayload failed: %v", err)
	}
	if len(ipcData) == 0 {
		t.Errorf("Expected non-empty IPC response")
	}
}

func BenchmarkProcessPayload(b *testing.B) {
	h := newTestHandler()
	payload := []byte("ts,symbol,price,size\n" + strings.Repeat("1714060800000000000,AAPL,189.57,100\n", 1000))

	b.ReportAllocs()
	b.SetBytes(int64(len(payload)))

	for i := 0; i < b.N; i++ {
		if _, err := h.ProcessPayload(payload); err != nil {
			b.Fatal(err)
		}
	}
}
