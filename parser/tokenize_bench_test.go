package parser

import (
	stdcsv "encoding/csv"
	"io"
	"strings"
	"testing"
)

func benchmarkLines() [][]byte {
	raw := strings.Repeat(`1714060800000000000,AAPL,189.5700,100,buy,nasdaq,feed-a
1714060800000000001,MSFT,404.1100,250,sell,nasdaq,feed-a
1714060800000000002,GOOG,171.9500,75,buy,nyse,feed-b
`, 64)
	return SplitLines([]byte(raw))
}

func BenchmarkTokenize(b *testing.B) {
	lines := benchmarkLines()
	var total int64
	for _, l := range lines {
		total += int64(len(l))
	}
	b.ReportAllocs()
	b.SetBytes(total)

	for i := 0; i < b.N; i++ {
		for _, line := range lines {
			Tokenize(line, ',')
		}
	}
}

func BenchmarkTokenizeScalar(b *testing.B) {
	lines := benchmarkLines()
	var total int64
	for _, l := range lines {
		total += int64(len(l))
	}
	b.ReportAllocs()
	b.SetBytes(total)

	for i := 0; i < b.N; i++ {
		for _, line := range lines {
			tokenizeScalar(line, ',')
		}
	}
}

func BenchmarkEncodingCSV(b *testing.B) {
	lines := benchmarkLines()
	var sb strings.Builder
	for _, l := range lines {
		sb.Write(l)
		sb.WriteByte('\n')
	}
	data := sb.String()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		cr := stdcsv.NewReader(strings.NewReader(data))
		for {
			if _, err := cr.Read(); err != nil {
				if err == io.EOF {
					break
				}
				b.Fatal(err)
			}
		}
	}
}
