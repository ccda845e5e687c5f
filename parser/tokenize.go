// Package parser provides vectorized tokenization of delimiter-separated
// text lines.
//
// This package implements:
//   - Tokenize: quote-aware splitting of one line into fields
//   - scanDelimiters: 32-byte lane SWAR scan used as the accelerated path
//   - SplitLines: newline splitting of a raw buffer
package parser

import (
	"bytes"
	"encoding/binary"
	"math/bits"
)

// laneWidth is the number of bytes compared per wide scan step.
const laneWidth = 32

// Tokenize splits one line into its delimiter-separated fields. A delimiter
// inside a quoted span is not a field boundary; quote bytes toggle the span
// and are dropped from the output. A line with k delimiters outside quotes
// always yields k+1 tokens, the trailing field included even when empty.
//
// An unterminated quote is not an error: the rest of the line is treated as
// quoted.
func Tokenize(line []byte, delim byte) []string {
	if delim == ',' && len(line) >= laneWidth {
		cuts, handoff := scanDelimiters(line, delim)
		tokens := make([]string, 0, len(cuts)+1)
		start := 0
		for _, c := range cuts {
			tokens = append(tokens, string(line[start:c]))
			start = c + 1
		}
		// The lane scan stops at the first quote byte (or when fewer than
		// laneWidth bytes remain); the scalar loop finishes the line,
		// carrying the prefix of the field in progress.
		return scanScalar(line[handoff:], delim, tokens, line[start:handoff])
	}
	return scanScalar(line, delim, nil, nil)
}

// scanDelimiters scans line in fixed-width lanes and returns the offsets of
// delimiter bytes found before the first quote byte, plus the offset at
// which lane scanning stopped. From handoff onward the caller must scan
// byte-wise: the lane masks carry no quote state.
func scanDelimiters(line []byte, delim byte) (cuts []int, handoff int) {
	off := 0
	for off+laneWidth <= len(line) {
		var delimMask, quoteMask uint32
		for w := 0; w < laneWidth; w += 8 {
			word := binary.LittleEndian.Uint64(line[off+w:])
			delimMask |= byteEqMask(word, delim) << w
			quoteMask |= byteEqMask(word, '"') << w
		}
		if quoteMask != 0 {
			q := bits.TrailingZeros32(quoteMask)
			delimMask &= (1 << q) - 1
			for m := delimMask; m != 0; m &= m - 1 {
				cuts = append(cuts, off+bits.TrailingZeros32(m))
			}
			return cuts, off + q
		}
		for m := delimMask; m != 0; m &= m - 1 {
			cuts = append(cuts, off+bits.TrailingZeros32(m))
		}
		off += laneWidth
	}
	return cuts, off
}

// byteEqMask returns an 8-bit mask with bit i set when byte i of w equals b.
func byteEqMask(w uint64, b byte) uint32 {
	const (
		low7 = 0x7f7f7f7f7f7f7f7f
		high = 0x8080808080808080
	)
	x := w ^ (0x0101010101010101 * uint64(b))
	// Exact per-byte zero detection: bit 7 of each byte of y is set iff
	// the corresponding byte of x is zero.
	y := ^((x&low7 + low7) | x | low7)
	return uint32(((y >> 7) * 0x0102040810204080) >> 56)
}

// scanScalar is the byte-wise quote-aware path. It appends the fields found
// in rest to tokens; prefix seeds the first field with bytes already
// consumed by the lane scan.
func scanScalar(rest []byte, delim byte, tokens []string, prefix []byte) []string {
	cur := make([]byte, len(prefix), len(prefix)+len(rest))
	copy(cur, prefix)

	inQuotes := false
	for _, c := range rest {
		switch {
		case c == delim && !inQuotes:
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		case c == '"':
			inQuotes = !inQuotes
		default:
			cur = append(cur, c)
		}
	}
	return append(tokens, string(cur))
}

// tokenizeScalar runs the scalar path over the whole line. It exists so the
// accelerated and scalar paths can be compared on identical input.
func tokenizeScalar(line []byte, delim byte) []string {
	return scanScalar(line, delim, nil, nil)
}

// SplitLines splits a raw buffer into newline-delimited lines. A final line
// without a trailing newline is kept; the empty segment after a trailing
// newline is not. One trailing carriage return is stripped per line.
func SplitLines(buf []byte) [][]byte {
	var lines [][]byte
	start := 0
	for start < len(buf) {
		i := bytes.IndexByte(buf[start:], '\n')
		if i < 0 {
			lines = append(lines, trimCR(buf[start:]))
			break
		}
		lines = append(lines, trimCR(buf[start:start+i]))
		start += i + 1
	}
	return lines
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
