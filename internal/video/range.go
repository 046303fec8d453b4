package video

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeKind classifies the outcome of resolving a Range header.
type RangeKind int

const (
	// NoRange means the request carried no Range header; serve the whole file.
	NoRange RangeKind = iota
	// Satisfiable means a valid byte window was resolved.
	Satisfiable
	// NotSatisfiable means the header was present but invalid; respond 416.
	NotSatisfiable
)

// Range is the resolved byte window [Start, End], inclusive.
type Range struct {
	Kind  RangeKind
	Start int64
	End   int64
}

// ResolveRange parses a raw Range header value against the file size.
//
// Only the first comma-separated range is interpreted; multi-range
// requests are not expanded. An end past the last byte rejects rather
// than clamping, and suffix ranges (bytes=-N) are rejected because the
// start position is required. Browsers only ever send a single
// start-qualified range for video seeks.
func ResolveRange(header string, size int64) Range {
	if header == "" {
		return Range{Kind: NoRange}
	}

	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return Range{Kind: NotSatisfiable}
	}
	spec := strings.TrimPrefix(header, prefix)
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}

	parts := strings.SplitN(spec, "-", 2)
	start, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || start < 0 || start >= size {
		return Range{Kind: NotSatisfiable}
	}

	end := size - 1
	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		end, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || end >= size {
			return Range{Kind: NotSatisfiable}
		}
	}
	if start > end {
		return Range{Kind: NotSatisfiable}
	}
	return Range{Kind: Satisfiable, Start: start, End: end}
}

// ContentRange formats the Content-Range header for a 206 response.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Length returns the number of bytes in the window.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}
