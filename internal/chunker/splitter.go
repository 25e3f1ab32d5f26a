// Package chunker splits extracted document text into overlapping
// chunks suitable for embedding and retrieval.
package chunker

import "strings"

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// separators in order of structural preference: paragraph break, line
// break, sentence break, word break.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter produces rune-bounded chunks that end on the most
// structural boundary available near the size limit, with consecutive
// chunks sharing up to overlap runes of trailing context.
type Splitter struct {
	size    int
	overlap int
}

// New returns a Splitter with the given chunk size and overlap, both
// measured in runes. Invalid values fall back to the defaults.
func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Splitter{size: size, overlap: overlap}
}

// Size returns the configured maximum chunk length in runes.
func (s *Splitter) Size() int { return s.size }

// Split chunks text in source order. Empty or whitespace-only input
// yields nil; text already within the size limit yields a single
// chunk. No produced chunk is empty after trimming.
func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= s.size {
		return []string{trimmed}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.snapToBoundary(runes, start, end)
		}

		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.overlap
		if next <= start {
			// Guarantee forward progress even when the boundary snap
			// left less than overlap runes in this chunk.
			next = start + (s.size - s.overlap)
		}
		start = next
	}
	return chunks
}

// snapToBoundary moves end left to the most structural break found in
// the tail of the window, so chunks prefer to close on paragraph,
// line, sentence, or word boundaries before cutting mid-word.
func (s *Splitter) snapToBoundary(runes []rune, start, end int) int {
	floor := end - s.size/4
	if floor <= start {
		floor = start + 1
	}
	for _, sep := range separators {
		if i := lastIndexRunes(runes, sep, floor, end); i >= 0 {
			return i + len([]rune(sep))
		}
	}
	return end
}

// lastIndexRunes finds the last occurrence of sep whose match ends at
// or before end and starts at or after floor; -1 when absent.
func lastIndexRunes(runes []rune, sep string, floor, end int) int {
	sepRunes := []rune(sep)
	for i := end - len(sepRunes); i >= floor; i-- {
		match := true
		for j := range sepRunes {
			if runes[i+j] != sepRunes[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
