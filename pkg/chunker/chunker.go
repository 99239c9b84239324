// Package chunker splits transcript text into overlapping word-bounded
// segments sized for embedding.
package chunker

import "strings"

// Default window parameters, chosen so that one chunk fits comfortably in a
// single embedding request while overlap preserves cross-boundary context.
const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// Split divides text into overlapping windows of at most size words,
// advancing by size-overlap words per step. If the text has size words or
// fewer, the trimmed input is returned as a single chunk. Chunking halts
// once the remaining words would produce a window more than overlap words
// short of full, so no degenerate trailing fragment is emitted.
//
// Pure and deterministic; empty or whitespace-only input yields nil.
func Split(text string, size, overlap int) []string {
	if size <= 0 || overlap < 0 || overlap >= size {
		size = DefaultChunkSize
		overlap = DefaultOverlap
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= size {
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	stride := size - overlap
	for start := 0; start < len(words); start += stride {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))

		// A further window would only re-cover words inside this one's
		// overlap region, so halt here rather than emit a degenerate tail.
		if start+overlap >= len(words) {
			break
		}
	}
	return chunks
}

// SplitDefault splits text with the default window parameters.
func SplitDefault(text string) []string {
	return Split(text, DefaultChunkSize, DefaultOverlap)
}
