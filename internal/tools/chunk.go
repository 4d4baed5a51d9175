package tools

// Chunking defaults for scraped page content.
const (
	DefaultChunkSize    = 15000
	DefaultChunkOverlap = 2000
)

// Chunk splits text into ordered pieces of at most size characters where
// consecutive chunks share exactly overlap characters. Text no longer than
// size is returned whole.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
		start = end - overlap
	}
	return chunks
}
