package domain

// Default chunking parameters.
const (
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 50
	DefaultChunkSource  = "knowledge_base"
)

// Chunk is one bounded segment of normalized text.
// Chunks are immutable once produced and ordered by SequenceIndex.
type Chunk struct {
	Text          string            `json:"text"`
	SequenceIndex int               `json:"sequence_index"`
	StartOffset   int               `json:"start_offset"`
	EndOffset     int               `json:"end_offset"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return len([]rune(c.Text))
}
