package postprocessors

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains multiple post-processors in order, starting with a Chunker.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order.
func (p *Pipeline) Process(content string) []domain.Chunk {
	if content == "" {
		return nil
	}

	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	// Start with a single chunk containing all content
	chunks := []domain.Chunk{
		{
			Text:        content,
			StartOffset: 0,
			EndOffset:   len([]rune(content)),
		},
	}

	for _, proc := range processors {
		chunks = proc.Process(chunks)
	}

	return chunks
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates a pipeline with the default processors.
func DefaultPipeline(config ChunkConfig) *Pipeline {
	p := NewPipeline()
	p.Add(NewChunker(config))
	p.Add(NewTrimmer())
	p.Add(NewMetadataStamper(config.Source))
	return p
}

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// MaxChunkSize is the maximum characters per chunk
	MaxChunkSize int

	// Overlap is the character overlap between chunks
	Overlap int

	// Lookback is how far back from the limit a break point is searched for
	Lookback int

	// Source is stamped into each chunk's metadata
	Source string
}

// DefaultChunkConfig returns the defaults used for the knowledge base.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize: domain.DefaultChunkSize,
		Overlap:      domain.DefaultChunkOverlap,
		Lookback:     100,
		Source:       domain.DefaultChunkSource,
	}
}

// Validate checks the size/overlap relationship.
func (c ChunkConfig) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive: %w", domain.ErrInvalidInput)
	}
	if c.Overlap < 0 || c.Overlap >= c.MaxChunkSize {
		return fmt.Errorf("overlap %d must be in [0, %d): %w", c.Overlap, c.MaxChunkSize, domain.ErrInvalidInput)
	}
	return nil
}

// Split chunks text with the given limits using the default pipeline.
func Split(text string, maxChars, overlap int) ([]domain.Chunk, error) {
	config := DefaultChunkConfig()
	config.MaxChunkSize = maxChars
	config.Overlap = overlap
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return DefaultPipeline(config).Process(text), nil
}

// Chunker splits content into overlapping chunks.
// Lengths and offsets are measured in runes.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
// Invalid overlap values are clamped so the chunker always makes progress.
func NewChunker(config ChunkConfig) *Chunker {
	if config.MaxChunkSize <= 0 {
		config.MaxChunkSize = domain.DefaultChunkSize
	}
	if config.Overlap < 0 {
		config.Overlap = 0
	}
	if config.Overlap >= config.MaxChunkSize {
		config.Overlap = config.MaxChunkSize - 1
	}
	if config.Lookback <= 0 {
		config.Lookback = 100
	}
	return &Chunker{config: config}
}

// Process splits content into chunks.
func (c *Chunker) Process(chunks []domain.Chunk) []domain.Chunk {
	var result []domain.Chunk
	position := 0

	for _, chunk := range chunks {
		result = append(result, c.splitContent([]rune(chunk.Text), chunk.StartOffset, &position)...)
	}

	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 0 - chunker should be first.
func (c *Chunker) Order() int {
	return 0
}

func (c *Chunker) splitContent(content []rune, baseOffset int, position *int) []domain.Chunk {
	if len(content) == 0 {
		return nil
	}
	if len(content) <= c.config.MaxChunkSize {
		chunk := domain.Chunk{
			Text:          string(content),
			SequenceIndex: *position,
			StartOffset:   baseOffset,
			EndOffset:     baseOffset + len(content),
		}
		*position++
		return []domain.Chunk{chunk}
	}

	var chunks []domain.Chunk
	start := 0

	for start < len(content) {
		end := start + c.config.MaxChunkSize
		if end > len(content) {
			end = len(content)
		}

		if end < len(content) {
			end = c.findBreakPoint(content, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			Text:          string(content[start:end]),
			SequenceIndex: *position,
			StartOffset:   baseOffset + start,
			EndOffset:     baseOffset + end,
		})
		*position++

		if end >= len(content) {
			break
		}

		// Move start with overlap, ensuring we always advance
		nextStart := end - c.config.Overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		start = nextStart
	}

	return chunks
}

// findBreakPoint returns the end index for a chunk starting at start.
// Breaks closer to start than the overlap are ignored so every step advances.
func (c *Chunker) findBreakPoint(content []rune, start, maxEnd int) int {
	searchStart := maxEnd - c.config.Lookback
	if floor := start + c.config.Overlap; searchStart < floor {
		searchStart = floor
	}
	if searchStart >= maxEnd {
		return maxEnd
	}

	for i := maxEnd - 1; i >= searchStart; i-- {
		switch content[i] {
		case '\n', '.', '?', '!':
			return i + 1
		}
	}

	// Fall back to a word boundary
	for i := maxEnd - 1; i >= searchStart; i-- {
		if content[i] == ' ' {
			return i + 1
		}
	}

	return maxEnd
}

// Trimmer strips surrounding whitespace from chunks and drops empty ones.
// Sequence indexes are renumbered to stay contiguous.
type Trimmer struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*Trimmer)(nil)

// NewTrimmer creates a new trimmer.
func NewTrimmer() *Trimmer {
	return &Trimmer{}
}

// Process trims whitespace in chunks.
func (t *Trimmer) Process(chunks []domain.Chunk) []domain.Chunk {
	result := make([]domain.Chunk, 0, len(chunks))

	for _, chunk := range chunks {
		text := strings.TrimSpace(chunk.Text)
		if text == "" {
			continue
		}
		chunk.Text = text
		chunk.SequenceIndex = len(result)
		result = append(result, chunk)
	}

	return result
}

// Name returns the processor name.
func (t *Trimmer) Name() string {
	return "trimmer"
}

// Order returns 5 - runs right after the chunker.
func (t *Trimmer) Order() int {
	return 5
}

// MetadataStamper records provenance on every chunk.
type MetadataStamper struct {
	source string
}

// Verify interface compliance
var _ driven.PostProcessor = (*MetadataStamper)(nil)

// NewMetadataStamper creates a stamper for the given source label.
func NewMetadataStamper(source string) *MetadataStamper {
	if source == "" {
		source = domain.DefaultChunkSource
	}
	return &MetadataStamper{source: source}
}

// Process sets source and chunk_index metadata.
func (m *MetadataStamper) Process(chunks []domain.Chunk) []domain.Chunk {
	for i := range chunks {
		meta := make(map[string]string, len(chunks[i].Metadata)+2)
		for k, v := range chunks[i].Metadata {
			meta[k] = v
		}
		meta["source"] = m.source
		meta["chunk_index"] = strconv.Itoa(chunks[i].SequenceIndex)
		chunks[i].Metadata = meta
	}
	return chunks
}

// Name returns the processor name.
func (m *MetadataStamper) Name() string {
	return "metadata-stamper"
}

// Order returns 20 - runs last.
func (m *MetadataStamper) Order() int {
	return 20
}
