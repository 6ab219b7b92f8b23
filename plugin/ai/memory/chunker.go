package memory

import (
	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter reports how many tokens a text consumes under the
// embedding model's tokenizer.
type TokenCounter interface {
	CountTokens(text string) int
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter returns a TokenCounter backed by the cl100k_base
// encoding, which matches the OpenAI embedding model family.
func NewTokenCounter() (TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, errors.Wrap(err, "load cl100k_base encoding")
	}
	return &tiktokenCounter{encoding: encoding}, nil
}

func (c *tiktokenCounter) CountTokens(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// ChunkResult is the outcome of splitting a text against a token budget.
type ChunkResult struct {
	// Chunks concatenate, in order, to exactly the original text.
	Chunks []string
	// WasChunked is false when the text fit the budget whole.
	WasChunked bool
	// OriginalTokens is the token count of the unsplit text.
	OriginalTokens int
}

// ChunkText splits text into the minimum number of pieces that each
// fit within maxTokens. Pieces are contiguous rune-aligned substrings,
// so concatenating them reconstructs the original with no loss or
// duplication. Texts at or under the budget come back as a single
// chunk with WasChunked false.
func ChunkText(text string, maxTokens int, counter TokenCounter) ChunkResult {
	total := counter.CountTokens(text)
	result := ChunkResult{OriginalTokens: total}
	if text == "" || maxTokens <= 0 || total <= maxTokens {
		result.Chunks = []string{text}
		return result
	}

	runes := []rune(text)
	for count := (total + maxTokens - 1) / maxTokens; ; count++ {
		chunks := splitRunes(runes, count)
		if len(chunks) >= len(runes) || allWithinBudget(chunks, maxTokens, counter) {
			result.Chunks = chunks
			result.WasChunked = true
			return result
		}
	}
}

// splitRunes partitions runes into count near-equal contiguous pieces.
func splitRunes(runes []rune, count int) []string {
	if count > len(runes) {
		count = len(runes)
	}
	chunks := make([]string, 0, count)
	for i := 0; i < count; i++ {
		start := i * len(runes) / count
		end := (i + 1) * len(runes) / count
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func allWithinBudget(chunks []string, maxTokens int, counter TokenCounter) bool {
	for _, chunk := range chunks {
		if counter.CountTokens(chunk) > maxTokens {
			return false
		}
	}
	return true
}
