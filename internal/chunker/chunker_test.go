package chunker

import (
	"fmt"
	"strings"
	"testing"
)

// wordEncoding tokenizes on whitespace so tests control token counts exactly.
type wordEncoding struct{}

func (wordEncoding) Encode(text string) []int {
	words := strings.Fields(text)
	tokens := make([]int, len(words))
	for i := range words {
		tokens[i] = i
	}
	return tokens
}

func (wordEncoding) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = fmt.Sprintf("w%d", tok)
	}
	return strings.Join(words, " ")
}

func wordText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunkWindowBoundaries(t *testing.T) {
	// 1000 tokens at size 400 / overlap 50 must produce exactly three windows
	// starting at 0, 350 and 700, the last spanning 300 tokens.
	c := newWithEncoding(wordEncoding{}, Options{Size: 400, Overlap: 50})
	chunks := c.Chunk(wordText(1000))

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantStarts := []int{0, 350, 700}
	for i, chunk := range chunks {
		if chunk.StartToken != wantStarts[i] {
			t.Errorf("chunk %d: start token %d, want %d", i, chunk.StartToken, wantStarts[i])
		}
		if chunk.Index != i {
			t.Errorf("chunk %d: index %d, want %d", i, chunk.Index, i)
		}
	}
	last := chunks[2]
	if last.EndToken != 1000 {
		t.Errorf("last chunk end token %d, want 1000", last.EndToken)
	}
	if last.TokenCount != 300 {
		t.Errorf("last chunk token count %d, want 300", last.TokenCount)
	}
}

func TestChunkCountFormula(t *testing.T) {
	// count = max(1, ceil(max(N-overlap, 0)/step)) for size 400, overlap 50.
	c := newWithEncoding(wordEncoding{}, Options{Size: 400, Overlap: 50})

	tests := []struct {
		tokens int
		want   int
	}{
		{1, 1},
		{350, 1},
		{400, 1},
		{401, 2},
		{450, 2},
		{750, 2},
		{751, 3},
		{1000, 3},
		{1100, 3},
		{1101, 4},
	}
	for _, tt := range tests {
		chunks := c.Chunk(wordText(tt.tokens))
		if len(chunks) != tt.want {
			t.Errorf("%d tokens: got %d chunks, want %d", tt.tokens, len(chunks), tt.want)
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	c := newWithEncoding(wordEncoding{}, Options{Size: 10, Overlap: 3})
	text := wordText(57)

	first := c.Chunk(text)
	second := c.Chunk(text)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestChunkWindowRoundTrip(t *testing.T) {
	// Each chunk's text must be exactly the decoding of its token window.
	enc := wordEncoding{}
	c := newWithEncoding(enc, Options{Size: 8, Overlap: 2})
	text := wordText(30)
	tokens := enc.Encode(text)

	for _, chunk := range c.Chunk(text) {
		want := enc.Decode(tokens[chunk.StartToken:chunk.EndToken])
		if chunk.Text != want {
			t.Errorf("chunk %d: text %q, want decoded window %q", chunk.Index, chunk.Text, want)
		}
	}
}

func TestChunkIndexesContiguous(t *testing.T) {
	c := newWithEncoding(wordEncoding{}, Options{Size: 5, Overlap: 1})
	chunks := c.Chunk(wordText(23))

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Fatalf("expected contiguous indexes from 0, got %d at position %d", chunk.Index, i)
		}
	}
}

func TestChunkEmptyInput(t *testing.T) {
	c := newWithEncoding(wordEncoding{}, Options{Size: 400, Overlap: 50})

	if chunks := c.Chunk(""); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty input, got %d", len(chunks))
	}
	if chunks := c.Chunk("   \n\t  "); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for whitespace input, got %d", len(chunks))
	}
}

func TestChunkDefaults(t *testing.T) {
	c := newWithEncoding(wordEncoding{}, Options{})
	chunks := c.Chunk(wordText(500))

	if len(chunks) == 0 {
		t.Fatal("expected chunks with default options")
	}
	for _, chunk := range chunks {
		if chunk.TokenCount > 400 {
			t.Errorf("chunk exceeded default window size (400): got %d", chunk.TokenCount)
		}
	}
}
