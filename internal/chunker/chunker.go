package chunker

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Options controls how text is chunked.
type Options struct {
	Size    int // window size in tokens
	Overlap int // tokens shared between consecutive windows
}

// Chunk is one token window of the source text. StartToken/EndToken are
// offsets into the tokenized source; EndToken is clamped to the token count,
// so the final chunk may be shorter than Size.
type Chunk struct {
	Index      int
	Text       string
	StartToken int
	EndToken   int
	TokenCount int
}

// encoding abstracts the tokenizer so chunking stays a pure function of its
// input.
type encoding interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Chunker splits text into fixed-size overlapping token windows.
type Chunker struct {
	enc  encoding
	opts Options
}

// New builds a chunker over the cl100k_base encoding, the tokenizer the
// embedding models count with.
func New(opts Options) (*Chunker, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return newWithEncoding(tiktokenEncoding{enc}, opts), nil
}

func newWithEncoding(enc encoding, opts Options) *Chunker {
	if opts.Size <= 0 {
		opts.Size = 400
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	return &Chunker{enc: enc, opts: opts}
}

// Chunk tokenizes text and slides a window of Size tokens advancing by
// Size-Overlap. Empty or whitespace-only input yields no chunks. The result
// is deterministic: the same text always produces the same boundaries.
func (c *Chunker) Chunk(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := c.enc.Encode(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.opts.Size - c.opts.Overlap
	if step <= 0 {
		step = c.opts.Size
	}

	var chunks []Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + c.opts.Size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Text:       c.enc.Decode(tokens[start:end]),
			StartToken: start,
			EndToken:   end,
			TokenCount: end - start,
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

type tiktokenEncoding struct {
	tke *tiktoken.Tiktoken
}

func (e tiktokenEncoding) Encode(text string) []int {
	return e.tke.Encode(text, nil, nil)
}

func (e tiktokenEncoding) Decode(tokens []int) string {
	return e.tke.Decode(tokens)
}
