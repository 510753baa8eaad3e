package engine

import (
	"strings"
	"unicode"
)

// maxWordChunk caps ordinary word-runs so long words are still emitted in
// several scheduling steps.
const maxWordChunk = 12

// chunkPunctuation is the set of characters that always form their own
// single-character chunk.
const chunkPunctuation = "*-#`_[](){}<>!~+|\"'.,:;/?\\"

// Chunker segments text into atomic emission units: a newline/tab, a
// punctuation mark, a whitespace character, or a word-run of up to
// maxWordChunk characters. Concatenating every chunk in order reproduces the
// source text exactly.
type Chunker struct {
	text  []rune
	index int
}

// NewChunker builds a chunker positioned at the start of text.
func NewChunker(text string) *Chunker {
	return &Chunker{text: []rune(text)}
}

// HasMore reports whether any characters remain.
func (c *Chunker) HasMore() bool {
	return c.index < len(c.text)
}

// Next returns the next chunk, or the empty string when exhausted.
func (c *Chunker) Next() string {
	if !c.HasMore() {
		return ""
	}

	ch := c.text[c.index]

	if ch == '\n' || ch == '\t' || unicode.IsSpace(ch) || strings.ContainsRune(chunkPunctuation, ch) {
		c.index++
		return string(ch)
	}

	var b strings.Builder
	for taken := 0; c.index < len(c.text) && taken < maxWordChunk; taken++ {
		ch = c.text[c.index]
		if ch == '\n' || ch == '\t' || unicode.IsSpace(ch) || strings.ContainsRune(chunkPunctuation, ch) {
			break
		}
		b.WriteRune(ch)
		c.index++
	}
	return b.String()
}

// Position returns the current index into the source text.
func (c *Chunker) Position() int {
	return c.index
}

// Len returns the total length of the source text in runes.
func (c *Chunker) Len() int {
	return len(c.text)
}

// ProgressPercent reports completion as a whole percentage. Empty text counts
// as fully processed.
func (c *Chunker) ProgressPercent() int {
	if len(c.text) == 0 {
		return 100
	}
	return c.index * 100 / len(c.text)
}
