// Package chunker splits page text into bounded spans for embedding.
//
// Spans never exceed the configured rune budget. Boundaries are chosen in
// order of preference: paragraph breaks, sentence ends, whitespace, and as a
// last resort a hard cut inside an over-long token.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// DefaultMaxChars is the default maximum chunk length in runes.
const DefaultMaxChars = 800

// DefaultOverlapSentences is the default number of sentences repeated
// at the start of the following chunk.
const DefaultOverlapSentences = 0

// minMaxChars keeps a misconfigured budget from producing one-rune chunks.
const minMaxChars = 16

var paragraphBreak = regexp.MustCompile(`\n[ \t\f\v]*\n`)

// Splitter splits content into bounded chunks.
type Splitter struct {
	maxChars int
	overlap  int
}

var _ driven.Chunker = (*Splitter)(nil)

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxChars sets the chunk size budget in runes.
func WithMaxChars(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithOverlapSentences repeats the last n sentences of a chunk at the start
// of the next one.
func WithOverlapSentences(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.overlap = n
		}
	}
}

// New creates a new splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlapSentences,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxChars < minMaxChars {
		s.maxChars = minMaxChars
	}
	return s
}

// MaxChars returns the chunk size budget.
func (s *Splitter) MaxChars() int {
	return s.maxChars
}

// unit is a sentence, or a piece of an over-long sentence, tagged with the
// paragraph it came from.
type unit struct {
	text string
	para int
}

// Split returns the chunks of content in order. Blank content yields nil.
func (s *Splitter) Split(content string) []string {
	units := s.units(content)
	if len(units) == 0 {
		return nil
	}

	paraLen := make(map[int]int)
	for i, u := range units {
		if i > 0 && units[i-1].para == u.para {
			paraLen[u.para]++
		}
		paraLen[u.para] += runeLen(u.text)
	}

	var (
		chunks []string
		cur    []unit
		fresh  int
	)
	flush := func() {
		chunks = append(chunks, join(cur))
		cur = s.tail(cur)
		fresh = 0
	}

	for i, u := range units {
		if fresh > 0 {
			newPara := units[i-1].para != u.para
			if newPara && paraLen[u.para] <= s.maxChars && runeLen(join(cur))+2+paraLen[u.para] > s.maxChars {
				// Move a whole paragraph to the next chunk rather than splitting it.
				flush()
			} else if measure(cur, &u) > s.maxChars {
				flush()
			}
		}
		if len(cur) > 0 && measure(cur, &u) > s.maxChars {
			// Overlap left no room for the next unit.
			cur = nil
		}
		cur = append(cur, u)
		fresh++
	}
	if fresh > 0 {
		chunks = append(chunks, join(cur))
	}
	return chunks
}

// units breaks content into paragraphs, sentences and bounded pieces.
func (s *Splitter) units(content string) []unit {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	var units []unit
	para := 0
	for _, p := range paragraphBreak.Split(content, -1) {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}
		for _, sentence := range sentences(p) {
			for _, piece := range s.bound(sentence) {
				units = append(units, unit{text: piece, para: para})
			}
		}
		para++
	}
	return units
}

// bound splits a sentence that exceeds the budget at whitespace, and hard-cuts
// single tokens that are longer than the budget.
func (s *Splitter) bound(sentence string) []string {
	if runeLen(sentence) <= s.maxChars {
		return []string{sentence}
	}
	var (
		pieces []string
		b      strings.Builder
		n      int
	)
	for _, word := range strings.Fields(sentence) {
		for runeLen(word) > s.maxChars {
			if n > 0 {
				pieces = append(pieces, b.String())
				b.Reset()
				n = 0
			}
			cut := runePrefix(word, s.maxChars)
			pieces = append(pieces, cut)
			word = word[len(cut):]
		}
		if word == "" {
			continue
		}
		wl := runeLen(word)
		if n > 0 && n+1+wl > s.maxChars {
			pieces = append(pieces, b.String())
			b.Reset()
			n = 0
		}
		if n > 0 {
			b.WriteByte(' ')
			n++
		}
		b.WriteString(word)
		n += wl
	}
	if n > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

// tail returns the overlap carried into the next chunk. It never takes more
// than half the budget so every chunk still makes progress.
func (s *Splitter) tail(cur []unit) []unit {
	n := s.overlap
	if n > len(cur)-1 {
		n = len(cur) - 1
	}
	for ; n > 0; n-- {
		t := cur[len(cur)-n:]
		if runeLen(join(t)) <= s.maxChars/2 {
			return append([]unit(nil), t...)
		}
	}
	return nil
}

// sentences splits a whitespace-collapsed paragraph after '.', '!' or '?'
// (and any closing quotes or brackets) followed by a space and a rune that
// is not lowercase, so "e.g. this" stays in one sentence.
func sentences(p string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(p)
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && (isTerminal(runes[j]) || isCloser(runes[j])) {
			j++
		}
		if j+1 < len(runes) && unicode.IsSpace(runes[j]) && !unicode.IsLower(runes[j+1]) {
			out = append(out, strings.TrimSpace(string(runes[start:j])))
			start = j + 1
			i = j
		}
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

// measure returns the joined length of cur with next appended.
func measure(cur []unit, next *unit) int {
	if len(cur) == 0 {
		return runeLen(next.text)
	}
	return runeLen(join(cur)) + len(separator(cur[len(cur)-1], *next)) + runeLen(next.text)
}

func join(units []unit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			b.WriteString(separator(units[i-1], u))
		}
		b.WriteString(u.text)
	}
	return b.String()
}

func separator(prev, next unit) string {
	if prev.para != next.para {
		return "\n\n"
	}
	return " "
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
