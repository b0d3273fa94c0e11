package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		s := New()
		assert.Equal(t, DefaultMaxChars, s.maxChars)
		assert.Equal(t, DefaultOverlapSentences, s.overlap)
	})

	t.Run("custom values", func(t *testing.T) {
		s := New(WithMaxChars(500), WithOverlapSentences(2))
		assert.Equal(t, 500, s.MaxChars())
		assert.Equal(t, 2, s.overlap)
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		s := New(WithMaxChars(0), WithOverlapSentences(-1))
		assert.Equal(t, DefaultMaxChars, s.maxChars)
		assert.Equal(t, DefaultOverlapSentences, s.overlap)
	})

	t.Run("tiny budget clamped", func(t *testing.T) {
		assert.Equal(t, minMaxChars, New(WithMaxChars(3)).MaxChars())
	})
}

func TestSplit_Empty(t *testing.T) {
	s := New()
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\n\t  "))
}

func TestSplit_ShortContent(t *testing.T) {
	got := New().Split("  Hello   world.\nSecond line here.  ")
	assert.Equal(t, []string{"Hello world. Second line here."}, got)
}

func TestSplit_PrefersSentenceBoundaries(t *testing.T) {
	s := New(WithMaxChars(40))
	got := s.Split("The cat sat on the mat. The dog lay on the rug. Birds sang.")
	assert.Equal(t, []string{
		"The cat sat on the mat.",
		"The dog lay on the rug. Birds sang.",
	}, got)
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	s := New(WithMaxChars(50))
	content := "Alpha beta gamma. Delta epsilon.\r\n\r\nZeta eta theta. Iota kappa lambda."
	got := s.Split(content)
	assert.Equal(t, []string{
		"Alpha beta gamma. Delta epsilon.",
		"Zeta eta theta. Iota kappa lambda.",
	}, got)
}

func TestSplit_JoinsSmallParagraphs(t *testing.T) {
	got := New().Split("First.\n\nSecond.")
	assert.Equal(t, []string{"First.\n\nSecond."}, got)
}

func TestSplit_HardCutsLongTokens(t *testing.T) {
	s := New(WithMaxChars(16))
	got := s.Split(strings.Repeat("a", 40))
	assert.Equal(t, []string{
		strings.Repeat("a", 16),
		strings.Repeat("a", 16),
		strings.Repeat("a", 8),
	}, got)
}

func TestSplit_SplitsLongSentenceAtWhitespace(t *testing.T) {
	s := New(WithMaxChars(20))
	got := s.Split("one two three four five six seven eight nine ten")
	require.NotEmpty(t, got)
	for _, c := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 20)
		assert.Equal(t, strings.TrimSpace(c), c)
	}
	assert.Equal(t, "one two three four five six seven eight nine ten", strings.Join(got, " "))
}

func TestSplit_Overlap(t *testing.T) {
	s := New(WithMaxChars(60), WithOverlapSentences(1))
	got := s.Split("One two three. Four five six. Seven eight nine. Ten eleven twelve.")
	assert.Equal(t, []string{
		"One two three. Four five six. Seven eight nine.",
		"Seven eight nine. Ten eleven twelve.",
	}, got)
}

func TestSplit_OverlapNeverProducesTrailingDuplicate(t *testing.T) {
	s := New(WithMaxChars(30), WithOverlapSentences(3))
	got := s.Split("Short one. Short two. Short three. Short four.")
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Contains(t, last, "Short four.")
}

func TestSplit_Bounded(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ")
		if i%7 == 0 {
			b.WriteString("Ünïcödé wörds äré cöüntéd äs rünés!\n\n")
		}
	}

	for _, max := range []int{16, 50, 120, 800} {
		chunks := New(WithMaxChars(max), WithOverlapSentences(1)).Split(b.String())
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), max)
			assert.NotEmpty(t, strings.TrimSpace(c))
			assert.True(t, utf8.ValidString(c))
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	content := strings.Repeat("Go is expressive. It is concise! Is it clean? Yes.\n\n", 30)
	s := New(WithMaxChars(90), WithOverlapSentences(1))
	assert.Equal(t, s.Split(content), s.Split(content))
}

func TestSentences(t *testing.T) {
	got := sentences(`He said "stop." Then he left! Did she (really?) follow? Maybe`)
	assert.Equal(t, []string{
		`He said "stop."`,
		"Then he left!",
		"Did she (really?) follow?",
		"Maybe",
	}, got)
}
