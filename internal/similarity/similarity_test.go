package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "What Is GRAVITY?", "what is gravity"},
		{"strips html", "<b>Paris</b> is the <i>capital</i>", "paris is the capital"},
		{"collapses whitespace", "two   words\t\nhere", "two words here"},
		{"strips punctuation", "2+2 = 4, right?!", "22 4 right"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestText_IdenticalIsOne(t *testing.T) {
	texts := []string{
		"Capital of France",
		"What is 2+2?",
		"  <b>HTML wrapped</b> text  ",
	}
	for _, text := range texts {
		assert.Equal(t, 1.0, Text(text, text))
	}
}

func TestText_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Text("", "something"))
	assert.Equal(t, 0.0, Text("something", ""))
	assert.Equal(t, 0.0, Text("", ""))
	// HTML-only content normalizes to empty
	assert.Equal(t, 0.0, Text("<br/>", "something"))
}

func TestText_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"the quick brown fox", "the quick brown dog"},
		{"photosynthesis", "photo synthesis"},
		{"a", "completely different text"},
	}
	for _, p := range pairs {
		assert.Equal(t, Text(p[0], p[1]), Text(p[1], p[0]))
	}
}

func TestText_CloseVariantsScoreHigh(t *testing.T) {
	score := Text("What is the capital of France?", "What is the capital of france")
	assert.Equal(t, 1.0, score) // identical after normalization

	score = Text("Mitochondria is the powerhouse", "Mitochondria is the powerhouses")
	assert.Greater(t, score, 0.9)
}

func TestText_LongFormUsesTokenOverlap(t *testing.T) {
	base := strings.Repeat("the cell membrane controls what enters and leaves the cell ", 6)
	same := base
	assert.Equal(t, 1.0, Text(base, same))

	// Same tokens, shuffled order: edit distance would punish this,
	// token overlap should not.
	shuffled := strings.Repeat("leaves the cell membrane controls what enters and the cell ", 6)
	assert.Greater(t, Text(base, shuffled), 0.99)

	disjoint := strings.Repeat("volcanic eruptions reshape continental plates over geological time spans ", 6)
	assert.Less(t, Text(base, disjoint), 0.1)
}

func TestCards_WeightsQuestionHigher(t *testing.T) {
	score := Cards("What is 2+2?", "Four", "What is 2+2?", "4")

	assert.Equal(t, 1.0, score.Question)
	assert.Equal(t, 0.0, score.Answer)
	assert.InDelta(t, 0.7, score.Combined, 0.0001)
}

func TestCards_IdenticalPairIsOne(t *testing.T) {
	score := Cards("Q", "A", "Q", "A")
	assert.Equal(t, 1.0, score.Combined)
}

func TestCards_BoundedZeroToOne(t *testing.T) {
	pairs := [][4]string{
		{"q1", "a1", "q2", "a2"},
		{"", "", "", ""},
		{"same", "same", "same", "same"},
		{"abc def", "xyz", "def abc", "zyx"},
	}
	for _, p := range pairs {
		score := Cards(p[0], p[1], p[2], p[3])
		assert.GreaterOrEqual(t, score.Combined, 0.0)
		assert.LessOrEqual(t, score.Combined, 1.0)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"", "abc", 3},
		{"abc", "", 3},
		{"same", "same", 0},
		{"four", "4", 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}
