// Package similarity scores textual closeness between flashcards.
//
// Short texts are compared with Levenshtein edit distance; long-form text
// switches to token-set overlap, which is cheaper than the O(n*m) edit
// distance and more stable on long passages.
package similarity

import (
	"regexp"
	"strings"
)

const (
	// Texts longer than this are compared by token overlap instead of
	// edit distance.
	editDistanceMaxLen = 255

	// Question overlap identifies duplicate cards more reliably than
	// answer phrasing, so it carries most of the combined score.
	questionWeight = 0.7
	answerWeight   = 0.3
)

var (
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	punctuationPattern = regexp.MustCompile(`[^\w\s]`)
)

// Score holds the per-field and combined similarity of two cards.
type Score struct {
	Question float64 `json:"question_similarity"`
	Answer   float64 `json:"answer_similarity"`
	Combined float64 `json:"combined_score"`
}

// Normalize prepares text for comparison: lowercase, HTML stripped,
// punctuation removed, whitespace collapsed.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = punctuationPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Text returns a similarity score in [0, 1] for two texts.
// Identical normalized texts score 1.0; an empty side scores 0.0.
func Text(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	if na == nb {
		if na == "" {
			return 0.0
		}
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	maxLen := len(na)
	if len(nb) > maxLen {
		maxLen = len(nb)
	}
	if maxLen > editDistanceMaxLen {
		return tokenSetSimilarity(na, nb)
	}

	distance := levenshtein(na, nb)
	return 1.0 - float64(distance)/float64(maxLen)
}

// Cards scores two question/answer pairs. The combined score weights the
// question at 0.7 and the answer at 0.3.
func Cards(question1, answer1, question2, answer2 string) Score {
	qs := Text(question1, question2)
	as := Text(answer1, answer2)
	return Score{
		Question: qs,
		Answer:   as,
		Combined: questionWeight*qs + answerWeight*as,
	}
}

// levenshtein computes the classic edit distance with unit costs,
// using a two-row table.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// tokenSetSimilarity is the Jaccard index over whitespace-split tokens.
func tokenSetSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		set[token] = struct{}{}
	}
	return set
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
