// Package dedup runs incoming cards against existing records and against
// each other, classifying exact and near matches and recommending a
// resolution for each.
package dedup

import (
	"strings"

	"github.com/schoolbox/flashdeck/internal/entities"
	"github.com/schoolbox/flashdeck/internal/similarity"
)

// DefaultThreshold is the combined-score floor for a similarity match.
const DefaultThreshold = 0.8

// Questions shorter than this after trimming are too short to compare
// meaningfully and are always treated as unique.
const minComparableQuestionLen = 5

type MatchKind string

const (
	MatchExactExisting   MatchKind = "exact_existing"
	MatchExactInBatch    MatchKind = "exact_in_batch"
	MatchSimilarExisting MatchKind = "similar_existing"
	MatchSimilarInBatch  MatchKind = "similar_in_batch"
)

// Action is the recommended (or caller-chosen) resolution for a match.
type Action string

const (
	ActionSkip     Action = "skip"
	ActionReview   Action = "review"
	ActionUpdate   Action = "update"
	ActionKeepBoth Action = "keep_both"
	ActionReplace  Action = "replace"
)

func IsValidAction(a Action) bool {
	switch a {
	case ActionSkip, ActionReview, ActionUpdate, ActionKeepBoth, ActionReplace:
		return true
	}
	return false
}

// Match describes one duplicate finding. ExistingID is set for matches
// against persisted cards; BatchIndex points into the incoming slice for
// in-batch matches (-1 otherwise).
type Match struct {
	SourceIndex     int              `json:"source_index"`
	ExistingID      uint             `json:"existing_id,omitempty"`
	BatchIndex      int              `json:"batch_index"`
	Kind            MatchKind        `json:"kind"`
	Score           float64          `json:"score"`
	Similarity      similarity.Score `json:"similarity"`
	SuggestedAction Action           `json:"suggested_action"`
}

// Detection is the outcome of one pass: matches found, plus the incoming
// cards deemed unique in input order. UniqueIndices maps each unique card
// back to its position in the incoming slice.
type Detection struct {
	Duplicates    []Match
	Unique        []entities.Card
	UniqueIndices []int
}

type Detector struct {
	threshold float64
}

func NewDetector(threshold float64) *Detector {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Detector{threshold: threshold}
}

// Detect compares every incoming card, in input order, first against the
// existing snapshot and then against cards already accepted as unique
// earlier in the same pass. The existing slice is expected to be bounded
// by the caller (newest records first); cards beyond that working set are
// not examined.
func (d *Detector) Detect(incoming []entities.Card, existing []entities.Card) Detection {
	detection := Detection{}

	normalized := make([]qaKey, len(incoming))
	for i, card := range incoming {
		normalized[i] = qaKey{similarity.Normalize(card.Question), similarity.Normalize(card.Answer)}
	}

	existingKeys := make([]qaKey, len(existing))
	for i, card := range existing {
		existingKeys[i] = qaKey{similarity.Normalize(card.Question), similarity.Normalize(card.Answer)}
	}

	accept := func(i int, card entities.Card) {
		detection.Unique = append(detection.Unique, card)
		detection.UniqueIndices = append(detection.UniqueIndices, i)
	}

	for i, card := range incoming {
		if len([]rune(strings.TrimSpace(card.Question))) < minComparableQuestionLen {
			accept(i, card)
			continue
		}

		// 1. Exact match against existing records.
		if idx := findExact(normalized[i].q, normalized[i].a, existingKeys); idx >= 0 {
			detection.Duplicates = append(detection.Duplicates, Match{
				SourceIndex:     i,
				ExistingID:      existing[idx].ID,
				BatchIndex:      -1,
				Kind:            MatchExactExisting,
				Score:           1.0,
				Similarity:      similarity.Score{Question: 1.0, Answer: 1.0, Combined: 1.0},
				SuggestedAction: ActionSkip,
			})
			continue
		}

		// 2. Exact match against earlier in-batch uniques.
		if pos := findExactInBatch(normalized[i], detection.UniqueIndices, normalized); pos >= 0 {
			detection.Duplicates = append(detection.Duplicates, Match{
				SourceIndex:     i,
				BatchIndex:      pos,
				Kind:            MatchExactInBatch,
				Score:           1.0,
				Similarity:      similarity.Score{Question: 1.0, Answer: 1.0, Combined: 1.0},
				SuggestedAction: ActionSkip,
			})
			continue
		}

		// 3. Best similarity match against existing.
		if idx, score := d.bestMatch(card, existing); idx >= 0 {
			detection.Duplicates = append(detection.Duplicates, Match{
				SourceIndex:     i,
				ExistingID:      existing[idx].ID,
				BatchIndex:      -1,
				Kind:            MatchSimilarExisting,
				Score:           score.Combined,
				Similarity:      score,
				SuggestedAction: suggestAction(score.Combined, MatchSimilarExisting),
			})
			continue
		}

		// 4. Best similarity match against in-batch uniques.
		if pos, score := d.bestMatch(card, detection.Unique); pos >= 0 {
			detection.Duplicates = append(detection.Duplicates, Match{
				SourceIndex:     i,
				BatchIndex:      detection.UniqueIndices[pos],
				Kind:            MatchSimilarInBatch,
				Score:           score.Combined,
				Similarity:      score,
				SuggestedAction: suggestAction(score.Combined, MatchSimilarInBatch),
			})
			continue
		}

		// 5. Unique: visible to later cards in this same pass.
		accept(i, card)
	}

	return detection
}

// qaKey is a normalized question/answer pair used for exact comparison.
type qaKey struct{ q, a string }

func findExact(q, a string, keys []qaKey) int {
	for i, key := range keys {
		if key.q == q && key.a == a {
			return i
		}
	}
	return -1
}

func findExactInBatch(needle qaKey, uniqueIndices []int, normalized []qaKey) int {
	for _, idx := range uniqueIndices {
		if normalized[idx].q == needle.q && normalized[idx].a == needle.a {
			return idx
		}
	}
	return -1
}

// bestMatch returns the candidate with the highest combined score at or
// above the threshold, or -1 when none qualifies.
func (d *Detector) bestMatch(card entities.Card, candidates []entities.Card) (int, similarity.Score) {
	bestIdx := -1
	var best similarity.Score

	for i, candidate := range candidates {
		score := similarity.Cards(card.Question, card.Answer, candidate.Question, candidate.Answer)
		if score.Combined >= d.threshold && score.Combined > best.Combined {
			best = score
			bestIdx = i
		}
	}
	return bestIdx, best
}

// suggestAction maps a match score to a recommended resolution. Scores
// below the similarity threshold never reach here: they are simply not
// duplicates.
func suggestAction(score float64, kind MatchKind) Action {
	switch {
	case score >= 0.95:
		return ActionSkip
	case score >= 0.9:
		return ActionReview
	case kind == MatchSimilarExisting || kind == MatchExactExisting:
		return ActionUpdate
	default:
		return ActionKeepBoth
	}
}
