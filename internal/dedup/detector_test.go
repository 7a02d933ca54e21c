package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolbox/flashdeck/internal/entities"
)

func card(question, answer string) entities.Card {
	return entities.Card{Question: question, Answer: answer}
}

func existingCard(id uint, question, answer string) entities.Card {
	return entities.Card{ID: id, Question: question, Answer: answer}
}

func TestDetect_AllUniqueAgainstEmptyExisting(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	incoming := []entities.Card{
		card("Capital of France?", "Paris"),
		card("Capital of Germany?", "Berlin"),
	}

	detection := detector.Detect(incoming, nil)

	assert.Empty(t, detection.Duplicates)
	assert.Len(t, detection.Unique, 2)
	assert.Equal(t, []int{0, 1}, detection.UniqueIndices)
}

func TestDetect_ExactExisting(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	existing := []entities.Card{
		existingCard(42, "Capital of France?", "Paris"),
	}
	incoming := []entities.Card{
		// Case and markup differences vanish under normalization.
		card("capital of FRANCE", "<b>Paris</b>"),
	}

	detection := detector.Detect(incoming, existing)

	require.Len(t, detection.Duplicates, 1)
	match := detection.Duplicates[0]
	assert.Equal(t, MatchExactExisting, match.Kind)
	assert.Equal(t, uint(42), match.ExistingID)
	assert.Equal(t, 1.0, match.Score)
	assert.Equal(t, ActionSkip, match.SuggestedAction)
	assert.Empty(t, detection.Unique)
}

func TestDetect_ExactInBatch(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	incoming := []entities.Card{
		card("What is osmosis?", "Water diffusion"),
		card("What is osmosis?", "Water diffusion"),
	}

	detection := detector.Detect(incoming, nil)

	require.Len(t, detection.Duplicates, 1)
	match := detection.Duplicates[0]
	assert.Equal(t, MatchExactInBatch, match.Kind)
	assert.Equal(t, 1, match.SourceIndex)
	assert.Equal(t, 0, match.BatchIndex)
	assert.Len(t, detection.Unique, 1)
}

func TestDetect_SimilarExisting(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	existing := []entities.Card{
		existingCard(7, "What is the capital of France?", "Paris"),
	}
	incoming := []entities.Card{
		card("What is the capital city of France?", "Paris"),
	}

	detection := detector.Detect(incoming, existing)

	require.Len(t, detection.Duplicates, 1)
	match := detection.Duplicates[0]
	assert.Equal(t, MatchSimilarExisting, match.Kind)
	assert.Equal(t, uint(7), match.ExistingID)
	assert.GreaterOrEqual(t, match.Score, DefaultThreshold)
}

func TestDetect_SimilarInBatch(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	incoming := []entities.Card{
		card("The mitochondria is the powerhouse of the cell", "Energy production"),
		card("The mitochondria is the powerhouse of a cell", "Energy production"),
	}

	detection := detector.Detect(incoming, nil)

	require.Len(t, detection.Duplicates, 1)
	assert.Equal(t, MatchSimilarInBatch, detection.Duplicates[0].Kind)
	assert.Equal(t, 0, detection.Duplicates[0].BatchIndex)
	assert.Len(t, detection.Unique, 1)
}

func TestDetect_ShortQuestionAlwaysUnique(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	existing := []entities.Card{
		existingCard(1, "2+2", "4"),
	}
	incoming := []entities.Card{
		card("2+2", "4"), // under 5 chars: skipped by the pre-filter
	}

	detection := detector.Detect(incoming, existing)

	assert.Empty(t, detection.Duplicates)
	assert.Len(t, detection.Unique, 1)
}

func TestDetect_UnrelatedCardsAreUnique(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	existing := []entities.Card{
		existingCard(1, "What is the boiling point of water?", "100 degrees Celsius"),
	}
	incoming := []entities.Card{
		card("Who wrote Hamlet?", "William Shakespeare"),
	}

	detection := detector.Detect(incoming, existing)

	assert.Empty(t, detection.Duplicates)
	assert.Len(t, detection.Unique, 1)
}

func TestDetect_ExistingTakesPriorityOverInBatch(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	existing := []entities.Card{
		existingCard(5, "Shared question text here", "Shared answer"),
	}
	incoming := []entities.Card{
		card("Shared question text here", "Shared answer"),
		card("Shared question text here", "Shared answer"),
	}

	detection := detector.Detect(incoming, existing)

	require.Len(t, detection.Duplicates, 2)
	assert.Equal(t, MatchExactExisting, detection.Duplicates[0].Kind)
	// The second card also matches existing first; the in-batch set never
	// receives either card.
	assert.Equal(t, MatchExactExisting, detection.Duplicates[1].Kind)
	assert.Empty(t, detection.Unique)
}

func TestDetect_OrderPreserved(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	incoming := []entities.Card{
		card("What is the capital of Japan?", "Tokyo"),
		card("Who painted the Mona Lisa?", "Leonardo da Vinci"),
		card("How many legs does a spider have?", "Eight"),
		card("What planet is known as the red planet?", "Mars"),
		card("Which ocean is the largest on Earth?", "The Pacific Ocean"),
		card("Who discovered penicillin?", "Alexander Fleming"),
	}

	detection := detector.Detect(incoming, nil)

	require.Len(t, detection.Unique, len(incoming))
	for i, idx := range detection.UniqueIndices {
		assert.Equal(t, i, idx)
	}
}

func TestSuggestAction(t *testing.T) {
	tests := []struct {
		score float64
		kind  MatchKind
		want  Action
	}{
		{0.97, MatchSimilarExisting, ActionSkip},
		{0.95, MatchSimilarInBatch, ActionSkip},
		{0.92, MatchSimilarExisting, ActionReview},
		{0.9, MatchSimilarInBatch, ActionReview},
		{0.85, MatchSimilarExisting, ActionUpdate},
		{0.85, MatchSimilarInBatch, ActionKeepBoth},
	}

	for _, tt := range tests {
		got := suggestAction(tt.score, tt.kind)
		assert.Equal(t, tt.want, got, "score %.2f kind %s", tt.score, tt.kind)
	}
}

func TestNewDetector_InvalidThresholdFallsBack(t *testing.T) {
	detector := NewDetector(0)
	assert.Equal(t, DefaultThreshold, detector.threshold)

	detector = NewDetector(1.5)
	assert.Equal(t, DefaultThreshold, detector.threshold)
}
