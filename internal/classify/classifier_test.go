package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolbox/flashdeck/internal/entities"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier()

	tests := []struct {
		name string
		raw  entities.RawCard
		want entities.CardType
	}{
		{
			name: "basic question and answer",
			raw:  entities.RawCard{Question: "Capital of France", Answer: "Paris"},
			want: entities.CardTypeBasic,
		},
		{
			name: "cloze span in question",
			raw:  entities.RawCard{Question: "The {{mitochondria}} is the powerhouse", Answer: "mitochondria"},
			want: entities.CardTypeCloze,
		},
		{
			name: "anki cloze syntax",
			raw:  entities.RawCard{Question: "{{c1::Paris}} is the capital of France", Answer: ""},
			want: entities.CardTypeCloze,
		},
		{
			name: "cloze span in answer",
			raw:  entities.RawCard{Question: "Complete the sentence", Answer: "Water is {{H2O}}"},
			want: entities.CardTypeCloze,
		},
		{
			name: "explicit choices",
			raw:  entities.RawCard{Question: "Pick one", Answer: "A", Choices: []string{"A", "B", "C"}},
			want: entities.CardTypeMultipleChoice,
		},
		{
			name: "lettered answer",
			raw:  entities.RawCard{Question: "Which gas do plants absorb?", Answer: "b) Carbon dioxide"},
			want: entities.CardTypeMultipleChoice,
		},
		{
			name: "semicolon separated answer",
			raw:  entities.RawCard{Question: "Primary colors?", Answer: "Red; Blue; Yellow"},
			want: entities.CardTypeMultipleChoice,
		},
		{
			name: "true answer",
			raw:  entities.RawCard{Question: "The sun is a star", Answer: "true"},
			want: entities.CardTypeTrueFalse,
		},
		{
			name: "single letter negative",
			raw:  entities.RawCard{Question: "Is the moon a planet?", Answer: "N"},
			want: entities.CardTypeTrueFalse,
		},
		{
			name: "image url question",
			raw:  entities.RawCard{Question: "https://cdn.example.com/diagrams/heart.png", Answer: "Left ventricle"},
			want: entities.CardTypeImageOcclusion,
		},
		{
			name: "explicit type wins over detection",
			raw:  entities.RawCard{Question: "Anything", Answer: "true", ExplicitType: "basic"},
			want: entities.CardTypeBasic,
		},
		{
			name: "unknown explicit type falls back to detection",
			raw:  entities.RawCard{Question: "Anything", Answer: "yes", ExplicitType: "jeopardy"},
			want: entities.CardTypeTrueFalse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.raw))
		})
	}
}

func TestNormalize_TrueFalse(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{Question: "The sun is a star", Answer: "true"})

	assert.Equal(t, entities.CardTypeTrueFalse, card.Type)
	assert.Equal(t, []string{"True", "False"}, card.ChoiceList())
	assert.Equal(t, []int{0}, card.CorrectIndexList())
	assert.Equal(t, "True", card.Answer)

	card = classifier.Normalize(entities.RawCard{Question: "The moon is a star", Answer: "no"})
	assert.Equal(t, []int{1}, card.CorrectIndexList())
	assert.Equal(t, "False", card.Answer)
}

func TestNormalize_MultipleChoice_DerivedFromAnswer(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question: "Primary colors?",
		Answer:   "Red; Blue; Yellow",
	})

	require.Equal(t, entities.CardTypeMultipleChoice, card.Type)
	assert.Equal(t, []string{"Red", "Blue", "Yellow"}, card.ChoiceList())
	assert.Equal(t, []int{0}, card.CorrectIndexList())
	assert.Equal(t, "Red", card.Answer)
}

func TestNormalize_MultipleChoice_ExplicitChoices(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question:       "What is H2O?",
		Answer:         "Water",
		Choices:        []string{"Water", "Salt", "Sugar"},
		CorrectIndices: []int{0},
	})

	assert.Equal(t, []string{"Water", "Salt", "Sugar"}, card.ChoiceList())
	assert.Equal(t, "Water", card.Answer)
}

func TestNormalize_MultipleChoice_CapsAtSix(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question: "Too many options",
		Choices:  []string{"a", "b", "c", "d", "e", "f", "g", "h"},
		Answer:   "a",
	})

	assert.Len(t, card.ChoiceList(), 6)
}

func TestNormalize_MultipleChoice_SynthesizedFillers(t *testing.T) {
	classifier := NewClassifier()

	// Lettered answer with no separators: fillers get synthesized.
	card := classifier.Normalize(entities.RawCard{
		Question: "Which gas do plants absorb?",
		Answer:   "a) Carbon dioxide",
	})

	choices := card.ChoiceList()
	require.Len(t, choices, 4)
	assert.Equal(t, "Carbon dioxide", choices[0])
	assert.Equal(t, "Option B", choices[1])
	assert.Equal(t, "Carbon dioxide", card.Answer)
}

func TestNormalize_Cloze(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question: "The {{mitochondria}} is the powerhouse of the {{cell}}",
	})

	require.Equal(t, entities.CardTypeCloze, card.Type)
	assert.Equal(t, "The {{mitochondria}} is the powerhouse of the {{cell}}", card.ClozeText)
	assert.Equal(t, []string{"mitochondria", "cell"}, card.ClozeAnswerList())
	assert.Equal(t, "The [...] is the powerhouse of the [...]", card.Question)
	assert.Equal(t, "mitochondria, cell", card.Answer)
}

func TestNormalize_Cloze_AnkiSyntaxConverted(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question: "{{c1::Paris}} is the capital of {{c2::France::country}}",
	})

	assert.Equal(t, "{{Paris}} is the capital of {{France}}", card.ClozeText)
	assert.Equal(t, []string{"Paris", "France"}, card.ClozeAnswerList())
}

func TestNormalize_Cloze_DuplicateAnswersCollapsed(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question: "{{water}} cycle: {{water}} evaporates and {{condenses}}",
	})

	assert.Equal(t, []string{"water", "condenses"}, card.ClozeAnswerList())
}

func TestNormalize_Cloze_SynthesizedFromAnswer(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question:     "The capital of France is Paris",
		Answer:       "Paris",
		ExplicitType: "cloze",
	})

	assert.Equal(t, "The capital of France is {{Paris}}", card.ClozeText)
	assert.Equal(t, []string{"Paris"}, card.ClozeAnswerList())
	assert.Equal(t, "The capital of France is [...]", card.Question)
}

func TestNormalize_ImageOcclusion(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question: "https://cdn.example.com/diagrams/heart.png",
		Answer:   "Left ventricle",
	})

	require.Equal(t, entities.CardTypeImageOcclusion, card.Type)
	assert.Equal(t, "https://cdn.example.com/diagrams/heart.png", card.QuestionImageURL)

	regions := card.RegionList()
	require.Len(t, regions, 1)
	assert.Equal(t, "Left ventricle", regions[0].Label)
	assert.Greater(t, regions[0].Width, 0.0)
}

func TestNormalize_ImageOcclusion_ImgTagFallback(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question:     `Label the diagram <img src="diagrams/skeleton.jpg">`,
		Answer:       "Femur",
		ExplicitType: "image_occlusion",
	})

	assert.Equal(t, "diagrams/skeleton.jpg", card.QuestionImageURL)
	require.Len(t, card.RegionList(), 1)
}

func TestNormalize_BasicPassesThrough(t *testing.T) {
	classifier := NewClassifier()

	card := classifier.Normalize(entities.RawCard{
		Question:   "Capital of France",
		Answer:     "Paris",
		Hint:       "City of lights",
		Tags:       []string{"geography"},
		Difficulty: entities.DifficultyHard,
	})

	assert.Equal(t, entities.CardTypeBasic, card.Type)
	assert.Equal(t, "Capital of France", card.Question)
	assert.Equal(t, "Paris", card.Answer)
	assert.Equal(t, "City of lights", card.Hint)
	assert.Equal(t, entities.DifficultyHard, card.Difficulty)
	assert.Empty(t, card.Choices)
	assert.Empty(t, card.ClozeText)
	assert.Empty(t, card.OcclusionRegions)
	require.Len(t, card.Tags, 1)
	assert.Equal(t, "geography", card.Tags[0].Name)
}

func TestNormalize_DefaultsDifficultyToMedium(t *testing.T) {
	classifier := NewClassifier()
	card := classifier.Normalize(entities.RawCard{Question: "Q", Answer: "A"})
	assert.Equal(t, entities.DifficultyMedium, card.Difficulty)
}
