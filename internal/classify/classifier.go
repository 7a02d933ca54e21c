// Package classify assigns a card type to raw import tuples and
// normalizes the type-specific payload fields.
package classify

import (
	"regexp"
	"strings"

	"github.com/schoolbox/flashdeck/internal/entities"
)

const maxChoices = 6

// Placeholder occlusion rectangle used when a source provides an image
// but no real region data. Fractions of the image dimensions.
var defaultOcclusionRegion = entities.Region{
	X:      0.25,
	Y:      0.25,
	Width:  0.5,
	Height: 0.2,
}

var (
	clozeSpanPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	// Anki-style {{c1::text}} or {{c1::text::hint}}
	ankiClozePattern    = regexp.MustCompile(`\{\{c\d+::([^{}]+?)\}\}`)
	choiceAnswerPattern = regexp.MustCompile(`(?i)^[a-d]\)|^\d+\)`)
	imageURLPattern     = regexp.MustCompile(`(?i)^https?://\S+\.(png|jpe?g|gif|webp|svg|bmp)$`)
	imgSrcPattern       = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)
)

var affirmativeAnswers = map[string]bool{
	"true": true, "yes": true, "t": true, "y": true,
}

var booleanAnswers = map[string]bool{
	"true": true, "false": true, "yes": true, "no": true,
	"t": true, "f": true, "y": true, "n": true,
}

type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify determines the card type for a raw tuple. An explicit type
// declared by the source wins; otherwise detection runs in priority
// order: cloze, multiple choice, true/false, image occlusion, basic.
func (c *Classifier) Classify(raw entities.RawCard) entities.CardType {
	if raw.ExplicitType != "" && entities.IsKnownCardType(raw.ExplicitType) {
		return entities.CardType(raw.ExplicitType)
	}

	if containsClozeSpan(raw.Question) || containsClozeSpan(raw.Answer) {
		return entities.CardTypeCloze
	}

	if len(raw.Choices) >= 2 || looksLikeChoiceAnswer(raw.Answer) {
		return entities.CardTypeMultipleChoice
	}

	if booleanAnswers[strings.ToLower(strings.TrimSpace(raw.Answer))] {
		return entities.CardTypeTrueFalse
	}

	if imageURLPattern.MatchString(strings.TrimSpace(raw.Question)) {
		return entities.CardTypeImageOcclusion
	}

	return entities.CardTypeBasic
}

// Normalize classifies a raw tuple and builds a Card with the
// type-specific payload populated. It never fails: input that does not
// fit any special type passes through unchanged as a basic card.
func (c *Classifier) Normalize(raw entities.RawCard) entities.Card {
	cardType := c.Classify(raw)

	card := entities.Card{
		Type:        cardType,
		Question:    raw.Question,
		Answer:      raw.Answer,
		Hint:        raw.Hint,
		RawQuestion: raw.RawQuestion,
		RawAnswer:   raw.RawAnswer,
		Difficulty:  raw.Difficulty,
	}
	if card.Difficulty == "" {
		card.Difficulty = entities.DifficultyMedium
	}
	for _, name := range raw.Tags {
		card.Tags = append(card.Tags, entities.Tag{Name: name})
	}

	switch cardType {
	case entities.CardTypeMultipleChoice:
		normalizeMultipleChoice(&card, raw)
	case entities.CardTypeTrueFalse:
		normalizeTrueFalse(&card, raw)
	case entities.CardTypeCloze:
		normalizeCloze(&card, raw)
	case entities.CardTypeImageOcclusion:
		normalizeImageOcclusion(&card, raw)
	}

	return card
}

func normalizeMultipleChoice(card *entities.Card, raw entities.RawCard) {
	choices := raw.Choices
	if len(choices) == 0 {
		choices = deriveChoicesFromAnswer(raw.Answer)
	}
	if len(choices) < 2 {
		// Nothing to split on: keep the real answer and pad with fillers.
		base := strings.TrimSpace(raw.Answer)
		if len(choices) == 1 {
			base = choices[0]
		}
		choices = []string{base, "Option B", "Option C", "Option D"}
	}
	if len(choices) > maxChoices {
		choices = choices[:maxChoices]
	}

	correct := raw.CorrectIndices
	if len(correct) == 0 {
		correct = []int{0}
	}
	var valid []int
	for _, idx := range correct {
		if idx >= 0 && idx < len(choices) {
			valid = append(valid, idx)
		}
	}
	if len(valid) == 0 {
		valid = []int{0}
	}

	// The answer becomes the joined text of the correct choices.
	var correctTexts []string
	for _, idx := range valid {
		correctTexts = append(correctTexts, choices[idx])
	}

	card.SetChoiceList(choices)
	card.SetCorrectIndexList(valid)
	card.Answer = strings.Join(correctTexts, "; ")
}

func normalizeTrueFalse(card *entities.Card, raw entities.RawCard) {
	card.SetChoiceList([]string{"True", "False"})

	if affirmativeAnswers[strings.ToLower(strings.TrimSpace(raw.Answer))] {
		card.SetCorrectIndexList([]int{0})
		card.Answer = "True"
	} else {
		card.SetCorrectIndexList([]int{1})
		card.Answer = "False"
	}
}

func normalizeCloze(card *entities.Card, raw entities.RawCard) {
	clozeText := raw.Question
	if !containsClozeSpan(clozeText) && containsClozeSpan(raw.Answer) {
		clozeText = raw.Answer
	}
	if !containsClozeSpan(clozeText) {
		// No spans anywhere: synthesize one around the literal answer.
		if raw.Answer != "" && strings.Contains(raw.Question, raw.Answer) {
			clozeText = strings.Replace(raw.Question, raw.Answer, "{{"+raw.Answer+"}}", 1)
		} else {
			clozeText = raw.Question + " {{" + raw.Answer + "}}"
		}
	}

	clozeText = convertAnkiCloze(clozeText)

	var answers []string
	seen := make(map[string]bool)
	for _, match := range clozeSpanPattern.FindAllStringSubmatch(clozeText, -1) {
		answer := strings.TrimSpace(match[1])
		if answer == "" || seen[answer] {
			continue
		}
		seen[answer] = true
		answers = append(answers, answer)
	}

	card.ClozeText = clozeText
	card.SetClozeAnswerList(answers)
	card.Question = clozeSpanPattern.ReplaceAllString(clozeText, "[...]")
	card.Answer = strings.Join(answers, ", ")
}

func normalizeImageOcclusion(card *entities.Card, raw entities.RawCard) {
	question := strings.TrimSpace(raw.Question)
	if imageURLPattern.MatchString(question) {
		card.QuestionImageURL = question
	} else if match := imgSrcPattern.FindStringSubmatch(raw.Question + " " + raw.Answer); match != nil {
		card.QuestionImageURL = match[1]
	}

	// Real region detection is out of scope: every occlusion card gets a
	// single placeholder rectangle labelled with the answer.
	region := defaultOcclusionRegion
	region.Label = raw.Answer
	card.SetRegionList([]entities.Region{region})
}

// deriveChoicesFromAnswer splits an answer on semicolons or newlines.
func deriveChoicesFromAnswer(answer string) []string {
	separator := ";"
	if !strings.Contains(answer, ";") && strings.Contains(answer, "\n") {
		separator = "\n"
	}

	var choices []string
	for _, part := range strings.Split(answer, separator) {
		part = choiceAnswerPattern.ReplaceAllString(strings.TrimSpace(part), "")
		if part = strings.TrimSpace(part); part != "" {
			choices = append(choices, part)
		}
	}
	return choices
}

// convertAnkiCloze rewrites {{c1::text}} (optionally {{c1::text::hint}})
// spans to plain {{text}} spans.
func convertAnkiCloze(text string) string {
	return ankiClozePattern.ReplaceAllStringFunc(text, func(span string) string {
		inner := ankiClozePattern.FindStringSubmatch(span)[1]
		// Drop a trailing ::hint segment if present.
		if idx := strings.Index(inner, "::"); idx >= 0 {
			inner = inner[:idx]
		}
		return "{{" + inner + "}}"
	})
}

func containsClozeSpan(text string) bool {
	return clozeSpanPattern.MatchString(text)
}

func looksLikeChoiceAnswer(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	return choiceAnswerPattern.MatchString(trimmed) || strings.Contains(trimmed, ";")
}
