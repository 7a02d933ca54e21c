package textparse

import (
	"strings"
	"testing"
)

func TestParser_Parse_TabDelimited(t *testing.T) {
	input := "Capital of France\tParis\n2+2\tFour"

	parser := NewParser()
	result, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Delimiter != "\t" {
		t.Errorf("expected tab delimiter, got %q", result.Delimiter)
	}
	if len(result.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(result.Cards))
	}
	if result.Cards[0].Question != "Capital of France" || result.Cards[0].Answer != "Paris" {
		t.Errorf("unexpected first card: %+v", result.Cards[0])
	}
	if result.Cards[1].Question != "2+2" || result.Cards[1].Answer != "Four" {
		t.Errorf("unexpected second card: %+v", result.Cards[1])
	}
}

func TestParser_Parse_CommaWithQuotedFields(t *testing.T) {
	input := `"Largest planet, by mass",Jupiter
"Smallest planet",Mercury`

	parser := NewParser()
	result, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Delimiter != "," {
		t.Errorf("expected comma delimiter, got %q", result.Delimiter)
	}
	if len(result.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(result.Cards))
	}
	if result.Cards[0].Question != "Largest planet, by mass" {
		t.Errorf("quoted comma not preserved: %q", result.Cards[0].Question)
	}
}

func TestParser_Parse_DashDelimited(t *testing.T) {
	input := "Photosynthesis - Conversion of light into chemical energy\nOsmosis - Diffusion of water across a membrane"

	parser := NewParser()
	result, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Delimiter != " - " {
		t.Errorf("expected dash delimiter, got %q", result.Delimiter)
	}
	if len(result.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(result.Cards))
	}
}

func TestParser_Parse_ThirdFieldIsHint(t *testing.T) {
	input := "Question\tAnswer\tThink about chapter 3"

	parser := NewParser()
	result, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(result.Cards))
	}
	if result.Cards[0].Hint != "Think about chapter 3" {
		t.Errorf("expected hint, got %q", result.Cards[0].Hint)
	}
}

func TestParser_Parse_EmptyQuestionRejected(t *testing.T) {
	input := " \tParis\nReal question\tReal answer"

	parser := NewParser()
	result, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(result.Cards))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 row error, got %d: %v", len(result.Errors), result.Errors)
	}
	if !strings.Contains(result.Errors[0], "line 1") {
		t.Errorf("row error should carry line number: %q", result.Errors[0])
	}
}

func TestParser_Parse_ErrorLineNumbersCountBlankLines(t *testing.T) {
	input := "First question\tFirst answer\n\n\n \tMissing question\nLast question\tLast answer"

	parser := NewParser()
	result, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(result.Cards))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 row error, got %d: %v", len(result.Errors), result.Errors)
	}
	// The bad row sits on line 4 of the input; the blank lines above it
	// still count.
	if !strings.Contains(result.Errors[0], "line 4") {
		t.Errorf("row error should reference the original line: %q", result.Errors[0])
	}
}

func TestParser_Parse_TagsExtractedFromLine(t *testing.T) {
	input := "Capital of Spain #geography #europe\tMadrid #geography"

	parser := NewParser()
	result, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(result.Cards))
	}

	card := result.Cards[0]
	if card.Question != "Capital of Spain" {
		t.Errorf("tags should be stripped from question, got %q", card.Question)
	}
	if card.Answer != "Madrid" {
		t.Errorf("tags should be stripped from answer, got %q", card.Answer)
	}
	if len(card.Tags) != 2 || card.Tags[0] != "geography" || card.Tags[1] != "europe" {
		t.Errorf("unexpected tags: %v", card.Tags)
	}
}

func TestParser_Parse_ExtendedForm(t *testing.T) {
	input := "multiple_choice,What is H2O?,Water,Water;Salt;Sugar;Sand,0,Common molecule,chemistry;basics"

	parser := NewParser()
	result, err := parser.Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(result.Cards))
	}

	card := result.Cards[0]
	if card.ExplicitType != "multiple_choice" {
		t.Errorf("expected explicit type, got %q", card.ExplicitType)
	}
	if card.Question != "What is H2O?" || card.Answer != "Water" {
		t.Errorf("unexpected card content: %+v", card)
	}
	if len(card.Choices) != 4 {
		t.Errorf("expected 4 choices, got %v", card.Choices)
	}
	if len(card.CorrectIndices) != 1 || card.CorrectIndices[0] != 0 {
		t.Errorf("unexpected correct indices: %v", card.CorrectIndices)
	}
	if card.Hint != "Common molecule" {
		t.Errorf("unexpected hint: %q", card.Hint)
	}
	if len(card.Tags) != 2 {
		t.Errorf("unexpected tags: %v", card.Tags)
	}
}

func TestParser_Parse_NoDelimiterFails(t *testing.T) {
	input := "just some prose without any structure\nand another line of it"

	parser := NewParser()
	_, err := parser.Parse(input)
	if err == nil {
		t.Fatal("expected error for undetectable delimiter")
	}
}

func TestParser_Parse_EmptyContentFails(t *testing.T) {
	parser := NewParser()
	if _, err := parser.Parse("   \n  \n"); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestDetectDelimiter_Idempotent(t *testing.T) {
	lines := []string{
		"Question one\tAnswer one",
		"Question two\tAnswer two",
		"Question three\tAnswer three",
	}

	first, err := DetectDelimiter(lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := DetectDelimiter(lines)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("detection not idempotent: %q then %q", first, again)
		}
	}
}

func TestDetectDelimiter_PrefersTwoFieldSplits(t *testing.T) {
	// Semicolons split these lines into 3+ fields, tabs into exactly 2.
	lines := []string{
		"a;b;c\td;e;f",
		"g;h;i\tj;k;l",
	}

	delimiter, err := DetectDelimiter(lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delimiter != "\t" {
		t.Errorf("expected tab, got %q", delimiter)
	}
}
