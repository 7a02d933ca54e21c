// Package mnemosyne extracts flashcards from Mnemosyne exports, which
// come in two shapes: an XML document of card/item elements, or the
// legacy line-delimited text format.
package mnemosyne

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/schoolbox/flashdeck/internal/entities"
	"github.com/schoolbox/flashdeck/internal/utils"
)

// Legacy delimiters, tried per line in this order.
var legacyDelimiters = []string{"\t", " | ", " - ", ";", "|"}

// Fallback for XML documents too malformed for the structured parser.
var looseCardPattern = regexp.MustCompile(`(?is)<question>(.*?)</question>\s*<answer>(.*?)</answer>`)

var questionAliases = map[string]bool{"question": true, "q": true, "front": true}
var answerAliases = map[string]bool{"answer": true, "a": true, "back": true}
var categoryAliases = map[string]bool{"cat": true, "category": true}
var difficultyAliases = map[string]bool{"difficulty": true, "grade": true, "rating": true}

// Result is the outcome of extracting one Mnemosyne export.
type Result struct {
	Cards      []entities.RawCard
	Categories []string
	Errors     []string
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFile reads and extracts a Mnemosyne export from disk.
func (e *Extractor) ExtractFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read file: %w", err)
	}
	return e.Extract(data)
}

// Extract sniffs the format and dispatches to the XML or legacy parser.
func (e *Extractor) Extract(content []byte) (Result, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return Result{}, fmt.Errorf("empty file")
	}

	if looksLikeXML(content) {
		return e.extractXML(content)
	}
	return e.extractLegacy(content)
}

// looksLikeXML sniffs for an XML prolog or a recognizable root tag.
func looksLikeXML(content []byte) bool {
	head := strings.TrimSpace(string(content[:minInt(len(content), 512)]))
	if strings.HasPrefix(head, "<?xml") {
		return true
	}
	lower := strings.ToLower(head)
	return strings.HasPrefix(lower, "<mnemosyne") ||
		strings.HasPrefix(lower, "<cards") ||
		strings.HasPrefix(lower, "<deck") ||
		strings.Contains(lower, "<card") ||
		strings.Contains(lower, "<item")
}

// extractXML walks the token stream collecting card/item elements with
// flexible field-name aliases. If the document is too broken to walk, it
// falls back to a loose regex scan.
func (e *Extractor) extractXML(content []byte) (Result, error) {
	result := Result{}
	categories := make(map[string]bool)

	decoder := xml.NewDecoder(bytes.NewReader(content))

	parsed := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structured parse failed mid-stream: try the loose scan on
			// whatever the strict parser could not handle.
			if !parsed {
				return e.extractLooseXML(content)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("stopped at malformed XML: %v", err))
			break
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		name := strings.ToLower(start.Name.Local)
		if name != "card" && name != "item" {
			continue
		}

		card, category, err := e.parseCardElement(decoder, start)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		parsed = true
		if category != "" && !categories[category] {
			categories[category] = true
			result.Categories = append(result.Categories, category)
		}
		if card.Question == "" || card.Answer == "" {
			result.Errors = append(result.Errors, "skipped card with empty question or answer")
			continue
		}
		result.Cards = append(result.Cards, card)
	}

	if !parsed && len(result.Cards) == 0 {
		return e.extractLooseXML(content)
	}
	return result, nil
}

// parseCardElement consumes one card/item element and its children.
func (e *Extractor) parseCardElement(decoder *xml.Decoder, start xml.StartElement) (entities.RawCard, string, error) {
	card := entities.RawCard{Difficulty: entities.DifficultyMedium}
	category := ""
	depth := 1
	currentField := ""

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return entities.RawCard{}, "", fmt.Errorf("malformed card element: %v", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			currentField = strings.ToLower(t.Name.Local)
		case xml.EndElement:
			depth--
			currentField = ""
		case xml.CharData:
			if currentField == "" {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch {
			case questionAliases[currentField]:
				card.Question = utils.StripHTML(text)
			case answerAliases[currentField]:
				card.Answer = utils.StripHTML(text)
			case categoryAliases[currentField]:
				category = text
				card.Tags = append(card.Tags, text)
			case difficultyAliases[currentField]:
				card.Difficulty = mapDifficulty(text)
			}
		}
	}

	return card, category, nil
}

// extractLooseXML is the regex fallback for unparseable documents.
func (e *Extractor) extractLooseXML(content []byte) (Result, error) {
	matches := looseCardPattern.FindAllStringSubmatch(string(content), -1)
	if len(matches) == 0 {
		return Result{}, fmt.Errorf("no cards found in XML content")
	}

	result := Result{}
	for _, match := range matches {
		question := utils.StripHTML(strings.TrimSpace(match[1]))
		answer := utils.StripHTML(strings.TrimSpace(match[2]))
		if question == "" || answer == "" {
			result.Errors = append(result.Errors, "skipped card with empty question or answer")
			continue
		}
		result.Cards = append(result.Cards, entities.RawCard{
			Question:   question,
			Answer:     answer,
			Difficulty: entities.DifficultyMedium,
		})
	}
	return result, nil
}

// extractLegacy handles the old line-per-card format. Each line is split
// on the first delimiter that produces at least two fields; a numeric
// third field is the 0-5 difficulty rating.
func (e *Extractor) extractLegacy(content []byte) (Result, error) {
	result := Result{}
	row := 0

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		row++

		fields := splitLegacyLine(line)
		if len(fields) < 2 {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: no delimiter found", row))
			continue
		}

		question := strings.TrimSpace(fields[0])
		answer := strings.TrimSpace(fields[1])
		if question == "" || answer == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: empty question or answer", row))
			continue
		}

		card := entities.RawCard{
			Question:   question,
			Answer:     answer,
			Difficulty: entities.DifficultyMedium,
		}
		if len(fields) >= 3 {
			card.Difficulty = mapDifficulty(strings.TrimSpace(fields[2]))
		}
		result.Cards = append(result.Cards, card)
	}

	if len(result.Cards) == 0 {
		return Result{}, fmt.Errorf("no cards found in file")
	}
	return result, nil
}

func splitLegacyLine(line string) []string {
	for _, delimiter := range legacyDelimiters {
		if strings.Contains(line, delimiter) {
			return strings.Split(line, delimiter)
		}
	}
	return []string{line}
}

// mapDifficulty converts Mnemosyne's 0-5 rating to our three levels.
// Anything non-numeric defaults to medium.
func mapDifficulty(raw string) entities.Difficulty {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return entities.DifficultyMedium
	}
	switch {
	case n <= 1:
		return entities.DifficultyEasy
	case n <= 3:
		return entities.DifficultyMedium
	default:
		return entities.DifficultyHard
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
