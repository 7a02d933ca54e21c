// Package textparse turns pasted or uploaded delimited text into raw
// card tuples, auto-detecting the delimiter from a sample of lines.
package textparse

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/schoolbox/flashdeck/internal/entities"
)

// Candidate delimiters, tried in this order. Ties on the detection score
// resolve to the earlier candidate.
var candidateDelimiters = []string{"\t", ",", " - ", "|", ";"}

var delimiterNames = map[string]string{
	"\t":  "tab",
	",":   "comma",
	" - ": "dash",
	"|":   "pipe",
	";":   "semicolon",
}

var tagPattern = regexp.MustCompile(`#([\w-]+)`)

const sampleSize = 5

// Result is the outcome of parsing one block of delimited text.
type Result struct {
	Delimiter string
	Cards     []entities.RawCard
	Errors    []string
}

// DelimiterName returns a human-readable name for the detected delimiter.
func (r Result) DelimiterName() string {
	if name, ok := delimiterNames[r.Delimiter]; ok {
		return name
	}
	return r.Delimiter
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse splits content into question/answer tuples. It fails only when no
// delimiter produces a valid split; individual bad lines are recorded in
// Result.Errors and skipped.
func (p *Parser) Parse(content string) (Result, error) {
	lines := strings.Split(content, "\n")

	// Line numbers in errors refer to the original input, so blank
	// lines are skipped but still counted.
	var nonEmpty []string
	var lineNums []int
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			nonEmpty = append(nonEmpty, line)
			lineNums = append(lineNums, i+1)
		}
	}
	if len(nonEmpty) == 0 {
		return Result{}, fmt.Errorf("no content to parse")
	}

	delimiter, err := DetectDelimiter(nonEmpty)
	if err != nil {
		return Result{}, err
	}

	result := Result{Delimiter: delimiter}
	for i, line := range nonEmpty {
		card, err := p.parseLine(line, delimiter)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNums[i], err))
			continue
		}
		result.Cards = append(result.Cards, card)
	}

	return result, nil
}

// DetectDelimiter samples the first min(5, N) lines and scores each
// candidate: 3 points when a line splits into exactly 2 fields, 2 points
// for 3 fields, 1 point otherwise, 0 when the line does not split. The
// highest average wins.
func DetectDelimiter(lines []string) (string, error) {
	sample := lines
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	bestDelimiter := ""
	bestScore := 0.0

	for _, delimiter := range candidateDelimiters {
		total := 0
		for _, line := range sample {
			fields := splitLine(line, delimiter)
			switch {
			case len(fields) == 2:
				total += 3
			case len(fields) == 3:
				total += 2
			case len(fields) > 3:
				total++
			}
		}
		avg := float64(total) / float64(len(sample))
		if avg > bestScore {
			bestScore = avg
			bestDelimiter = delimiter
		}
	}

	if bestDelimiter == "" {
		return "", fmt.Errorf("could not detect a delimiter: no candidate produced a valid split")
	}
	return bestDelimiter, nil
}

func (p *Parser) parseLine(line, delimiter string) (entities.RawCard, error) {
	fields := splitLine(line, delimiter)
	if len(fields) < 2 {
		return entities.RawCard{}, fmt.Errorf("expected at least 2 fields, got %d", len(fields))
	}

	tags := extractTags(line)

	// Extended form: type,question,answer,choices,correct[,hint[,tags]]
	if len(fields) >= 5 && entities.IsKnownCardType(strings.TrimSpace(fields[0])) {
		return parseExtendedRow(fields, tags)
	}

	question := cleanField(fields[0])
	answer := cleanField(fields[1])
	if question == "" {
		return entities.RawCard{}, fmt.Errorf("empty question")
	}
	if answer == "" {
		return entities.RawCard{}, fmt.Errorf("empty answer")
	}

	card := entities.RawCard{
		Question: question,
		Answer:   answer,
		Tags:     tags,
	}
	if len(fields) >= 3 {
		card.Hint = cleanField(fields[2])
	}

	return card, nil
}

func parseExtendedRow(fields []string, lineTags []string) (entities.RawCard, error) {
	card := entities.RawCard{
		ExplicitType: strings.TrimSpace(fields[0]),
		Question:     cleanField(fields[1]),
		Answer:       cleanField(fields[2]),
		Tags:         lineTags,
	}
	if card.Question == "" {
		return entities.RawCard{}, fmt.Errorf("empty question")
	}
	if card.Answer == "" {
		return entities.RawCard{}, fmt.Errorf("empty answer")
	}

	for _, choice := range strings.Split(fields[3], ";") {
		if c := strings.TrimSpace(choice); c != "" {
			card.Choices = append(card.Choices, c)
		}
	}
	for _, idx := range strings.Split(fields[4], ";") {
		if n, err := strconv.Atoi(strings.TrimSpace(idx)); err == nil {
			card.CorrectIndices = append(card.CorrectIndices, n)
		}
	}
	if len(fields) >= 6 {
		card.Hint = cleanField(fields[5])
	}
	if len(fields) >= 7 {
		for _, tag := range strings.Split(fields[6], ";") {
			if t := strings.TrimSpace(tag); t != "" {
				card.Tags = appendUniqueTag(card.Tags, t)
			}
		}
	}

	return card, nil
}

// splitLine splits one line on the delimiter. Comma-delimited lines go
// through the CSV reader so quoted fields survive embedded commas; the
// other delimiters are plain substring splits.
func splitLine(line, delimiter string) []string {
	if delimiter == "," {
		reader := csv.NewReader(strings.NewReader(line))
		reader.FieldsPerRecord = -1
		record, err := reader.Read()
		if err != nil {
			return []string{line}
		}
		return record
	}
	return strings.Split(line, delimiter)
}

// extractTags pulls #tag tokens out of the raw line, deduplicated in
// first-seen order.
func extractTags(line string) []string {
	var tags []string
	for _, match := range tagPattern.FindAllStringSubmatch(line, -1) {
		tags = appendUniqueTag(tags, match[1])
	}
	return tags
}

// cleanField trims a field and strips any inline #tag tokens.
func cleanField(field string) string {
	cleaned := tagPattern.ReplaceAllString(field, "")
	return strings.TrimSpace(cleaned)
}

func appendUniqueTag(tags []string, tag string) []string {
	for _, existing := range tags {
		if existing == tag {
			return tags
		}
	}
	return append(tags, tag)
}
