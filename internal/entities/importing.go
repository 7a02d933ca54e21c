package entities

// RawCard is the source-independent tuple produced by the text parser and
// the package extractors, before classification. It is treated as
// immutable: the classifier builds a Card from it rather than mutating it.
type RawCard struct {
	Question string
	Answer   string
	Hint     string
	Tags     []string

	// ExplicitType carries a caller-declared card type, e.g. the first
	// column of an extended CSV row. Empty when the type must be inferred.
	ExplicitType string

	// Pre-parsed choice data from sources that provide it directly.
	Choices        []string
	CorrectIndices []int

	// Difficulty is set by sources that carry a rating (Mnemosyne).
	// Empty means "let the importer default it".
	Difficulty Difficulty

	// Raw rendered output from template-based sources (Anki), retained
	// for analytics alongside the stripped question/answer.
	RawQuestion string
	RawAnswer   string

	// MediaRefs lists media filenames referenced by the card content.
	MediaRefs []string
}
