// Package anki extracts flashcards from Anki .apkg packages.
//
// An .apkg is a zip archive holding a collection.anki2 SQLite database,
// a "media" manifest mapping numeric member names to real filenames, and
// the media blobs themselves. Extraction unpacks to a scratch directory
// that is removed on every exit path.
package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/schoolbox/flashdeck/internal/entities"
	"github.com/schoolbox/flashdeck/internal/utils"
)

const (
	collectionFilename = "collection.anki2"
	mediaManifestName  = "media"

	// Anki separates note fields with the unit-separator control byte.
	fieldSeparator = "\x1f"

	// Anki model type flag for cloze note types.
	modelTypeCloze = 1
)

var (
	imgRefPattern   = regexp.MustCompile(`(?i)<img[^>]+src=["']?([^"'>\s]+)["']?`)
	soundRefPattern = regexp.MustCompile(`\[sound:([^\]]+)\]`)
	ankiClozeHint   = regexp.MustCompile(`\{\{c\d+::`)
)

// Result is the outcome of extracting one package.
type Result struct {
	Cards      []entities.RawCard
	NoteTypes  []string
	Decks      []string
	MediaFiles []string
	Warnings   []string
}

// noteType mirrors the JSON note-type definitions stored in the col row.
type noteType struct {
	Name  string `json:"name"`
	Type  int    `json:"type"`
	Flds  []struct {
		Name string `json:"name"`
		Ord  int    `json:"ord"`
	} `json:"flds"`
	Tmpls []struct {
		Name string `json:"name"`
		Qfmt string `json:"qfmt"`
		Afmt string `json:"afmt"`
		Ord  int    `json:"ord"`
	} `json:"tmpls"`
}

type deckInfo struct {
	Name string `json:"name"`
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFile unpacks an .apkg file and converts its notes and cards into
// raw tuples. Individual notes that fail to decode are skipped with a
// warning; a missing or unreadable collection database fails the whole
// extraction.
func (e *Extractor) ExtractFile(path string) (Result, error) {
	scratchDir, err := os.MkdirTemp("", "anki-import-*")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	if err := unpackArchive(path, scratchDir); err != nil {
		return Result{}, fmt.Errorf("failed to unpack package: %w", err)
	}

	collectionPath := filepath.Join(scratchDir, collectionFilename)
	if _, err := os.Stat(collectionPath); err != nil {
		return Result{}, fmt.Errorf("package has no %s database", collectionFilename)
	}

	mediaFiles := readMediaManifest(filepath.Join(scratchDir, mediaManifestName))

	result, err := e.extractCollection(collectionPath)
	if err != nil {
		return Result{}, err
	}
	result.MediaFiles = mediaFiles

	for i := range result.Cards {
		result.Cards[i].MediaRefs = matchMediaRefs(
			result.Cards[i].RawQuestion+result.Cards[i].RawAnswer, mediaFiles)
	}

	return result, nil
}

func (e *Extractor) extractCollection(path string) (Result, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return Result{}, fmt.Errorf("failed to open collection database: %w", err)
	}
	defer db.Close()

	models, decks, err := readCollectionMeta(db)
	if err != nil {
		return Result{}, err
	}

	result := Result{}
	for _, id := range sortedKeys(models) {
		result.NoteTypes = append(result.NoteTypes, models[id].Name)
	}
	for _, id := range sortedKeys(decks) {
		if name := decks[id].Name; name != "" && name != "Default" {
			result.Decks = append(result.Decks, name)
		}
	}

	notes, err := readNotes(db)
	if err != nil {
		return Result{}, err
	}

	rows, err := db.Query("SELECT nid, ord FROM cards ORDER BY id")
	if err != nil {
		return Result{}, fmt.Errorf("failed to read cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID int64
		var ord int
		if err := rows.Scan(&noteID, &ord); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("skipping unreadable card row: %v", err))
			continue
		}

		note, ok := notes[noteID]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("card references missing note %d", noteID))
			continue
		}
		model, ok := models[note.modelID]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("note %d references unknown note type %s", noteID, note.modelID))
			continue
		}

		card, ok := renderNote(model, note, ord)
		if !ok {
			// Empty question or answer after rendering: dropped silently,
			// matching Anki's own behaviour for blank cards.
			continue
		}
		result.Cards = append(result.Cards, card)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("failed to iterate cards: %w", err)
	}

	return result, nil
}

type noteRow struct {
	modelID string
	fields  []string
	tags    []string
}

func readCollectionMeta(db *sql.DB) (map[string]noteType, map[string]deckInfo, error) {
	var modelsJSON, decksJSON string
	err := db.QueryRow("SELECT models, decks FROM col LIMIT 1").Scan(&modelsJSON, &decksJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read collection metadata: %w", err)
	}

	var models map[string]noteType
	if err := json.Unmarshal([]byte(modelsJSON), &models); err != nil {
		return nil, nil, fmt.Errorf("failed to decode note types: %w", err)
	}

	var decks map[string]deckInfo
	if err := json.Unmarshal([]byte(decksJSON), &decks); err != nil {
		return nil, nil, fmt.Errorf("failed to decode decks: %w", err)
	}

	return models, decks, nil
}

func readNotes(db *sql.DB) (map[int64]noteRow, error) {
	rows, err := db.Query("SELECT id, mid, flds, tags FROM notes")
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	defer rows.Close()

	notes := make(map[int64]noteRow)
	for rows.Next() {
		var id, mid int64
		var flds, tags string
		if err := rows.Scan(&id, &mid, &flds, &tags); err != nil {
			log.Printf("Anki import: skipping unreadable note: %v", err)
			continue
		}
		notes[id] = noteRow{
			modelID: fmt.Sprintf("%d", mid),
			fields:  strings.Split(flds, fieldSeparator),
			tags:    strings.Fields(tags),
		}
	}
	return notes, rows.Err()
}

// renderNote substitutes note fields into the model's templates and
// strips the result down to a plain question/answer pair. Returns false
// when either side ends up empty.
func renderNote(model noteType, note noteRow, ord int) (entities.RawCard, bool) {
	fields := make(map[string]string)
	for _, fld := range model.Flds {
		if fld.Ord >= 0 && fld.Ord < len(note.fields) {
			fields[fld.Name] = note.fields[fld.Ord]
		}
	}

	tmpl := pickTemplate(model, ord)
	if tmpl == nil {
		return entities.RawCard{}, false
	}

	rawQuestion := ParseTemplate(tmpl.Qfmt).Render(fields)
	fields["FrontSide"] = rawQuestion
	rawAnswer := ParseTemplate(tmpl.Afmt).Render(fields)

	question := utils.StripHTML(rawQuestion)
	answer := utils.StripHTML(rawAnswer)
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return entities.RawCard{}, false
	}

	card := entities.RawCard{
		Question:     question,
		Answer:       answer,
		Tags:         note.tags,
		ExplicitType: string(inferCardType(model, note.fields)),
		RawQuestion:  rawQuestion,
		RawAnswer:    rawAnswer,
		Choices:      choiceFields(model, fields),
	}
	return card, true
}

func pickTemplate(model noteType, ord int) *struct {
	Name string `json:"name"`
	Qfmt string `json:"qfmt"`
	Afmt string `json:"afmt"`
	Ord  int    `json:"ord"`
} {
	if len(model.Tmpls) == 0 {
		return nil
	}
	// Cloze models carry a single template; the card ord selects the
	// cloze index, not the template.
	if model.Type == modelTypeCloze {
		return &model.Tmpls[0]
	}
	for i := range model.Tmpls {
		if model.Tmpls[i].Ord == ord {
			return &model.Tmpls[i]
		}
	}
	return &model.Tmpls[0]
}

// inferCardType maps an Anki note type onto our card taxonomy.
func inferCardType(model noteType, fieldValues []string) entities.CardType {
	if model.Type == modelTypeCloze {
		return entities.CardTypeCloze
	}
	if strings.Contains(strings.ToLower(model.Name), "image occlusion") {
		return entities.CardTypeImageOcclusion
	}
	for _, fld := range model.Flds {
		lower := strings.ToLower(fld.Name)
		if strings.Contains(lower, "choice") || strings.Contains(lower, "option") {
			return entities.CardTypeMultipleChoice
		}
	}
	for _, value := range fieldValues {
		if ankiClozeHint.MatchString(value) {
			return entities.CardTypeCloze
		}
	}
	return entities.CardTypeBasic
}

// choiceFields collects values of fields whose names mark them as
// answer options.
func choiceFields(model noteType, fields map[string]string) []string {
	var choices []string
	for _, fld := range model.Flds {
		lower := strings.ToLower(fld.Name)
		if !strings.Contains(lower, "choice") && !strings.Contains(lower, "option") {
			continue
		}
		if value := strings.TrimSpace(utils.StripHTML(fields[fld.Name])); value != "" {
			choices = append(choices, value)
		}
	}
	return choices
}

// readMediaManifest returns the real filenames listed in the package's
// media manifest. A missing or corrupt manifest is not fatal; the cards
// are still importable without their media.
func readMediaManifest(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest map[string]string
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Printf("Anki import: ignoring corrupt media manifest: %v", err)
		return nil
	}

	names := make([]string, 0, len(manifest))
	for _, name := range manifest {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// matchMediaRefs finds media filenames referenced by the rendered card
// content, matching by filename substring in either direction.
func matchMediaRefs(content string, mediaFiles []string) []string {
	var refs []string
	for _, match := range imgRefPattern.FindAllStringSubmatch(content, -1) {
		refs = append(refs, match[1])
	}
	for _, match := range soundRefPattern.FindAllStringSubmatch(content, -1) {
		refs = append(refs, match[1])
	}
	if len(refs) == 0 {
		return nil
	}

	var matched []string
	seen := make(map[string]bool)
	for _, media := range mediaFiles {
		for _, ref := range refs {
			if strings.Contains(ref, media) || strings.Contains(media, ref) {
				if !seen[media] {
					seen[media] = true
					matched = append(matched, media)
				}
				break
			}
		}
	}
	return matched
}

// unpackArchive extracts a zip archive into destDir. Member paths are
// flattened to their base name; .apkg archives are flat by construction.
func unpackArchive(path, destDir string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("not a valid zip archive: %w", err)
	}
	defer reader.Close()

	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}
		if err := extractMember(member, destDir); err != nil {
			return fmt.Errorf("failed to extract %s: %w", member.Name, err)
		}
	}
	return nil
}

func extractMember(member *zip.File, destDir string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	destPath := filepath.Join(destDir, filepath.Base(member.Name))
	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dest.Close()

	_, err = io.Copy(dest, src)
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
