package anki

import (
	"archive/zip"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolbox/flashdeck/internal/entities"
)

const basicModelsJSON = `{
	"1001": {
		"name": "Basic",
		"type": 0,
		"flds": [{"name": "Front", "ord": 0}, {"name": "Back", "ord": 1}],
		"tmpls": [{"name": "Card 1", "qfmt": "{{Front}}", "afmt": "{{FrontSide}}<hr id=answer>{{Back}}", "ord": 0}]
	},
	"1002": {
		"name": "Cloze",
		"type": 1,
		"flds": [{"name": "Text", "ord": 0}, {"name": "Extra", "ord": 1}],
		"tmpls": [{"name": "Cloze", "qfmt": "{{cloze:Text}}", "afmt": "{{cloze:Text}}<br>{{Extra}}", "ord": 0}]
	}
}`

const decksJSON = `{
	"1": {"name": "Default"},
	"1690000000000": {"name": "Biology::Cells"}
}`

type testNote struct {
	id     int64
	mid    int64
	fields string
	tags   string
}

type testCard struct {
	id  int64
	nid int64
	ord int
}

// buildTestPackage assembles a minimal but structurally faithful .apkg:
// a collection.anki2 database plus a media manifest, zipped together.
func buildTestPackage(t *testing.T, notes []testNote, cards []testCard, mediaManifest string) string {
	t.Helper()

	scratch := t.TempDir()
	dbPath := filepath.Join(scratch, "collection.anki2")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE col (id INTEGER PRIMARY KEY, models TEXT, decks TEXT);
		CREATE TABLE notes (id INTEGER PRIMARY KEY, mid INTEGER, flds TEXT, tags TEXT);
		CREATE TABLE cards (id INTEGER PRIMARY KEY, nid INTEGER, ord INTEGER);
	`)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO col (id, models, decks) VALUES (1, ?, ?)", basicModelsJSON, decksJSON)
	require.NoError(t, err)

	for _, n := range notes {
		_, err = db.Exec("INSERT INTO notes (id, mid, flds, tags) VALUES (?, ?, ?, ?)", n.id, n.mid, n.fields, n.tags)
		require.NoError(t, err)
	}
	for _, c := range cards {
		_, err = db.Exec("INSERT INTO cards (id, nid, ord) VALUES (?, ?, ?)", c.id, c.nid, c.ord)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	pkgPath := filepath.Join(scratch, "deck.apkg")
	pkg, err := os.Create(pkgPath)
	require.NoError(t, err)
	defer pkg.Close()

	zw := zip.NewWriter(pkg)

	dbBytes, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	w, err := zw.Create("collection.anki2")
	require.NoError(t, err)
	_, err = w.Write(dbBytes)
	require.NoError(t, err)

	if mediaManifest != "" {
		w, err = zw.Create("media")
		require.NoError(t, err)
		_, err = w.Write([]byte(mediaManifest))
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return pkgPath
}

func TestExtractor_BasicNotes(t *testing.T) {
	pkg := buildTestPackage(t,
		[]testNote{
			{id: 1, mid: 1001, fields: "What is 2+2?\x1fFour", tags: "math arithmetic"},
			{id: 2, mid: 1001, fields: "Capital of France\x1fParis", tags: ""},
		},
		[]testCard{
			{id: 10, nid: 1, ord: 0},
			{id: 11, nid: 2, ord: 0},
		},
		"")

	result, err := NewExtractor().ExtractFile(pkg)
	require.NoError(t, err)

	require.Len(t, result.Cards, 2)
	assert.Equal(t, "What is 2+2?", result.Cards[0].Question)
	assert.Equal(t, "What is 2+2?\nFour", result.Cards[0].Answer)
	assert.Equal(t, []string{"math", "arithmetic"}, result.Cards[0].Tags)
	assert.Equal(t, string(entities.CardTypeBasic), result.Cards[0].ExplicitType)

	assert.Contains(t, result.NoteTypes, "Basic")
	assert.Contains(t, result.NoteTypes, "Cloze")
	assert.Equal(t, []string{"Biology::Cells"}, result.Decks)
}

func TestExtractor_ClozeNote(t *testing.T) {
	pkg := buildTestPackage(t,
		[]testNote{
			{id: 1, mid: 1002, fields: "{{c1::Mitochondria}} produce ATP\x1fSee chapter 4", tags: ""},
		},
		[]testCard{
			{id: 10, nid: 1, ord: 0},
		},
		"")

	result, err := NewExtractor().ExtractFile(pkg)
	require.NoError(t, err)

	require.Len(t, result.Cards, 1)
	card := result.Cards[0]
	assert.Equal(t, string(entities.CardTypeCloze), card.ExplicitType)
	assert.Contains(t, card.Question, "{{c1::Mitochondria}}")
}

func TestExtractor_EmptyRenderedCardDropped(t *testing.T) {
	pkg := buildTestPackage(t,
		[]testNote{
			{id: 1, mid: 1001, fields: "\x1fOnly an answer", tags: ""},
			{id: 2, mid: 1001, fields: "Real question\x1fReal answer", tags: ""},
		},
		[]testCard{
			{id: 10, nid: 1, ord: 0},
			{id: 11, nid: 2, ord: 0},
		},
		"")

	result, err := NewExtractor().ExtractFile(pkg)
	require.NoError(t, err)

	require.Len(t, result.Cards, 1)
	assert.Equal(t, "Real question", result.Cards[0].Question)
}

func TestExtractor_MediaManifestAndRefs(t *testing.T) {
	pkg := buildTestPackage(t,
		[]testNote{
			{id: 1, mid: 1001, fields: "Label this <img src=\"heart-diagram.png\">\x1fLeft ventricle", tags: ""},
		},
		[]testCard{
			{id: 10, nid: 1, ord: 0},
		},
		`{"0": "heart-diagram.png", "1": "pronunciation.mp3"}`)

	result, err := NewExtractor().ExtractFile(pkg)
	require.NoError(t, err)

	assert.Equal(t, []string{"heart-diagram.png", "pronunciation.mp3"}, result.MediaFiles)
	require.Len(t, result.Cards, 1)
	assert.Equal(t, []string{"heart-diagram.png"}, result.Cards[0].MediaRefs)
}

func TestExtractor_CardReferencingMissingNoteWarns(t *testing.T) {
	pkg := buildTestPackage(t,
		[]testNote{
			{id: 1, mid: 1001, fields: "Q\x1fA", tags: ""},
		},
		[]testCard{
			{id: 10, nid: 1, ord: 0},
			{id: 11, nid: 999, ord: 0},
		},
		"")

	result, err := NewExtractor().ExtractFile(pkg)
	require.NoError(t, err)

	assert.Len(t, result.Cards, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "missing note")
}

func TestExtractor_NotAZipFails(t *testing.T) {
	scratch := t.TempDir()
	path := filepath.Join(scratch, "bogus.apkg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0o644))

	_, err := NewExtractor().ExtractFile(path)
	assert.Error(t, err)
}

func TestExtractor_MissingCollectionFails(t *testing.T) {
	scratch := t.TempDir()
	path := filepath.Join(scratch, "empty.apkg")

	pkg, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(pkg)
	w, err := zw.Create("media")
	require.NoError(t, err)
	_, err = w.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, pkg.Close())

	_, err = NewExtractor().ExtractFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection.anki2")
}
