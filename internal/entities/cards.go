package entities

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type CardType string

const (
	CardTypeBasic          CardType = "basic"
	CardTypeCloze          CardType = "cloze"
	CardTypeTrueFalse      CardType = "true_false"
	CardTypeMultipleChoice CardType = "multiple_choice"
	CardTypeImageOcclusion CardType = "image_occlusion"
)

// KnownCardTypes lists every card type accepted from external input,
// e.g. the explicit type column of an extended CSV row.
var KnownCardTypes = []CardType{
	CardTypeBasic,
	CardTypeCloze,
	CardTypeTrueFalse,
	CardTypeMultipleChoice,
	CardTypeImageOcclusion,
}

func IsKnownCardType(s string) bool {
	for _, t := range KnownCardTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func IsValidDifficulty(d Difficulty) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

type ImportStatus string

const (
	ImportStatusPending   ImportStatus = "pending"
	ImportStatusRunning   ImportStatus = "running"
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// Unit is the study-unit scope that cards belong to. All duplicate
// detection and listing is performed within a single unit.
type Unit struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	Name        string         `gorm:"index;size:256" json:"name"`
	Subject     string         `gorm:"size:100" json:"subject,omitempty"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Cards       []Card         `gorm:"foreignKey:UnitID" json:"cards,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Region is a rectangular occlusion area on an image-occlusion card.
// Coordinates are fractions of the image dimensions (0.0-1.0).
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Label  string  `json:"label,omitempty"`
}

// Card is a persisted flashcard. Type-specific payloads (choices, cloze
// answers, occlusion regions) are stored as JSON text columns; exactly one
// of them is populated, determined by Type.
type Card struct {
	ID     uint     `gorm:"primaryKey" json:"id"`
	UnitID uint     `gorm:"index" json:"unit_id"`
	UserID uint     `gorm:"index" json:"user_id"`
	Type   CardType `gorm:"size:20;default:'basic'" json:"type"`

	Question string `gorm:"type:text" json:"question"`
	Answer   string `gorm:"type:text" json:"answer"`
	Hint     string `gorm:"type:text" json:"hint,omitempty"`

	// Multiple choice / true-false payload
	Choices        string `gorm:"type:text" json:"choices,omitempty"`         // JSON array of strings
	CorrectIndices string `gorm:"type:text" json:"correct_indices,omitempty"` // JSON array of ints

	// Cloze payload
	ClozeText    string `gorm:"type:text" json:"cloze_text,omitempty"`
	ClozeAnswers string `gorm:"type:text" json:"cloze_answers,omitempty"` // JSON array of strings

	// Image occlusion payload
	QuestionImageURL string `gorm:"size:2048" json:"question_image_url,omitempty"`
	AnswerImageURL   string `gorm:"size:2048" json:"answer_image_url,omitempty"`
	OcclusionRegions string `gorm:"type:text" json:"occlusion_regions,omitempty"` // JSON array of Region

	// Raw rendered source output, kept for analytics
	RawQuestion string `gorm:"type:text" json:"-"`
	RawAnswer   string `gorm:"type:text" json:"-"`

	Difficulty   Difficulty `gorm:"size:10;default:'medium'" json:"difficulty"`
	ImportSource string     `gorm:"size:50" json:"import_source,omitempty"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`

	Unit Unit  `gorm:"foreignKey:UnitID" json:"-"`
	Tags []Tag `gorm:"many2many:card_tags;" json:"tags,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// ChoiceList decodes the JSON choices column.
func (c *Card) ChoiceList() []string {
	return decodeStringList(c.Choices)
}

// SetChoiceList encodes choices into the JSON column.
func (c *Card) SetChoiceList(choices []string) {
	c.Choices = encodeJSON(choices)
}

// CorrectIndexList decodes the JSON correct-indices column.
func (c *Card) CorrectIndexList() []int {
	if c.CorrectIndices == "" {
		return nil
	}
	var out []int
	if err := json.Unmarshal([]byte(c.CorrectIndices), &out); err != nil {
		return nil
	}
	return out
}

// SetCorrectIndexList encodes correct indices into the JSON column.
func (c *Card) SetCorrectIndexList(indices []int) {
	c.CorrectIndices = encodeJSON(indices)
}

// ClozeAnswerList decodes the JSON cloze-answers column.
func (c *Card) ClozeAnswerList() []string {
	return decodeStringList(c.ClozeAnswers)
}

// SetClozeAnswerList encodes cloze answers into the JSON column.
func (c *Card) SetClozeAnswerList(answers []string) {
	c.ClozeAnswers = encodeJSON(answers)
}

// RegionList decodes the JSON occlusion-regions column.
func (c *Card) RegionList() []Region {
	if c.OcclusionRegions == "" {
		return nil
	}
	var out []Region
	if err := json.Unmarshal([]byte(c.OcclusionRegions), &out); err != nil {
		return nil
	}
	return out
}

// SetRegionList encodes occlusion regions into the JSON column.
func (c *Card) SetRegionList(regions []Region) {
	c.OcclusionRegions = encodeJSON(regions)
}

// TagNames returns the names of all attached tags.
func (c *Card) TagNames() []string {
	names := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		names = append(names, t.Name)
	}
	return names
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Name      string    `gorm:"index;size:100" json:"name"`
	Cards     []Card    `gorm:"many2many:card_tags;" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportSession records one import batch: where it came from, how many
// cards made it in, and a JSON list of row errors.
type ImportSession struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	UserID         uint         `gorm:"index" json:"user_id"`
	UnitID         uint         `gorm:"index" json:"unit_id"`
	Source         string       `gorm:"size:50" json:"source"` // e.g. "text", "anki", "mnemosyne"
	Status         ImportStatus `gorm:"size:20;default:'pending'" json:"status"`
	CardsProcessed int          `json:"cards_processed"`
	CardsCreated   int          `json:"cards_created"`
	CardsFailed    int          `json:"cards_failed"`
	Errors         string       `gorm:"type:text" json:"errors,omitempty"` // JSON array of errors
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// MediaFile tracks a media asset extracted from a package import,
// content-addressed by filename within its unit.
type MediaFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UnitID       uint      `gorm:"index" json:"unit_id"`
	Filename     string    `gorm:"index;size:512" json:"filename"`
	OriginalName string    `gorm:"size:512" json:"original_name,omitempty"`
	ContentType  string    `gorm:"size:100" json:"content_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Unit) TableName() string {
	return "units"
}

func (Card) TableName() string {
	return "cards"
}

func (Tag) TableName() string {
	return "tags"
}

func (ImportSession) TableName() string {
	return "import_sessions"
}

func (MediaFile) TableName() string {
	return "media_files"
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
