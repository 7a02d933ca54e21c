package services

import (
	"github.com/schoolbox/flashdeck/internal/dedup"
	"github.com/schoolbox/flashdeck/internal/entities"
)

// CardStore is the persistence surface the import pipeline needs.
// *database.Database satisfies it.
type CardStore interface {
	DefaultUnit() (*entities.Unit, error)
	GetUnitByID(id uint) (*entities.Unit, error)
	GetRecentActiveCards(unitID uint, limit int) ([]entities.Card, error)
	CreateCard(card *entities.Card) error
	UpdateCard(id uint, updated *entities.Card) error
	ReplaceCard(id uint, replacement *entities.Card) error
	CreateImportSession(userID, unitID uint, source string) (*entities.ImportSession, error)
	UpdateImportSession(session *entities.ImportSession) error
}

// RowError ties a failure to the 1-based position of the card in the
// submitted batch.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult is the outcome of one import batch. When NeedsReview is
// set, Duplicates holds the matches awaiting a resolution; the unique
// cards have already been imported.
type ImportResult struct {
	SessionID   uint          `json:"session_id"`
	Processed   int           `json:"processed"`
	Imported    int           `json:"imported"`
	Skipped     int           `json:"skipped"`
	Updated     int           `json:"updated"`
	Replaced    int           `json:"replaced"`
	Failed      int           `json:"failed"`
	Errors      []RowError    `json:"errors,omitempty"`
	Duplicates  []dedup.Match `json:"duplicates,omitempty"`
	NeedsReview bool          `json:"needs_review"`
}
