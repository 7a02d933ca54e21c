package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/schoolbox/flashdeck/internal/dedup"
	"github.com/schoolbox/flashdeck/internal/entities"
)

const (
	// maxFieldLen bounds question and answer length, matching the TEXT
	// column capacity we rely on.
	maxFieldLen = 65535

	maxTagsPerCard = 50
	maxTagLen      = 50

	// maxRecordedErrors caps the error list stored per batch so a
	// pathological file cannot bloat the session row.
	maxRecordedErrors = 50
)

// ImportOptions scope one import batch. An empty Strategy means the
// batch pauses on duplicates: unique cards are imported and the matches
// are returned for the caller to resolve.
type ImportOptions struct {
	UnitID   uint
	UserID   uint
	Source   string
	Strategy dedup.Action
}

// Resolution is a caller-chosen outcome for one duplicate card.
type Resolution struct {
	Card       entities.Card
	ExistingID uint
	Action     dedup.Action
}

// ImportService runs batches of normalized cards through duplicate
// detection and persistence, recording each batch as an import session.
type ImportService struct {
	store         CardStore
	detector      *dedup.Detector
	existingLimit int
}

// NewImportService creates a new ImportService. existingLimit bounds the
// working set of persisted cards the detector compares against.
func NewImportService(store CardStore, detector *dedup.Detector, existingLimit int) *ImportService {
	return &ImportService{
		store:         store,
		detector:      detector,
		existingLimit: existingLimit,
	}
}

// ImportCards validates, deduplicates and persists a batch. With no
// strategy set, duplicates are returned unresolved alongside the import
// of the unique cards; with a strategy, it is applied to every match.
func (s *ImportService) ImportCards(cards []entities.Card, opts ImportOptions) (ImportResult, error) {
	unit, err := s.resolveUnit(opts.UnitID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to resolve unit: %w", err)
	}

	session, err := s.store.CreateImportSession(opts.UserID, unit.ID, opts.Source)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to create import session: %w", err)
	}
	session.Status = entities.ImportStatusRunning
	if err := s.store.UpdateImportSession(session); err != nil {
		return ImportResult{}, fmt.Errorf("failed to start import session: %w", err)
	}

	result := ImportResult{SessionID: session.ID, Processed: len(cards)}

	valid, rows := s.validateBatch(cards, &result)

	existing, err := s.store.GetRecentActiveCards(unit.ID, s.existingLimit)
	if err != nil {
		s.finishSession(session, &result, entities.ImportStatusFailed)
		return result, fmt.Errorf("failed to load existing cards: %w", err)
	}

	detection := s.detector.Detect(valid, existing)

	// Unique cards always go in, whatever happens to the duplicates.
	for i, card := range detection.Unique {
		row := rows[detection.UniqueIndices[i]]
		s.persistNew(card, unit.ID, opts, row, &result)
	}

	if len(detection.Duplicates) > 0 && opts.Strategy == "" {
		result.NeedsReview = true
		result.Duplicates = detection.Duplicates
		s.finishSession(session, &result, entities.ImportStatusCompleted)
		return result, nil
	}

	for _, match := range detection.Duplicates {
		card := valid[match.SourceIndex]
		row := rows[match.SourceIndex]
		s.applyAction(opts.Strategy, card, match.ExistingID, match.Kind, unit.ID, opts, row, &result)
	}

	s.finishSession(session, &result, entities.ImportStatusCompleted)
	return result, nil
}

// DetectDuplicates runs detection only, persisting nothing.
func (s *ImportService) DetectDuplicates(cards []entities.Card, unitID uint) (dedup.Detection, error) {
	unit, err := s.resolveUnit(unitID)
	if err != nil {
		return dedup.Detection{}, fmt.Errorf("failed to resolve unit: %w", err)
	}
	existing, err := s.store.GetRecentActiveCards(unit.ID, s.existingLimit)
	if err != nil {
		return dedup.Detection{}, fmt.Errorf("failed to load existing cards: %w", err)
	}
	return s.detector.Detect(cards, existing), nil
}

// ResolveDuplicates applies per-card resolutions from a paused batch.
// Each card fails independently.
func (s *ImportService) ResolveDuplicates(resolutions []Resolution, opts ImportOptions) (ImportResult, error) {
	unit, err := s.resolveUnit(opts.UnitID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to resolve unit: %w", err)
	}

	session, err := s.store.CreateImportSession(opts.UserID, unit.ID, opts.Source)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to create import session: %w", err)
	}
	session.Status = entities.ImportStatusRunning
	if err := s.store.UpdateImportSession(session); err != nil {
		return ImportResult{}, fmt.Errorf("failed to start import session: %w", err)
	}

	result := ImportResult{SessionID: session.ID, Processed: len(resolutions)}

	for i, res := range resolutions {
		row := i + 1
		if !dedup.IsValidAction(res.Action) || res.Action == dedup.ActionReview {
			s.recordError(&result, row, fmt.Sprintf("invalid action %q", res.Action))
			continue
		}
		if err := validateCard(res.Card); err != nil {
			s.recordError(&result, row, err.Error())
			continue
		}
		kind := dedup.MatchSimilarInBatch
		if res.ExistingID != 0 {
			kind = dedup.MatchSimilarExisting
		}
		s.applyAction(res.Action, res.Card, res.ExistingID, kind, unit.ID, opts, row, &result)
	}

	s.finishSession(session, &result, entities.ImportStatusCompleted)
	return result, nil
}

func (s *ImportService) resolveUnit(unitID uint) (*entities.Unit, error) {
	if unitID == 0 {
		return s.store.DefaultUnit()
	}
	return s.store.GetUnitByID(unitID)
}

// validateBatch filters out invalid cards, recording a row error for
// each. It returns the surviving cards and their original 1-based rows.
func (s *ImportService) validateBatch(cards []entities.Card, result *ImportResult) ([]entities.Card, []int) {
	valid := make([]entities.Card, 0, len(cards))
	rows := make([]int, 0, len(cards))
	for i, card := range cards {
		if err := validateCard(card); err != nil {
			s.recordError(result, i+1, err.Error())
			continue
		}
		valid = append(valid, card)
		rows = append(rows, i+1)
	}
	return valid, rows
}

func validateCard(card entities.Card) error {
	if strings.TrimSpace(card.Question) == "" {
		return fmt.Errorf("question is empty")
	}
	if strings.TrimSpace(card.Answer) == "" {
		return fmt.Errorf("answer is empty")
	}
	if len(card.Question) > maxFieldLen {
		return fmt.Errorf("question exceeds %d characters", maxFieldLen)
	}
	if len(card.Answer) > maxFieldLen {
		return fmt.Errorf("answer exceeds %d characters", maxFieldLen)
	}
	if len(card.Tags) > maxTagsPerCard {
		return fmt.Errorf("more than %d tags", maxTagsPerCard)
	}
	for _, tag := range card.Tags {
		if len(tag.Name) > maxTagLen {
			return fmt.Errorf("tag exceeds %d characters", maxTagLen)
		}
	}
	if card.Difficulty != "" && !entities.IsValidDifficulty(card.Difficulty) {
		return fmt.Errorf("unknown difficulty %q", card.Difficulty)
	}
	if card.Type != "" && !entities.IsKnownCardType(string(card.Type)) {
		return fmt.Errorf("unknown card type %q", card.Type)
	}
	return nil
}

func (s *ImportService) persistNew(card entities.Card, unitID uint, opts ImportOptions, row int, result *ImportResult) {
	card.UnitID = unitID
	card.UserID = opts.UserID
	card.ImportSource = opts.Source
	card.IsActive = true
	if card.Difficulty == "" {
		card.Difficulty = entities.DifficultyMedium
	}
	if card.Type == "" {
		card.Type = entities.CardTypeBasic
	}
	if err := s.store.CreateCard(&card); err != nil {
		s.recordError(result, row, fmt.Sprintf("failed to save card: %v", err))
		return
	}
	result.Imported++
}

// applyAction executes one resolution. Update and replace only make
// sense against a persisted card; for in-batch matches they degrade to
// skip, since the earlier copy already went in.
func (s *ImportService) applyAction(action dedup.Action, card entities.Card, existingID uint, kind dedup.MatchKind, unitID uint, opts ImportOptions, row int, result *ImportResult) {
	targetsExisting := existingID != 0 &&
		(kind == dedup.MatchExactExisting || kind == dedup.MatchSimilarExisting)

	switch action {
	case dedup.ActionSkip:
		result.Skipped++
	case dedup.ActionKeepBoth:
		s.persistNew(card, unitID, opts, row, result)
	case dedup.ActionUpdate:
		if !targetsExisting {
			result.Skipped++
			return
		}
		if err := s.store.UpdateCard(existingID, &card); err != nil {
			s.recordError(result, row, fmt.Sprintf("failed to update card %d: %v", existingID, err))
			return
		}
		result.Updated++
	case dedup.ActionReplace:
		if !targetsExisting {
			result.Skipped++
			return
		}
		card.ImportSource = opts.Source
		if err := s.store.ReplaceCard(existingID, &card); err != nil {
			s.recordError(result, row, fmt.Sprintf("failed to replace card %d: %v", existingID, err))
			return
		}
		result.Replaced++
	default:
		result.Skipped++
	}
}

func (s *ImportService) recordError(result *ImportResult, row int, message string) {
	result.Failed++
	if len(result.Errors) < maxRecordedErrors {
		result.Errors = append(result.Errors, RowError{Row: row, Message: message})
	}
}

func (s *ImportService) finishSession(session *entities.ImportSession, result *ImportResult, status entities.ImportStatus) {
	now := time.Now()
	session.Status = status
	session.CardsProcessed = result.Processed
	session.CardsCreated = result.Imported
	session.CardsFailed = result.Failed
	session.CompletedAt = &now
	if len(result.Errors) > 0 {
		if encoded, err := json.Marshal(result.Errors); err == nil {
			session.Errors = string(encoded)
		}
	}
	if err := s.store.UpdateImportSession(session); err != nil {
		// The import itself succeeded; a session bookkeeping failure is
		// not worth failing the batch over.
		log.Printf("failed to finalize import session %d: %v", session.ID, err)
	}
}
