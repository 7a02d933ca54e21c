package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/schoolbox/flashdeck/internal/entities"
)

const defaultUnitName = "General"

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.Unit{},
		&entities.Card{},
		&entities.Tag{},
		&entities.ImportSession{},
		&entities.MediaFile{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	// Seed the catch-all unit for imports that do not target one
	if err := database.seedDefaultUnit(); err != nil {
		return nil, fmt.Errorf("failed to seed default unit: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedDefaultUnit() error {
	var existing entities.Unit
	result := d.DB.Where("name = ?", defaultUnitName).First(&existing)
	if result.Error == gorm.ErrRecordNotFound {
		unit := entities.Unit{Name: defaultUnitName, Description: "Default study unit"}
		if err := d.DB.Create(&unit).Error; err != nil {
			return fmt.Errorf("failed to create unit %s: %w", unit.Name, err)
		}
		log.Printf("Created unit: %s", unit.Name)
	}
	return nil
}

// --- Units ---

func (d *Database) CreateUnit(unit *entities.Unit) error {
	return d.DB.Create(unit).Error
}

func (d *Database) GetUnitByID(id uint) (*entities.Unit, error) {
	var unit entities.Unit
	err := d.DB.First(&unit, id).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (d *Database) GetUnitByName(name string) (*entities.Unit, error) {
	var unit entities.Unit
	err := d.DB.Where("name = ?", name).First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// GetOrCreateUnit resolves a unit by name for a user, creating it on first use.
func (d *Database) GetOrCreateUnit(name string, userID uint) (*entities.Unit, error) {
	var unit entities.Unit
	err := d.DB.Where("name = ? AND user_id = ?", name, userID).First(&unit).Error
	if err == gorm.ErrRecordNotFound {
		unit = entities.Unit{Name: name, UserID: userID}
		if err := d.DB.Create(&unit).Error; err != nil {
			return nil, err
		}
		return &unit, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// DefaultUnit returns the seeded catch-all unit.
func (d *Database) DefaultUnit() (*entities.Unit, error) {
	return d.GetUnitByName(defaultUnitName)
}

func (d *Database) GetAllUnits() ([]entities.Unit, error) {
	var units []entities.Unit
	err := d.DB.Order("name ASC").Find(&units).Error
	return units, err
}

func (d *Database) DeleteUnit(id uint) error {
	return d.DB.Delete(&entities.Unit{}, id).Error
}

// --- Cards ---

// CreateCard persists a card, resolving its tags by name so repeated
// imports reuse existing tag rows instead of duplicating them.
func (d *Database) CreateCard(card *entities.Card) error {
	resolved, err := d.resolveTags(card.Tags, card.UserID)
	if err != nil {
		return err
	}
	card.Tags = resolved
	return d.DB.Omit("Unit").Create(card).Error
}

// UpdateCard overwrites the stored card's content fields and unions the
// tag sets. Identity fields (unit, user, timestamps) are left alone.
func (d *Database) UpdateCard(id uint, updated *entities.Card) error {
	var card entities.Card
	if err := d.DB.Preload("Tags").First(&card, id).Error; err != nil {
		return err
	}

	card.Type = updated.Type
	card.Question = updated.Question
	card.Answer = updated.Answer
	card.Hint = updated.Hint
	card.Choices = updated.Choices
	card.CorrectIndices = updated.CorrectIndices
	card.ClozeText = updated.ClozeText
	card.ClozeAnswers = updated.ClozeAnswers
	card.QuestionImageURL = updated.QuestionImageURL
	card.AnswerImageURL = updated.AnswerImageURL
	card.OcclusionRegions = updated.OcclusionRegions
	card.RawQuestion = updated.RawQuestion
	card.RawAnswer = updated.RawAnswer
	card.Difficulty = updated.Difficulty

	merged, err := d.mergeTags(card.Tags, updated.Tags, card.UserID)
	if err != nil {
		return err
	}

	if err := d.DB.Omit("Unit", "Tags").Save(&card).Error; err != nil {
		return err
	}
	return d.DB.Model(&card).Association("Tags").Replace(merged)
}

// ReplaceCard swaps the stored card's content and tags wholesale for the
// incoming card's, keeping only the row identity and unit ownership.
func (d *Database) ReplaceCard(id uint, replacement *entities.Card) error {
	var card entities.Card
	if err := d.DB.First(&card, id).Error; err != nil {
		return err
	}

	resolved, err := d.resolveTags(replacement.Tags, card.UserID)
	if err != nil {
		return err
	}

	card.Type = replacement.Type
	card.Question = replacement.Question
	card.Answer = replacement.Answer
	card.Hint = replacement.Hint
	card.Choices = replacement.Choices
	card.CorrectIndices = replacement.CorrectIndices
	card.ClozeText = replacement.ClozeText
	card.ClozeAnswers = replacement.ClozeAnswers
	card.QuestionImageURL = replacement.QuestionImageURL
	card.AnswerImageURL = replacement.AnswerImageURL
	card.OcclusionRegions = replacement.OcclusionRegions
	card.RawQuestion = replacement.RawQuestion
	card.RawAnswer = replacement.RawAnswer
	card.Difficulty = replacement.Difficulty
	card.ImportSource = replacement.ImportSource

	if err := d.DB.Omit("Unit", "Tags").Save(&card).Error; err != nil {
		return err
	}
	return d.DB.Model(&card).Association("Tags").Replace(resolved)
}

func (d *Database) GetCardByID(id uint) (*entities.Card, error) {
	var card entities.Card
	err := d.DB.Preload("Tags").First(&card, id).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (d *Database) GetCardsForUnit(unitID uint) ([]entities.Card, error) {
	var cards []entities.Card
	err := d.DB.Preload("Tags").Where("unit_id = ?", unitID).
		Order("created_at ASC, id ASC").Find(&cards).Error
	return cards, err
}

// GetRecentActiveCards returns up to limit active cards in a unit, newest
// first. This is the working set duplicate detection compares against.
func (d *Database) GetRecentActiveCards(unitID uint, limit int) ([]entities.Card, error) {
	var cards []entities.Card
	query := d.DB.Where("unit_id = ? AND is_active = ?", unitID, true).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&cards).Error
	return cards, err
}

func (d *Database) CountCardsForUnit(unitID uint) (int64, error) {
	var count int64
	err := d.DB.Model(&entities.Card{}).Where("unit_id = ?", unitID).Count(&count).Error
	return count, err
}

func (d *Database) DeleteCard(id uint) error {
	return d.DB.Delete(&entities.Card{}, id).Error
}

// --- Tags ---

func (d *Database) GetOrCreateTag(name string, userID uint) (*entities.Tag, error) {
	var tag entities.Tag
	err := d.DB.Where("name = ? AND user_id = ?", name, userID).First(&tag).Error
	if err == gorm.ErrRecordNotFound {
		tag = entities.Tag{Name: name, UserID: userID}
		if err := d.DB.Create(&tag).Error; err != nil {
			return nil, err
		}
		return &tag, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (d *Database) GetTagsForUser(userID uint) ([]entities.Tag, error) {
	var tags []entities.Tag
	err := d.DB.Where("user_id = ?", userID).Order("name ASC").Find(&tags).Error
	return tags, err
}

// resolveTags maps loose tag values (usually name-only, from a parser) to
// persisted rows.
func (d *Database) resolveTags(tags []entities.Tag, userID uint) ([]entities.Tag, error) {
	resolved := make([]entities.Tag, 0, len(tags))
	seen := make(map[string]bool)
	for _, t := range tags {
		if t.Name == "" || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		tag, err := d.GetOrCreateTag(t.Name, userID)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, *tag)
	}
	return resolved, nil
}

func (d *Database) mergeTags(current, incoming []entities.Tag, userID uint) ([]entities.Tag, error) {
	resolved, err := d.resolveTags(incoming, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool)
	merged := make([]entities.Tag, 0, len(current)+len(resolved))
	for _, t := range current {
		if !seen[t.ID] {
			seen[t.ID] = true
			merged = append(merged, t)
		}
	}
	for _, t := range resolved {
		if !seen[t.ID] {
			seen[t.ID] = true
			merged = append(merged, t)
		}
	}
	return merged, nil
}

// --- Import sessions ---

func (d *Database) CreateImportSession(userID, unitID uint, source string) (*entities.ImportSession, error) {
	session := &entities.ImportSession{
		UserID:    userID,
		UnitID:    unitID,
		Source:    source,
		Status:    entities.ImportStatusPending,
		StartedAt: time.Now(),
	}
	if err := d.DB.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (d *Database) UpdateImportSession(session *entities.ImportSession) error {
	return d.DB.Save(session).Error
}

func (d *Database) GetImportSession(id uint) (*entities.ImportSession, error) {
	var session entities.ImportSession
	err := d.DB.First(&session, id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *Database) GetImportSessionsForUser(userID uint) ([]entities.ImportSession, error) {
	var sessions []entities.ImportSession
	err := d.DB.Where("user_id = ?", userID).Order("started_at DESC").Find(&sessions).Error
	return sessions, err
}

// DeleteImportSessionsOlderThan removes finished sessions that started
// before the cutoff. Used by the periodic cleanup task.
func (d *Database) DeleteImportSessionsOlderThan(cutoff time.Time) (int64, error) {
	result := d.DB.Where("started_at < ? AND status IN ?", cutoff,
		[]entities.ImportStatus{entities.ImportStatusCompleted, entities.ImportStatusFailed}).
		Delete(&entities.ImportSession{})
	return result.RowsAffected, result.Error
}

// --- Media files ---

func (d *Database) SaveMediaFile(media *entities.MediaFile) error {
	var existing entities.MediaFile
	err := d.DB.Where("unit_id = ? AND filename = ?", media.UnitID, media.Filename).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return d.DB.Create(media).Error
	}
	if err != nil {
		return err
	}
	media.ID = existing.ID
	return d.DB.Save(media).Error
}

func (d *Database) GetMediaFilesForUnit(unitID uint) ([]entities.MediaFile, error) {
	var files []entities.MediaFile
	err := d.DB.Where("unit_id = ?", unitID).Order("filename ASC").Find(&files).Error
	return files, err
}

func (d *Database) GetStats() (totalUnits int64, totalCards int64, err error) {
	err = d.DB.Model(&entities.Unit{}).Count(&totalUnits).Error
	if err != nil {
		return
	}
	err = d.DB.Model(&entities.Card{}).Count(&totalCards).Error
	return
}
