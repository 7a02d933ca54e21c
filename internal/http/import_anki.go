package http

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolbox/flashdeck/internal/anki"
	"github.com/schoolbox/flashdeck/internal/classify"
	"github.com/schoolbox/flashdeck/internal/dedup"
	"github.com/schoolbox/flashdeck/internal/entities"
	"github.com/schoolbox/flashdeck/internal/services"
)

// MediaStore records media assets discovered during package imports.
type MediaStore interface {
	DefaultUnit() (*entities.Unit, error)
	GetUnitByID(id uint) (*entities.Unit, error)
	SaveMediaFile(media *entities.MediaFile) error
}

// AnkiImportController handles uploads of .apkg packages.
type AnkiImportController struct {
	service     *services.ImportService
	media       MediaStore
	extractor   *anki.Extractor
	classifier  *classify.Classifier
	maxFileSize int64
}

func NewAnkiImportController(service *services.ImportService, media MediaStore, maxFileSize int64) *AnkiImportController {
	return &AnkiImportController{
		service:     service,
		media:       media,
		extractor:   anki.NewExtractor(),
		classifier:  classify.NewClassifier(),
		maxFileSize: maxFileSize,
	}
}

// AnkiImportResponse reports both what the package contained and what the
// import did with it.
type AnkiImportResponse struct {
	NoteTypes  []string              `json:"note_types,omitempty"`
	Decks      []string              `json:"decks,omitempty"`
	MediaFiles int                   `json:"media_files"`
	Warnings   []string              `json:"warnings,omitempty"`
	Result     services.ImportResult `json:"result"`
}

// Import handles POST /api/import/anki. The package is a multipart
// upload under the "file" field; unit_id and strategy ride along as form
// values.
func (ac *AnkiImportController) Import(ctx *gin.Context) {
	unitID, strategy, ok := parseImportForm(ctx)
	if !ok {
		return
	}

	tempDir, err := os.MkdirTemp("", "anki-import-*")
	if err != nil {
		respondInternalError(ctx, err, "anki import")
		return
	}
	defer os.RemoveAll(tempDir)

	packagePath, err := saveUploadedFile(ctx, "file", tempDir, "package.apkg", ac.maxFileSize, []string{".apkg", ".zip"})
	if err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}

	extracted, err := ac.extractor.ExtractFile(packagePath)
	if err != nil {
		respondBadRequest(ctx, fmt.Sprintf("failed to extract package: %v", err))
		return
	}
	if len(extracted.Cards) == 0 {
		respondBadRequest(ctx, "no cards found in package")
		return
	}

	cards := make([]entities.Card, 0, len(extracted.Cards))
	for _, raw := range extracted.Cards {
		cards = append(cards, ac.classifier.Normalize(raw))
	}

	result, err := ac.service.ImportCards(cards, services.ImportOptions{
		UnitID:   unitID,
		UserID:   DefaultUserID,
		Source:   "anki",
		Strategy: strategy,
	})
	if err != nil {
		respondInternalError(ctx, err, "anki import")
		return
	}

	if err := ac.recordMedia(unitID, extracted.MediaFiles); err != nil {
		extracted.Warnings = append(extracted.Warnings, fmt.Sprintf("failed to record media files: %v", err))
	}

	status := http.StatusOK
	if result.NeedsReview {
		status = http.StatusConflict
	}
	ctx.JSON(status, AnkiImportResponse{
		NoteTypes:  extracted.NoteTypes,
		Decks:      extracted.Decks,
		MediaFiles: len(extracted.MediaFiles),
		Warnings:   extracted.Warnings,
		Result:     result,
	})
}

func (ac *AnkiImportController) recordMedia(unitID uint, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}
	unit, err := ac.resolveUnit(unitID)
	if err != nil {
		return err
	}
	for _, name := range filenames {
		media := &entities.MediaFile{
			UnitID:       unit.ID,
			Filename:     name,
			OriginalName: name,
		}
		if err := ac.media.SaveMediaFile(media); err != nil {
			return err
		}
	}
	return nil
}

func (ac *AnkiImportController) resolveUnit(unitID uint) (*entities.Unit, error) {
	if unitID == 0 {
		return ac.media.DefaultUnit()
	}
	return ac.media.GetUnitByID(unitID)
}

// parseImportForm reads the shared unit_id and strategy form fields.
func parseImportForm(ctx *gin.Context) (uint, dedup.Action, bool) {
	var unitID uint
	if raw := ctx.PostForm("unit_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(ctx, "invalid unit_id")
			return 0, "", false
		}
		unitID = uint(parsed)
	}

	strategy := dedup.Action(ctx.PostForm("strategy"))
	if strategy != "" && !dedup.IsValidAction(strategy) {
		respondBadRequest(ctx, fmt.Sprintf("unknown strategy %q", strategy))
		return 0, "", false
	}
	return unitID, strategy, true
}

// saveUploadedFile copies a multipart upload into tempDir, enforcing the
// size limit and allowed extensions.
func saveUploadedFile(ctx *gin.Context, fieldName, tempDir, filename string, maxSize int64, allowedExts []string) (string, error) {
	file, header, err := ctx.Request.FormFile(fieldName)
	if err != nil {
		return "", fmt.Errorf("file not provided")
	}
	defer file.Close()

	if header.Size > maxSize {
		return "", fmt.Errorf("file too large (max %d MB)", maxSize/(1024*1024))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !extAllowed(ext, allowedExts) {
		return "", fmt.Errorf("invalid file type %q: expected one of %s", ext, strings.Join(allowedExts, ", "))
	}

	destPath := filepath.Join(tempDir, filename)
	destFile, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file")
	}
	defer destFile.Close()

	limitedReader := io.LimitReader(file, maxSize+1)
	written, err := io.Copy(destFile, limitedReader)
	if err != nil {
		return "", fmt.Errorf("failed to save file")
	}
	if written > maxSize {
		return "", fmt.Errorf("file too large (max %d MB)", maxSize/(1024*1024))
	}

	return destPath, nil
}

func extAllowed(ext string, allowed []string) bool {
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}
