package http

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/schoolbox/flashdeck/internal/classify"
	"github.com/schoolbox/flashdeck/internal/entities"
	"github.com/schoolbox/flashdeck/internal/mnemosyne"
	"github.com/schoolbox/flashdeck/internal/services"
)

// MnemosyneImportController handles uploads of Mnemosyne exports, both
// the XML format and the legacy line-delimited one.
type MnemosyneImportController struct {
	service     *services.ImportService
	extractor   *mnemosyne.Extractor
	classifier  *classify.Classifier
	maxFileSize int64
}

func NewMnemosyneImportController(service *services.ImportService, maxFileSize int64) *MnemosyneImportController {
	return &MnemosyneImportController{
		service:     service,
		extractor:   mnemosyne.NewExtractor(),
		classifier:  classify.NewClassifier(),
		maxFileSize: maxFileSize,
	}
}

type MnemosyneImportResponse struct {
	Categories    []string              `json:"categories,omitempty"`
	ExtractErrors []string              `json:"extract_errors,omitempty"`
	Result        services.ImportResult `json:"result"`
}

// Import handles POST /api/import/mnemosyne.
func (mc *MnemosyneImportController) Import(ctx *gin.Context) {
	unitID, strategy, ok := parseImportForm(ctx)
	if !ok {
		return
	}

	tempDir, err := os.MkdirTemp("", "mnemosyne-import-*")
	if err != nil {
		respondInternalError(ctx, err, "mnemosyne import")
		return
	}
	defer os.RemoveAll(tempDir)

	exportPath, err := saveUploadedFile(ctx, "file", tempDir, "export.mem", mc.maxFileSize,
		[]string{".mem", ".xml", ".txt"})
	if err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}

	extracted, err := mc.extractor.ExtractFile(exportPath)
	if err != nil {
		respondBadRequest(ctx, fmt.Sprintf("failed to extract export: %v", err))
		return
	}

	cards := make([]entities.Card, 0, len(extracted.Cards))
	for _, raw := range extracted.Cards {
		cards = append(cards, mc.classifier.Normalize(raw))
	}

	result, err := mc.service.ImportCards(cards, services.ImportOptions{
		UnitID:   unitID,
		UserID:   DefaultUserID,
		Source:   "mnemosyne",
		Strategy: strategy,
	})
	if err != nil {
		respondInternalError(ctx, err, "mnemosyne import")
		return
	}

	status := http.StatusOK
	if result.NeedsReview {
		status = http.StatusConflict
	}
	ctx.JSON(status, MnemosyneImportResponse{
		Categories:    extracted.Categories,
		ExtractErrors: extracted.Errors,
		Result:        result,
	})
}
