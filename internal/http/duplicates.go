package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolbox/flashdeck/internal/classify"
	"github.com/schoolbox/flashdeck/internal/dedup"
	"github.com/schoolbox/flashdeck/internal/entities"
	"github.com/schoolbox/flashdeck/internal/services"
)

// DuplicatesController exposes duplicate detection as a standalone check
// and lets clients resolve a paused batch card by card.
type DuplicatesController struct {
	service    *services.ImportService
	classifier *classify.Classifier
}

func NewDuplicatesController(service *services.ImportService) *DuplicatesController {
	return &DuplicatesController{
		service:    service,
		classifier: classify.NewClassifier(),
	}
}

// CardInput is the JSON shape of a card submitted for detection or
// resolution.
type CardInput struct {
	Type           string   `json:"type"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Hint           string   `json:"hint"`
	Tags           []string `json:"tags"`
	Difficulty     string   `json:"difficulty"`
	Choices        []string `json:"choices"`
	CorrectIndices []int    `json:"correct_indices"`
}

type DetectDuplicatesRequest struct {
	Cards  []CardInput `json:"cards" binding:"required"`
	UnitID uint        `json:"unit_id"`
}

type DetectDuplicatesResponse struct {
	Duplicates    []dedup.Match `json:"duplicates"`
	UniqueIndices []int         `json:"unique_indices"`
}

// Detect handles POST /api/import/duplicates. Nothing is persisted.
func (dc *DuplicatesController) Detect(ctx *gin.Context) {
	var req DetectDuplicatesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, "cards are required")
		return
	}

	cards := make([]entities.Card, 0, len(req.Cards))
	for _, input := range req.Cards {
		cards = append(cards, dc.toCard(input))
	}

	detection, err := dc.service.DetectDuplicates(cards, req.UnitID)
	if err != nil {
		respondInternalError(ctx, err, "duplicate detection")
		return
	}

	ctx.JSON(http.StatusOK, DetectDuplicatesResponse{
		Duplicates:    detection.Duplicates,
		UniqueIndices: detection.UniqueIndices,
	})
}

type ResolutionInput struct {
	Card       CardInput `json:"card"`
	ExistingID uint      `json:"existing_id"`
	Action     string    `json:"action" binding:"required"`
}

type ResolveDuplicatesRequest struct {
	Resolutions []ResolutionInput `json:"resolutions" binding:"required"`
	UnitID      uint              `json:"unit_id"`
	Source      string            `json:"source"`
}

// Resolve handles POST /api/import/resolve.
func (dc *DuplicatesController) Resolve(ctx *gin.Context) {
	var req ResolveDuplicatesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, "resolutions are required")
		return
	}

	source := req.Source
	if source == "" {
		source = "resolution"
	}

	resolutions := make([]services.Resolution, 0, len(req.Resolutions))
	for _, input := range req.Resolutions {
		resolutions = append(resolutions, services.Resolution{
			Card:       dc.toCard(input.Card),
			ExistingID: input.ExistingID,
			Action:     dedup.Action(input.Action),
		})
	}

	result, err := dc.service.ResolveDuplicates(resolutions, services.ImportOptions{
		UnitID: req.UnitID,
		UserID: DefaultUserID,
		Source: source,
	})
	if err != nil {
		respondInternalError(ctx, err, "duplicate resolution")
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// toCard runs the raw input through the classifier so type inference and
// per-type normalization behave exactly as in a file import.
func (dc *DuplicatesController) toCard(input CardInput) entities.Card {
	raw := entities.RawCard{
		Question:       input.Question,
		Answer:         input.Answer,
		Hint:           input.Hint,
		Tags:           input.Tags,
		ExplicitType:   input.Type,
		Choices:        input.Choices,
		CorrectIndices: input.CorrectIndices,
		Difficulty:     entities.Difficulty(input.Difficulty),
	}
	return dc.classifier.Normalize(raw)
}
