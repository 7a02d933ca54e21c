package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolbox/flashdeck/internal/classify"
	"github.com/schoolbox/flashdeck/internal/dedup"
	"github.com/schoolbox/flashdeck/internal/entities"
	"github.com/schoolbox/flashdeck/internal/services"
	"github.com/schoolbox/flashdeck/internal/textparse"
)

// TextImportController handles imports of delimited text (CSV, TSV and
// friends) posted as a JSON body.
type TextImportController struct {
	service      *services.ImportService
	parser       *textparse.Parser
	classifier   *classify.Classifier
	maxTextCards int
}

func NewTextImportController(service *services.ImportService, maxTextCards int) *TextImportController {
	return &TextImportController{
		service:      service,
		parser:       textparse.NewParser(),
		classifier:   classify.NewClassifier(),
		maxTextCards: maxTextCards,
	}
}

// TextImportRequest is the request body for a text import.
type TextImportRequest struct {
	Content  string `json:"content" binding:"required"`
	UnitID   uint   `json:"unit_id"`
	Strategy string `json:"strategy"`
}

// TextImportResponse combines parser diagnostics with the import outcome.
type TextImportResponse struct {
	Delimiter   string                `json:"delimiter"`
	ParseErrors []string              `json:"parse_errors,omitempty"`
	Result      services.ImportResult `json:"result"`
}

// Import handles POST /api/import/text.
func (tc *TextImportController) Import(ctx *gin.Context) {
	var req TextImportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, "content is required")
		return
	}

	if req.Strategy != "" && !dedup.IsValidAction(dedup.Action(req.Strategy)) {
		respondBadRequest(ctx, fmt.Sprintf("unknown strategy %q", req.Strategy))
		return
	}

	parsed, err := tc.parser.Parse(req.Content)
	if err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}

	if len(parsed.Cards) > tc.maxTextCards {
		respondBadRequest(ctx, fmt.Sprintf("too many cards: %d exceeds the limit of %d", len(parsed.Cards), tc.maxTextCards))
		return
	}

	cards := make([]entities.Card, 0, len(parsed.Cards))
	for _, raw := range parsed.Cards {
		cards = append(cards, tc.classifier.Normalize(raw))
	}

	result, err := tc.service.ImportCards(cards, services.ImportOptions{
		UnitID:   req.UnitID,
		UserID:   DefaultUserID,
		Source:   "text",
		Strategy: dedup.Action(req.Strategy),
	})
	if err != nil {
		respondInternalError(ctx, err, "text import")
		return
	}

	status := http.StatusOK
	if result.NeedsReview {
		// The batch paused: duplicates await a resolution.
		status = http.StatusConflict
	}
	ctx.JSON(status, TextImportResponse{
		Delimiter:   parsed.DelimiterName(),
		ParseErrors: parsed.Errors,
		Result:      result,
	})
}
