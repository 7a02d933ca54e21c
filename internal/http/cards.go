package http

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolbox/flashdeck/internal/database"
	"github.com/schoolbox/flashdeck/internal/entities"
)

// CardsController serves card listings and CSV exports per unit.
type CardsController struct {
	db             *database.Database
	maxExportCards int
}

func NewCardsController(db *database.Database, maxExportCards int) *CardsController {
	return &CardsController{
		db:             db,
		maxExportCards: maxExportCards,
	}
}

// ListUnits handles GET /api/units.
func (cc *CardsController) ListUnits(c *gin.Context) {
	units, err := cc.db.GetAllUnits()
	if err != nil {
		respondInternalError(c, err, "list units")
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units, "count": len(units)})
}

// ListCards handles GET /api/units/:id/cards with limit/offset paging.
func (cc *CardsController) ListCards(c *gin.Context) {
	unitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := cc.db.GetUnitByID(unitID); err != nil {
		respondNotFound(c, "unit")
		return
	}

	limit, offset := parsePagination(c, 50, 500)

	cards, err := cc.db.GetCardsForUnit(unitID)
	if err != nil {
		respondInternalError(c, err, "list cards")
		return
	}
	total := int64(len(cards))

	end := offset + limit
	if offset > len(cards) {
		offset = len(cards)
	}
	if end > len(cards) {
		end = len(cards)
	}
	page := cards[offset:end]

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    page,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(end) < total,
	})
}

// ExportCSV handles GET /api/units/:id/export. The output uses the
// extended row form so it can be re-imported as is.
func (cc *CardsController) ExportCSV(c *gin.Context) {
	unitID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	unit, err := cc.db.GetUnitByID(unitID)
	if err != nil {
		respondNotFound(c, "unit")
		return
	}

	cards, err := cc.db.GetCardsForUnit(unitID)
	if err != nil {
		respondInternalError(c, err, "export cards")
		return
	}
	if len(cards) > cc.maxExportCards {
		respondBadRequest(c, fmt.Sprintf("unit has %d cards, export limit is %d", len(cards), cc.maxExportCards))
		return
	}

	filename := strings.ReplaceAll(strings.ToLower(unit.Name), " ", "-") + "-cards.csv"
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write([]string{"type", "question", "answer", "hint", "difficulty", "tags"})
	for _, card := range cards {
		_ = writer.Write(exportRow(card))
	}
	writer.Flush()
}

func exportRow(card entities.Card) []string {
	return []string{
		string(card.Type),
		card.Question,
		card.Answer,
		card.Hint,
		string(card.Difficulty),
		strings.Join(card.TagNames(), ";"),
	}
}

// Stats handles GET /api/stats.
func (cc *CardsController) Stats(c *gin.Context) {
	totalUnits, totalCards, err := cc.db.GetStats()
	if err != nil {
		respondInternalError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_units": totalUnits,
		"total_cards": totalCards,
	})
}

// ListImportSessions handles GET /api/import/sessions.
func (cc *CardsController) ListImportSessions(c *gin.Context) {
	sessions, err := cc.db.GetImportSessionsForUser(DefaultUserID)
	if err != nil {
		respondInternalError(c, err, "list import sessions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}
