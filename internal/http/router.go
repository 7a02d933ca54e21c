package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	textImporter := NewTextImportController(cfg.ImportService, cfg.Import.MaxTextCards)
	ankiImporter := NewAnkiImportController(cfg.ImportService, cfg.Database, cfg.Import.MaxAnkiFileSize)
	mnemosyneImporter := NewMnemosyneImportController(cfg.ImportService, cfg.Import.MaxMnemosyneSize)
	duplicatesController := NewDuplicatesController(cfg.ImportService)
	cardsController := NewCardsController(cfg.Database, cfg.Import.MaxExportCards)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Import endpoints
	router.POST("/api/import/text", textImporter.Import)
	router.POST("/api/import/anki", ankiImporter.Import)
	router.POST("/api/import/mnemosyne", mnemosyneImporter.Import)
	router.POST("/api/import/duplicates", duplicatesController.Detect)
	router.POST("/api/import/resolve", duplicatesController.Resolve)
	router.GET("/api/import/sessions", cardsController.ListImportSessions)

	// Unit and card endpoints
	router.GET("/api/units", cardsController.ListUnits)
	router.GET("/api/units/:id/cards", cardsController.ListCards)
	router.GET("/api/units/:id/export", cardsController.ExportCSV)
	router.GET("/api/stats", cardsController.Stats)

	// Task management endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		router.GET("/api/tasks/types", tasksController.ListTaskTypes)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
		router.POST("/api/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
