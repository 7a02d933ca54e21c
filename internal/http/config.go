package http

import (
	"github.com/schoolbox/flashdeck/internal/config"
	"github.com/schoolbox/flashdeck/internal/database"
	"github.com/schoolbox/flashdeck/internal/services"
	"github.com/schoolbox/flashdeck/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed to
// create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database      *database.Database
	ImportService *services.ImportService

	// Import limits and paths
	Import config.Import

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}
