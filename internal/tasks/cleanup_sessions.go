package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// ImportSessionCleaner provides the ability to delete old import sessions.
type ImportSessionCleaner interface {
	DeleteImportSessionsOlderThan(cutoff time.Time) (int64, error)
}

// CleanupImportSessionsTask removes finished import sessions older than
// the retention period.
type CleanupImportSessionsTask struct {
	RetentionHours int `json:"retention_hours"`
}

// Config returns the queue configuration for session cleanup tasks.
func (t CleanupImportSessionsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_import_sessions",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupImportSessionsProcessor creates a processor function for
// CleanupImportSessionsTask.
func CleanupImportSessionsProcessor(cleaner ImportSessionCleaner) backlite.QueueProcessor[CleanupImportSessionsTask] {
	return func(ctx context.Context, task CleanupImportSessionsTask) error {
		if cleaner == nil {
			return fmt.Errorf("import session cleaner not configured")
		}

		retentionHours := task.RetentionHours
		if retentionHours <= 0 {
			retentionHours = 30 * 24
		}
		cutoff := time.Now().Add(-time.Duration(retentionHours) * time.Hour)

		deleted, err := cleaner.DeleteImportSessionsOlderThan(cutoff)
		if err != nil {
			return fmt.Errorf("cleanup import sessions: %w", err)
		}

		log.Printf("[queue] Cleaned up %d import sessions older than %d hours", deleted, retentionHours)
		return nil
	}
}

// NewCleanupImportSessionsQueue creates a backlite queue for session
// cleanup tasks.
func NewCleanupImportSessionsQueue(cleaner ImportSessionCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupImportSessionsProcessor(cleaner))
}
