// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/schoolbox/flashdeck/internal/tasks"
)

// CleanupScheduler enqueues the import-session cleanup task on a cron
// schedule. The task itself runs through the queue so retries and
// timeouts follow the queue configuration.
type CleanupScheduler struct {
	client    *tasks.Client
	schedule  string
	retention time.Duration

	cron       *cron.Cron
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewCleanupScheduler(client *tasks.Client, schedule string, retention time.Duration) *CleanupScheduler {
	return &CleanupScheduler{
		client:    client,
		schedule:  schedule,
		retention: retention,
		cron:      cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler. A nil task client disables it.
func (s *CleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.client == nil {
		log.Printf("Cleanup scheduler: task queue disabled, skipping")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.enqueueCleanup); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true
	log.Printf("Cleanup scheduler: started with schedule %q", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	// Release the context watcher started in Start; without this a
	// direct Stop leaves that goroutine blocked forever.
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false

	log.Printf("Cleanup scheduler: stopped")
}

func (s *CleanupScheduler) enqueueCleanup() {
	retentionHours := int(s.retention.Hours())
	_, err := s.client.Add(tasks.CleanupImportSessionsTask{RetentionHours: retentionHours}).Save()
	if err != nil {
		log.Printf("Cleanup scheduler: failed to enqueue cleanup task: %v", err)
		return
	}
	log.Printf("Cleanup scheduler: enqueued import session cleanup (retention %dh)", retentionHours)
}
