package tasks

import "time"

// Config tunes the background queue that runs import maintenance work,
// currently just import-session pruning.
type Config struct {
	// Workers is how many queue workers run concurrently. Maintenance
	// load is light, so the default stays small. Default: 2
	Workers int

	// MaxRetries caps attempts for a failing task before it is
	// abandoned. Default: 3
	MaxRetries int

	// RetryDelay is the backoff between attempts. Default: 1m
	RetryDelay time.Duration

	// TaskTimeout bounds a single task execution. Default: 5m
	TaskTimeout time.Duration

	// ReleaseAfter returns tasks claimed by a dead worker to the
	// queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often finished task rows are swept from
	// the queue database. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long finished task rows stay visible
	// for inspection before the sweep removes them. Default: 24h
	RetentionDuration time.Duration
}

// DefaultConfig returns the queue defaults used when no overrides are
// configured.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        1 * time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
