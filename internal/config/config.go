package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Import
		Dedup
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	Import struct {
		MaxTextCards     int   // Cap on cards in one text import
		MaxExportCards   int   // Cap on cards in one CSV export
		MaxAnkiFileSize  int64 // Bytes
		MaxMnemosyneSize int64 // Bytes
		MediaDir         string
		SessionRetention time.Duration // How long finished import sessions are kept
	}

	Dedup struct {
		SimilarityThreshold float64
		ExistingCardLimit   int // Working-set cap for duplicate detection
	}

	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
		CleanupSchedule   string // Cron format: "0 3 * * *" = daily at 03:00
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Import limits
	v.SetDefault("import_max_text_cards", DefaultMaxTextCards)
	v.SetDefault("import_max_export_cards", DefaultMaxExportCards)
	v.SetDefault("import_max_anki_file_size", DefaultMaxAnkiFileSize)
	v.SetDefault("import_max_mnemosyne_file_size", DefaultMaxMnemosyneFileSize)
	v.SetDefault("import_media_dir", "./media")
	v.SetDefault("import_session_retention", "720h") // 30 days

	// Duplicate detection defaults
	v.SetDefault("dedup_similarity_threshold", DefaultSimilarityThreshold)
	v.SetDefault("dedup_existing_card_limit", DefaultExistingCardLimit)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")
	v.SetDefault("task_cleanup_schedule", "0 3 * * *")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Import: Import{
			MaxTextCards:     v.GetInt("IMPORT_MAX_TEXT_CARDS"),
			MaxExportCards:   v.GetInt("IMPORT_MAX_EXPORT_CARDS"),
			MaxAnkiFileSize:  v.GetInt64("IMPORT_MAX_ANKI_FILE_SIZE"),
			MaxMnemosyneSize: v.GetInt64("IMPORT_MAX_MNEMOSYNE_FILE_SIZE"),
			MediaDir:         v.GetString("IMPORT_MEDIA_DIR"),
			SessionRetention: v.GetDuration("IMPORT_SESSION_RETENTION"),
		},
		Dedup: Dedup{
			SimilarityThreshold: v.GetFloat64("DEDUP_SIMILARITY_THRESHOLD"),
			ExistingCardLimit:   v.GetInt("DEDUP_EXISTING_CARD_LIMIT"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
			CleanupSchedule:   v.GetString("TASK_CLEANUP_SCHEDULE"),
		},
	}
}
