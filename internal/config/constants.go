package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./flashdeck.db"

	// DefaultMaxTextCards caps how many cards one text import may contain
	DefaultMaxTextCards = 500

	// DefaultMaxExportCards caps how many cards one CSV export may contain
	DefaultMaxExportCards = 5000

	// DefaultMaxAnkiFileSize bounds uploaded .apkg packages (100 MB)
	DefaultMaxAnkiFileSize = 100 * 1024 * 1024

	// DefaultMaxMnemosyneFileSize bounds uploaded Mnemosyne exports (10 MB)
	DefaultMaxMnemosyneFileSize = 10 * 1024 * 1024

	// DefaultSimilarityThreshold is the combined-score floor for a
	// duplicate match
	DefaultSimilarityThreshold = 0.8

	// DefaultExistingCardLimit bounds the working set of persisted cards
	// duplicate detection compares against, newest first
	DefaultExistingCardLimit = 1000
)
