package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schoolbox/flashdeck/internal/anki"
	"github.com/schoolbox/flashdeck/internal/classify"
	"github.com/schoolbox/flashdeck/internal/config"
	"github.com/schoolbox/flashdeck/internal/database"
	"github.com/schoolbox/flashdeck/internal/dedup"
	"github.com/schoolbox/flashdeck/internal/entities"
	"github.com/schoolbox/flashdeck/internal/mnemosyne"
	"github.com/schoolbox/flashdeck/internal/services"
	"github.com/schoolbox/flashdeck/internal/textparse"
)

// ImportCardsCommand imports flashcards from a file into the local
// database. The format is inferred from the file extension unless
// overridden with -format.
type ImportCardsCommand struct {
	FilePath     string
	DatabasePath string
	UnitName     string
	Format       string
	Strategy     string
	DryRun       bool
	Verbose      bool
}

func NewImportCardsCommand() *ImportCardsCommand {
	return &ImportCardsCommand{}
}

func (cmd *ImportCardsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the file to import (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.StringVar(&cmd.UnitName, "unit", "", "Study unit to import into (created if missing; default unit when empty)")
	fs.StringVar(&cmd.Format, "format", "auto", "Input format: auto, text, anki or mnemosyne")
	fs.StringVar(&cmd.Strategy, "strategy", "", "Duplicate strategy: skip, update, replace or keep_both (empty: report and stop)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Parse and detect duplicates without making changes")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import flashcards from delimited text, an Anki .apkg package or a\n")
		fmt.Fprintf(os.Stderr, "Mnemosyne export into a local database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Import a tab-separated card list:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file cards.tsv -unit Biology\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Import an Anki package, skipping duplicates:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file deck.apkg -strategy skip\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Preview what an import would do:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file cards.csv -dry-run\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	if cmd.Strategy != "" && !dedup.IsValidAction(dedup.Action(cmd.Strategy)) {
		return fmt.Errorf("unknown strategy %q", cmd.Strategy)
	}

	return nil
}

func (cmd *ImportCardsCommand) Run() error {
	fmt.Println("Card Import")
	fmt.Println("===========")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	if _, err := os.Stat(cmd.FilePath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", cmd.FilePath)
	}

	format := cmd.Format
	if format == "auto" || format == "" {
		format = formatFromExtension(cmd.FilePath)
	}
	fmt.Printf("File:   %s\n", cmd.FilePath)
	fmt.Printf("Format: %s\n", format)

	cards, diagnostics, err := cmd.extract(format)
	if err != nil {
		return err
	}
	if cmd.Verbose {
		for _, line := range diagnostics {
			fmt.Println(line)
		}
	}
	fmt.Printf("\nParsed %d cards\n", len(cards))

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	unitID := uint(0)
	if cmd.UnitName != "" {
		unit, err := db.GetOrCreateUnit(cmd.UnitName, 0)
		if err != nil {
			return fmt.Errorf("failed to resolve unit: %w", err)
		}
		unitID = unit.ID
	}

	service := services.NewImportService(db, dedup.NewDetector(dedup.DefaultThreshold), config.DefaultExistingCardLimit)

	if cmd.DryRun {
		return cmd.reportDetection(service, cards, unitID)
	}

	result, err := service.ImportCards(cards, services.ImportOptions{
		UnitID:   unitID,
		Source:   format,
		Strategy: dedup.Action(cmd.Strategy),
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nImported: %d\n", result.Imported)
	if result.Updated > 0 {
		fmt.Printf("Updated:  %d\n", result.Updated)
	}
	if result.Replaced > 0 {
		fmt.Printf("Replaced: %d\n", result.Replaced)
	}
	if result.Skipped > 0 {
		fmt.Printf("Skipped:  %d\n", result.Skipped)
	}
	if result.Failed > 0 {
		fmt.Printf("Failed:   %d\n", result.Failed)
		for _, rowErr := range result.Errors {
			fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Message)
		}
	}
	if result.NeedsReview {
		fmt.Printf("\n%d duplicates need review; rerun with -strategy to resolve them:\n", len(result.Duplicates))
		for _, match := range result.Duplicates {
			fmt.Printf("  card %d: %s (score %.2f, suggested %s)\n",
				match.SourceIndex+1, match.Kind, match.Score, match.SuggestedAction)
		}
	}
	return nil
}

func (cmd *ImportCardsCommand) extract(format string) ([]entities.Card, []string, error) {
	classifier := classify.NewClassifier()

	var raws []entities.RawCard
	var diagnostics []string

	switch format {
	case "text":
		content, err := os.ReadFile(cmd.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read file: %w", err)
		}
		parsed, err := textparse.NewParser().Parse(string(content))
		if err != nil {
			return nil, nil, err
		}
		raws = parsed.Cards
		diagnostics = append(diagnostics, "Delimiter: "+parsed.DelimiterName())
		diagnostics = append(diagnostics, parsed.Errors...)

	case "anki":
		extracted, err := anki.NewExtractor().ExtractFile(cmd.FilePath)
		if err != nil {
			return nil, nil, err
		}
		raws = extracted.Cards
		diagnostics = append(diagnostics, "Note types: "+strings.Join(extracted.NoteTypes, ", "))
		diagnostics = append(diagnostics, "Decks: "+strings.Join(extracted.Decks, ", "))
		diagnostics = append(diagnostics, extracted.Warnings...)

	case "mnemosyne":
		extracted, err := mnemosyne.NewExtractor().ExtractFile(cmd.FilePath)
		if err != nil {
			return nil, nil, err
		}
		raws = extracted.Cards
		if len(extracted.Categories) > 0 {
			diagnostics = append(diagnostics, "Categories: "+strings.Join(extracted.Categories, ", "))
		}
		diagnostics = append(diagnostics, extracted.Errors...)

	default:
		return nil, nil, fmt.Errorf("unknown format %q", format)
	}

	cards := make([]entities.Card, 0, len(raws))
	for _, raw := range raws {
		cards = append(cards, classifier.Normalize(raw))
	}
	return cards, diagnostics, nil
}

func (cmd *ImportCardsCommand) reportDetection(service *services.ImportService, cards []entities.Card, unitID uint) error {
	detection, err := service.DetectDuplicates(cards, unitID)
	if err != nil {
		return err
	}
	fmt.Printf("\nWould import %d unique cards\n", len(detection.Unique))
	if len(detection.Duplicates) > 0 {
		fmt.Printf("%d duplicates detected:\n", len(detection.Duplicates))
		for _, match := range detection.Duplicates {
			fmt.Printf("  card %d: %s (score %.2f, suggested %s)\n",
				match.SourceIndex+1, match.Kind, match.Score, match.SuggestedAction)
		}
	}
	return nil
}

func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".apkg", ".zip":
		return "anki"
	case ".mem", ".xml":
		return "mnemosyne"
	default:
		return "text"
	}
}
