package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/mnemos/internal/database"
	"github.com/example/mnemos/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	UserID      int64  // Owner of the imported sets
	SetTitle    string // Set used for rows without a set column / header
	FrontColumn string // Column with the question
	BackColumn  string // Column with the answer
	SetColumn   string // Optional column with the set title (Excel only)
	SheetName   string // Name of the sheet to import
	StartRow    int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SetTitle:    "Imported",
		FrontColumn: "A",
		BackColumn:  "B",
		SheetName:   "Sheet1",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	SetsCreated    int
	Created        int
	Updated        int
	Skipped        int
	CardIDs        []int64 // IDs of created or updated cards
	Errors         []string
}

var errEmptyRow = errors.New("empty row")

// importer carries the repositories and the set cache of one import run
type importer struct {
	cfg    ImportConfig
	sets   *database.FlashcardSetRepository
	cards  *database.FlashcardRepository
	setIDs map[string]int64
	result *ImportResult
}

// ImportCards imports flashcards from an Excel or CSV file
func ImportCards(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	if cfg.SetTitle == "" {
		cfg.SetTitle = DefaultImportConfig().SetTitle
	}
	if cfg.StartRow < 1 {
		cfg.StartRow = 1
	}

	imp := &importer{
		cfg:    cfg,
		sets:   database.NewFlashcardSetRepository(),
		cards:  database.NewFlashcardRepository(),
		setIDs: make(map[string]int64),
		result: &ImportResult{Errors: make([]string, 0)},
	}

	var err error
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		err = imp.fromCSV(ctx)
	} else {
		err = imp.fromExcel(ctx)
	}
	if err != nil {
		return nil, err
	}
	return imp.result, nil
}

// fromExcel reads rows of the configured sheet
func (imp *importer) fromExcel(ctx context.Context) error {
	f, err := excelize.OpenFile(imp.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := imp.cfg.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to get rows: %w", err)
	}

	frontIdx, err := columnIndex(imp.cfg.FrontColumn)
	if err != nil {
		return err
	}
	backIdx, err := columnIndex(imp.cfg.BackColumn)
	if err != nil {
		return err
	}
	setIdx := -1
	if imp.cfg.SetColumn != "" {
		if setIdx, err = columnIndex(imp.cfg.SetColumn); err != nil {
			return err
		}
	}

	for i, row := range rows {
		if i < imp.cfg.StartRow-1 {
			continue
		}
		setTitle := cell(row, setIdx)
		if setTitle == "" {
			setTitle = imp.cfg.SetTitle
		}
		imp.process(ctx, i+1, cell(row, frontIdx), cell(row, backIdx), setTitle)
	}
	return nil
}

// fromCSV reads "front,back" records. A record with a single field
// starts a new set with that title.
func (imp *importer) fromCSV(ctx context.Context) error {
	file, err := os.Open(imp.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	rowNum := 0
	currentSet := imp.cfg.SetTitle

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error reading CSV: %w", err)
		}

		rowNum++
		if rowNum < imp.cfg.StartRow {
			continue
		}

		if title := cell(row, 0); len(row) == 1 && title != "" {
			currentSet = title
			continue
		}

		imp.process(ctx, rowNum, cell(row, 0), cell(row, 1), currentSet)
	}
	return nil
}

func (imp *importer) process(ctx context.Context, rowNum int, front, back, setTitle string) {
	imp.result.TotalProcessed++

	if err := imp.saveCard(ctx, front, back, setTitle); err != nil {
		if errors.Is(err, errEmptyRow) {
			imp.result.Skipped++
			return
		}
		imp.result.Errors = append(imp.result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
	}
}

func (imp *importer) saveCard(ctx context.Context, front, back, setTitle string) error {
	if front == "" && back == "" {
		return errEmptyRow
	}
	if front == "" {
		return errors.New("front cannot be empty")
	}
	if back == "" {
		return errors.New("back cannot be empty")
	}

	setID, err := imp.setID(ctx, setTitle)
	if err != nil {
		return err
	}

	card := &models.Flashcard{SetID: setID, Front: front, Back: back}
	created, err := imp.cards.Upsert(ctx, card)
	if err != nil {
		return err
	}
	if created {
		imp.result.Created++
	} else {
		imp.result.Updated++
	}
	imp.result.CardIDs = append(imp.result.CardIDs, card.ID)
	return nil
}

// setID gets a set by title or creates it. Titles are case-sensitive, as
// in the database.
func (imp *importer) setID(ctx context.Context, title string) (int64, error) {
	if id, ok := imp.setIDs[title]; ok {
		return id, nil
	}

	set := &models.FlashcardSet{Title: title, CreatedBy: imp.cfg.UserID}
	created, err := imp.sets.GetOrCreate(ctx, set)
	if err != nil {
		return 0, fmt.Errorf("failed to process set %q: %w", title, err)
	}
	if created {
		imp.result.SetsCreated++
	}
	imp.setIDs[title] = set.ID
	return set.ID, nil
}

// columnIndex converts an Excel column name ("A", "AB") to a zero-based index
func columnIndex(column string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.ToUpper(column))
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", column, err)
	}
	return n - 1, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.Trim(strings.TrimSpace(row[idx]), "\"")
}
