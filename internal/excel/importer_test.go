package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/mnemos/internal/config"
	"github.com/example/mnemos/internal/database"
	"github.com/example/mnemos/pkg/models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, database.Connect(config.DatabaseConfig{Type: config.DBTypeSQLitePureGo, DSN: ":memory:"}))
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.NewUserRepository().Save(context.Background(), &models.User{ID: 1, Username: "owner"}))
}

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		column string
		want   int
	}{
		{"A", 0},
		{"b", 1},
		{"Z", 25},
		{"AA", 26},
	}
	for _, tt := range tests {
		got, err := columnIndex(tt.column)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.column)
	}

	_, err := columnIndex("1")
	assert.Error(t, err)
}

func TestImportCards_CSV(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "cards.csv")
	content := "front,back\n" +
		"Capitals\n" +
		"France,Paris\n" +
		"Spain,Madrid\n" +
		",\n" +
		"Italy,\n" +
		"Rivers\n" +
		"\"Egypt\",\"Nile\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.UserID = 1

	result, err := ImportCards(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalProcessed)
	assert.Equal(t, 2, result.SetsCreated)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "back cannot be empty")
	assert.Len(t, result.CardIDs, 3)

	set, err := database.NewFlashcardSetRepository().GetByTitle(ctx, 1, "Rivers")
	require.NoError(t, err)
	cards, err := database.NewFlashcardRepository().GetBySet(ctx, set.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Egypt", cards[0].Front)
	assert.Equal(t, "Nile", cards[0].Back)

	// a second run updates instead of duplicating
	result, err = ImportCards(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 3, result.Updated)
	assert.Equal(t, 0, result.SetsCreated)
}

func TestImportCards_Excel(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	f := excelize.NewFile()
	rows := [][]string{
		{"Question", "Answer", "Deck"},
		{"2+2", "4", "Math"},
		{"H2O", "water", ""},
		{"3*3", "9", "Math"},
	}
	for i, row := range rows {
		for j, value := range row {
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", name, value))
		}
	}
	path := filepath.Join(t.TempDir(), "cards.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.UserID = 1
	cfg.SetColumn = "C"
	cfg.SetTitle = "Science"

	result, err := ImportCards(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 2, result.SetsCreated)
	assert.Empty(t, result.Errors)

	sets, err := database.NewFlashcardSetRepository().ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, sets, 2)

	math, err := database.NewFlashcardSetRepository().GetByTitle(ctx, 1, "Math")
	require.NoError(t, err)
	cards, err := database.NewFlashcardRepository().GetBySet(ctx, math.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestImportCards_MissingFile(t *testing.T) {
	setupTestDB(t)

	cfg := DefaultImportConfig()
	cfg.FilePath = filepath.Join(t.TempDir(), "nope.xlsx")
	_, err := ImportCards(context.Background(), cfg)
	assert.Error(t, err)
}

func TestImportCards_SetTitlesAreCaseSensitive(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "cards.csv")
	content := "Spanish\nhola,hello\nspanish\nadiós,goodbye\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.UserID = 1
	cfg.StartRow = 1

	result, err := ImportCards(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SetsCreated)

	// a second run finds the same two sets
	result, err = ImportCards(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SetsCreated)
	assert.Equal(t, 2, result.Updated)

	for _, title := range []string{"Spanish", "spanish"} {
		set, err := database.NewFlashcardSetRepository().GetByTitle(ctx, 1, title)
		require.NoError(t, err)
		cards, err := database.NewFlashcardRepository().GetBySet(ctx, set.ID)
		require.NoError(t, err)
		assert.Len(t, cards, 1, title)
	}
}
