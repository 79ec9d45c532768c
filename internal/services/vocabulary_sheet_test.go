package services

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"

	"telugulearn/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestVocabularySheet_ExportThenImport(t *testing.T) {
	words := []models.VocabularyWord{
		{Telugu: "నీరు", English: "water", Transliteration: "neeru", TimesPracticed: 4, TimesCorrect: 3, MasteryLevel: models.MasteryLearning},
		{Telugu: "పుస్తకం", English: "book", ChapterID: sql.NullInt64{Int64: 2, Valid: true}, MasteryLevel: models.MasteryNew},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteVocabularySheet(&buf, words))

	entries, rowErrors, err := ParseVocabularySheet(&buf)
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, entries, 2)
	assert.Equal(t, WordInput{Telugu: "నీరు", English: "water", Transliteration: "neeru"}, entries[0])
	assert.Equal(t, 2, entries[1].ChapterID)
}

func TestParseVocabularySheet_ReportsBadRows(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"Telugu", "English", "Transliteration", "Chapter ID"},
		{"అమ్మ", "mother", "amma", ""},
		{"", "", "", ""},
		{"నాన్న", "", "", ""},
		{"ఇల్లు", "house", "illu", "abc"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	entries, rowErrors, err := ParseVocabularySheet(&buf)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mother", entries[0].English)
	assert.Equal(t, []string{
		"row 4: telugu and english are required",
		"row 5: chapter id must be a positive number",
	}, rowErrors)
}

func TestParseVocabularySheet_RejectsNonWorkbook(t *testing.T) {
	_, _, err := ParseVocabularySheet(strings.NewReader("telugu,english\n"))
	assert.Error(t, err)
}

func TestWordInputNormalize(t *testing.T) {
	in := WordInput{Telugu: "  నీరు ", English: " water "}
	require.NoError(t, in.normalize())
	assert.Equal(t, "నీరు", in.Telugu)
	assert.Equal(t, "water", in.English)

	empty := WordInput{Telugu: " ", English: "x"}
	assert.Error(t, empty.normalize())
}
