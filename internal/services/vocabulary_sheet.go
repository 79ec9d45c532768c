package services

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"telugulearn/internal/models"
	contextutils "telugulearn/internal/utils"

	"github.com/xuri/excelize/v2"
)

// VocabularySheetName is the worksheet used for import and export
const VocabularySheetName = "Vocabulary"

// vocabularyHeader is the export column order. Import reads the first four
// columns and ignores the rest.
var vocabularyHeader = []string{
	"Telugu", "English", "Transliteration", "Chapter ID",
	"Mastery", "Times Practiced", "Times Correct", "Success Rate", "Last Practiced",
}

func formatRowError(row int, msg string) string {
	return fmt.Sprintf("row %d: %s", row, msg)
}

// ParseVocabularySheet reads word entries from an .xlsx workbook. The first
// row is a header. Blank rows are skipped; malformed rows are reported in the
// returned row errors and left out of the entries.
func ParseVocabularySheet(r io.Reader) ([]WordInput, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, contextutils.WrapError(contextutils.ErrInvalidInput, "not a valid xlsx workbook: "+err.Error())
	}
	defer func() { _ = f.Close() }()

	sheet := VocabularySheetName
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to read sheet %q", sheet)
	}

	var entries []WordInput
	rowErrors := []string{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		cell := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}

		entry := WordInput{Telugu: cell(0), English: cell(1), Transliteration: cell(2)}
		if entry.Telugu == "" && entry.English == "" {
			continue
		}
		if entry.Telugu == "" || entry.English == "" {
			rowErrors = append(rowErrors, formatRowError(i+1, "telugu and english are required"))
			continue
		}
		if raw := cell(3); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil || id < 0 {
				rowErrors = append(rowErrors, formatRowError(i+1, "chapter id must be a positive number"))
				continue
			}
			entry.ChapterID = id
		}
		entries = append(entries, entry)
	}
	return entries, rowErrors, nil
}

// WriteVocabularySheet writes words as an .xlsx workbook to w
func WriteVocabularySheet(w io.Writer, words []models.VocabularyWord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", VocabularySheetName); err != nil {
		return contextutils.WrapError(err, "failed to name sheet")
	}

	header := make([]interface{}, len(vocabularyHeader))
	for i, h := range vocabularyHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(VocabularySheetName, "A1", &header); err != nil {
		return contextutils.WrapError(err, "failed to write header")
	}

	for i, word := range words {
		var chapter interface{} = ""
		if word.ChapterID.Valid {
			chapter = word.ChapterID.Int64
		}
		lastPracticed := ""
		if word.LastPracticedAt.Valid {
			lastPracticed = word.LastPracticedAt.Time.UTC().Format("2006-01-02 15:04")
		}
		row := []interface{}{
			word.Telugu, word.English, word.Transliteration, chapter,
			string(word.MasteryLevel), word.TimesPracticed, word.TimesCorrect,
			fmt.Sprintf("%.2f", word.SuccessRate()), lastPracticed,
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return contextutils.WrapError(err, "failed to compute cell")
		}
		if err := f.SetSheetRow(VocabularySheetName, cellRef, &row); err != nil {
			return contextutils.WrapErrorf(err, "failed to write row %d", i+2)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return contextutils.WrapError(err, "failed to write workbook")
	}
	return nil
}
