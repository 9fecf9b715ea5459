// Package export writes extraction results to CSV and Excel files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"yashubustudio/occumatch/skillmatch"
)

const (
	skillsSheet      = "Skills"
	occupationsSheet = "Occupations"
)

var skillsHeader = []string{"original", "matched_skill", "similarity_score", "confidence", "reason"}

func skillRow(m skillmatch.MatchResult) []string {
	matched := ""
	if m.MatchedEntry != nil {
		matched = *m.MatchedEntry
	}
	return []string{m.Original, matched, fmt.Sprintf("%.4f", m.Score), string(m.Confidence), m.Reason}
}

// WriteSkillsCSV writes one row per extracted skill.
func WriteSkillsCSV(path string, res skillmatch.ExtractionResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(skillsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, m := range res.Skills {
		if err := w.Write(skillRow(m)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteSkillsXLSX writes the skills and, when given, the inferred occupations
// to an Excel workbook. The .xlsx extension is added when missing.
func WriteSkillsXLSX(path string, res skillmatch.ExtractionResult, occupations []skillmatch.OccupationResult) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", skillsSheet); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(occupationsSheet); err != nil {
		return "", err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return "", err
	}

	skillRows := make([][]any, 0, len(res.Skills))
	for _, m := range res.Skills {
		row := skillRow(m)
		skillRows = append(skillRows, []any{row[0], row[1], m.Score, row[3], row[4]})
	}
	if err := writeSheet(f, skillsSheet, header, skillsHeader, skillRows, []float64{30, 30, 16, 12, 40}); err != nil {
		return "", fmt.Errorf("skills sheet: %w", err)
	}

	occRows := make([][]any, 0, len(occupations))
	for i, o := range occupations {
		occRows = append(occRows, []any{i + 1, o.Code, o.Title, o.Score, string(o.Confidence)})
	}
	occHeader := []string{"rank", "code", "title", "score", "confidence"}
	if err := writeSheet(f, occupationsSheet, header, occHeader, occRows, []float64{8, 12, 50, 12, 12}); err != nil {
		return "", fmt.Errorf("occupations sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []string, rows [][]any, widths []float64) error {
	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, w); err != nil {
			return err
		}
	}
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
