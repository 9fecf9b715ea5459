package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"yashubustudio/occumatch/skillmatch"
)

func sampleResult() skillmatch.ExtractionResult {
	python := "python"
	return skillmatch.ExtractionResult{
		TotalFound:        2,
		SuccessfulMatches: 1,
		MatchRate:         "50.0%",
		Skills: []skillmatch.MatchResult{
			{Original: "Python", MatchedEntry: &python, Score: 0.98766, Confidence: skillmatch.ConfidenceHigh},
			{Original: "Cobol", Confidence: skillmatch.ConfidenceLow, Reason: "score below threshold"},
		},
	}
}

func TestWriteSkillsCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "skills.csv")
	require.NoError(t, WriteSkillsCSV(path, sampleResult()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, skillsHeader, records[0])
	assert.Equal(t, []string{"Python", "python", "0.9877", "high", ""}, records[1])
	assert.Equal(t, []string{"Cobol", "", "0.0000", "low", "score below threshold"}, records[2])
}

func TestWriteSkillsXLSX(t *testing.T) {
	t.Parallel()

	occupations := []skillmatch.OccupationResult{
		{Title: "desenvolvedor python", Code: "2124-05", Score: 0.9, Confidence: skillmatch.ConfidenceHigh},
	}
	path, err := WriteSkillsXLSX(filepath.Join(t.TempDir(), "report"), sampleResult(), occupations)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{skillsSheet, occupationsSheet}, f.GetSheetList())

	rows, err := f.GetRows(skillsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, skillsHeader, rows[0])
	assert.Equal(t, "Python", rows[1][0])
	assert.Equal(t, "python", rows[1][1])

	rows, err = f.GetRows(occupationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2124-05", "desenvolvedor python", "0.9", "high"}, rows[1])
}

func TestWriteSkillsXLSXKeepsExtension(t *testing.T) {
	t.Parallel()

	want := filepath.Join(t.TempDir(), "report.XLSX")
	got, err := WriteSkillsXLSX(want, skillmatch.ExtractionResult{}, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.FileExists(t, got)
}
