package skillmatch

import "strings"

// ColumnCandidates lists header names accepted for each CBO column.
type ColumnCandidates struct {
	Code     []string `mapstructure:"code"`
	Title    []string `mapstructure:"title"`
	Synonym  []string `mapstructure:"synonym"`
	Activity []string `mapstructure:"activity"`
	Area     []string `mapstructure:"area"`
}

func defaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Code:     []string{"CODIGO", "COD_OCUPACAO", "CBO2002", "COD_CBO"},
		Title:    []string{"TITULO", "TITULO_OCUPACAO", "OCUPACAO_TITULO"},
		Synonym:  []string{"SINONIMO", "TITULO_SINONIMO"},
		Activity: []string{"NOME_ATIVIDADE", "ATIVIDADE"},
		Area:     []string{"NOME_GRANDE_AREA", "GRANDE_AREA"},
	}
}

// DefaultColumnCandidates returns the built-in column detection candidates.
func DefaultColumnCandidates() ColumnCandidates {
	return defaultColumnCandidates().clone()
}

// WithDefaults fills nil fields from the built-in candidates so callers can
// override only the columns they need.
func (c ColumnCandidates) WithDefaults() ColumnCandidates {
	defaults := defaultColumnCandidates()
	return ColumnCandidates{
		Code:     pickStrings(c.Code, defaults.Code),
		Title:    pickStrings(c.Title, defaults.Title),
		Synonym:  pickStrings(c.Synonym, defaults.Synonym),
		Activity: pickStrings(c.Activity, defaults.Activity),
		Area:     pickStrings(c.Area, defaults.Area),
	}
}

func (c ColumnCandidates) clone() ColumnCandidates {
	return ColumnCandidates{
		Code:     cloneStrings(c.Code),
		Title:    cloneStrings(c.Title),
		Synonym:  cloneStrings(c.Synonym),
		Activity: cloneStrings(c.Activity),
		Area:     cloneStrings(c.Area),
	}
}

func pickStrings(custom, fallback []string) []string {
	if custom == nil {
		return cloneStrings(fallback)
	}
	return cloneStrings(custom)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

// findColumn returns the index of the first header equal to a candidate,
// ignoring case, or -1.
func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}
