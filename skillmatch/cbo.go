package skillmatch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// Dataset encodings understood by LoadRegistry.
const (
	EncodingLatin1 = "latin1"
	EncodingUTF8   = "utf-8"
)

// Registry is the in-memory CBO vocabulary: occupations, synonyms, activity
// names and area names.
type Registry struct {
	occupations []OccupationRecord
	byCode      map[string]OccupationRecord
	byTitle     map[string]string
	synonyms    []string
	activities  []string
	areas       []string
}

// NewRegistry builds a registry from already parsed data.
func NewRegistry(occupations []OccupationRecord, synonyms, activities, areas []string) *Registry {
	r := &Registry{
		byCode:     make(map[string]OccupationRecord, len(occupations)),
		byTitle:    make(map[string]string, len(occupations)),
		synonyms:   cleanList(synonyms),
		activities: cleanList(activities),
		areas:      cleanList(areas),
	}
	for _, occ := range occupations {
		occ.Code = strings.TrimSpace(occ.Code)
		occ.Title = strings.TrimSpace(occ.Title)
		if occ.Title == "" {
			continue
		}
		r.occupations = append(r.occupations, occ)
		if _, ok := r.byCode[occ.Code]; !ok && occ.Code != "" {
			r.byCode[occ.Code] = occ
		}
		key := NormalizeKey(occ.Title)
		if _, ok := r.byTitle[key]; !ok {
			r.byTitle[key] = occ.Code
		}
	}
	return r
}

// Empty reports whether the registry holds no vocabulary at all.
func (r *Registry) Empty() bool {
	return len(r.occupations) == 0 && len(r.synonyms) == 0 && len(r.activities) == 0 && len(r.areas) == 0
}

// Occupations returns a copy of all occupations in file order.
func (r *Registry) Occupations() []OccupationRecord {
	return append([]OccupationRecord(nil), r.occupations...)
}

// OccupationTitles returns normalized occupation titles in file order.
func (r *Registry) OccupationTitles() []string {
	out := make([]string, 0, len(r.occupations))
	for _, occ := range r.occupations {
		out = append(out, NormalizeKey(occ.Title))
	}
	return out
}

// AllSkills returns every title, synonym, activity and area, lower-cased,
// longer than two characters, sorted and unique.
func (r *Registry) AllSkills() []string {
	seen := make(map[string]struct{})
	add := func(values []string) {
		for _, v := range values {
			v = strings.ToLower(strings.TrimSpace(v))
			if utf8.RuneCountInString(v) > 2 {
				seen[v] = struct{}{}
			}
		}
	}
	for _, occ := range r.occupations {
		add([]string{occ.Title})
	}
	add(r.synonyms)
	add(r.activities)
	add(r.areas)

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// OccupationByCode looks an occupation up by its CBO code.
func (r *Registry) OccupationByCode(code string) (OccupationRecord, bool) {
	occ, ok := r.byCode[strings.TrimSpace(code)]
	return occ, ok
}

// CodeForTitle returns the code of the first occupation whose normalized
// title equals title.
func (r *Registry) CodeForTitle(title string) string {
	return r.byTitle[NormalizeKey(title)]
}

// Synonyms returns the distinct synonyms containing term, case-insensitively,
// in file order.
func (r *Registry) Synonyms(term string) []string {
	q := strings.ToLower(strings.TrimSpace(term))
	if q == "" {
		return []string{}
	}
	out := []string{}
	seen := make(map[string]struct{})
	for _, s := range r.synonyms {
		if !strings.Contains(strings.ToLower(s), q) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SearchOccupations takes the first limit occupations whose title contains
// query and orders them by how much of the title the query covers.
func (r *Registry) SearchOccupations(query string, limit int) []OccupationRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return []OccupationRecord{}
	}
	type ranked struct {
		occ       OccupationRecord
		relevance float64
	}
	var hits []ranked
	qLen := float64(utf8.RuneCountInString(q))
	for _, occ := range r.occupations {
		if !strings.Contains(strings.ToLower(occ.Title), q) {
			continue
		}
		hits = append(hits, ranked{occ: occ, relevance: qLen / float64(utf8.RuneCountInString(occ.Title))})
		if len(hits) == limit {
			break
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].relevance > hits[j].relevance
	})
	out := make([]OccupationRecord, len(hits))
	for i, h := range hits {
		out[i] = h.occ
	}
	return out
}

// LoadRegistry reads the three CBO exports from cfg.Dir. A missing file is
// skipped with a warning; if nothing could be read the result is
// ErrCorpusUnavailable.
func LoadRegistry(cfg DatasetConfig, cols ColumnCandidates, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cols = cols.WithDefaults()

	var (
		occupations []OccupationRecord
		synonyms    []string
		activities  []string
		areas       []string
	)

	header, rows, err := readTable(filepath.Join(cfg.Dir, cfg.OccupationsFile), cfg.Encoding, 0)
	switch {
	case err == nil:
		codeCol, titleCol := findColumn(header, cols.Code), findColumn(header, cols.Title)
		if titleCol < 0 {
			logger.Warn("occupations file has no title column", zap.Strings("header", header))
		} else {
			for _, row := range rows {
				occupations = append(occupations, OccupationRecord{
					Code:  cell(row, codeCol),
					Title: cell(row, titleCol),
				})
			}
		}
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("occupations file not found", zap.String("file", cfg.OccupationsFile))
	default:
		return nil, err
	}

	header, rows, err = readTable(filepath.Join(cfg.Dir, cfg.SynonymsFile), cfg.Encoding, 0)
	switch {
	case err == nil:
		synonyms = column(rows, findColumn(header, cols.Synonym))
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("synonyms file not found", zap.String("file", cfg.SynonymsFile))
	default:
		return nil, err
	}

	header, rows, err = readTable(filepath.Join(cfg.Dir, cfg.ProfileFile), cfg.Encoding, cfg.ProfileMaxRows)
	switch {
	case err == nil:
		activities = column(rows, findColumn(header, cols.Activity))
		areas = column(rows, findColumn(header, cols.Area))
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("occupational profile file not found", zap.String("file", cfg.ProfileFile))
	default:
		return nil, err
	}

	reg := NewRegistry(occupations, synonyms, activities, areas)
	if reg.Empty() {
		return nil, fmt.Errorf("load cbo dataset from %s: %w", cfg.Dir, ErrCorpusUnavailable)
	}
	logger.Info("cbo dataset loaded",
		zap.Int("occupations", len(reg.occupations)),
		zap.Int("synonyms", len(reg.synonyms)),
		zap.Int("activities", len(reg.activities)),
		zap.Int("areas", len(reg.areas)),
	)
	return reg, nil
}

// readTable parses a ';'-separated file, returning its header and at most
// maxRows data rows (all rows when maxRows is zero).
func readTable(path, encoding string, maxRows int) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if strings.EqualFold(encoding, EncodingLatin1) || strings.EqualFold(encoding, "latin-1") || strings.EqualFold(encoding, "iso-8859-1") {
		src = charmap.ISO8859_1.NewDecoder().Reader(f)
	}
	reader := csv.NewReader(src)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	first, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	header := make([]string, len(first))
	for i, c := range first {
		header[i] = cleanCell(c)
	}

	var rows [][]string
	for maxRows <= 0 || len(rows) < maxRows {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cleanCell(row[idx])
}

func column(rows [][]string, idx int) []string {
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if v := cell(row, idx); v != "" {
			out = append(out, v)
		}
	}
	return out
}
