package skillmatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestService(t *testing.T, cfg Config) (*Service, *fakeEmbedder) {
	t.Helper()
	f := newFakeEmbedder(map[string][]float32{
		"desenvolvedor python":   axis(0),
		"enfermeiro":             axis(1),
		"python":                 axis(2),
		"docker":                 axis(3),
		"python developer":       vec(0.8, 0.6),
		"engenharia de software": vec(0.8, 0.6),
		"pythonista":             axis(2),
		"cuidados de enfermagem": axis(1),
	})
	reg := NewRegistry([]OccupationRecord{
		{Code: "2124-05", Title: "Desenvolvedor Python"},
		{Code: "2235-05", Title: "Enfermeiro"},
	}, []string{"python", "docker"}, nil, nil)
	svc, err := NewService(f, reg, cfg, nil)
	require.NoError(t, err)
	return svc, f
}

func TestServiceEndToEndScenario(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{})
	require.NoError(t, svc.Warm(context.Background()))

	hits := svc.occupations.FindSimilar(context.Background(), "Python Developer", 1, 0.5)
	require.Len(t, hits, 1)
	assert.Equal(t, "desenvolvedor python", hits[0].Text)

	assert.Empty(t, svc.occupations.FindSimilar(context.Background(), "Python Developer", 1, 0.99))

	score, err := svc.Similarity(context.Background(), "Python Developer", "desenvolvedor python")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, score, 1e-6)
}

func TestServiceExtractResumeSkills(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{})
	res, err := svc.ExtractResumeSkills(context.Background(), "Tenho 5 anos de experiência com Python e Docker.", 0.75, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalFound)
	assert.Equal(t, 2, res.SuccessfulMatches)
	assert.Equal(t, "100.0%", res.MatchRate)
	require.Len(t, res.Skills, 2)
	assert.Equal(t, "python", *res.Skills[0].MatchedEntry)
	assert.Equal(t, "docker", *res.Skills[1].MatchedEntry)
}

func TestServiceExtractWithoutCandidates(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{})
	res, err := svc.ExtractResumeSkills(context.Background(), "nada a declarar por aqui", 0.75, 1)
	require.NoError(t, err)
	assert.Zero(t, res.TotalFound)
	assert.Equal(t, "0%", res.MatchRate)
	assert.Empty(t, res.Skills)
}

func TestServiceEmptyCorpus(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newFakeEmbedder(nil), NewRegistry(nil, nil, nil, nil), Config{}, nil)
	require.NoError(t, err)

	_, err = svc.ExtractResumeSkills(context.Background(), "experiência com Python", 0.75, 1)
	require.ErrorIs(t, err, ErrCorpusUnavailable)
	assert.NotErrorIs(t, err, ErrIndexNotReady)

	_, err = svc.InferOccupations(context.Background(), sampleResume, 5, 0.65)
	require.ErrorIs(t, err, ErrCorpusUnavailable)

	_, err = svc.MatchUnrecognizedSkills(context.Background(), []string{"python"}, 3, 0.75)
	require.ErrorIs(t, err, ErrCorpusUnavailable)

	require.ErrorIs(t, svc.Warm(context.Background()), ErrCorpusUnavailable)
	assert.False(t, svc.SkillsReady())
}

func TestServiceMissingOccupationsStayUnavailable(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{"python": axis(2)})
	svc, err := NewService(f, NewRegistry(nil, []string{"python"}, nil, nil), Config{}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.InferOccupations(context.Background(), sampleResume, 5, 0.65)
		require.ErrorIs(t, err, ErrCorpusUnavailable)
	}
	require.ErrorIs(t, svc.Warm(context.Background()), ErrCorpusUnavailable)

	res, err := svc.ExtractResumeSkills(context.Background(), "Experiência com Python.", 0.75, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessfulMatches)
}

func TestServiceBuildsOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	svc, f := newTestService(t, Config{})
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := svc.ExtractResumeSkills(context.Background(), "Experiência com Docker.", 0.75, 1)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.True(t, svc.SkillsReady())
	assert.False(t, svc.OccupationsReady())
	// one build call plus one query per request
	assert.Equal(t, 1+8, f.callCount())
}

func TestServiceCancelledFirstRequestDoesNotPoisonBuild(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _ = svc.InferOccupations(ctx, sampleResume, 5, 0.65)
	assert.True(t, svc.OccupationsReady())
}

func TestServiceCalculateProfileMatchEchoesWeights(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{})

	res, err := svc.CalculateProfileMatch(context.Background(), []string{"Python"}, []string{"python", "docker"}, 0.7, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 0.7, res.WeightMatch)
	assert.Equal(t, 0.3, res.WeightSimilarity)
	assert.Equal(t, 50, res.Percentage)
	assert.Equal(t, LevelLow, res.Level)

	_, err = svc.CalculateProfileMatch(context.Background(), []string{"Python"}, nil, 0.7, 0.3)
	require.ErrorIs(t, err, ErrEmptyRequirements)
}

func TestServiceInferAndAnalyze(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{})

	primary, err := svc.InferPrimaryOccupation(context.Background(), sampleResume, 0.65)
	require.NoError(t, err)
	assert.Equal(t, "desenvolvedor python", primary.Title)
	assert.Equal(t, "2124-05", primary.Code)
	assert.Equal(t, ResumeTechnical, svc.ClassifyResume(primary))

	analysis, err := svc.AnalyzeResume(context.Background(), sampleResume+" Experiência com Docker.", 0.65, 0.75, 3)
	require.NoError(t, err)
	assert.Equal(t, ResumeTechnical, analysis.ResumeType)
	require.NotNil(t, analysis.Skills)
	assert.Equal(t, 2, analysis.Skills.SuccessfulMatches)
	assert.Empty(t, analysis.Note)

	nurse, err := svc.AnalyzeResume(context.Background(), "Tenho experiência em cuidados de enfermagem.", 0.65, 0.75, 3)
	require.NoError(t, err)
	assert.Equal(t, "enfermeiro", nurse.PrimaryOccupation.Title)
	assert.Equal(t, ResumeNonTechnical, nurse.ResumeType)
	assert.Nil(t, nurse.Skills)
	assert.NotEmpty(t, nurse.Note)

	unknown, err := svc.AnalyzeResume(context.Background(), "lorem ipsum dolor sit amet", 0.65, 0.75, 3)
	require.NoError(t, err)
	assert.Equal(t, ResumeUnknown, unknown.ResumeType)
	assert.Equal(t, "no occupation inferred", unknown.PrimaryOccupation.Reason)
}

func TestServiceMatchUnrecognizedSkills(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{})
	got, err := svc.MatchUnrecognizedSkills(context.Background(), []string{" Pythonista ", "cobol", ""}, 3, 0.75)
	require.NoError(t, err)
	require.Len(t, got, 2)

	py := got["pythonista"]
	assert.True(t, py.Matched)
	assert.Equal(t, 1, py.TotalMatches)
	assert.Equal(t, 0.75, py.ThresholdUsed)
	require.Len(t, py.Matches, 1)
	assert.Equal(t, "python", py.Matches[0].Skill)
	assert.Equal(t, 1.0, py.Matches[0].Score)
	assert.Equal(t, []string{"python"}, py.Matches[0].Synonyms)
	require.Len(t, py.Matches[0].RelatedOccupations, 1)
	assert.Equal(t, "2124-05", py.Matches[0].RelatedOccupations[0].Code)

	assert.False(t, got["cobol"].Matched)
	assert.Empty(t, got["cobol"].Matches)
}

func TestServiceEnrichSkills(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{})
	res, err := svc.EnrichSkills(context.Background(), []string{"PYTHON ", "cobol", " "}, 0.75)
	require.NoError(t, err)

	assert.Equal(t, 3, res.InputCount)
	require.Len(t, res.Skills, 2)
	assert.Equal(t, "python", res.Skills[0].Normalized)
	assert.True(t, res.Skills[0].Recognized)
	assert.Equal(t, "python", res.Skills[0].Matches[0].Text)
	assert.False(t, res.Skills[1].Recognized)
	assert.Empty(t, res.Skills[1].Matches)
}

func TestServiceSearchOccupationsBySkills(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{})

	got := svc.SearchOccupationsBySkills([]string{"python", "desenvolvedor", " ", "enfermeiro"}, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "2124-05", got[0].Code)
	assert.Equal(t, "2235-05", got[1].Code)

	assert.Len(t, svc.SearchOccupationsBySkills([]string{"python", "enfermeiro"}, 1), 1)
}

func TestServiceModelInfo(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, Config{Embedder: EmbedderConfig{Provider: ProviderHash}})
	info := svc.ModelInfo()
	assert.Equal(t, "fake-model", info.ModelID)
	assert.Equal(t, ProviderHash, info.Provider)
	assert.False(t, info.SkillsReady)

	require.NoError(t, svc.Warm(context.Background()))
	info = svc.ModelInfo()
	assert.True(t, info.SkillsReady)
	assert.True(t, info.OccupationReady)
	assert.Equal(t, 4, info.SkillsSize)
	assert.Equal(t, 2, info.OccupationSize)
}

func TestServiceRulesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"technical":["enfermeiro"]}`), 0o644))

	svc, _ := newTestService(t, Config{Matching: MatchingConfig{RulesFile: path}})
	assert.Equal(t, ResumeTechnical, svc.ClassifyResume(OccupationResult{Title: "enfermeiro"}))

	missing := Config{Matching: MatchingConfig{RulesFile: filepath.Join(t.TempDir(), "none.json")}}
	svc, _ = newTestService(t, missing)
	assert.Equal(t, ResumeNonTechnical, svc.ClassifyResume(OccupationResult{Title: "enfermeiro"}))
}
