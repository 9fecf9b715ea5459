package skillmatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileMatcherThreeOfFive(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"python":     axis(0),
		"docker":     axis(1),
		"kubernetes": axis(2),
		"k8s":        axis(2),
	})
	idx, err := builtIndex(context.Background(), f, "python", "docker", "kubernetes")
	require.NoError(t, err)

	p := NewProfileMatcher(idx, 0)
	res, err := p.Match(context.Background(),
		[]string{"Python", "Docker", "Kubernetes"},
		[]string{"python", "docker", "k8s", "aws", "rust"},
	)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, res.Score, 1e-9)
	assert.Equal(t, 60, res.Percentage)
	assert.Equal(t, LevelModerate, res.Level)
	assert.Equal(t, []string{"python", "docker", "k8s"}, res.Matched)
	assert.Equal(t, []string{"aws", "rust"}, res.Missing)
	assert.Equal(t, "has 3 of 5 required skills", res.Analysis.Strengths)
	assert.Equal(t, "missing 2 skills", res.Analysis.Gaps)
	assert.Equal(t, "developing candidate", res.Analysis.Recommendation)
}

func TestProfileMatcherSubstringEitherDirection(t *testing.T) {
	t.Parallel()

	p := NewProfileMatcher(nil, 0)
	res, err := p.Match(context.Background(),
		[]string{"Python 3.11", "sql"},
		[]string{"PYTHON", "PostgreSQL"},
	)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, 100, res.Percentage)
	assert.Equal(t, LevelExcellent, res.Level)
	assert.Empty(t, res.Missing)
	assert.Equal(t, "strong candidate", res.Analysis.Recommendation)
}

func TestProfileMatcherSemanticHitMustBeCandidateSkill(t *testing.T) {
	t.Parallel()

	f := newFakeEmbedder(map[string][]float32{
		"golang": axis(0),
		"go":     axis(0),
	})
	idx, err := builtIndex(context.Background(), f, "golang")
	require.NoError(t, err)

	res, err := NewProfileMatcher(idx, 0).Match(context.Background(), []string{"rust"}, []string{"go"})
	require.NoError(t, err)

	assert.Zero(t, res.Score)
	assert.Equal(t, []string{"go"}, res.Missing)
}

func TestProfileMatcherBoundaries(t *testing.T) {
	t.Parallel()

	p := NewProfileMatcher(nil, 0)

	_, err := p.Match(context.Background(), []string{"python"}, nil)
	require.ErrorIs(t, err, ErrEmptyRequirements)

	res, err := p.Match(context.Background(), nil, []string{"python", "go"})
	require.NoError(t, err)
	assert.Zero(t, res.Score)
	assert.Equal(t, LevelInsufficient, res.Level)
	assert.Equal(t, []string{"python", "go"}, res.Missing)
	assert.Equal(t, []string{}, res.Matched)
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pct  int
		want ProfileLevel
	}{
		{100, LevelExcellent},
		{90, LevelExcellent},
		{89, LevelGood},
		{75, LevelGood},
		{74, LevelModerate},
		{60, LevelModerate},
		{59, LevelLow},
		{40, LevelLow},
		{39, LevelInsufficient},
		{0, LevelInsufficient},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelFor(tc.pct), "pct %d", tc.pct)
	}
}
