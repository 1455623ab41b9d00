package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGithubLogin(t *testing.T) {
	assert.True(t, GithubLogin("alice").IsValid())
	assert.True(t, GithubLogin("bob-smith42").IsValid())
	assert.False(t, GithubLogin("").IsValid())
	assert.False(t, GithubLogin("-alice").IsValid())
	assert.False(t, GithubLogin("alice-").IsValid())
	assert.False(t, GithubLogin("a--b").IsValid())
	assert.False(t, GithubLogin("has space").IsValid())

	assert.True(t, GithubLogin("Alice").Equals("alice"))
	assert.Equal(t, "alice", GithubLogin("AlIcE").Key())

	g, err := NewGithubLogin("  Alice ")
	assert.NoError(t, err)
	assert.Equal(t, "Alice", g.String())

	_, err = NewGithubLogin("not a login")
	assert.ErrorIs(t, err, ErrInvalidGithubLogin)
}

func TestScoreRatio(t *testing.T) {
	assert.Equal(t, MaxScore, ScoreRatio(3, 3))
	assert.Equal(t, MinScore, ScoreRatio(0, 3))
	assert.Equal(t, MinScore, ScoreRatio(3, 0))

	// 1/3 rounds half-up to 33.33%.
	assert.Equal(t, Score(3333), ScoreRatio(1, 3))
	// 2/3 rounds half-up to 66.67%.
	assert.Equal(t, Score(6667), ScoreRatio(2, 3))
	// Numerator above denominator clamps.
	assert.Equal(t, MaxScore, ScoreRatio(5, 3))
}

func TestScorePercent(t *testing.T) {
	assert.Equal(t, "73.50%", Score(7350).Percent())
	assert.Equal(t, "0.05%", Score(5).Percent())
}

func TestSprintNumber(t *testing.T) {
	_, err := NewSprintNumber(0)
	assert.ErrorIs(t, err, ErrInvalidSprintNumber)
	_, err = NewSprintNumber(21)
	assert.ErrorIs(t, err, ErrInvalidSprintNumber)

	n, err := NewSprintNumber(3)
	assert.NoError(t, err)
	assert.Equal(t, 3, n.Int())
}

func TestBatchSlug(t *testing.T) {
	b, err := NewBatchSlug(" 2025-05 ")
	assert.NoError(t, err)
	assert.Equal(t, "2025-05", b.String())

	_, err = NewBatchSlug("-bad")
	assert.Error(t, err)
	_, err = NewBatchSlug("")
	assert.Error(t, err)
}

func TestRegionTimezone(t *testing.T) {
	assert.Equal(t, "Africa/Johannesburg", RegionSouthAfrica.TimezoneName())
	assert.Equal(t, "Europe/London", RegionLondon.TimezoneName())
	assert.Equal(t, "Europe/London", RegionGlasgow.TimezoneName())
}

func TestTrailingDays(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := TrailingDays(now, 28)
	assert.True(t, r.Contains(now.AddDate(0, 0, -28)))
	assert.True(t, r.Contains(now))
	assert.False(t, r.Contains(now.AddDate(0, 0, -29)))
}
