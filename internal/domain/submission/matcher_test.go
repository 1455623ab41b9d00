package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
)

func TestTitleWords(t *testing.T) {
	words := titleWords("Sprint 1 | Alarm_Clock-app")
	assert.Equal(t, []string{"sprint", "1", "alarm", "clock", "app"}, words)
}

func TestTitleWords_Deduplicates(t *testing.T) {
	words := titleWords("notes notes app")
	assert.Equal(t, []string{"notes", "app"}, words)
}

func TestMatchableWords_JoinsAdjacent(t *testing.T) {
	words := matchableWords("Alarm Clock")
	assert.Contains(t, words, "alarm")
	assert.Contains(t, words, "clock")
	assert.Contains(t, words, "alarmclock")
}

func TestSprintHint(t *testing.T) {
	hint, found, err := sprintHint("Sprint 3 | Piscine")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, hint.Int())
}

func TestSprintHint_WeekSegment(t *testing.T) {
	hint, found, err := sprintHint("week 2 - notes app")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, hint.Int())
}

func TestSprintHint_NoHint(t *testing.T) {
	_, found, err := sprintHint("Alarm Clock app")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestSprintHint_ImplausibleNumber(t *testing.T) {
	_, _, err := sprintHint("Sprint 99 | Piscine")
	assert.Error(t, err)
}

func TestMatchScore_TitlePatternGate(t *testing.T) {
	pr := PREvent{Title: "Notes App", RepoName: "onboarding"}
	a := curriculum.Assignment{
		Heading: "Notes App",
		Match:   curriculum.MatchRule{TitlePattern: "capstone"},
	}
	assert.Equal(t, 0, matchScore(pr, a, 0, false))
}

func TestClassifyReviewState(t *testing.T) {
	assert.Equal(t, StateComplete, ClassifyReviewState(PREvent{IsMerged: true}))
	assert.Equal(t, StateReviewed, ClassifyReviewState(PREvent{ReviewDecisions: []string{"approved"}}))
	assert.Equal(t, StateNeedsReview, ClassifyReviewState(PREvent{}))
	assert.Equal(t, StateUnknown, ClassifyReviewState(PREvent{IsClosed: true}))
}

func TestPREventValidate(t *testing.T) {
	valid := PREvent{
		Author:    "alice",
		URL:       "https://github.com/org/repo/pull/1",
		UpdatedAt: time.Now(),
	}
	assert.NoError(t, valid.Validate())

	noURL := valid
	noURL.URL = ""
	assert.Error(t, noURL.Validate())

	noAuthor := valid
	noAuthor.Author = ""
	assert.Error(t, noAuthor.Validate())

	zeroTime := valid
	zeroTime.UpdatedAt = time.Time{}
	assert.Error(t, zeroTime.Validate())
}
