package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

func rosterCourse() *curriculum.Course {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	return &curriculum.Course{
		Name:      "itp",
		StartDate: start,
		EndDate:   start.AddDate(0, 6, 0),
		Modules: []curriculum.Module{
			{
				Name: "onboarding",
				Sprints: []curriculum.Sprint{
					{
						Number: 1,
						ClassDates: map[shared.Region]time.Time{
							shared.RegionLondon:      start.AddDate(0, 0, 5),
							shared.RegionGlasgow:     start.AddDate(0, 0, 5),
							shared.RegionSouthAfrica: start.AddDate(0, 0, 5),
						},
						Assignments: []curriculum.Assignment{
							{ID: "onboarding/1/alarm-clock", Heading: "Alarm Clock", Repo: "onboarding", Kind: curriculum.KindPullRequest},
						},
					},
				},
			},
		},
	}
}

func validBatch() *Batch {
	return &Batch{
		Name:      "May 2025",
		Slug:      "2025-05",
		Course:    rosterCourse(),
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Trainees: []Trainee{
			{Login: "alice", Name: "Alice", Region: shared.RegionLondon},
			{Login: "bobsmith", Name: "Bob", Region: shared.RegionLondon},
			{Login: "carol", Name: "Carol", Region: shared.RegionGlasgow},
		},
	}
}

func TestBatchValidate(t *testing.T) {
	assert.NoError(t, validBatch().Validate())
}

func TestBatchValidate_NoCourse(t *testing.T) {
	b := validBatch()
	b.Course = nil
	assert.Error(t, b.Validate())
}

func TestBatchValidate_EmptyRoster(t *testing.T) {
	b := validBatch()
	b.Trainees = nil
	assert.ErrorIs(t, b.Validate(), shared.ErrEmptyBatch)
}

func TestBatchValidate_DuplicateLoginCaseInsensitive(t *testing.T) {
	b := validBatch()
	b.Trainees = append(b.Trainees, Trainee{Login: "ALICE", Region: shared.RegionLondon})
	assert.ErrorIs(t, b.Validate(), shared.ErrDuplicateTrainee)
}

func TestBatchValidate_RegionWithoutClassDates(t *testing.T) {
	b := validBatch()
	b.Trainees = append(b.Trainees, Trainee{Login: "dave", Region: shared.RegionSheffield})
	assert.Error(t, b.Validate())
}

func TestBatchTraineeLookup(t *testing.T) {
	b := validBatch()

	trainee, ok := b.Trainee("AlIcE")
	require.True(t, ok)
	assert.Equal(t, "Alice", trainee.Name)

	_, ok = b.Trainee("nobody")
	assert.False(t, ok)
}

func TestBatchRegions_OrderedByCount(t *testing.T) {
	regions := validBatch().Regions()
	require.Len(t, regions, 2)
	assert.Equal(t, shared.RegionGlasgow, regions[0])
	assert.Equal(t, shared.RegionLondon, regions[1])
}
