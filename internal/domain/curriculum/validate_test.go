package curriculum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

func validCourse() *Course {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	classDay := time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)
	return &Course{
		Name:      "itp",
		StartDate: start,
		EndDate:   start.AddDate(0, 6, 0),
		Modules: []Module{
			{
				Name: "onboarding",
				Sprints: []Sprint{
					{
						Number:    1,
						DueOffset: 7 * 24 * time.Hour,
						ClassDates: map[shared.Region]time.Time{
							shared.RegionLondon: classDay,
						},
						Assignments: []Assignment{
							{ID: "onboarding/1/alarm-clock", Heading: "Alarm Clock", Repo: "onboarding", Kind: KindPullRequest},
							{ID: "onboarding/1/class", Kind: KindAttendance},
						},
					},
					{
						Number:    2,
						DueOffset: 14 * 24 * time.Hour,
						Assignments: []Assignment{
							{ID: "onboarding/2/notes-app", Heading: "Notes App", Repo: "onboarding", Kind: KindPullRequest},
						},
					},
				},
			},
		},
	}
}

func TestValidate_ValidCourse(t *testing.T) {
	assert.NoError(t, validCourse().Validate())
}

func TestValidate_NoModules(t *testing.T) {
	c := validCourse()
	c.Modules = nil
	assert.ErrorIs(t, c.Validate(), shared.ErrEmptyCourse)
}

func TestValidate_InvalidDateRange(t *testing.T) {
	c := validCourse()
	c.EndDate = c.StartDate
	assert.Error(t, c.Validate())
}

func TestValidate_SprintMisnumbered(t *testing.T) {
	c := validCourse()
	c.Modules[0].Sprints[1].Number = 3
	assert.Error(t, c.Validate())
}

func TestValidate_DueOffsetsOutOfOrder(t *testing.T) {
	c := validCourse()
	c.Modules[0].Sprints[1].DueOffset = 24 * time.Hour
	assert.ErrorIs(t, c.Validate(), shared.ErrSprintOutOfOrder)
}

func TestValidate_DuplicateAssignmentID(t *testing.T) {
	c := validCourse()
	c.Modules[0].Sprints[1].Assignments[0].ID = "onboarding/1/alarm-clock"
	assert.ErrorIs(t, c.Validate(), shared.ErrDuplicateAssignment)
}

func TestValidate_PRAssignmentNeedsRepo(t *testing.T) {
	c := validCourse()
	c.Modules[0].Sprints[0].Assignments[0].Repo = ""
	assert.Error(t, c.Validate())
}

func TestValidate_AttendanceNeedsClassDates(t *testing.T) {
	c := validCourse()
	c.Modules[0].Sprints[0].ClassDates = nil
	assert.Error(t, c.Validate())
}

func TestValidate_NegativeWeight(t *testing.T) {
	c := validCourse()
	c.Modules[0].Sprints[0].Assignments[0].Weight = -1
	assert.Error(t, c.Validate())
}

func TestValidateAgainstRegions(t *testing.T) {
	c := validCourse()

	assert.NoError(t, c.ValidateAgainstRegions([]shared.Region{shared.RegionLondon}))
	assert.Error(t, c.ValidateAgainstRegions([]shared.Region{shared.RegionGlasgow}))
}

func TestValidateAgainstRegions_ClassDatesWithoutAttendanceAssignment(t *testing.T) {
	// Coverage is checked for any sprint scheduling a class, even when no
	// attendance assignment sits on it.
	c := validCourse()
	c.Modules[0].Sprints[0].Assignments = c.Modules[0].Sprints[0].Assignments[:1]

	assert.Error(t, c.ValidateAgainstRegions([]shared.Region{shared.RegionGlasgow}))
}

func TestSlotRefs_GridOrder(t *testing.T) {
	refs := validCourse().SlotRefs()
	require.Len(t, refs, 3)
	assert.Equal(t, "onboarding/1/alarm-clock", refs[0].Assignment.ID)
	assert.Equal(t, "onboarding/1/class", refs[1].Assignment.ID)
	assert.Equal(t, "onboarding/2/notes-app", refs[2].Assignment.ID)
	assert.Equal(t, 1, refs[0].Sprint.Int())
	assert.Equal(t, "onboarding", refs[0].ModuleName)
}

func TestAssignmentIsDue(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	a := Assignment{}

	assert.False(t, a.IsDue(start, 7*24*time.Hour, start.Add(6*24*time.Hour)))
	assert.True(t, a.IsDue(start, 7*24*time.Hour, start.Add(8*24*time.Hour)))

	// An explicit assignment offset overrides the sprint offset.
	a.DueOffset = 3 * 24 * time.Hour
	assert.True(t, a.IsDue(start, 7*24*time.Hour, start.Add(4*24*time.Hour)))
}
