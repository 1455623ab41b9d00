package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/pkg/timeutil"
)

var london = timeutil.LocationFor("Europe/London")

// classDay is a Tuesday.
var classDay = time.Date(2025, 5, 6, 0, 0, 0, 0, london)

func attendanceCourse() *curriculum.Course {
	return &curriculum.Course{
		Name: "itp",
		Modules: []curriculum.Module{
			{
				Name: "onboarding",
				Sprints: []curriculum.Sprint{
					{
						Number: 1,
						ClassDates: map[shared.Region]time.Time{
							shared.RegionLondon: classDay,
						},
						Assignments: []curriculum.Assignment{
							{ID: "onboarding/1/class", Kind: curriculum.KindAttendance},
						},
					},
				},
			},
		},
	}
}

func alice() roster.Trainee {
	return roster.Trainee{Login: "alice", Region: shared.RegionLondon}
}

func checkInAt(t time.Time) CheckInEvent {
	return CheckInEvent{
		Login:       "alice",
		Timestamp:   t,
		RegisterURL: "https://register.example.com/row/1",
	}
}

func TestReconcileTrainee_OnTimeCheckIn(t *testing.T) {
	r := NewReconciler()
	now := classDay.AddDate(0, 0, 2)

	// 10:05 is within the late threshold of a 10:00 start.
	ev := checkInAt(time.Date(2025, 5, 6, 10, 5, 0, 0, london))
	result := r.ReconcileTrainee(attendanceCourse(), alice(), []CheckInEvent{ev}, now)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, Present, result.Slots[0].State)
	assert.Equal(t, ev.RegisterURL, result.Slots[0].RegisterURL)
	assert.Empty(t, result.WrongDay)
}

func TestReconcileTrainee_LateCheckIn(t *testing.T) {
	r := NewReconciler()
	now := classDay.AddDate(0, 0, 2)

	ev := checkInAt(time.Date(2025, 5, 6, 10, 30, 0, 0, london))
	result := r.ReconcileTrainee(attendanceCourse(), alice(), []CheckInEvent{ev}, now)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, Late, result.Slots[0].State)
}

func TestReconcileTrainee_CodeOverridesTimestamp(t *testing.T) {
	r := NewReconciler()
	now := classDay.AddDate(0, 0, 2)

	// A very late timestamp, but the register says present.
	ev := checkInAt(time.Date(2025, 5, 6, 15, 0, 0, 0, london))
	ev.Code = "Present"
	result := r.ReconcileTrainee(attendanceCourse(), alice(), []CheckInEvent{ev}, now)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, Present, result.Slots[0].State)
}

func TestReconcileTrainee_AbsentCode(t *testing.T) {
	r := NewReconciler()
	now := classDay.AddDate(0, 0, 2)

	ev := checkInAt(time.Date(2025, 5, 6, 10, 0, 0, 0, london))
	ev.Code = "absent"
	result := r.ReconcileTrainee(attendanceCourse(), alice(), []CheckInEvent{ev}, now)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, Absent, result.Slots[0].State)
}

func TestReconcileTrainee_UnrecognizedCodeIsUnknown(t *testing.T) {
	r := NewReconciler()
	now := classDay.AddDate(0, 0, 2)

	ev := checkInAt(time.Date(2025, 5, 6, 10, 0, 0, 0, london))
	ev.Code = "holiday"
	result := r.ReconcileTrainee(attendanceCourse(), alice(), []CheckInEvent{ev}, now)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, Unknown, result.Slots[0].State)
}

func TestReconcileTrainee_NoCheckInAfterDayConcluded(t *testing.T) {
	r := NewReconciler()
	now := classDay.AddDate(0, 0, 2)

	result := r.ReconcileTrainee(attendanceCourse(), alice(), nil, now)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, Absent, result.Slots[0].State)
}

func TestReconcileTrainee_NoCheckInDuringDayStaysUnknown(t *testing.T) {
	r := NewReconciler()
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, london)

	result := r.ReconcileTrainee(attendanceCourse(), alice(), nil, now)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, Unknown, result.Slots[0].State)
}

func TestReconcileTrainee_WrongDayMarker(t *testing.T) {
	r := NewReconciler()
	now := classDay.AddDate(0, 0, 3)

	// The day after class: no scheduled slot is filled, a wrong-day
	// marker appears instead, and the scheduled day resolves to absent.
	ev := checkInAt(time.Date(2025, 5, 7, 10, 0, 0, 0, london))
	result := r.ReconcileTrainee(attendanceCourse(), alice(), []CheckInEvent{ev}, now)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, Absent, result.Slots[0].State)

	require.Len(t, result.WrongDay, 1)
	assert.Equal(t, WrongDay, result.WrongDay[0].State)
}

func TestReconcileTrainee_InvalidEventsSurface(t *testing.T) {
	r := NewReconciler()
	now := classDay.AddDate(0, 0, 2)

	// Zero timestamp: the event fills no slot but is not dropped either.
	bad := CheckInEvent{Login: "alice", RegisterURL: "https://register.example.com/row/9"}
	result := r.ReconcileTrainee(attendanceCourse(), alice(), []CheckInEvent{bad}, now)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, Absent, result.Slots[0].State)
	assert.Empty(t, result.WrongDay)

	require.Len(t, result.Invalid, 1)
	assert.Equal(t, bad, result.Invalid[0])
}

func TestSlotCounted(t *testing.T) {
	assert.True(t, Slot{State: Present}.Counted())
	assert.True(t, Slot{State: Late}.Counted())
	assert.True(t, Slot{State: Absent}.Counted())
	assert.False(t, Slot{State: Unknown}.Counted())
	assert.False(t, Slot{State: WrongDay}.Counted())
}
