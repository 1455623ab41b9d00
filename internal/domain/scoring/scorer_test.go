package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainee-hub/trainee-tracker/internal/domain/attendance"
	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/internal/domain/submission"
)

func mandatoryCell(slot submission.Slot) submission.Cell {
	return submission.Cell{
		Ref: curriculum.SlotRef{
			Assignment: curriculum.Assignment{ID: "m/1/a", Kind: curriculum.KindPullRequest},
		},
		Slot: slot,
	}
}

func stretchCell(slot submission.Slot) submission.Cell {
	return submission.Cell{
		Ref: curriculum.SlotRef{
			Assignment: curriculum.Assignment{
				ID:          "m/1/b",
				Kind:        curriculum.KindPullRequest,
				Optionality: curriculum.Stretch,
			},
		},
		Slot: slot,
	}
}

func matched(state submission.ReviewState) submission.Slot {
	return submission.NewMatchedSlot(submission.Submission{State: state})
}

func grid(cells ...submission.Cell) *submission.Grid {
	return &submission.Grid{Login: "alice", Cells: cells}
}

func TestScore_AllCompleteIsFull(t *testing.T) {
	s := NewDefaultScorer()
	g := grid(
		mandatoryCell(matched(submission.StateComplete)),
		stretchCell(matched(submission.StateComplete)),
	)
	att := attendance.Result{Slots: []attendance.Slot{{State: attendance.Present}}}

	assert.Equal(t, shared.MaxScore, s.Score(g, att))
}

func TestScore_NeedsReviewMandatory(t *testing.T) {
	s := NewDefaultScorer()
	g := grid(mandatoryCell(matched(submission.StateNeedsReview)))

	// 6 из 10 за PR в ревью.
	assert.Equal(t, shared.Score(6000), s.Score(g, attendance.Result{}))
}

func TestScore_UnknownState(t *testing.T) {
	s := NewDefaultScorer()
	g := grid(mandatoryCell(matched(submission.StateUnknown)))

	assert.Equal(t, shared.Score(2000), s.Score(g, attendance.Result{}))
}

func TestScore_MissingMandatoryCountsFullDenominator(t *testing.T) {
	s := NewDefaultScorer()
	g := grid(
		mandatoryCell(matched(submission.StateComplete)),
		mandatoryCell(submission.NewMissingExpectedSlot()),
	)

	// 10 из 20.
	assert.Equal(t, shared.Score(5000), s.Score(g, attendance.Result{}))
}

func TestScore_MissingStretchBarelyPenalized(t *testing.T) {
	s := NewDefaultScorer()
	g := grid(
		mandatoryCell(matched(submission.StateComplete)),
		stretchCell(submission.NewMissingExpectedSlot()),
	)

	// 10 из 12: пропущенный stretch добавляет только 2 к знаменателю.
	assert.Equal(t, shared.ScoreRatio(10, 12), s.Score(g, attendance.Result{}))
}

func TestScore_NotYetDueExcluded(t *testing.T) {
	s := NewDefaultScorer()
	g := grid(
		mandatoryCell(matched(submission.StateComplete)),
		mandatoryCell(submission.NewMissingNotExpectedSlot()),
	)

	assert.Equal(t, shared.MaxScore, s.Score(g, attendance.Result{}))
}

func TestScore_AttendanceStates(t *testing.T) {
	s := NewDefaultScorer()
	att := attendance.Result{Slots: []attendance.Slot{
		{State: attendance.Present},
		{State: attendance.Late},
		{State: attendance.Absent},
		{State: attendance.Unknown},
	}}

	// (10 + 8 + 0) из 30: unknown-день не в знаменателе.
	assert.Equal(t, shared.ScoreRatio(18, 30), s.Score(grid(), att))
}

func TestScore_WrongDayPartialCredit(t *testing.T) {
	s := NewDefaultScorer()
	att := attendance.Result{WrongDay: []attendance.Slot{{State: attendance.WrongDay}}}

	assert.Equal(t, shared.Score(3000), s.Score(grid(), att))
}

func TestScore_ExplicitAssignmentWeight(t *testing.T) {
	s := NewDefaultScorer()
	cell := mandatoryCell(matched(submission.StateNeedsReview))
	cell.Ref.Assignment.Weight = 30
	g := grid(cell)

	// 6 из 30: явный вес задания заменяет стандартный максимум.
	assert.Equal(t, shared.Score(2000), s.Score(g, attendance.Result{}))
}

func TestScore_EmptyGridIsZero(t *testing.T) {
	s := NewDefaultScorer()
	assert.Equal(t, shared.MinScore, s.Score(grid(), attendance.Result{}))
}

func TestStatusThresholds(t *testing.T) {
	s := NewDefaultScorer()

	assert.Equal(t, OnTrack, s.Status(5000))
	assert.Equal(t, Behind, s.Status(4999))
	assert.Equal(t, Behind, s.Status(2500))
	assert.Equal(t, AtRisk, s.Status(2499))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "on-track", OnTrack.String())
	assert.Equal(t, "behind", Behind.String())
	assert.Equal(t, "at-risk", AtRisk.String())
}

func TestWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())

	w := DefaultWeights()
	w.AttendanceOnTime = w.AttendanceMax + 1
	assert.ErrorIs(t, w.Validate(), shared.ErrInvalidWeights)

	w = DefaultWeights()
	w.Reviewed = w.MandatoryMax + 1
	assert.ErrorIs(t, w.Validate(), shared.ErrInvalidWeights)

	w = DefaultWeights()
	w.MandatoryMax = 0
	assert.ErrorIs(t, w.Validate(), shared.ErrInvalidWeights)
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.ErrorIs(t, Thresholds{OnTrack: 2000, Behind: 3000}.Validate(), shared.ErrThresholdsOrder)
}

func TestNewScorerRejectsBadConfig(t *testing.T) {
	_, err := NewScorer(Weights{}, DefaultThresholds())
	require.Error(t, err)
}

func TestAttendanceFraction(t *testing.T) {
	att := attendance.Result{Slots: []attendance.Slot{
		{State: attendance.Present},
		{State: attendance.Late},
		{State: attendance.Absent},
		{State: attendance.Unknown},
	}}

	f := AttendanceFraction(att)
	assert.Equal(t, 2, f.Numerator)
	assert.Equal(t, 3, f.Denominator)
}
