// Package scoring превращает классифицированную сетку слотов трейни в
// единый прогресс-балл и статус. Балл пересчитывается с нуля на каждом
// запуске и нигде не хранится как состояние.
package scoring

import (
	"github.com/trainee-hub/trainee-tracker/internal/domain/attendance"
	"github.com/trainee-hub/trainee-tracker/internal/domain/curriculum"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/internal/domain/submission"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEIGHTS (Веса слотов)
// ══════════════════════════════════════════════════════════════════════════════

// Weights задаёт вклад каждого вида слота в балл. Значения подобраны
// эмпирически и настраиваются через конфигурацию.
type Weights struct {
	// AttendanceMax - максимум за посещение одного занятия.
	AttendanceMax int

	// AttendanceOnTime - балл за своевременный чек-ин.
	AttendanceOnTime int

	// AttendanceLate - балл за опоздание.
	AttendanceLate int

	// AttendanceWrongDay - балл за чек-ин не в тот день.
	AttendanceWrongDay int

	// MandatoryMax - максимум за обязательный PR.
	MandatoryMax int

	// StretchMax - максимум за stretch PR. Выше обязательного:
	// выполненный stretch поднимает балл заметнее.
	StretchMax int

	// Reviewed - балл за PR в ревью (reviewed или needs-review).
	Reviewed int

	// UnknownState - балл за PR с неопределённым состоянием.
	UnknownState int

	// MissingStretch - знаменатель за невыполненный stretch PR.
	// Маленький: пропуск stretch почти не штрафуется.
	MissingStretch int
}

// DefaultWeights возвращает стандартные веса.
func DefaultWeights() Weights {
	return Weights{
		AttendanceMax:      10,
		AttendanceOnTime:   10,
		AttendanceLate:     8,
		AttendanceWrongDay: 3,
		MandatoryMax:       10,
		StretchMax:         12,
		Reviewed:           6,
		UnknownState:       2,
		MissingStretch:     2,
	}
}

// Validate проверяет согласованность весов.
func (w Weights) Validate() error {
	if w.AttendanceMax <= 0 || w.MandatoryMax <= 0 || w.StretchMax <= 0 {
		return shared.ErrInvalidWeights
	}
	if w.AttendanceOnTime > w.AttendanceMax || w.AttendanceLate > w.AttendanceMax ||
		w.AttendanceWrongDay > w.AttendanceMax {
		return shared.ErrInvalidWeights
	}
	if w.Reviewed > w.MandatoryMax || w.UnknownState > w.Reviewed {
		return shared.ErrInvalidWeights
	}
	if w.MissingStretch < 0 {
		return shared.ErrInvalidWeights
	}
	return nil
}

// prMax возвращает максимум для PR-задания: явный вес задания, иначе
// стандартный по обязательности.
func (w Weights) prMax(a curriculum.Assignment) int {
	if a.Weight > 0 {
		return a.Weight
	}
	if a.Optionality == curriculum.Stretch {
		return w.StretchMax
	}
	return w.MandatoryMax
}

// ══════════════════════════════════════════════════════════════════════════════
// THRESHOLDS & STATUS (Пороги и статус)
// ══════════════════════════════════════════════════════════════════════════════

// Thresholds - пороги статусов по шкале 0..10000.
type Thresholds struct {
	// OnTrack - нижняя граница статуса "on-track".
	OnTrack shared.Score

	// Behind - нижняя граница статуса "behind". Ниже - "at-risk".
	Behind shared.Score
}

// DefaultThresholds возвращает стандартные пороги.
func DefaultThresholds() Thresholds {
	return Thresholds{OnTrack: 5000, Behind: 2500}
}

// Validate проверяет порядок порогов.
func (t Thresholds) Validate() error {
	if !t.OnTrack.IsValid() || !t.Behind.IsValid() || t.Behind > t.OnTrack {
		return shared.ErrThresholdsOrder
	}
	return nil
}

// TraineeStatus - статус трейни по прогресс-баллу.
type TraineeStatus int

const (
	AtRisk TraineeStatus = iota
	Behind
	OnTrack
)

// String возвращает форму статуса для отчёта.
func (s TraineeStatus) String() string {
	switch s {
	case OnTrack:
		return "on-track"
	case Behind:
		return "behind"
	default:
		return "at-risk"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORER
// ══════════════════════════════════════════════════════════════════════════════

// Scorer вычисляет прогресс-балл как чистую функцию от сетки слотов.
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer создаёт Scorer с проверкой конфигурации.
func NewScorer(w Weights, t Thresholds) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w, thresholds: t}, nil
}

// NewDefaultScorer создаёт Scorer со стандартными весами и порогами.
func NewDefaultScorer() *Scorer {
	return &Scorer{weights: DefaultWeights(), thresholds: DefaultThresholds()}
}

// Score вычисляет балл в диапазоне [0, 10000] с округлением half-up.
//
// Слоты MissingButNotExpected и unknown-дни посещаемости не входят в
// знаменатель: за ещё не наступившее не штрафуем. Поэтому перенос
// дедлайна в прошлое может только понизить балл, никогда не повысить.
func (s *Scorer) Score(grid *submission.Grid, att attendance.Result) shared.Score {
	numerator := 0
	denominator := 0

	for _, cell := range grid.Cells {
		a := cell.Ref.Assignment
		switch cell.Slot.Kind() {
		case submission.Matched:
			max := s.weights.prMax(a)
			denominator += max
			sub, _ := cell.Slot.Submission()
			switch sub.State {
			case submission.StateComplete:
				numerator += max
			case submission.StateReviewed, submission.StateNeedsReview:
				numerator += s.weights.Reviewed
			default:
				numerator += s.weights.UnknownState
			}
		case submission.MissingButExpected:
			if a.Optionality == curriculum.Stretch {
				denominator += s.weights.MissingStretch
			} else {
				denominator += s.weights.prMax(a)
			}
		case submission.MissingButNotExpected:
			// Не входит в знаменатель.
		}
	}

	for _, slot := range att.Slots {
		switch slot.State {
		case attendance.Present:
			denominator += s.weights.AttendanceMax
			numerator += s.weights.AttendanceOnTime
		case attendance.Late:
			denominator += s.weights.AttendanceMax
			numerator += s.weights.AttendanceLate
		case attendance.Absent:
			denominator += s.weights.AttendanceMax
		case attendance.Unknown:
			// День ещё не завершился - не входит в знаменатель.
		}
	}

	// Чек-ин не в тот день даёт частичный балл: трейни появился, но
	// не по расписанию.
	for range att.WrongDay {
		denominator += s.weights.AttendanceMax
		numerator += s.weights.AttendanceWrongDay
	}

	return shared.ScoreRatio(numerator, denominator)
}

// Status выводит статус из балла по порогам.
func (s *Scorer) Status(score shared.Score) TraineeStatus {
	switch {
	case score >= s.thresholds.OnTrack:
		return OnTrack
	case score >= s.thresholds.Behind:
		return Behind
	default:
		return AtRisk
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE FRACTION (Доля посещённых занятий)
// ══════════════════════════════════════════════════════════════════════════════

// Fraction - доля посещённых занятий для отчёта.
type Fraction struct {
	Numerator   int
	Denominator int
}

// AttendanceFraction считает посещённые занятия (present и late) среди
// всех состоявшихся (present, late, absent).
func AttendanceFraction(att attendance.Result) Fraction {
	var f Fraction
	for _, slot := range att.Slots {
		if !slot.Counted() {
			continue
		}
		f.Denominator++
		if slot.State == attendance.Present || slot.State == attendance.Late {
			f.Numerator++
		}
	}
	return f
}
