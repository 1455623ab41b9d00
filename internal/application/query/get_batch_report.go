// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/attendance"
	"github.com/trainee-hub/trainee-tracker/internal/domain/roster"
	"github.com/trainee-hub/trainee-tracker/internal/domain/scoring"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/internal/domain/submission"
	"github.com/trainee-hub/trainee-tracker/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// BATCH REPORT
// Собирает полный отчёт по батчу: сетка слотов, посещаемость, баллы,
// статусы и несопоставленные события. Отчёт - чистая функция от входов,
// два запуска на одних данных дают байт-в-байт одинаковый результат.
// ══════════════════════════════════════════════════════════════════════════════

// SlotDTO - одна ячейка сетки сабмишенов трейни.
type SlotDTO struct {
	AssignmentID string `json:"assignment_id"`
	Heading      string `json:"heading"`
	Module       string `json:"module"`
	Sprint       int    `json:"sprint"`
	Optionality  string `json:"optionality"`

	// State - "matched", "missing-but-expected" или "missing-but-not-expected".
	State string `json:"state"`

	// ReviewState заполнен только для matched-слотов.
	ReviewState string `json:"review_state,omitempty"`
	URL         string `json:"url,omitempty"`
	DisplayText string `json:"display_text,omitempty"`
}

// AttendanceDayDTO - один день посещаемости.
type AttendanceDayDTO struct {
	Date        string `json:"date"`
	State       string `json:"state"`
	RegisterURL string `json:"register_url,omitempty"`
}

// FractionDTO - доля посещённых занятий.
type FractionDTO struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// TraineeReportDTO - отчёт по одному трейни.
type TraineeReportDTO struct {
	Login  string `json:"login"`
	Name   string `json:"name"`
	Region string `json:"region"`

	// Score - прогресс-балл по шкале 0..10000.
	Score   int    `json:"score"`
	Percent string `json:"percent"`

	// Status - "on-track", "behind" или "at-risk".
	Status string `json:"status"`

	Attendance     FractionDTO        `json:"attendance"`
	Slots          []SlotDTO          `json:"slots"`
	AttendanceDays []AttendanceDayDTO `json:"attendance_days"`
}

// RegionDTO - регион с количеством трейни.
type RegionDTO struct {
	Name         string `json:"name"`
	TraineeCount int    `json:"trainee_count"`
}

// UnmatchedDTO - событие, не попавшее ни в один слот.
type UnmatchedDTO struct {
	URL    string `json:"url,omitempty"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
	Repo   string `json:"repo,omitempty"`
	Reason string `json:"reason"`
}

// BatchReport - итоговый отчёт по батчу.
type BatchReport struct {
	Course    string `json:"course"`
	Batch     string `json:"batch"`
	BatchSlug string `json:"batch_slug"`

	// GeneratedAt - момент "сейчас", от которого считался отчёт.
	GeneratedAt time.Time `json:"generated_at"`

	// Regions упорядочены по числу трейни по возрастанию.
	Regions []RegionDTO `json:"regions"`

	// Trainees упорядочены по баллу по убыванию, при равенстве по логину.
	Trainees []TraineeReportDTO `json:"trainees"`

	// Unmatched - в детерминированном порядке первого появления.
	Unmatched []UnmatchedDTO `json:"unmatched"`
}

// AtRisk возвращает логины трейни со статусом at-risk.
func (r *BatchReport) AtRisk() []string {
	var logins []string
	for _, t := range r.Trainees {
		if t.Status == scoring.AtRisk.String() {
			logins = append(logins, t.Login)
		}
	}
	return logins
}

// Trainee возвращает отчёт по одному трейни, если он есть в батче.
func (r *BatchReport) Trainee(login string) (TraineeReportDTO, bool) {
	key := shared.GithubLogin(login).Key()
	for _, t := range r.Trainees {
		if shared.GithubLogin(t.Login).Key() == key {
			return t, true
		}
	}
	return TraineeReportDTO{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// ReportBuilder строит отчёт из уже загруженных событий. Сборка чистая:
// ни сети, ни часов, ни состояния между запусками.
type ReportBuilder struct {
	submissions *submission.Reconciler
	attendance  *attendance.Reconciler
	scorer      *scoring.Scorer
}

// NewReportBuilder создаёт билдер с заданным scorer.
func NewReportBuilder(scorer *scoring.Scorer) *ReportBuilder {
	return &ReportBuilder{
		submissions: submission.NewReconciler(),
		attendance:  attendance.NewReconciler(),
		scorer:      scorer,
	}
}

// NewDefaultReportBuilder создаёт билдер со стандартными весами.
func NewDefaultReportBuilder() *ReportBuilder {
	return NewReportBuilder(scoring.NewDefaultScorer())
}

// Build собирает отчёт по батчу на момент now.
//
// Структурные ошибки (невалидный курс или состав батча) фатальны и
// возвращаются до какой-либо сверки. Ошибки в данных событий не
// прерывают сборку: такие события попадают в Unmatched с причиной.
func (b *ReportBuilder) Build(
	batch *roster.Batch,
	prEvents []submission.PREvent,
	checkIns []attendance.CheckInEvent,
	now time.Time,
) (*BatchReport, error) {
	collector := submission.NewUnmatchedCollector()

	grids, err := b.submissions.Reconcile(batch, prEvents, now, collector)
	if err != nil {
		return nil, err
	}

	checkInsByTrainee, stray := groupCheckIns(batch, checkIns)
	for _, ev := range stray {
		collector.Append(checkInUnmatched(ev))
	}

	report := &BatchReport{
		Course:      batch.Course.Name,
		Batch:       batch.Name,
		BatchSlug:   string(batch.Slug),
		GeneratedAt: now,
	}

	for i, trainee := range batch.Trainees {
		att := b.attendance.ReconcileTrainee(batch.Course, trainee, checkInsByTrainee[trainee.Login.Key()], now)
		for _, ev := range att.Invalid {
			collector.Append(checkInUnmatched(ev))
		}
		score := b.scorer.Score(grids[i], att)

		report.Trainees = append(report.Trainees, TraineeReportDTO{
			Login:          trainee.Login.String(),
			Name:           trainee.Name,
			Region:         trainee.Region.String(),
			Score:          int(score),
			Percent:        score.Percent(),
			Status:         b.scorer.Status(score).String(),
			Attendance:     fractionDTO(scoring.AttendanceFraction(att)),
			Slots:          slotDTOs(grids[i]),
			AttendanceDays: attendanceDTOs(att, trainee),
		})
	}

	// Сортировка: балл по убыванию, логин при равенстве.
	sort.SliceStable(report.Trainees, func(i, j int) bool {
		if report.Trainees[i].Score != report.Trainees[j].Score {
			return report.Trainees[i].Score > report.Trainees[j].Score
		}
		return shared.GithubLogin(report.Trainees[i].Login).Key() <
			shared.GithubLogin(report.Trainees[j].Login).Key()
	})

	for _, region := range batch.Regions() {
		count := 0
		for _, t := range batch.Trainees {
			if t.Region == region {
				count++
			}
		}
		report.Regions = append(report.Regions, RegionDTO{Name: region.String(), TraineeCount: count})
	}

	for _, ev := range collector.Events() {
		report.Unmatched = append(report.Unmatched, UnmatchedDTO{
			URL:    ev.URL,
			Title:  ev.Title,
			Author: ev.Author,
			Repo:   ev.Repo,
			Reason: ev.Reason,
		})
	}

	return report, nil
}

// groupCheckIns раскладывает чек-ины по трейни. Чек-ины неизвестных
// логинов не сопоставимы ни с одним расписанием и возвращаются отдельно,
// чтобы попасть в Unmatched, а не пропасть молча.
func groupCheckIns(batch *roster.Batch, checkIns []attendance.CheckInEvent) (map[string][]attendance.CheckInEvent, []attendance.CheckInEvent) {
	grouped := make(map[string][]attendance.CheckInEvent)
	var stray []attendance.CheckInEvent
	for _, ev := range checkIns {
		if _, ok := batch.Trainee(ev.Login); !ok {
			stray = append(stray, ev)
			continue
		}
		key := ev.Login.Key()
		grouped[key] = append(grouped[key], ev)
	}
	return grouped, stray
}

// checkInUnmatched переводит непристроенный чек-ин в запись Unmatched.
// Ссылка на строку регистра занимает поле URL, код посещаемости - Title.
func checkInUnmatched(ev attendance.CheckInEvent) submission.UnmatchedEvent {
	return submission.UnmatchedEvent{
		URL:    ev.RegisterURL,
		Title:  ev.Code,
		Author: ev.Login.String(),
		Reason: checkInReason(ev),
	}
}

// checkInReason подбирает тег причины по тому, чем именно плох чек-ин.
func checkInReason(ev attendance.CheckInEvent) string {
	err := ev.Validate()
	switch {
	case errors.Is(err, shared.ErrEventMissingAuthor):
		return submission.ReasonMissingAuthor
	case errors.Is(err, shared.ErrEventZeroTimestamp):
		return submission.ReasonZeroTimestamp
	default:
		return submission.ReasonUnknownAuthor
	}
}

func slotDTOs(grid *submission.Grid) []SlotDTO {
	dtos := make([]SlotDTO, 0, len(grid.Cells))
	for _, cell := range grid.Cells {
		a := cell.Ref.Assignment
		dto := SlotDTO{
			AssignmentID: a.ID,
			Heading:      a.Heading,
			Module:       cell.Ref.ModuleName,
			Sprint:       int(cell.Ref.Sprint),
			Optionality:  a.Optionality.String(),
			State:        cell.Slot.Kind().String(),
		}
		if sub, ok := cell.Slot.Submission(); ok {
			dto.ReviewState = sub.State.String()
			dto.URL = sub.URL
			dto.DisplayText = sub.DisplayText
		}
		dtos = append(dtos, dto)
	}
	return dtos
}

func attendanceDTOs(att attendance.Result, trainee roster.Trainee) []AttendanceDayDTO {
	loc := timeutil.LocationFor(trainee.Region.TimezoneName())
	dtos := make([]AttendanceDayDTO, 0, len(att.Slots)+len(att.WrongDay))
	for _, slot := range att.Slots {
		dtos = append(dtos, AttendanceDayDTO{
			Date:        timeutil.FormatDateStr(slot.Date, loc),
			State:       slot.State.String(),
			RegisterURL: slot.RegisterURL,
		})
	}
	for _, slot := range att.WrongDay {
		dtos = append(dtos, AttendanceDayDTO{
			Date:        timeutil.FormatDateStr(slot.Date, loc),
			State:       slot.State.String(),
			RegisterURL: slot.RegisterURL,
		})
	}
	return dtos
}

func fractionDTO(f scoring.Fraction) FractionDTO {
	return FractionDTO{Numerator: f.Numerator, Denominator: f.Denominator}
}

// ══════════════════════════════════════════════════════════════════════════════
// GET BATCH REPORT QUERY
// Читает последний собранный отчёт: сначала кеш, затем снапшот.
// ══════════════════════════════════════════════════════════════════════════════

// ReportCache отдаёт закешированный отчёт по слагу батча.
type ReportCache interface {
	GetBatchReport(ctx context.Context, slug shared.BatchSlug) (*BatchReport, error)
}

// ReportSnapshots отдаёт последний сохранённый отчёт по слагу батча.
type ReportSnapshots interface {
	LatestBatchReport(ctx context.Context, slug shared.BatchSlug) (*BatchReport, error)
}

// GetBatchReportQuery - параметры запроса отчёта.
type GetBatchReportQuery struct {
	BatchSlug string
}

// Validate проверяет параметры запроса.
func (q GetBatchReportQuery) Validate() error {
	if _, err := shared.NewBatchSlug(q.BatchSlug); err != nil {
		return err
	}
	return nil
}

// GetBatchReportHandler обрабатывает запрос отчёта по батчу.
type GetBatchReportHandler struct {
	cache     ReportCache
	snapshots ReportSnapshots
}

// NewGetBatchReportHandler создаёт обработчик.
func NewGetBatchReportHandler(cache ReportCache, snapshots ReportSnapshots) *GetBatchReportHandler {
	return &GetBatchReportHandler{cache: cache, snapshots: snapshots}
}

// Handle возвращает последний отчёт по батчу. Кеш не обязателен:
// его промах или отсутствие не ошибка, источник истины - снапшоты.
func (h *GetBatchReportHandler) Handle(ctx context.Context, query GetBatchReportQuery) (*BatchReport, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetBatchReport", shared.ErrValidation, "invalid batch slug", err)
	}
	slug := shared.BatchSlug(query.BatchSlug)

	if h.cache != nil {
		if report, err := h.cache.GetBatchReport(ctx, slug); err == nil && report != nil {
			return report, nil
		}
	}

	report, err := h.snapshots.LatestBatchReport(ctx, slug)
	if err != nil {
		return nil, shared.WrapError("query", "GetBatchReport", shared.ErrNotFound, "no report for batch", err)
	}
	return report, nil
}
