package query

import (
	"context"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/review"
	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEWER REPORT
// Активность ревьюеров: агрегаты по событиям ревью плюс staff-only
// детали для аутентифицированных сотрудников.
// ══════════════════════════════════════════════════════════════════════════════

// ReviewedPRDTO - один PR, который ревьюер смотрел.
type ReviewedPRDTO struct {
	Repo           string    `json:"repo"`
	URL            string    `json:"url"`
	Number         int       `json:"number"`
	LatestReviewAt time.Time `json:"latest_review_at"`
}

// StaffDetailsDTO - внутренние заметки о ревьюере. Поле присутствует в
// отчёте только для staff-запросов.
type StaffDetailsDTO struct {
	Name             string `json:"name"`
	AttendedTraining bool   `json:"attended_training"`
	Checked          string `json:"checked"`
	Quality          string `json:"quality"`
	Notes            string `json:"notes"`
}

// ReviewerDTO - агрегированная активность одного ревьюера.
type ReviewerDTO struct {
	Login        string    `json:"login"`
	TotalReviews int       `json:"total_reviews"`
	LastReviewAt time.Time `json:"last_review_at"`

	// DaysSinceLast - целые сутки с последнего ревью.
	DaysSinceLast int `json:"days_since_last"`

	// ActiveDays28 - число дней с ревью за последние 28 дней.
	ActiveDays28 int `json:"active_days_28"`

	// Bucket - "super-active", "active" или "inactive".
	Bucket string `json:"bucket"`

	ReviewedPRs []ReviewedPRDTO `json:"reviewed_prs"`

	// StaffDetails скрыты от неаутентифицированных запросов. nil значит
	// либо "нет доступа", либо "записи нет"; различает StaffDetailsState.
	StaffDetails      *StaffDetailsDTO `json:"staff_details,omitempty"`
	StaffDetailsState string           `json:"staff_details_state"`
}

// ReviewerReport - итоговый отчёт по ревьюерам курса.
type ReviewerReport struct {
	Course      string        `json:"course"`
	GeneratedAt time.Time     `json:"generated_at"`
	Reviewers   []ReviewerDTO `json:"reviewers"`
}

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// ReviewEventSource отдаёт события ревью, собранные для курса.
type ReviewEventSource interface {
	ReviewEvents(ctx context.Context, course string) ([]review.Event, error)
}

// StaffDetailsRepository хранит staff-заметки о ревьюерах.
// Возвращает ErrNotFound, когда записи нет.
type StaffDetailsRepository interface {
	StaffDetails(ctx context.Context, login shared.GithubLogin) (review.StaffDetails, error)
}

// StaffAuthenticator проверяет staff-токен.
type StaffAuthenticator interface {
	Verify(ctx context.Context, token string) bool
}

// ══════════════════════════════════════════════════════════════════════════════
// GET REVIEWER REPORT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetReviewerReportQuery - параметры запроса.
type GetReviewerReportQuery struct {
	Course string

	// StaffToken открывает staff-only детали. Пустой токен - обычный
	// запрос без деталей, это не ошибка.
	StaffToken string

	// Now - момент, на который считаются метрики давности.
	Now time.Time
}

// Validate проверяет параметры запроса.
func (q GetReviewerReportQuery) Validate() error {
	if q.Course == "" {
		return shared.NewDomainError("query", "GetReviewerReport", shared.ErrEmptyValue, "course is required")
	}
	if q.Now.IsZero() {
		return shared.NewDomainError("query", "GetReviewerReport", shared.ErrInvalidInput, "now is required")
	}
	return nil
}

// GetReviewerReportHandler обрабатывает запрос отчёта по ревьюерам.
type GetReviewerReportHandler struct {
	events     ReviewEventSource
	staff      StaffDetailsRepository
	auth       StaffAuthenticator
	aggregator *review.Aggregator
}

// NewGetReviewerReportHandler создаёт обработчик. staff и auth могут быть
// nil: тогда staff-детали всегда скрыты.
func NewGetReviewerReportHandler(
	events ReviewEventSource,
	staff StaffDetailsRepository,
	auth StaffAuthenticator,
) *GetReviewerReportHandler {
	return &GetReviewerReportHandler{
		events:     events,
		staff:      staff,
		auth:       auth,
		aggregator: review.NewAggregator(),
	}
}

// Handle собирает отчёт по ревьюерам на момент query.Now.
func (h *GetReviewerReportHandler) Handle(ctx context.Context, query GetReviewerReportQuery) (*ReviewerReport, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	events, err := h.events.ReviewEvents(ctx, query.Course)
	if err != nil {
		return nil, shared.WrapError("query", "GetReviewerReport", shared.ErrExternalService, "failed to load review events", err)
	}

	isStaff := h.auth != nil && query.StaffToken != "" && h.auth.Verify(ctx, query.StaffToken)

	activities := h.aggregator.Aggregate(events, query.Now)
	report := &ReviewerReport{Course: query.Course, GeneratedAt: query.Now}

	for _, act := range activities {
		dto := ReviewerDTO{
			Login:         act.Login.String(),
			TotalReviews:  act.TotalReviews,
			LastReviewAt:  act.LastReviewAt,
			DaysSinceLast: act.DaysSinceLast,
			ActiveDays28:  act.ActiveDays28,
			Bucket:        act.Bucket.String(),
		}
		for _, pr := range act.ReviewedPRs {
			dto.ReviewedPRs = append(dto.ReviewedPRs, ReviewedPRDTO{
				Repo:           pr.PR.RepoName,
				URL:            pr.PR.URL,
				Number:         pr.PR.Number,
				LatestReviewAt: pr.LatestReviewAt,
			})
		}

		details := h.staffDetailsFor(ctx, act.Login, isStaff)
		dto.StaffDetailsState = staffStateString(details.State())
		if d, ok := details.Details(); ok {
			dto.StaffDetails = &StaffDetailsDTO{
				Name:             d.Name,
				AttendedTraining: d.AttendedTraining,
				Checked:          d.Checked.String(),
				Quality:          d.Quality,
				Notes:            d.Notes,
			}
		}
		report.Reviewers = append(report.Reviewers, dto)
	}
	return report, nil
}

// staffDetailsFor разрешает staff-детали с учётом аутентификации.
func (h *GetReviewerReportHandler) staffDetailsFor(ctx context.Context, login shared.GithubLogin, isStaff bool) review.MaybeStaffDetails {
	if !isStaff {
		return review.HiddenStaffDetails()
	}
	if h.staff == nil {
		return review.UnknownStaffDetails()
	}
	details, err := h.staff.StaffDetails(ctx, login)
	if err != nil {
		return review.UnknownStaffDetails()
	}
	return review.KnownStaffDetails(details)
}

func staffStateString(s review.StaffDetailsState) string {
	switch s {
	case review.StaffDetailsKnown:
		return "known"
	case review.StaffDetailsUnknown:
		return "unknown"
	default:
		return "hidden"
	}
}
