package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON REVIEWER INACTIVE HANDLER
// Обрабатывает событие "ревьюер неактивен". Пул ревьюеров - волонтёры;
// молчание дольше окна обычно значит, что человек выпал и его PR-очередь
// висит. Стафф получает список, чтобы мягко перераспределить нагрузку.
// ═══════════════════════════════════════════════════════════════════════════

// ReviewerInactiveConfig содержит конфигурацию обработчика.
type ReviewerInactiveConfig struct {
	// NotifyCooldown - минимальный интервал между уведомлениями по
	// одному и тому же ревьюеру.
	NotifyCooldown time.Duration
}

// DefaultReviewerInactiveConfig возвращает конфигурацию по умолчанию.
func DefaultReviewerInactiveConfig() ReviewerInactiveConfig {
	// Раз в неделю достаточно: статус меняется медленно.
	return ReviewerInactiveConfig{NotifyCooldown: 7 * 24 * time.Hour}
}

// OnReviewerInactiveHandler обрабатывает события ReviewerInactiveEvent.
type OnReviewerInactiveHandler struct {
	notifier StaffNotifier
	log      *logger.Logger
	config   ReviewerInactiveConfig

	lastNotified map[string]time.Time
}

// NewOnReviewerInactiveHandler создаёт обработчик.
func NewOnReviewerInactiveHandler(notifier StaffNotifier, log *logger.Logger, config ReviewerInactiveConfig) *OnReviewerInactiveHandler {
	if log == nil {
		log = logger.Default()
	}
	if config.NotifyCooldown == 0 {
		config = DefaultReviewerInactiveConfig()
	}
	return &OnReviewerInactiveHandler{
		notifier:     notifier,
		log:          log.With(logger.Component("on_reviewer_inactive")),
		config:       config,
		lastNotified: make(map[string]time.Time),
	}
}

// Handle обрабатывает событие. Реализует shared.EventHandler.
func (h *OnReviewerInactiveHandler) Handle(event shared.Event) error {
	inactive, ok := event.(shared.ReviewerInactiveEvent)
	if !ok {
		h.log.Warn("received unexpected event type",
			logger.String("event_type", string(event.EventType())),
		)
		return nil
	}

	h.log.Info("reviewer inactive",
		logger.ReviewerLogin(inactive.ReviewerLogin),
		logger.CourseName(inactive.Course),
		logger.Int("days_inactive", inactive.DaysInactive),
	)

	if h.notifier == nil {
		return nil
	}
	if last, seen := h.lastNotified[inactive.ReviewerLogin]; seen && time.Since(last) < h.config.NotifyCooldown {
		return nil
	}

	subject := fmt.Sprintf("Reviewer inactive: %s", inactive.ReviewerLogin)
	body := fmt.Sprintf(
		"%s has not reviewed anything on %s for %d days (last review %s).\n"+
			"Consider redistributing their queue or checking in with them.",
		inactive.ReviewerLogin, inactive.Course, inactive.DaysInactive,
		inactive.LastReviewAt.Format("2006-01-02"),
	)
	if err := h.notifier.NotifyStaff(context.Background(), inactive.Course, subject, body); err != nil {
		h.log.Error("failed to notify staff",
			logger.ReviewerLogin(inactive.ReviewerLogin),
			logger.Err(err),
		)
		return fmt.Errorf("notify staff: %w", err)
	}

	h.lastNotified[inactive.ReviewerLogin] = time.Now()
	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnReviewerInactiveHandler) EventType() shared.EventType {
	return shared.EventReviewerInactive
}
