// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/trainee-hub/trainee-tracker/internal/domain/shared"
	"github.com/trainee-hub/trainee-tracker/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON TRAINEE AT RISK HANDLER
// Обрабатывает событие "трейни в зоне риска" после завершения ранa
// сверки. Уведомляет стафф курса, чтобы вмешательство произошло до
// того, как отставание станет необратимым.
// ═══════════════════════════════════════════════════════════════════════════

// StaffNotifier доставляет уведомления стаффу курса. Конкретный канал
// (почта, чат) - деталь инфраструктуры.
type StaffNotifier interface {
	NotifyStaff(ctx context.Context, course, subject, body string) error
}

// AtRiskConfig содержит конфигурацию обработчика.
type AtRiskConfig struct {
	// NotifyCooldown - минимальный интервал между уведомлениями по
	// одному и тому же трейни. Ран сверки ходит по расписанию, без
	// кулдауна стафф получал бы одно и то же письмо каждый час.
	NotifyCooldown time.Duration
}

// DefaultAtRiskConfig возвращает конфигурацию по умолчанию.
func DefaultAtRiskConfig() AtRiskConfig {
	return AtRiskConfig{NotifyCooldown: 24 * time.Hour}
}

// OnTraineeAtRiskHandler обрабатывает события TraineeAtRiskEvent.
type OnTraineeAtRiskHandler struct {
	notifier StaffNotifier
	log      *logger.Logger
	config   AtRiskConfig

	// lastNotified по логину трейни; обработчик живёт столько же,
	// сколько процесс воркера, межпроцессная дедупликация не нужна.
	lastNotified map[string]time.Time
}

// NewOnTraineeAtRiskHandler создаёт обработчик.
func NewOnTraineeAtRiskHandler(notifier StaffNotifier, log *logger.Logger, config AtRiskConfig) *OnTraineeAtRiskHandler {
	if log == nil {
		log = logger.Default()
	}
	if config.NotifyCooldown == 0 {
		config = DefaultAtRiskConfig()
	}
	return &OnTraineeAtRiskHandler{
		notifier:     notifier,
		log:          log.With(logger.Component("on_trainee_at_risk")),
		config:       config,
		lastNotified: make(map[string]time.Time),
	}
}

// Handle обрабатывает событие. Реализует shared.EventHandler.
func (h *OnTraineeAtRiskHandler) Handle(event shared.Event) error {
	atRisk, ok := event.(shared.TraineeAtRiskEvent)
	if !ok {
		h.log.Warn("received unexpected event type",
			logger.String("event_type", string(event.EventType())),
		)
		return nil
	}

	h.log.Info("trainee scored into at-risk band",
		logger.TraineeLogin(atRisk.TraineeLogin),
		logger.CourseName(atRisk.Course),
		logger.BatchSlug(atRisk.Batch),
		logger.ScoreValue(atRisk.Score),
	)

	if h.notifier == nil {
		return nil
	}

	if last, seen := h.lastNotified[atRisk.TraineeLogin]; seen && time.Since(last) < h.config.NotifyCooldown {
		h.log.Debug("skipping notification inside cooldown",
			logger.TraineeLogin(atRisk.TraineeLogin),
		)
		return nil
	}

	subject := fmt.Sprintf("Trainee at risk: %s (%s)", atRisk.TraineeLogin, atRisk.Batch)
	body := fmt.Sprintf(
		"%s in batch %s of %s has dropped into the at-risk band with a progress score of %d.%02d%%.\n"+
			"Please review their recent submissions and attendance.",
		atRisk.TraineeLogin, atRisk.Batch, atRisk.Course, atRisk.Score/100, atRisk.Score%100,
	)
	if err := h.notifier.NotifyStaff(context.Background(), atRisk.Course, subject, body); err != nil {
		h.log.Error("failed to notify staff",
			logger.TraineeLogin(atRisk.TraineeLogin),
			logger.Err(err),
		)
		return fmt.Errorf("notify staff: %w", err)
	}

	h.lastNotified[atRisk.TraineeLogin] = time.Now()
	return nil
}

// EventType возвращает тип события, который обрабатывает этот handler.
func (h *OnTraineeAtRiskHandler) EventType() shared.EventType {
	return shared.EventTraineeAtRisk
}
